package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ParsesNestedParamsBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
start_date: "2023-01-01"
end_date: "2023-06-30"
admdvs: "110000"
model_no: "run-1"
postgres:
  dsn: "postgres://localhost/cardagg"
params:
  rsk_crd_gtr:
    time_interval: 1800
    min_count: 5
    min_size: 8
    max_size: 80
    min_jg_num: 2
    min_person_ratio_in_subgroup: 0.25
    min_risk_clinic_ratio_in_group: 0.4
    resolution_parameter: 1.2
    n_jobs: 4
    window_size: 2
    step_size: 2
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StartDate != "2023-01-01" || cfg.Admdvs != "110000" {
		t.Fatalf("unexpected top-level fields: %+v", cfg)
	}
	p := cfg.Params.RskCrdGtr
	if p.TimeInterval != 1800 || p.MinCount != 5 || p.NJobs != 4 {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
