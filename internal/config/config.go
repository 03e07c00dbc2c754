// Package config loads the recognized configuration keys (spec §6.3)
// from YAML, mirroring the original's yaml.safe_load(config_file)
// followed by config.update(config['params']['rsk_crd_gtr']).
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Params holds every recognized tuning knob from spec §6.3.
type Params struct {
	TimeInterval              int64   `yaml:"time_interval"`
	MinCount                  int     `yaml:"min_count"`
	MinSize                   int     `yaml:"min_size"`
	MaxSize                   int     `yaml:"max_size"`
	MinJgNum                  int     `yaml:"min_jg_num"`
	MinPersonRatioInSubgroup  float64 `yaml:"min_person_ratio_in_subgroup"`
	MinRiskClinicRatioInGroup float64 `yaml:"min_risk_clinic_ratio_in_group"`
	ResolutionParameter       float64 `yaml:"resolution_parameter"`
	NJobs                     int     `yaml:"n_jobs"`
	WindowSize                int     `yaml:"window_size"`
	StepSize                  int     `yaml:"step_size"`
}

// Config is the top-level document: connection/run settings plus the
// nested `params.rsk_crd_gtr` block the original config schema uses.
type Config struct {
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	Admdvs    string `yaml:"admdvs"`
	ModelNo   string `yaml:"model_no"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	Params struct {
		RskCrdGtr Params `yaml:"rsk_crd_gtr"`
	} `yaml:"params"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cardagg: read config %s: %w", path, err)
	}
	var cfg Config
	cfg.Params.RskCrdGtr = Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cardagg: parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Defaults returns the parameter values the original CLI falls back to
// when a key is absent from the YAML document.
func Defaults() Params {
	return Params{
		TimeInterval:              3600,
		MinCount:                  3,
		MinSize:                   10,
		MaxSize:                   100,
		MinJgNum:                  1,
		MinPersonRatioInSubgroup:  0.3,
		MinRiskClinicRatioInGroup: 0.3,
		ResolutionParameter:       1.0,
		NJobs:                     1,
		WindowSize:                3,
		StepSize:                  3,
	}
}
