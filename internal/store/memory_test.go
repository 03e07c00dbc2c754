package store

import (
	"context"
	"testing"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

func TestMemoryDataSource_FiltersByDateRangeAndAdmdvs(t *testing.T) {
	ds := &MemoryDataSource{Visits: []models.Visit{
		{PersonID: "A", AdmDate: "2023-01-01", Admdvs: "110000"},
		{PersonID: "B", AdmDate: "2023-02-01", Admdvs: "110000"},
		{PersonID: "C", AdmDate: "2023-01-15", Admdvs: "220000"},
	}}
	got, err := ds.Fetch(context.Background(), "2023-01-01", "2023-01-31", "110000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].PersonID != "A" {
		t.Fatalf("expected only person A in range/jurisdiction, got %+v", got)
	}
}

func TestMemoryResultSink_OverwritesByModelNo(t *testing.T) {
	sink := NewMemoryResultSink()
	meta := models.WindowMetadata{ModelNo: "m1"}
	_ = sink.PersistGroups(context.Background(), meta, []models.RiskGroup{{PersonID: "A"}})
	_ = sink.PersistGroups(context.Background(), meta, []models.RiskGroup{{PersonID: "B"}})
	if len(sink.ByModelNo["m1"]) != 1 || sink.ByModelNo["m1"][0].PersonID != "B" {
		t.Fatalf("expected idempotent overwrite, got %+v", sink.ByModelNo["m1"])
	}
}
