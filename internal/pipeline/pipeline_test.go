package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/healthrisk/cardagg-engine/internal/store"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

func visitRow(person, org, date string, t time.Time) models.Visit {
	return models.Visit{
		PersonID: person, FlxMedOrgID: org, MedType: "11",
		AdmDate: date, AdmTime: t, MedClinicID: person + org + t.String(),
	}
}

func TestRunWindow_EmptyInputYieldsNilResultNoError(t *testing.T) {
	src := &store.MemoryDataSource{}
	p := Pipeline{Source: src, Params: Params{MinCount: 1, MinSize: 1, MaxSize: 100}}

	res, err := p.RunWindow(context.Background(), models.WindowMetadata{InputBegnDate: "2023-01-01", InputEndDate: "2023-01-31"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil result for empty input, got %+v", res)
	}
}

func TestRunWindow_EndToEndProducesGroups(t *testing.T) {
	var visits []models.Visit
	base := time.Date(2023, 1, 5, 8, 0, 0, 0, time.UTC)
	dates := []string{"2023-01-05", "2023-01-06", "2023-01-07", "2023-01-08"}
	persons := []string{"A", "B", "C", "D"}
	for _, p := range persons {
		for i, d := range dates {
			visits = append(visits, visitRow(p, "org1", d, base.AddDate(0, 0, i)))
		}
	}

	src := &store.MemoryDataSource{Visits: visits}
	sink := store.NewMemoryResultSink()
	p := Pipeline{
		Source: src,
		Sink:   sink,
		Params: Params{
			TimeInterval:              3600,
			MinCount:                  2,
			MinSize:                   2,
			MaxSize:                   100,
			MinJgNum:                  1,
			MinPersonRatioInSubgroup:  0.0,
			MinRiskClinicRatioInGroup: 0.0,
			ResolutionParameter:       1.0,
			NJobs:                     1,
		},
	}

	meta := models.WindowMetadata{
		ModelNo: "run1", InputBegnDate: "2023-01-01", InputEndDate: "2023-01-31", GroupIDPrefix: "1000",
	}
	res, err := p.RunWindow(context.Background(), meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatalf("expected a non-nil result for a well-formed clique of co-visiting persons")
	}
	if len(sink.ByModelNo["run1"]) != len(res.Groups) {
		t.Fatalf("expected sink to receive exactly the groups returned: sink=%d result=%d",
			len(sink.ByModelNo["run1"]), len(res.Groups))
	}
}

func TestRunWindow_CancelledContextAbortsBeforeMining(t *testing.T) {
	visits := []models.Visit{visitRow("A", "org1", "2023-01-01", time.Now())}
	src := &store.MemoryDataSource{Visits: visits}
	p := Pipeline{Source: src, Params: Params{MinCount: 1, MinSize: 1, MaxSize: 100}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.RunWindow(ctx, models.WindowMetadata{InputBegnDate: "2023-01-01", InputEndDate: "2023-01-31"})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
