package prune

import (
	"testing"
	"time"

	"github.com/healthrisk/cardagg-engine/internal/graph"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

func TestPrune_DiscardsWhenInitialGateFails(t *testing.T) {
	visits := []models.Visit{
		{PersonID: "A", FlxMedOrgID: "org1", AdmDate: "2023-01-01", AdmTime: time.Now()},
	}
	g2 := graph.NewTripartiteGraph(visits, []string{"A"})

	_, ok := Prune(g2, []string{"A"}, Options{MinCount: 5, MinJgNum: 1, MinSize: 1})
	if ok {
		t.Fatalf("expected gate failure (only 1 time vertex, need 5)")
	}
}

func TestPrune_EmitsCohortWhenGatePasses(t *testing.T) {
	var visits []models.Visit
	persons := []string{"A", "B", "C"}
	dates := []string{"2023-01-01", "2023-01-02", "2023-01-03"}
	for _, p := range persons {
		for _, d := range dates {
			visits = append(visits, models.Visit{PersonID: p, FlxMedOrgID: "org1", AdmDate: d, AdmTime: time.Now()})
		}
	}
	g2 := graph.NewTripartiteGraph(visits, persons)

	cohort, ok := Prune(g2, persons, Options{MinCount: 2, MinJgNum: 1, MinSize: 2})
	if !ok {
		t.Fatalf("expected cohort to survive pruning")
	}
	if cohort.Size != 3 {
		t.Fatalf("expected cohort size 3, got %d", cohort.Size)
	}
	if len(cohort.Times) != 3 {
		t.Fatalf("expected 3 surviving time vertices, got %d: %v", len(cohort.Times), cohort.Times)
	}
}

func TestPrune_DropsWeaklyConnectedPerson(t *testing.T) {
	var visits []models.Visit
	dates := []string{"2023-01-01", "2023-01-02", "2023-01-03", "2023-01-04", "2023-01-05"}
	// A, B, C all co-visit every date — strong core.
	for _, p := range []string{"A", "B", "C"} {
		for _, d := range dates {
			visits = append(visits, models.Visit{PersonID: p, FlxMedOrgID: "org1", AdmDate: d, AdmTime: time.Now()})
		}
	}
	// D visits only once — weak, should be pruned out by the person-time
	// threshold max(min_count=2, 0.05*i*|ts|).
	visits = append(visits, models.Visit{PersonID: "D", FlxMedOrgID: "org1", AdmDate: dates[0], AdmTime: time.Now()})

	g2 := graph.NewTripartiteGraph(visits, []string{"A", "B", "C", "D"})
	cohort, ok := Prune(g2, []string{"A", "B", "C", "D"}, Options{MinCount: 2, MinJgNum: 1, MinSize: 2})
	if !ok {
		t.Fatalf("expected cohort to survive")
	}
	for _, p := range cohort.Persons {
		if p == "D" {
			t.Fatalf("expected weakly connected person D to be pruned, got persons %v", cohort.Persons)
		}
	}
}
