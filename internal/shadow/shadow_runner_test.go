package shadow

import (
	"context"
	"math"
	"testing"

	"github.com/healthrisk/cardagg-engine/internal/community"
	"github.com/healthrisk/cardagg-engine/internal/graph"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

func cliqueGraph(persons []string) *graph.PersonGraph {
	var pairs []models.RiskPair
	for i := 0; i < len(persons); i++ {
		for j := i + 1; j < len(persons); j++ {
			pairs = append(pairs, models.RiskPair{PersonA: persons[i], PersonB: persons[j], Jzcs: 3, JgNum: 1})
		}
	}
	return graph.NewPersonGraph(pairs)
}

func TestLabelVectors_IdenticalPartitionsYieldSameLabelsPerGroup(t *testing.T) {
	a := [][]string{{"x", "y"}, {"z"}}
	b := [][]string{{"x", "y"}, {"z"}}

	la, lb := labelVectors(a, b)
	if len(la) != 3 || len(lb) != 3 {
		t.Fatalf("expected 3 entries, got %d/%d", len(la), len(lb))
	}
	for i := range la {
		if la[i] != lb[i] {
			t.Fatalf("expected identical labels for identical partitions, got %v vs %v", la, lb)
		}
	}
}

func TestRunShadowAnalysis_IdenticalConfigsYieldPerfectAgreement(t *testing.T) {
	persons := make([]string, 12)
	for i := range persons {
		persons[i] = string(rune('a' + i))
	}
	g1 := cliqueGraph(persons)

	// 0.5 puts the outer Leiden pass at resolution 1.0, where the clique
	// forms one community; at 2.0 every vertex stays a singleton and is
	// dropped by MinSize, leaving nothing to compare.
	opt := community.Options{ResolutionParameter: 0.5, MinSize: 2, MaxSize: 100, NJobs: 1}
	sr := NewShadowRunner(nil, 1, opt, opt)

	res, err := sr.RunShadowAnalysis(context.Background(), "2023-01", g1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.AdjustedRandIndex-1.0) > 0.01 {
		t.Fatalf("expected ARI near 1.0 for identical configurations, got %f", res.AdjustedRandIndex)
	}
	if math.Abs(res.VariationOfInfo) > 0.01 {
		t.Fatalf("expected VI near 0 for identical configurations, got %f", res.VariationOfInfo)
	}
}

func TestRunShadowAnalysis_NoPoolSkipsPersistence(t *testing.T) {
	g1 := cliqueGraph([]string{"a", "b", "c"})
	opt := community.Options{ResolutionParameter: 1.0, MinSize: 1, MaxSize: 100, NJobs: 1}
	sr := NewShadowRunner(nil, 1, opt, opt)

	if _, err := sr.RunShadowAnalysis(context.Background(), "window", g1); err != nil {
		t.Fatalf("expected no error with nil pool, got %v", err)
	}
}
