package community

import (
	"testing"

	"github.com/healthrisk/cardagg-engine/internal/graph"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

func cliquePairs(persons []string) []models.RiskPair {
	var pairs []models.RiskPair
	for i := 0; i < len(persons); i++ {
		for j := i + 1; j < len(persons); j++ {
			pairs = append(pairs, models.RiskPair{PersonA: persons[i], PersonB: persons[j], Jzcs: 5, JgNum: 1})
		}
	}
	return pairs
}

func personID(i int) string {
	// zero-padded so lexicographic order matches numeric order
	b := []byte{'p', '0' + byte(i/100%10), '0' + byte(i/10%10), '0' + byte(i%10)}
	return string(b)
}

func TestDetect_S5_TwoHundredPersonCliqueSplitsWithinBounds(t *testing.T) {
	persons := make([]string, 200)
	for i := range persons {
		persons[i] = personID(i)
	}
	g1 := graph.NewPersonGraph(cliquePairs(persons))

	res := Detect(g1, Options{ResolutionParameter: 1.0, MinSize: 10, MaxSize: 100, NJobs: 1})

	if len(res.Communities) < 2 {
		t.Fatalf("expected at least two communities, got %d", len(res.Communities))
	}
	covered := make(map[string]bool)
	for _, c := range res.Communities {
		if len(c) > 100 && res.Warning == nil {
			t.Fatalf("community exceeds max_size without an algorithm-limit warning: size %d", len(c))
		}
		if len(c) < 10 && res.Warning == nil {
			t.Fatalf("community below min_size: size %d", len(c))
		}
		for _, p := range c {
			covered[p] = true
		}
	}
	if len(covered) != 200 {
		t.Fatalf("expected union to cover all 200 persons, covered %d", len(covered))
	}
}

func TestDetect_CommunityExactlyMaxSizeNotSplit(t *testing.T) {
	persons := make([]string, 20)
	for i := range persons {
		persons[i] = personID(i)
	}
	g1 := graph.NewPersonGraph(cliquePairs(persons))

	res := Detect(g1, Options{ResolutionParameter: 0.5, MinSize: 1, MaxSize: 20, NJobs: 1})
	if len(res.Communities) != 1 {
		t.Fatalf("expected single community at exactly max_size, got %d", len(res.Communities))
	}
	if len(res.Communities[0]) != 20 {
		t.Fatalf("expected community of size 20, got %d", len(res.Communities[0]))
	}
	if res.Warning != nil {
		t.Fatalf("did not expect an algorithm-limit warning")
	}
}

func TestDetect_DropsCommunitiesBelowMinSize(t *testing.T) {
	g1 := graph.NewPersonGraph([]models.RiskPair{{PersonA: "A", PersonB: "B", Jzcs: 1, JgNum: 1}})
	res := Detect(g1, Options{ResolutionParameter: 1.0, MinSize: 5, MaxSize: 100, NJobs: 1})
	for _, c := range res.Communities {
		if len(c) < 5 {
			t.Fatalf("found community below min_size with no cap triggered: %v", c)
		}
	}
}
