package graph

import "github.com/healthrisk/cardagg-engine/pkg/models"

// Graphs bundles the pair of graphs a window builds once per run, per
// spec §4.C.
type Graphs struct {
	G1 *PersonGraph
	G2 *TripartiteGraph
}

// Build constructs G1 from risk pairs and G2 from visits restricted to
// G1's vertex set.
func Build(pairs []models.RiskPair, visits []models.Visit) Graphs {
	g1 := NewPersonGraph(pairs)
	g2 := NewTripartiteGraph(visits, g1.Vertices())
	return Graphs{G1: g1, G2: g2}
}
