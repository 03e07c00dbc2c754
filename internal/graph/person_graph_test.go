package graph

import (
	"testing"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

func TestPersonGraph_VerticesAreUnionOfPairEndpoints(t *testing.T) {
	g := NewPersonGraph([]models.RiskPair{
		{PersonA: "A", PersonB: "B", Jzcs: 5, JgNum: 1},
		{PersonA: "B", PersonB: "C", Jzcs: 3, JgNum: 1},
	})
	verts := g.Vertices()
	if len(verts) != 3 {
		t.Fatalf("expected 3 vertices, got %d: %v", len(verts), verts)
	}
}

func TestPersonGraph_EdgeWeightIsJzcs(t *testing.T) {
	g := NewPersonGraph([]models.RiskPair{{PersonA: "A", PersonB: "B", Jzcs: 7, JgNum: 1}})
	if g.Neighbors("A")["B"] != 7 {
		t.Fatalf("expected weight 7, got %d", g.Neighbors("A")["B"])
	}
	if g.Neighbors("B")["A"] != 7 {
		t.Fatalf("expected symmetric weight 7, got %d", g.Neighbors("B")["A"])
	}
}

func TestPersonGraph_Connected(t *testing.T) {
	g := NewPersonGraph([]models.RiskPair{
		{PersonA: "A", PersonB: "B", Jzcs: 1, JgNum: 1},
		{PersonA: "B", PersonB: "C", Jzcs: 1, JgNum: 1},
	})
	if !g.Connected() {
		t.Fatalf("expected connected graph")
	}
}

func TestPersonGraph_Disconnected(t *testing.T) {
	g := NewPersonGraph([]models.RiskPair{
		{PersonA: "A", PersonB: "B", Jzcs: 1, JgNum: 1},
		{PersonA: "C", PersonB: "D", Jzcs: 1, JgNum: 1},
	})
	if g.Connected() {
		t.Fatalf("expected disconnected graph")
	}
}

func TestPersonGraph_Induce(t *testing.T) {
	g := NewPersonGraph([]models.RiskPair{
		{PersonA: "A", PersonB: "B", Jzcs: 1, JgNum: 1},
		{PersonA: "B", PersonB: "C", Jzcs: 1, JgNum: 1},
	})
	sub := g.Induce([]string{"A", "B"})
	if sub.Order() != 2 {
		t.Fatalf("expected 2 vertices in induced subgraph, got %d", sub.Order())
	}
	if _, ok := sub.Neighbors("B")["C"]; ok {
		t.Fatalf("expected C to be excluded from induced subgraph")
	}
}
