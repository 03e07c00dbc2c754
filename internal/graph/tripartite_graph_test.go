package graph

import (
	"testing"
	"time"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

func TestTripartiteGraph_NoSameTypeEdge(t *testing.T) {
	visits := []models.Visit{
		{PersonID: "A", FlxMedOrgID: "org1", AdmDate: "2023-01-01", AdmTime: time.Now()},
	}
	g := NewTripartiteGraph(visits, []string{"A"})
	person := VertexID{Person, "A"}
	for nbr := range g.Neighbors(person) {
		if nbr.Type == Person {
			t.Fatalf("found person-person edge, violates tripartite invariant")
		}
	}
}

func TestTripartiteGraph_RestrictedToG1Persons(t *testing.T) {
	visits := []models.Visit{
		{PersonID: "A", FlxMedOrgID: "org1", AdmDate: "2023-01-01", AdmTime: time.Now()},
		{PersonID: "Z", FlxMedOrgID: "org1", AdmDate: "2023-01-01", AdmTime: time.Now()},
	}
	g := NewTripartiteGraph(visits, []string{"A"})
	if g.Has(VertexID{Person, "Z"}) {
		t.Fatalf("expected person Z (not a G1 vertex) to be excluded")
	}
	if !g.Has(VertexID{Person, "A"}) {
		t.Fatalf("expected person A to be present")
	}
}

func TestTripartiteGraph_EdgeWeightCountsVisits(t *testing.T) {
	visits := []models.Visit{
		{PersonID: "A", FlxMedOrgID: "org1", AdmDate: "2023-01-01", AdmTime: time.Now()},
		{PersonID: "A", FlxMedOrgID: "org1", AdmDate: "2023-01-01", AdmTime: time.Now()},
	}
	g := NewTripartiteGraph(visits, []string{"A"})
	weight := g.Neighbors(VertexID{Person, "A"})[VertexID{Institution, "org1"}]
	if weight != 2 {
		t.Fatalf("expected weight 2 for two visits at the same institution, got %d", weight)
	}
}

func TestTripartiteGraph_RemoveVertexDropsIncidentEdges(t *testing.T) {
	visits := []models.Visit{
		{PersonID: "A", FlxMedOrgID: "org1", AdmDate: "2023-01-01", AdmTime: time.Now()},
	}
	g := NewTripartiteGraph(visits, []string{"A"})
	g.RemoveVertex(VertexID{Institution, "org1"})
	if _, ok := g.Neighbors(VertexID{Person, "A"})[VertexID{Institution, "org1"}]; ok {
		t.Fatalf("expected person A to lose its edge after institution removal")
	}
	if len(g.Neighbors(VertexID{Person, "A"})) != 1 {
		t.Fatalf("expected person A to keep only its time edge, got %v", g.Neighbors(VertexID{Person, "A"}))
	}
}
