package graph

import (
	"sort"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// VertexType labels a TripartiteGraph vertex.
type VertexType int

const (
	Person VertexType = iota
	Institution
	Time
)

// VertexID identifies a G2 vertex by its type and label; a person "p1"
// and a time "p1" never collide because the type is part of the key.
type VertexID struct {
	Type  VertexType
	Label string
}

// TripartiteGraph is G2: a labeled-vertex adjacency graph over persons,
// institutions and times, with edges only between person and
// institution, or person and time (spec §4.C invariant: no same-type
// edge).
type TripartiteGraph struct {
	vertexType map[VertexID]VertexType
	adj        map[VertexID]map[VertexID]int
}

func newTripartiteGraph() *TripartiteGraph {
	return &TripartiteGraph{
		vertexType: make(map[VertexID]VertexType),
		adj:        make(map[VertexID]map[VertexID]int),
	}
}

func (g *TripartiteGraph) addVertex(id VertexID) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[VertexID]int)
		g.vertexType[id] = id.Type
	}
}

// addEdge increments the weight of an edge between two differently-typed
// vertices. Same-type edges are rejected (programmer error, not a data
// error) since the builder below never constructs one.
func (g *TripartiteGraph) addEdge(a, b VertexID, delta int) {
	if a.Type == b.Type {
		return
	}
	g.addVertex(a)
	g.addVertex(b)
	g.adj[a][b] += delta
	g.adj[b][a] += delta
}

// NewTripartiteGraph builds G2 from visits restricted to the given
// G1-vertex person set, per spec §4.C: one person vertex per G1 person,
// one institution vertex per distinct flx_med_org_id, one time vertex
// per distinct adm_date, (person, institution) and (time, person) edges
// weighted by visit-combination counts.
func NewTripartiteGraph(visits []models.Visit, g1Persons []string) *TripartiteGraph {
	keep := make(map[string]bool, len(g1Persons))
	for _, p := range g1Persons {
		keep[p] = true
	}
	g := newTripartiteGraph()
	for _, p := range g1Persons {
		g.addVertex(VertexID{Person, p})
	}
	for _, v := range visits {
		if !keep[v.PersonID] {
			continue
		}
		person := VertexID{Person, v.PersonID}
		inst := VertexID{Institution, v.FlxMedOrgID}
		tm := VertexID{Time, v.AdmDate}
		g.addEdge(person, inst, 1)
		g.addEdge(person, tm, 1)
	}
	return g
}

// Neighbors returns id's adjacent vertices and edge weights.
func (g *TripartiteGraph) Neighbors(id VertexID) map[VertexID]int {
	return g.adj[id]
}

// Degree returns the unweighted neighbor count of id.
func (g *TripartiteGraph) Degree(id VertexID) int {
	return len(g.adj[id])
}

// VerticesOfType lists, sorted by label, every vertex of the given type.
func (g *TripartiteGraph) VerticesOfType(t VertexType) []VertexID {
	var out []VertexID
	for id := range g.adj {
		if id.Type == t {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Has reports whether id is a vertex of g.
func (g *TripartiteGraph) Has(id VertexID) bool {
	_, ok := g.adj[id]
	return ok
}

// Induce returns the subgraph restricted to the given vertex set.
func (g *TripartiteGraph) Induce(ids []VertexID) *TripartiteGraph {
	keep := make(map[VertexID]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	sub := newTripartiteGraph()
	for _, id := range ids {
		sub.addVertex(id)
	}
	for v := range keep {
		for u, w := range g.adj[v] {
			if keep[u] {
				sub.adj[v][u] = w
			}
		}
	}
	return sub
}

// RemoveVertex deletes id and every edge touching it.
func (g *TripartiteGraph) RemoveVertex(id VertexID) {
	for u := range g.adj[id] {
		delete(g.adj[u], id)
	}
	delete(g.adj, id)
	delete(g.vertexType, id)
}

// NeighborsOfType returns the subset of id's neighbors with type t.
func (g *TripartiteGraph) NeighborsOfType(id VertexID, t VertexType) []VertexID {
	var out []VertexID
	for nbr := range g.adj[id] {
		if nbr.Type == t {
			out = append(out, nbr)
		}
	}
	return out
}

// MeanDegree returns the mean unweighted degree over every vertex of
// type t (0 if none exist).
func (g *TripartiteGraph) MeanDegree(t VertexType) float64 {
	total, n := 0, 0
	for id, nbrs := range g.adj {
		if id.Type == t {
			total += len(nbrs)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}
