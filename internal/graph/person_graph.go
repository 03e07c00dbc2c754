// Package graph builds and manipulates the two graphs the detector runs
// over (spec §4.C): G1, the weighted person-person graph risk pairs
// induce, and G2, the labeled tripartite person/institution/time graph.
package graph

import (
	"sort"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// PersonGraph is G1: a simple weighted undirected graph over persons,
// adjacency-list keyed by person id, grounded on the teacher's
// ClusterEngine map-of-maps idiom.
type PersonGraph struct {
	adj map[string]map[string]int
}

// NewPersonGraph builds G1 from risk pairs: vertices are the union of
// both endpoints, edge weight is jzcs.
func NewPersonGraph(pairs []models.RiskPair) *PersonGraph {
	g := &PersonGraph{adj: make(map[string]map[string]int)}
	for _, p := range pairs {
		g.addVertex(p.PersonA)
		g.addVertex(p.PersonB)
		g.adj[p.PersonA][p.PersonB] = p.Jzcs
		g.adj[p.PersonB][p.PersonA] = p.Jzcs
	}
	return g
}

func (g *PersonGraph) addVertex(p string) {
	if _, ok := g.adj[p]; !ok {
		g.adj[p] = make(map[string]int)
	}
}

// Vertices returns the persons in G1, sorted for deterministic iteration.
func (g *PersonGraph) Vertices() []string {
	out := make([]string, 0, len(g.adj))
	for v := range g.adj {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Neighbors returns person's adjacent vertices and edge weights.
func (g *PersonGraph) Neighbors(person string) map[string]int {
	return g.adj[person]
}

// Degree returns the weighted degree (sum of incident edge weights).
func (g *PersonGraph) Degree(person string) int {
	total := 0
	for _, w := range g.adj[person] {
		total += w
	}
	return total
}

// Order is the vertex count.
func (g *PersonGraph) Order() int { return len(g.adj) }

// EdgeCount returns the number of undirected edges.
func (g *PersonGraph) EdgeCount() int {
	count := 0
	for v, nbrs := range g.adj {
		for u := range nbrs {
			if v < u {
				count++
			}
		}
	}
	return count
}

// TotalWeight sums every edge's weight once.
func (g *PersonGraph) TotalWeight() float64 {
	total := 0.0
	for v, nbrs := range g.adj {
		for u, w := range nbrs {
			if v < u {
				total += float64(w)
			}
		}
	}
	return total
}

// Induce returns the subgraph restricted to the given vertex set; edges
// with an endpoint outside the set are dropped.
func (g *PersonGraph) Induce(vertices []string) *PersonGraph {
	keep := make(map[string]bool, len(vertices))
	for _, v := range vertices {
		keep[v] = true
	}
	sub := &PersonGraph{adj: make(map[string]map[string]int)}
	for _, v := range vertices {
		sub.addVertex(v)
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

// Connected reports whether the graph (as induced) is a single connected
// component. An empty or singleton graph is trivially connected.
func (g *PersonGraph) Connected() bool {
	verts := g.Vertices()
	if len(verts) <= 1 {
		return true
	}
	uf := NewUnionFind()
	for _, v := range verts {
		uf.Find(v)
	}
	for v, nbrs := range g.adj {
		for u := range nbrs {
			uf.Union(v, u)
		}
	}
	root := uf.Find(verts[0])
	for _, v := range verts[1:] {
		if uf.Find(v) != root {
			return false
		}
	}
	return true
}

// MeanDegree returns the arithmetic mean unweighted degree (neighbor
// count, not edge weight) across the graph's vertices.
func (g *PersonGraph) MeanDegree() float64 {
	if len(g.adj) == 0 {
		return 0
	}
	total := 0
	for _, nbrs := range g.adj {
		total += len(nbrs)
	}
	return float64(total) / float64(len(g.adj))
}
