// Package community runs Leiden modularity-based community detection on
// G1 with recursive size-bounded refinement (spec §4.D). No graph-
// community library appears anywhere in the retrieval pack, so this is a
// from-scratch implementation grounded on the Nucleus reference: a
// local-moving phase followed by a refinement pass that splits any
// community left disconnected by the moving phase.
package community

import (
	"math/rand"
	"sort"
	"strconv"

	"github.com/healthrisk/cardagg-engine/internal/graph"
)

type adjacency map[string]map[string]float64

func buildAdjacency(g *graph.PersonGraph) adjacency {
	adj := make(adjacency)
	for _, v := range g.Vertices() {
		nbrs := make(map[string]float64, len(g.Neighbors(v)))
		for u, w := range g.Neighbors(v) {
			nbrs[u] = float64(w)
		}
		adj[v] = nbrs
	}
	return adj
}

// leidenPartition runs one level of Leiden local-moving plus refinement
// on g, at the given resolution, returning a person -> community-id
// partition.
func leidenPartition(g *graph.PersonGraph, resolution float64, maxIterations int, rng *rand.Rand) map[string]string {
	adj := buildAdjacency(g)
	partition := make(map[string]string, len(adj))
	for node := range adj {
		partition[node] = node
	}
	if len(adj) == 0 {
		return partition
	}

	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}

	totalWeight := 0.0
	for _, nbrs := range adj {
		for _, w := range nbrs {
			totalWeight += w
		}
	}
	m := totalWeight / 2
	if m == 0 {
		return partition
	}

	degree := make(map[string]float64, len(adj))
	for n, nbrs := range adj {
		sum := 0.0
		for _, w := range nbrs {
			sum += w
		}
		degree[n] = sum
	}

	improved := true
	for iter := 0; iter < maxIterations && improved; iter++ {
		improved = false
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })

		commDegree := make(map[string]float64)
		for n := range adj {
			commDegree[partition[n]] += degree[n]
		}

		for _, node := range nodes {
			currentComm := partition[node]
			neighborWeight := make(map[string]float64)
			for nbr, w := range adj[node] {
				neighborWeight[partition[nbr]] += w
			}

			bestComm := currentComm
			bestDelta := 0.0
			selfWeightToCurrent := neighborWeight[currentComm]
			degOutExcl := commDegree[currentComm] - degree[node]

			for comm, wTo := range neighborWeight {
				if comm == currentComm {
					continue
				}
				degInExcl := commDegree[comm]
				delta := (wTo - selfWeightToCurrent) / m
				delta -= resolution * degree[node] * (degInExcl - degOutExcl) / (2 * m * m)
				if delta > bestDelta {
					bestDelta = delta
					bestComm = comm
				}
			}

			if bestComm != currentComm && bestDelta > 1e-12 {
				commDegree[currentComm] -= degree[node]
				commDegree[bestComm] += degree[node]
				partition[node] = bestComm
				improved = true
			}
		}
	}

	return refinePartition(adj, partition)
}

// refinePartition is the Leiden refinement step: any community the
// local-moving phase left internally disconnected is split back into
// its connected components, guaranteeing every emitted community is
// well-connected.
func refinePartition(adj adjacency, partition map[string]string) map[string]string {
	members := make(map[string][]string)
	for node, comm := range partition {
		members[comm] = append(members[comm], node)
	}

	refined := make(map[string]string, len(partition))
	for node, comm := range partition {
		refined[node] = comm
	}

	for comm, nodes := range members {
		if len(nodes) <= 1 {
			continue
		}
		components := connectedComponents(adj, nodes)
		for i, comp := range components {
			if i == 0 {
				continue
			}
			newComm := comm + "#" + strconv.Itoa(i)
			for _, node := range comp {
				refined[node] = newComm
			}
		}
	}
	return refined
}

func connectedComponents(adj adjacency, nodes []string) [][]string {
	inSet := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inSet[n] = true
	}
	visited := make(map[string]bool, len(nodes))

	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)

	var components [][]string
	for _, start := range sorted {
		if visited[start] {
			continue
		}
		var component []string
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			component = append(component, node)
			nbrIDs := make([]string, 0, len(adj[node]))
			for nbr := range adj[node] {
				nbrIDs = append(nbrIDs, nbr)
			}
			sort.Strings(nbrIDs)
			for _, nbr := range nbrIDs {
				if inSet[nbr] && !visited[nbr] {
					visited[nbr] = true
					queue = append(queue, nbr)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// groupByCommunity groups a partition's persons into community member
// lists, sorted by leader (smallest member id) for deterministic output
// order.
func groupByCommunity(partition map[string]string) [][]string {
	groups := make(map[string][]string)
	for node, comm := range partition {
		groups[comm] = append(groups[comm], node)
	}
	out := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
