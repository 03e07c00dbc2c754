// Package prune implements the tripartite pruner (spec §4.E): for each
// community of persons, induce the surrounding G2 neighborhood and
// iteratively drop weakly-connected persons, institutions and times
// until a fixed point, emitting the surviving cohort.
package prune

import (
	"math"
	"sort"

	"github.com/healthrisk/cardagg-engine/internal/graph"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// maxIterations is the pruning loop's hard cap (spec §4.E step 4); the
// loop is monotone (vertices only removed) and stops early at the first
// iteration that removes nothing, and the cap bounds worst-case work.
const maxIterations = 10

// Options configures the pruner; MinCount doubles as the person-time
// gate's baseline and the gate's |times| minimum, matching the spec's
// overloaded use of min_count. MinJgNum is the gate's |jg| minimum.
type Options struct {
	MinCount  int
	MinJgNum  int
	MinSize   int
}

// Prune runs the tripartite pruning loop on one community, returning the
// surviving cohort and false if the community failed the gate.
func Prune(g2 *graph.TripartiteGraph, community []string, opt Options) (models.Cohort, bool) {
	neighborhood := gatherNeighborhood(g2, community)
	sub := g2.Induce(neighborhood)

	if !passesGate(sub, opt) {
		return models.Cohort{}, false
	}

	for i := 1; i <= maxIterations; i++ {
		times := sub.VerticesOfType(graph.Time)
		timeSet := make(map[graph.VertexID]bool, len(times))
		for _, t := range times {
			timeSet[t] = true
		}

		personThreshold := math.Max(float64(opt.MinCount), 0.05*float64(i)*float64(len(times)))
		var dropPersons []graph.VertexID
		for _, p := range sub.VerticesOfType(graph.Person) {
			distinctTimes := 0
			for nbr := range sub.Neighbors(p) {
				if timeSet[nbr] {
					distinctTimes++
				}
			}
			if float64(distinctTimes) < personThreshold {
				dropPersons = append(dropPersons, p)
			}
		}

		removed := len(dropPersons) > 0
		for _, p := range dropPersons {
			sub.RemoveVertex(p)
		}

		vertexThreshold := math.Max(2, 0.05*float64(i)*float64(len(sub.VerticesOfType(graph.Person))))
		var dropOther []graph.VertexID
		for _, v := range sub.VerticesOfType(graph.Institution) {
			if float64(sub.Degree(v)) < vertexThreshold {
				dropOther = append(dropOther, v)
			}
		}
		for _, v := range sub.VerticesOfType(graph.Time) {
			if float64(sub.Degree(v)) < vertexThreshold {
				dropOther = append(dropOther, v)
			}
		}
		if len(dropOther) > 0 {
			removed = true
		}
		for _, v := range dropOther {
			sub.RemoveVertex(v)
		}

		if !removed {
			break
		}
	}

	if !passesGate(sub, opt) {
		return models.Cohort{}, false
	}

	return buildCohort(sub), true
}

func gatherNeighborhood(g2 *graph.TripartiteGraph, community []string) []graph.VertexID {
	set := make(map[graph.VertexID]bool)
	for _, p := range community {
		id := graph.VertexID{Type: graph.Person, Label: p}
		if !g2.Has(id) {
			continue
		}
		set[id] = true
		for nbr := range g2.Neighbors(id) {
			set[nbr] = true
		}
	}
	out := make([]graph.VertexID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func passesGate(g2 *graph.TripartiteGraph, opt Options) bool {
	times := g2.VerticesOfType(graph.Time)
	jg := g2.VerticesOfType(graph.Institution)
	persons := g2.VerticesOfType(graph.Person)
	if len(times) < opt.MinCount {
		return false
	}
	if len(jg) < opt.MinJgNum {
		return false
	}
	if len(persons) < opt.MinSize {
		return false
	}
	return true
}

func buildCohort(g2 *graph.TripartiteGraph) models.Cohort {
	persons := labels(g2.VerticesOfType(graph.Person))
	jg := labels(g2.VerticesOfType(graph.Institution))
	times := labels(g2.VerticesOfType(graph.Time))
	sort.Strings(persons)
	sort.Strings(jg)
	sort.Strings(times)

	return models.Cohort{
		Persons:      persons,
		Institutions: jg,
		Times:        times,
		Size:         len(persons),
		Degree1:      g2.MeanDegree(graph.Time),
		Degree2:      g2.MeanDegree(graph.Institution),
		Degree3:      g2.MeanDegree(graph.Person),
	}
}

func labels(ids []graph.VertexID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Label)
	}
	return out
}
