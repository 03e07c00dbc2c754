// Package pipeline orchestrates the six per-window components (spec §2):
// mining, graph building, community detection, pruning, scoring, and
// subgroup filtering.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/healthrisk/cardagg-engine/internal/community"
	"github.com/healthrisk/cardagg-engine/internal/graph"
	"github.com/healthrisk/cardagg-engine/internal/pairs"
	"github.com/healthrisk/cardagg-engine/internal/prune"
	"github.com/healthrisk/cardagg-engine/internal/score"
	"github.com/healthrisk/cardagg-engine/internal/store"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// Params bundles the tuning knobs from spec §6.3 that phases B through F
// consume.
type Params struct {
	TimeInterval              int64
	MinCount                  int
	MinSize                   int
	MaxSize                   int
	MinJgNum                  int
	MinPersonRatioInSubgroup  float64
	MinRiskClinicRatioInGroup float64
	ResolutionParameter       float64
	NJobs                     int
}

// Pipeline wires a DataSource and ResultSink around the core algorithm.
type Pipeline struct {
	Source Source
	Sink   store.ResultSink
	Params Params
}

// Source is the subset of store.DataSource the pipeline needs; kept
// separate so callers can inject the in-memory fake in tests.
type Source interface {
	Fetch(ctx context.Context, startDate, endDate, admdvs string) ([]models.Visit, error)
}

// WindowResult is one window's outcome: the emitted groups, and any
// non-fatal warning raised along the way.
type WindowResult struct {
	Groups  []models.RiskGroup
	Warning *models.AlgorithmLimitWarning
}

// RunWindow executes phases B through F for one [startDate, endDate]
// window, polling ctx between phases for cooperative cancellation (spec
// §5). An EmptyInput condition yields a nil result, not an error (spec
// §7).
func (p *Pipeline) RunWindow(ctx context.Context, meta models.WindowMetadata) (*WindowResult, error) {
	startDate, endDate := meta.InputBegnDate, meta.InputEndDate

	visits, err := p.Source.Fetch(ctx, startDate, endDate, meta.Admdvs)
	if err != nil {
		return nil, fmt.Errorf("fetch visits: %w", err)
	}
	if len(visits) == 0 {
		log.Printf("cardagg: window %s..%s: %v", startDate, endDate, models.ErrEmptyInput)
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	riskPairs, err := pairs.Mine(ctx, visits, pairs.Options{
		TimeIntervalSeconds: p.Params.TimeInterval,
		MinCount:            p.Params.MinCount,
		MinJgNum:            p.Params.MinJgNum,
		NJobs:               p.Params.NJobs,
	})
	if err != nil {
		return nil, fmt.Errorf("mine risk pairs: %w", err)
	}
	if len(riskPairs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graphs := graph.Build(riskPairs, visits)

	detectResult := community.Detect(graphs.G1, community.Options{
		ResolutionParameter: p.Params.ResolutionParameter,
		MinSize:             p.Params.MinSize,
		MaxSize:             p.Params.MaxSize,
		NJobs:               p.Params.NJobs,
	})
	if detectResult.Warning != nil {
		log.Printf("cardagg: window %s..%s: %v (residual=%d, depth=%d)",
			startDate, endDate, detectResult.Warning, detectResult.Warning.ResidualCount, detectResult.Warning.RecursionDepth)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cohorts []models.Cohort
	pruneOpt := prune.Options{MinCount: p.Params.MinCount, MinJgNum: p.Params.MinJgNum, MinSize: p.Params.MinSize}
	for _, members := range detectResult.Communities {
		cohort, ok := prune.Prune(graphs.G2, members, pruneOpt)
		if ok {
			cohorts = append(cohorts, cohort)
		}
	}
	if len(cohorts) == 0 {
		return &WindowResult{Warning: detectResult.Warning}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := score.Score(graphs.G1, cohorts)
	ranked := score.RankAndAssignGroupIDs(scored, meta.GroupIDPrefix)
	groups := score.ExplodeAndFilter(ranked, visits, meta, score.Options{
		MinPersonRatioInSubgroup:  p.Params.MinPersonRatioInSubgroup,
		MinRiskClinicRatioInGroup: p.Params.MinRiskClinicRatioInGroup,
	})

	if p.Sink != nil {
		if err := p.Sink.PersistGroups(ctx, meta, groups); err != nil {
			return nil, err
		}
	}

	return &WindowResult{Groups: groups, Warning: detectResult.Warning}, nil
}
