// Package shadow runs an experimental detector configuration (shadow
// mode) alongside the production one on the same G1 graph and measures
// how far their resulting partitions diverge, mirroring the teacher's
// production-vs-shadow comparison idiom.
package shadow

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthrisk/cardagg-engine/internal/community"
	"github.com/healthrisk/cardagg-engine/internal/graph"
	"github.com/healthrisk/cardagg-engine/internal/metrics"
)

// ShadowRunner compares the community partition produced by a shadow
// detector configuration (e.g. a candidate resolution_parameter) against
// the production configuration, on identical input. No shadow
// configuration affects persisted risk groups; it only ever reads G1.
type ShadowRunner struct {
	pool             *pgxpool.Pool
	shadowSnapshotID int64
	productionOpt    community.Options
	shadowOpt        community.Options
}

// ShadowResult captures the diff between production and shadow
// partitions for one window's G1 graph.
type ShadowResult struct {
	WindowLabel       string    `json:"windowLabel"`
	AdjustedRandIndex float64   `json:"adjustedRandIndex"`
	VariationOfInfo   float64   `json:"variationOfInformation"`
	ProductionGroups  int       `json:"productionGroups"`
	ShadowGroups      int       `json:"shadowGroups"`
	SnapshotID        int64     `json:"snapshotId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewShadowRunner creates a runner that compares a production detector
// configuration against a candidate one.
func NewShadowRunner(pool *pgxpool.Pool, shadowSnapshotID int64, productionOpt, shadowOpt community.Options) *ShadowRunner {
	return &ShadowRunner{
		pool:             pool,
		shadowSnapshotID: shadowSnapshotID,
		productionOpt:    productionOpt,
		shadowOpt:        shadowOpt,
	}
}

// RunShadowAnalysis runs both detector configurations on g1 and persists
// the ARI/VI comparison to the shadow_results table.
func (sr *ShadowRunner) RunShadowAnalysis(ctx context.Context, windowLabel string, g1 *graph.PersonGraph) (*ShadowResult, error) {
	prod := community.Detect(g1, sr.productionOpt)
	shadow := community.Detect(g1, sr.shadowOpt)

	predicted, groundTruth := labelVectors(prod.Communities, shadow.Communities)

	result := &ShadowResult{
		WindowLabel:       windowLabel,
		AdjustedRandIndex: metrics.AdjustedRandIndex(predicted, groundTruth),
		VariationOfInfo:   metrics.VariationOfInformation(predicted, groundTruth),
		ProductionGroups:  len(prod.Communities),
		ShadowGroups:      len(shadow.Communities),
		SnapshotID:        sr.shadowSnapshotID,
		CreatedAt:         time.Now(),
	}

	if result.AdjustedRandIndex < 0.8 {
		log.Printf("[shadow] DIVERGENCE on %s: ari=%.3f vi=%.3f prod_groups=%d shadow_groups=%d",
			windowLabel, result.AdjustedRandIndex, result.VariationOfInfo, result.ProductionGroups, result.ShadowGroups)
	}

	if sr.pool != nil {
		if err := sr.persistShadowResult(ctx, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (sr *ShadowRunner) persistShadowResult(ctx context.Context, result *ShadowResult) error {
	sql := `INSERT INTO shadow_results
		(window_label, adjusted_rand_index, variation_of_information, production_groups, shadow_groups, snapshot_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := sr.pool.Exec(ctx, sql,
		result.WindowLabel,
		result.AdjustedRandIndex,
		result.VariationOfInfo,
		result.ProductionGroups,
		result.ShadowGroups,
		result.SnapshotID,
		result.CreatedAt,
	)
	return err
}

// GenerateDriftReport computes the mean ARI/VI between shadow and
// production over every comparison recorded for this snapshot.
func (sr *ShadowRunner) GenerateDriftReport(ctx context.Context) (totalRuns int, avgARI float64, avgVI float64, err error) {
	sql := `SELECT
		COUNT(*) as total,
		COALESCE(AVG(adjusted_rand_index), 0) as avg_ari,
		COALESCE(AVG(variation_of_information), 0) as avg_vi
	FROM shadow_results WHERE snapshot_id = $1`

	row := sr.pool.QueryRow(ctx, sql, sr.shadowSnapshotID)
	err = row.Scan(&totalRuns, &avgARI, &avgVI)
	return
}

// labelVectors flattens two community partitions into parallel integer
// label slices over their shared vertex set, the contingency-table input
// the ARI/VI metrics expect. A person absent from one partition's
// communities (pruned as a singleton) is assigned its own distinct label
// so it never spuriously counts as agreement.
func labelVectors(a, b [][]string) (labelsA, labelsB []int) {
	indexA := make(map[string]int)
	for i, members := range a {
		for _, p := range members {
			indexA[p] = i
		}
	}
	indexB := make(map[string]int)
	for i, members := range b {
		for _, p := range members {
			indexB[p] = i
		}
	}

	universe := make(map[string]bool)
	for p := range indexA {
		universe[p] = true
	}
	for p := range indexB {
		universe[p] = true
	}

	nextA, nextB := len(a), len(b)
	labelsA = make([]int, 0, len(universe))
	labelsB = make([]int, 0, len(universe))
	for p := range universe {
		la, ok := indexA[p]
		if !ok {
			la = nextA
			nextA++
		}
		lb, ok := indexB[p]
		if !ok {
			lb = nextB
			nextB++
		}
		labelsA = append(labelsA, la)
		labelsB = append(labelsB, lb)
	}
	return labelsA, labelsB
}
