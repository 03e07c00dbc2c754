// Package pairs mines weighted co-visit risk pairs from a visit table
// (spec §4.B): persons who appeared together at an institution within a
// time-window tolerance, counted and thresholded.
package pairs

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// Options configures the miner. TimeIntervalSeconds is the co-visit
// window tolerance; MinCount/MinJgNum are thresholds (0 disables the
// check); NJobs bounds batch concurrency.
type Options struct {
	TimeIntervalSeconds int64
	MinCount            int
	MinJgNum            int
	NJobs               int
}

// joinKey is the hash-join key (med_type, flx_med_org_id, adm_time_win).
type joinKey struct {
	medType     string
	flxMedOrgID string
	win         int64
}

type indexedVisit struct {
	idx   int
	visit models.Visit
}

// Mine produces the weighted risk pairs surviving thresholds, per §4.B.
// Visits with a zero AdmTime are rejected with models.ErrBadRow. An empty
// input yields an empty, non-error result.
func Mine(ctx context.Context, visits []models.Visit, opt Options) ([]models.RiskPair, error) {
	if len(visits) == 0 {
		return nil, nil
	}
	for i, v := range visits {
		if v.AdmTime.IsZero() {
			return nil, fmt.Errorf("%w: row %d missing adm_time", models.ErrBadRow, i)
		}
	}

	// Each person must have >= MinCount visits in the input set; below-
	// threshold persons are dropped before batching.
	visitCounts := make(map[string]int, len(visits))
	for _, v := range visits {
		visitCounts[v.PersonID]++
	}
	kept := make([]models.Visit, 0, len(visits))
	for _, v := range visits {
		if opt.MinCount <= 0 || visitCounts[v.PersonID] >= opt.MinCount {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	personIDs := distinctSortedPersons(kept)

	// batch_size = floor(1e10 * |persons| / |rows|^2); this is the
	// complexity governor from §4.B step 2 — tuned so per-batch join work
	// stays roughly constant regardless of input size.
	n := float64(len(kept))
	batchSize := int(1e10 * float64(len(personIDs)) / (n * n))
	if batchSize < 1 {
		batchSize = 1
	}
	numBatches := (len(personIDs)-1)/batchSize + 1

	nJobs := opt.NJobs
	if nJobs < 1 {
		nJobs = 1
	}
	if nJobs > numBatches {
		nJobs = numBatches
	}

	type batchResult struct {
		jzcs  map[[2]string]int
		jgSet map[[2]string]map[string]struct{}
	}
	results := make([]batchResult, numBatches)

	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(nJobs))

	for b := 0; b < numBatches; b++ {
		b := b
		lo := b * batchSize
		hi := lo + batchSize
		if hi > len(personIDs) {
			hi = len(personIDs)
		}
		batchPersons := personIDs[lo:hi]
		minBatchPerson := batchPersons[0]

		if err := sem.Acquire(egCtx, 1); err != nil {
			return nil, err
		}
		eg.Go(func() error {
			defer sem.Release(1)
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}

			inBatch := toSet(batchPersons)
			batchRows := filterVisits(kept, func(v models.Visit) bool { return inBatch[v.PersonID] })
			tailRows := filterVisits(kept, func(v models.Visit) bool { return v.PersonID >= minBatchPerson })

			jzcs, jgSet := joinBatch(batchRows, tailRows, opt.TimeIntervalSeconds)
			results[b] = batchResult{jzcs: jzcs, jgSet: jgSet}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Aggregation is commutative: merge every batch's independent counts
	// into one map, order of batches never affects the totals (Testable
	// property 6).
	totalJzcs := make(map[[2]string]int)
	totalJg := make(map[[2]string]map[string]struct{})
	for _, r := range results {
		for k, v := range r.jzcs {
			totalJzcs[k] += v
		}
		for k, set := range r.jgSet {
			dst, ok := totalJg[k]
			if !ok {
				dst = make(map[string]struct{})
				totalJg[k] = dst
			}
			for org := range set {
				dst[org] = struct{}{}
			}
		}
	}

	out := make([]models.RiskPair, 0, len(totalJzcs))
	for k, count := range totalJzcs {
		pair := models.RiskPair{
			PersonA: k[0],
			PersonB: k[1],
			Jzcs:    count,
			JgNum:   len(totalJg[k]),
		}
		if pair.MeetsThreshold(opt.MinCount, opt.MinJgNum) {
			out = append(out, pair)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PersonA != out[j].PersonA {
			return out[i].PersonA < out[j].PersonA
		}
		return out[i].PersonB < out[j].PersonB
	})
	return out, nil
}

// joinBatch implements the three result sets of §4.B steps 4-5: the
// same-window join plus the two adjacent-window (+1/-1) joins, each
// filtered to person_id_x < person_id_y and, for the adjacent passes, a
// strict < time_interval gap.
func joinBatch(batchRows, tailRows []models.Visit, timeInterval int64) (map[[2]string]int, map[[2]string]map[string]struct{}) {
	tailIndex := make(map[joinKey][]indexedVisit, len(tailRows))
	for i, v := range tailRows {
		key := joinKey{v.MedType, v.FlxMedOrgID, v.AdmTimeWindow(timeInterval)}
		tailIndex[key] = append(tailIndex[key], indexedVisit{idx: i, visit: v})
	}

	jzcs := make(map[[2]string]int)
	jgSet := make(map[[2]string]map[string]struct{})
	record := func(a, b, org string) {
		if a >= b {
			return
		}
		k := [2]string{a, b}
		jzcs[k]++
		set, ok := jgSet[k]
		if !ok {
			set = make(map[string]struct{})
			jgSet[k] = set
		}
		set[org] = struct{}{}
	}

	// Same-window join (offset 0): exact bucket match.
	for _, x := range batchRows {
		key := joinKey{x.MedType, x.FlxMedOrgID, x.AdmTimeWindow(timeInterval)}
		for _, yi := range tailIndex[key] {
			y := yi.visit
			record(x.PersonID, y.PersonID, x.FlxMedOrgID)
		}
	}

	// Adjacent-window joins: shift the batch side's window by +1 and -1
	// and keep only matches whose actual timestamp gap is < time_interval,
	// so bucket-boundary straddling pairs are captured without
	// double-counting what the same-window pass already found.
	for _, offset := range []int64{1, -1} {
		for _, x := range batchRows {
			key := joinKey{x.MedType, x.FlxMedOrgID, x.AdmTimeWindow(timeInterval) + offset}
			for _, yi := range tailIndex[key] {
				y := yi.visit
				var gap int64
				if y.AdmTime.After(x.AdmTime) {
					gap = y.AdmTime.Unix() - x.AdmTime.Unix()
				} else {
					gap = x.AdmTime.Unix() - y.AdmTime.Unix()
				}
				if gap < timeInterval {
					record(x.PersonID, y.PersonID, x.FlxMedOrgID)
				}
			}
		}
	}

	return jzcs, jgSet
}

func distinctSortedPersons(visits []models.Visit) []string {
	set := make(map[string]struct{})
	for _, v := range visits {
		set[v.PersonID] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func filterVisits(visits []models.Visit, keep func(models.Visit) bool) []models.Visit {
	out := make([]models.Visit, 0)
	for _, v := range visits {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
