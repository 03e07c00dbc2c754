package community

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/healthrisk/cardagg-engine/internal/graph"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// maxRecursionDepth bounds the refinement loop (spec §4.D, Design Notes
// open question): Leiden at lower resolution is not guaranteed to make
// progress, so recursion is capped and residual oversize communities
// are emitted unbroken with an AlgorithmLimitWarning.
const maxRecursionDepth = 10

// parallelBatchThreshold and parallelBatchSize mirror the spec's "batch
// size 20, when n_jobs > 1 and |big| > 20" parallelization rule.
const parallelBatchThreshold = 20
const parallelBatchSize = 20

// nIterations is Leiden's local-moving iteration cap (spec §4.D).
const nIterations = 300

// Options configures the detector.
type Options struct {
	ResolutionParameter float64
	MinSize             int
	MaxSize             int
	NJobs               int
}

// Result is a window's community-detection output.
type Result struct {
	Communities [][]string
	Warning     *models.AlgorithmLimitWarning
}

// Detect runs Leiden on g1 with recursive size-bounded refinement: an
// outer pass at resolution 2*resolution_parameter, then repeated inner
// passes at resolution_parameter on induced oversize subgraphs, until
// every community is within [min_size, max_size] or the recursion cap
// is hit.
func Detect(g1 *graph.PersonGraph, opt Options) Result {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	outerPartition := leidenPartition(g1, 2*opt.ResolutionParameter, nIterations, rng)
	groups := groupByCommunity(outerPartition)

	var ok [][]string
	var big [][]string
	for _, members := range groups {
		if len(members) < opt.MinSize {
			continue
		}
		if len(members) > opt.MaxSize {
			big = append(big, members)
		} else {
			ok = append(ok, members)
		}
	}

	depth := 0
	for len(big) > 0 && depth < maxRecursionDepth {
		depth++
		refined := refineOversize(g1, big, opt, rng)

		var nextBig [][]string
		for _, members := range refined {
			if len(members) < opt.MinSize {
				continue
			}
			if len(members) > opt.MaxSize {
				nextBig = append(nextBig, members)
			} else {
				ok = append(ok, members)
			}
		}
		big = nextBig
	}

	var warning *models.AlgorithmLimitWarning
	if len(big) > 0 {
		warning = &models.AlgorithmLimitWarning{
			Stage:          "community-refine",
			ResidualCount:  len(big),
			RecursionDepth: depth,
		}
		ok = append(ok, big...)
	}

	return Result{Communities: ok, Warning: warning}
}

// refineOversize runs Leiden again on each oversize community's induced
// subgraph, in parallel when there are enough of them to be worth it.
func refineOversize(g1 *graph.PersonGraph, big [][]string, opt Options, rng *rand.Rand) [][]string {
	nJobs := opt.NJobs
	if nJobs < 1 {
		nJobs = 1
	}

	if nJobs == 1 || len(big) <= parallelBatchThreshold {
		var out [][]string
		for _, members := range big {
			out = append(out, splitOne(g1, members, opt, rng)...)
		}
		return out
	}

	results := make([][][]string, len(big))
	eg := new(errgroup.Group)
	sem := semaphore.NewWeighted(int64(nJobs))
	numBatches := (len(big)-1)/parallelBatchSize + 1
	seeds := make([]int64, numBatches)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	for start, batchIdx := 0, 0; start < len(big); start, batchIdx = start+parallelBatchSize, batchIdx+1 {
		end := start + parallelBatchSize
		if end > len(big) {
			end = len(big)
		}
		batch := big[start:end]
		base := start
		seed := seeds[batchIdx]
		if err := sem.Acquire(context.Background(), 1); err != nil {
			continue
		}
		eg.Go(func() error {
			defer sem.Release(1)
			// each batch gets its own RNG seeded from the main goroutine
			// before dispatch, so concurrent batches never race on rng.
			localRNG := rand.New(rand.NewSource(seed))
			for i, members := range batch {
				results[base+i] = splitOne(g1, members, opt, localRNG)
			}
			return nil
		})
	}
	_ = eg.Wait()

	var out [][]string
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func splitOne(g1 *graph.PersonGraph, members []string, opt Options, rng *rand.Rand) [][]string {
	induced := g1.Induce(members)
	partition := leidenPartition(induced, opt.ResolutionParameter, nIterations, rng)
	return groupByCommunity(partition)
}
