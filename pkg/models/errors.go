package models

import "errors"

// Sentinel errors for the window pipeline's error taxonomy (spec §7).
// EmptyInput is not propagated as a window failure — callers translate it
// into a "no result" outcome rather than aborting.
var (
	// ErrInvalidDate is returned by the window iterator when a date string
	// fails to parse, or parses to a month/day outside its valid range.
	ErrInvalidDate = errors.New("cardagg: invalid date")

	// ErrBadRow is returned by the risk-pair miner when a visit row is
	// missing a required field (currently: AdmTime).
	ErrBadRow = errors.New("cardagg: visit row missing required field")

	// ErrEmptyInput signals zero input visits for a window; the caller
	// surfaces this as "no result", not a failure.
	ErrEmptyInput = errors.New("cardagg: empty input")

	// ErrSinkFailure wraps a ResultSink persistence failure.
	ErrSinkFailure = errors.New("cardagg: result sink failure")
)

// AlgorithmLimitWarning records that recursive community refinement hit its
// hard iteration cap with residual oversize communities still unresolved.
// It is not an error: the affected communities are emitted unbroken and the
// warning is attached to the window's result for visibility.
type AlgorithmLimitWarning struct {
	Stage           string // which phase hit the cap, e.g. "community-refine"
	ResidualCount   int    // number of oversize communities emitted unbroken
	RecursionDepth  int
}

func (w AlgorithmLimitWarning) Error() string {
	return "cardagg: algorithm limit reached in " + w.Stage
}
