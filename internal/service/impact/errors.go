package impact

import "errors"

// Sentinel errors for the impact service layer.
//
// ErrNoData marks a genuinely empty read - distinguishable from a computed
// zero and from a failed query. ErrInvalidWindow marks caller misuse and is
// the only condition that should abort a computation.
var (
	ErrNoData        = errors.New("no metric data for requested entity and period")
	ErrInvalidWindow = errors.New("invalid analysis window")
)
