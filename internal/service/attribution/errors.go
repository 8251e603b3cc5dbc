package attribution

import "errors"

// Sentinel errors for the attribution service layer.
var (
	// ErrNoData marks a period with no usable aggregate (no rows, or zero
	// spend making ROAS undefined). Distinguishable from a computed zero.
	ErrNoData = errors.New("no period metrics for requested client and range")
	// ErrInvalidWindow marks caller misuse (non-positive lookback).
	ErrInvalidWindow = errors.New("invalid lookback window")
)
