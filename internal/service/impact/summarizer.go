package impact

import (
	"math"

	"github.com/adpulse/ppc-insights/internal/domain"
)

// SummaryMetric selects which per-action delta the summarizer aggregates.
type SummaryMetric string

const (
	// MetricRevenue aggregates the confidence-weighted decision impact.
	MetricRevenue SummaryMetric = "revenue"
	// MetricSpendAvoided aggregates the eliminated spend of negative
	// actions. Rows without a spend-avoided component are skipped.
	MetricSpendAvoided SummaryMetric = "spend_avoided"
	// MetricProfit aggregates revenue impact net of the observed spend
	// change across the action windows.
	MetricProfit SummaryMetric = "profit"
)

// DefaultZ is the 95% two-sided z value used when the caller passes z <= 0.
const DefaultZ = 1.96

// Summary is the rolled-up estimate for one metric over a cohort of rows.
type Summary struct {
	Metric  SummaryMetric `json:"metric"`
	N       int           `json:"n"`
	Point   float64       `json:"point"`
	CILower float64       `json:"ci_lower"`
	CIUpper float64       `json:"ci_upper"`
	SE      float64       `json:"se"`

	IsSignificant bool `json:"is_significant"`
	// InsufficientSample is set when n < 2: the point value is returned
	// with a zero-width interval instead of a fabricated one.
	InsufficientSample bool `json:"insufficient_sample"`

	Breakdown ActionBreakdown `json:"breakdown"`
}

// ActionBreakdown counts the cohort's rows by action family.
type ActionBreakdown struct {
	Negatives  int `json:"negatives"`
	Harvests   int `json:"harvests"`
	BidChanges int `json:"bid_changes"`
	Other      int `json:"other"`
}

// Summarize rolls a cohort of impact rows into a point estimate with
// uncertainty bounds. Each action is one independent observational unit.
//
// The cohort is defined by the validation-tier inclusion set: only rows whose
// ValidationStatus is in tiers are aggregated. A nil/empty tiers slice keeps
// every row - the summarizer never decides validity itself, it only filters
// on tags already assigned upstream.
//
// The standard error deliberately models the uncertainty of the SUM across n
// actions, not of the mean: se = stddev_sample * sqrt(n). The quantity of
// interest is the total impact of the action set.
func Summarize(rows []domain.ImpactRow, tiers []domain.ValidationTier, metric SummaryMetric, z float64) Summary {
	if z <= 0 {
		z = DefaultZ
	}

	include := tierSet(tiers)
	s := Summary{Metric: metric}

	var deltas []float64
	for _, r := range rows {
		if include != nil {
			if _, ok := include[r.ValidationStatus]; !ok {
				continue
			}
		}

		switch {
		case r.ActionType.IsNegative():
			s.Breakdown.Negatives++
		case r.ActionType == domain.ActionHarvest:
			s.Breakdown.Harvests++
		case r.ActionType == domain.ActionBidChange:
			s.Breakdown.BidChanges++
		default:
			s.Breakdown.Other++
		}

		switch metric {
		case MetricSpendAvoided:
			if r.SpendAvoided == nil {
				continue
			}
			deltas = append(deltas, *r.SpendAvoided)
		case MetricProfit:
			deltas = append(deltas, r.WeightedImpact-r.SpendDelta())
		default:
			deltas = append(deltas, r.WeightedImpact)
		}
	}

	s.N = len(deltas)
	for _, d := range deltas {
		s.Point += d
	}

	if s.N < 2 {
		// No interval can honestly be estimated from fewer than two
		// observations; return the raw point with zero width.
		s.CILower = s.Point
		s.CIUpper = s.Point
		s.InsufficientSample = true
		return s
	}

	mean := s.Point / float64(s.N)
	var ss float64
	for _, d := range deltas {
		ss += (d - mean) * (d - mean)
	}
	sd := math.Sqrt(ss / float64(s.N-1))

	s.SE = sd * math.Sqrt(float64(s.N))
	s.CILower = s.Point - z*s.SE
	s.CIUpper = s.Point + z*s.SE

	if metric == MetricSpendAvoided {
		// Spend avoided is non-negative by construction, so significance
		// requires the lower bound to clear zero.
		s.IsSignificant = s.CILower > 0
	} else {
		s.IsSignificant = s.CILower > 0 || s.CIUpper < 0
	}
	return s
}

func tierSet(tiers []domain.ValidationTier) map[domain.ValidationTier]struct{} {
	if len(tiers) == 0 {
		return nil
	}
	set := make(map[domain.ValidationTier]struct{}, len(tiers))
	for _, t := range tiers {
		set[t] = struct{}{}
	}
	return set
}
