package domain

import "time"

// ImpactTier classifies how much statistical weight a computed decision
// impact carries. It is derived by the counterfactual engine, unlike
// ValidationTier which is an external signal.
type ImpactTier string

const (
	ImpactExcluded    ImpactTier = "Excluded"    // decision impact forced/computed to exactly 0
	ImpactDirectional ImpactTier = "Directional" // thin baseline (before_clicks < 15)
	ImpactValidated   ImpactTier = "Validated"
)

// ImpactRow joins one ActionRecord to its surrounding metric periods and
// carries the counterfactual outcome. Derived, never persisted.
type ImpactRow struct {
	ClientID   string     `json:"client_id"`
	TargetText string     `json:"target_text"`
	ActionType ActionType `json:"action_type"`
	ActionDate time.Time  `json:"action_date"`
	BatchID    string     `json:"batch_id"`

	// Before window (strictly preceding the action date).
	BeforeSpend  float64 `json:"before_spend"`
	BeforeSales  float64 `json:"before_sales"`
	BeforeClicks int64   `json:"before_clicks"`

	// After window (on/following the action date).
	ObservedAfterSpend  float64 `json:"observed_after_spend"`
	ObservedAfterSales  float64 `json:"observed_after_sales"`
	ObservedAfterClicks int64   `json:"observed_after_clicks"`

	// Baselines. Nil when the underlying ratio is undefined.
	CPCBefore *float64 `json:"cpc_before"`
	SPCBefore *float64 `json:"spc_before"`

	// Counterfactual expectation for the after window. Nil propagates from
	// an undefined CPC/SPC baseline; it is never replaced by a default.
	ExpectedClicks *float64 `json:"expected_clicks"`
	ExpectedSales  *float64 `json:"expected_sales"`

	// DecisionImpact is observed minus expected sales, already subject to
	// the minimum-clicks guardrail (forced to exactly 0 below threshold).
	DecisionImpact float64 `json:"decision_impact"`

	// ConfidenceWeight in [0,1] soft-dampens thin baselines;
	// WeightedImpact = DecisionImpact * ConfidenceWeight.
	ConfidenceWeight float64 `json:"confidence_weight"`
	WeightedImpact   float64 `json:"weighted_impact"`

	// SpendAvoided is set only for negative actions: the before-window spend
	// eliminated by suppressing the target. Tracked separately from the
	// sales impact, never summed into one number.
	SpendAvoided *float64 `json:"spend_avoided"`

	ImpactTier       ImpactTier     `json:"impact_tier"`
	ValidationStatus ValidationTier `json:"validation_status"`
}

// SpendDelta returns the observed spend change across the action windows.
func (r *ImpactRow) SpendDelta() float64 {
	return r.ObservedAfterSpend - r.BeforeSpend
}
