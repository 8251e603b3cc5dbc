package domain

import "time"

// Attribution flags. AttributionClean is set only when no other flag fires.
const (
	FlagScaleConfounded     = "Scale Confounded"
	FlagPortfolioConfounded = "Portfolio Confounded"
	FlagLargeResidual       = "Large Residual"
	FlagCVREstimated        = "CVR Estimated"
	FlagCleanAttribution    = "Clean Attribution"
)

// AttributionResult decomposes the ROAS change between two equal-length
// consecutive periods into named causal buckets. By construction,
//
//	BaselineROAS + MarketImpactROAS + DecisionImpactROAS +
//	ScaleEffect + PortfolioEffect + Unexplained == ActualROAS
//
// to floating-point tolerance: Unexplained is solved for, not estimated.
type AttributionResult struct {
	ClientID     string    `json:"client_id"`
	LookbackDays int       `json:"lookback_days"`
	PriorStart   time.Time `json:"prior_start"`
	CurrentStart time.Time `json:"current_start"`
	CurrentEnd   time.Time `json:"current_end"`

	BaselineROAS float64 `json:"baseline_roas"` // prior period
	ActualROAS   float64 `json:"actual_roas"`   // current period
	TotalChange  float64 `json:"total_change"`

	// Market forces bucket and its components. Component pointers are nil
	// when the underlying ratio was undefined in either period; nil
	// contributes 0 to the bucket but raises the CVR Estimated flag.
	MarketImpactROAS float64  `json:"market_impact_roas"`
	CPCImpact        *float64 `json:"cpc_impact"`
	CVRImpact        *float64 `json:"cvr_impact"`
	AOVImpact        *float64 `json:"aov_impact"`

	DecisionImpactROAS float64 `json:"decision_impact_roas"`
	ScaleEffect        float64 `json:"scale_effect"`
	PortfolioEffect    float64 `json:"portfolio_effect"`
	Unexplained        float64 `json:"unexplained"`

	SpendChangePct    float64 `json:"spend_change_pct"`
	CampaignChangePct float64 `json:"campaign_change_pct"`

	Flags      []string `json:"flags"`
	Reconciles bool     `json:"reconciles"`
}
