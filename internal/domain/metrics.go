package domain

import "time"

// MetricPeriod is one targeting entity's performance on one reporting period.
// Rows are created by ingestion and never mutated here; re-ingestion of the
// same (client_id, target_text, period_start) key upserts at the storage
// layer.
type MetricPeriod struct {
	ClientID    string    `json:"client_id" db:"client_id"`
	TargetText  string    `json:"target_text" db:"target_text"`
	Campaign    string    `json:"campaign_name" db:"campaign_name"`
	AdGroup     string    `json:"ad_group_name" db:"ad_group_name"`
	MatchType   string    `json:"match_type" db:"match_type"`
	PeriodStart time.Time `json:"period_start" db:"period_start"`
	Spend       float64   `json:"spend" db:"spend"`
	Sales       float64   `json:"sales" db:"sales"`
	Clicks      int64     `json:"clicks" db:"clicks"`
	Impressions int64     `json:"impressions" db:"impressions"`

	// Orders is nil when the source report did not carry order counts.
	// Ratio math treats nil as 0, but the null-vs-zero distinction is kept.
	Orders *int64 `json:"orders" db:"orders"`
}

// OrderCount returns the order count with nil treated as 0.
func (m *MetricPeriod) OrderCount() int64 {
	if m.Orders == nil {
		return 0
	}
	return *m.Orders
}

// PeriodAggregate is the summed performance of one client over a date range.
type PeriodAggregate struct {
	ClientID        string    `json:"client_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Spend           float64   `json:"spend"`
	Sales           float64   `json:"sales"`
	Clicks          int64     `json:"clicks"`
	Impressions     int64     `json:"impressions"`
	Orders          int64     `json:"orders"`
	ActiveCampaigns int64     `json:"active_campaigns"`
}

// ROAS returns sales/spend, or nil when spend is zero.
func (a *PeriodAggregate) ROAS() *float64 { return safeRatio(a.Sales, a.Spend) }

// CPC returns spend/clicks, or nil when there are no clicks.
func (a *PeriodAggregate) CPC() *float64 { return safeRatio(a.Spend, float64(a.Clicks)) }

// CVR returns orders/clicks, or nil when there are no clicks.
func (a *PeriodAggregate) CVR() *float64 {
	return safeRatio(float64(a.Orders), float64(a.Clicks))
}

// AOV returns sales/orders, or nil when there are no orders.
func (a *PeriodAggregate) AOV() *float64 {
	return safeRatio(a.Sales, float64(a.Orders))
}

// safeRatio propagates an undefined ratio as nil instead of substituting a
// default. Downstream formulas must skip nil, not zero it.
func safeRatio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

// Float64 is a convenience constructor for optional float fields.
func Float64(v float64) *float64 { return &v }

// Int64 is a convenience constructor for optional integer fields.
func Int64(v int64) *int64 { return &v }
