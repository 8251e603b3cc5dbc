// Package postgres implements the service-layer read and write contracts
// against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adpulse/ppc-insights/internal/domain"
	"github.com/adpulse/ppc-insights/internal/service/attribution"
)

// rollingSPCDays is the lookback for the rolling sales-per-click baseline,
// deliberately longer than any action window so it smooths week-level noise.
const rollingSPCDays = 90

// MetricsRepo implements impact.MetricsReader, impact.SPCProvider and
// attribution.MetricsReader against PostgreSQL. Read-only.
type MetricsRepo struct{ db *sql.DB }

// NewMetricsRepo creates a Postgres-backed metrics repository.
func NewMetricsRepo(db *sql.DB) *MetricsRepo { return &MetricsRepo{db: db} }

// GetMetricRows returns the metric periods for one targeting entity within
// [from, to), ordered by period_start ascending.
func (r *MetricsRepo) GetMetricRows(ctx context.Context, clientID, targetText string, from, to time.Time) ([]domain.MetricPeriod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT client_id, target_text, campaign_name, ad_group_name, match_type,
		       period_start, spend, sales, clicks, impressions, orders
		FROM ppc_metric_periods
		WHERE client_id = $1 AND target_text = $2
		  AND period_start >= $3 AND period_start < $4
		ORDER BY period_start ASC
	`, clientID, targetText, from, to)
	if err != nil {
		return nil, fmt.Errorf("query metric rows: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricPeriod
	for rows.Next() {
		var m domain.MetricPeriod
		var orders sql.NullInt64
		if err := rows.Scan(
			&m.ClientID, &m.TargetText, &m.Campaign, &m.AdGroup, &m.MatchType,
			&m.PeriodStart, &m.Spend, &m.Sales, &m.Clicks, &m.Impressions, &orders,
		); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		if orders.Valid {
			m.Orders = domain.Int64(orders.Int64)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetPeriodMetrics returns the summed client performance over [start, end).
// Returns attribution.ErrNoData when no metric rows fall in the range, so
// callers can tell "no data" from a computed zero.
func (r *MetricsRepo) GetPeriodMetrics(ctx context.Context, clientID string, start, end time.Time) (*domain.PeriodAggregate, error) {
	agg := &domain.PeriodAggregate{ClientID: clientID, Start: start, End: end}
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(spend), 0), COALESCE(SUM(sales), 0),
		       COALESCE(SUM(clicks), 0), COALESCE(SUM(impressions), 0),
		       COALESCE(SUM(orders), 0),
		       COUNT(DISTINCT campaign_name) FILTER (WHERE spend > 0 OR clicks > 0)
		FROM ppc_metric_periods
		WHERE client_id = $1 AND period_start >= $2 AND period_start < $3
	`, clientID, start, end).Scan(
		&n, &agg.Spend, &agg.Sales, &agg.Clicks, &agg.Impressions,
		&agg.Orders, &agg.ActiveCampaigns,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate period metrics: %w", err)
	}
	if n == 0 {
		return nil, attribution.ErrNoData
	}
	return agg, nil
}

// RollingSPC returns the long-window sales-per-click baseline for one
// targeting entity as of a date, or nil when the entity has no clicks in the
// rolling window. Implements impact.SPCProvider.
func (r *MetricsRepo) RollingSPC(ctx context.Context, clientID, targetText string, asOf time.Time) (*float64, error) {
	from := asOf.AddDate(0, 0, -rollingSPCDays)
	var sales float64
	var clicks int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(sales), 0), COALESCE(SUM(clicks), 0)
		FROM ppc_metric_periods
		WHERE client_id = $1 AND target_text = $2
		  AND period_start >= $3 AND period_start < $4
	`, clientID, targetText, from, asOf).Scan(&sales, &clicks)
	if err != nil {
		return nil, fmt.Errorf("rolling spc: %w", err)
	}
	if clicks == 0 {
		return nil, nil
	}
	return domain.Float64(sales / float64(clicks)), nil
}
