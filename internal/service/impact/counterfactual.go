package impact

import (
	"context"
	"fmt"
	"time"

	"github.com/adpulse/ppc-insights/internal/config"
	"github.com/adpulse/ppc-insights/internal/domain"
	"github.com/adpulse/ppc-insights/internal/pkg/logger"
)

// Engine converts logged actions into impact rows with a counterfactual
// (no-action) expectation. It is a stateless pipeline over already-committed
// data: every method is a deterministic function of its inputs and safe to
// call concurrently.
type Engine struct {
	metrics     MetricsReader
	actions     ActionReader
	spc         SPCProvider      // optional
	validations ValidationSource // optional
	cfg         config.AttributionConfig
}

// NewEngine creates a counterfactual engine backed by the given readers.
func NewEngine(metrics MetricsReader, actions ActionReader, cfg config.AttributionConfig) *Engine {
	return &Engine{metrics: metrics, actions: actions, cfg: cfg}
}

// SetSPCProvider wires an optional rolling sales-per-click source.
func (e *Engine) SetSPCProvider(p SPCProvider) { e.spc = p }

// SetValidationSource wires an optional external validation-tier source.
func (e *Engine) SetValidationSource(v ValidationSource) { e.validations = v }

// ComputeActionImpact builds one ImpactRow per measurable logged action.
// Actions with no metric rows on either side of the action date are silently
// excluded. Window sizes must be positive; anything else is caller misuse
// and fails with ErrInvalidWindow.
func (e *Engine) ComputeActionImpact(ctx context.Context, clientID string, beforeDays, afterDays int, types ...domain.ActionType) ([]domain.ImpactRow, error) {
	if err := e.cfg.ValidateWindows(beforeDays, afterDays); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}

	records, err := e.actions.GetActions(ctx, clientID, time.Time{}, time.Now().UTC(), types...)
	if err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}

	rows := make([]domain.ImpactRow, 0, len(records))
	skipped := 0
	for _, a := range records {
		row, ok, err := e.buildRow(ctx, a, beforeDays, afterDays)
		if err != nil {
			return nil, err
		}
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	logger.Debug("computed action impact",
		"client_id", clientID,
		"actions", len(records),
		"rows", len(rows),
		"excluded_no_data", skipped)
	return rows, nil
}

// buildRow computes the counterfactual for a single action. The second
// return is false when the action has no metric rows in either window.
func (e *Engine) buildRow(ctx context.Context, a domain.ActionRecord, beforeDays, afterDays int) (domain.ImpactRow, bool, error) {
	windowStart := a.ActionDate.AddDate(0, 0, -beforeDays)
	windowEnd := a.ActionDate.AddDate(0, 0, afterDays)

	periods, err := e.metrics.GetMetricRows(ctx, a.ClientID, a.TargetText, windowStart, windowEnd)
	if err != nil {
		return domain.ImpactRow{}, false, fmt.Errorf("load metric rows for %q: %w", a.TargetText, err)
	}
	if len(periods) == 0 {
		return domain.ImpactRow{}, false, nil
	}

	row := domain.ImpactRow{
		ClientID:   a.ClientID,
		TargetText: a.TargetText,
		ActionType: a.ActionType,
		ActionDate: a.ActionDate,
		BatchID:    a.BatchID,
	}

	for _, p := range periods {
		if p.PeriodStart.Before(a.ActionDate) {
			row.BeforeSpend += p.Spend
			row.BeforeSales += p.Sales
			row.BeforeClicks += p.Clicks
		} else {
			row.ObservedAfterSpend += p.Spend
			row.ObservedAfterSales += p.Sales
			row.ObservedAfterClicks += p.Clicks
		}
	}

	// CPC baseline. Undefined ratios stay nil; no default is substituted.
	if row.BeforeClicks > 0 {
		row.CPCBefore = domain.Float64(row.BeforeSpend / float64(row.BeforeClicks))
	}

	// SPC baseline: a rolling longer-window value wins over the before
	// window; the window value is only the fallback when rolling is nil.
	if e.spc != nil {
		rolling, err := e.spc.RollingSPC(ctx, a.ClientID, a.TargetText, a.ActionDate)
		if err != nil {
			return domain.ImpactRow{}, false, fmt.Errorf("rolling spc for %q: %w", a.TargetText, err)
		}
		row.SPCBefore = rolling
	}
	if row.SPCBefore == nil && row.BeforeClicks > 0 {
		row.SPCBefore = domain.Float64(row.BeforeSales / float64(row.BeforeClicks))
	}

	// Counterfactual: how many clicks the after-window spend would have
	// bought at the pre-action CPC, and the sales those clicks would have
	// produced at the baseline conversion efficiency.
	if row.CPCBefore != nil && *row.CPCBefore > 0 {
		row.ExpectedClicks = domain.Float64(row.ObservedAfterSpend / *row.CPCBefore)
	}
	if row.ExpectedClicks != nil && row.SPCBefore != nil {
		row.ExpectedSales = domain.Float64(*row.ExpectedClicks * *row.SPCBefore)
	}

	if row.ExpectedSales != nil {
		row.DecisionImpact = row.ObservedAfterSales - *row.ExpectedSales
	}

	// Low-sample guardrail: below the click threshold the impact is forced
	// to exactly 0 rather than extrapolated from a noisy baseline.
	if row.BeforeClicks < e.cfg.MinClicks {
		row.DecisionImpact = 0
	}

	row.ConfidenceWeight = confidenceWeight(row.BeforeClicks, e.cfg.ConfidenceDivisor)
	row.WeightedImpact = row.DecisionImpact * row.ConfidenceWeight

	row.ImpactTier = classifyTier(row.DecisionImpact, row.BeforeClicks, e.cfg.DirectionalClickCap)

	// Negatives carry a guaranteed-savings component: the before-window
	// spend eliminated by suppressing the target. It is tracked alongside
	// the uncertain sales impact, never summed with it.
	if a.ActionType.IsNegative() {
		row.SpendAvoided = domain.Float64(row.BeforeSpend)
	}

	row.ValidationStatus = domain.TierPending
	if e.validations != nil {
		if tier, ok := e.validations.ValidationTier(a.ClientID, a.TargetText); ok {
			row.ValidationStatus = tier
		}
	}

	return row, true, nil
}

// confidenceWeight soft-dampens thin baselines: clip(clicks/divisor, 0, 1).
func confidenceWeight(beforeClicks int64, divisor float64) float64 {
	if beforeClicks <= 0 {
		return 0
	}
	w := float64(beforeClicks) / divisor
	if w > 1 {
		return 1
	}
	return w
}

func classifyTier(decisionImpact float64, beforeClicks, directionalCap int64) domain.ImpactTier {
	if decisionImpact == 0 {
		return domain.ImpactExcluded
	}
	if beforeClicks < directionalCap {
		return domain.ImpactDirectional
	}
	return domain.ImpactValidated
}
