package attribution

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/adpulse/ppc-insights/internal/config"
	"github.com/adpulse/ppc-insights/internal/domain"
	"github.com/adpulse/ppc-insights/internal/pkg/logger"
)

// MetricsReader defines the aggregate read contract into the metric store.
type MetricsReader interface {
	// GetPeriodMetrics returns the summed performance for [start, end).
	// Returns ErrNoData when no metric rows fall in the range.
	GetPeriodMetrics(ctx context.Context, clientID string, start, end time.Time) (*domain.PeriodAggregate, error)
}

// Engine decomposes ROAS change into attribution buckets.
type Engine struct {
	metrics MetricsReader
	cfg     config.AttributionConfig
	now     func() time.Time
}

// NewEngine creates a ROAS attribution engine.
func NewEngine(metrics MetricsReader, cfg config.AttributionConfig) *Engine {
	return &Engine{metrics: metrics, cfg: cfg, now: time.Now}
}

// SetClock overrides the engine clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// GetROASAttribution explains the ROAS change over the trailing lookback
// window against the window immediately before it. decisionImpactValue is the
// external dollar estimate of decision impact for the current window (from
// the impact summarizer); it is converted into ROAS points against current
// spend.
func (e *Engine) GetROASAttribution(ctx context.Context, clientID string, lookbackDays int, decisionImpactValue float64) (*domain.AttributionResult, error) {
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("%w: lookback_days must be positive, got %d", ErrInvalidWindow, lookbackDays)
	}

	end := e.now().UTC().Truncate(24 * time.Hour)
	currentStart := end.AddDate(0, 0, -lookbackDays)
	priorStart := currentStart.AddDate(0, 0, -lookbackDays)

	prior, err := e.metrics.GetPeriodMetrics(ctx, clientID, priorStart, currentStart)
	if err != nil {
		return nil, fmt.Errorf("prior period: %w", err)
	}
	current, err := e.metrics.GetPeriodMetrics(ctx, clientID, currentStart, end)
	if err != nil {
		return nil, fmt.Errorf("current period: %w", err)
	}

	return e.Decompose(clientID, lookbackDays, prior, current, decisionImpactValue)
}

// Decompose runs the attribution math over two already-fetched period
// aggregates. Exposed separately so callers holding materialized aggregates
// can decompose without a store round trip.
func (e *Engine) Decompose(clientID string, lookbackDays int, prior, current *domain.PeriodAggregate, decisionImpactValue float64) (*domain.AttributionResult, error) {
	roasPrior := prior.ROAS()
	roasCurrent := current.ROAS()
	if roasPrior == nil || roasCurrent == nil {
		// A period with zero spend has no defined ROAS; there is nothing
		// to decompose and no honest way to fabricate a baseline.
		return nil, fmt.Errorf("%w: undefined ROAS (prior spend %.2f, current spend %.2f)",
			ErrNoData, prior.Spend, current.Spend)
	}

	res := &domain.AttributionResult{
		ClientID:     clientID,
		LookbackDays: lookbackDays,
		PriorStart:   prior.Start,
		CurrentStart: current.Start,
		CurrentEnd:   current.End,
		BaselineROAS: *roasPrior,
		ActualROAS:   *roasCurrent,
		TotalChange:  *roasCurrent - *roasPrior,
	}

	// Market forces: ratio drift scaled against the prior ROAS. CPC moves
	// inversely (paying more per click hurts), CVR and AOV move directly.
	res.CPCImpact = ratioImpact(prior.CPC(), current.CPC(), *roasPrior, true)
	res.CVRImpact = ratioImpact(prior.CVR(), current.CVR(), *roasPrior, false)
	res.AOVImpact = ratioImpact(prior.AOV(), current.AOV(), *roasPrior, false)

	cvrEstimated := res.CVRImpact == nil
	res.MarketImpactROAS = addOrZero(res.CPCImpact) + addOrZero(res.CVRImpact) + addOrZero(res.AOVImpact)

	// Scale effect: diminishing returns on large spend swings. The dead
	// zone below the threshold avoids attributing noise on small changes.
	res.SpendChangePct = (current.Spend - prior.Spend) / prior.Spend
	if math.Abs(res.SpendChangePct) >= e.cfg.ScaleThresholdPct {
		res.ScaleEffect = -e.cfg.ScaleCoefficient * res.SpendChangePct * *roasPrior
	}

	// Portfolio effect: net-new campaigns starting below baseline
	// efficiency dilute ROAS. Only increases are modeled; the model makes
	// no claim that removing campaigns improves ROAS.
	if prior.ActiveCampaigns > 0 {
		res.CampaignChangePct = float64(current.ActiveCampaigns-prior.ActiveCampaigns) / float64(prior.ActiveCampaigns)
	}
	if res.CampaignChangePct >= e.cfg.PortfolioThresholdPct {
		res.PortfolioEffect = -res.CampaignChangePct * (1 - e.cfg.NewCampaignEfficiency) * *roasPrior
	}

	res.DecisionImpactROAS = decisionImpactValue / current.Spend

	// Unexplained is definitional: it closes the reconciliation identity
	// baseline + buckets + unexplained == actual by construction.
	res.Unexplained = res.TotalChange -
		(res.DecisionImpactROAS + res.MarketImpactROAS + res.ScaleEffect + res.PortfolioEffect)

	if math.Abs(res.SpendChangePct) > e.cfg.ConfoundThresholdPct {
		res.Flags = append(res.Flags, domain.FlagScaleConfounded)
	}
	if math.Abs(res.CampaignChangePct) > e.cfg.ConfoundThresholdPct {
		res.Flags = append(res.Flags, domain.FlagPortfolioConfounded)
	}
	if math.Abs(res.Unexplained) > e.cfg.LargeResidual {
		res.Flags = append(res.Flags, domain.FlagLargeResidual)
	}
	if cvrEstimated {
		res.Flags = append(res.Flags, domain.FlagCVREstimated)
	}
	if len(res.Flags) == 0 {
		res.Flags = append(res.Flags, domain.FlagCleanAttribution)
	}

	res.Reconciles = math.Abs(res.Unexplained) < e.cfg.ReconcileTolerance

	logger.Debug("roas attribution",
		"client_id", clientID,
		"lookback_days", lookbackDays,
		"baseline", res.BaselineROAS,
		"actual", res.ActualROAS,
		"unexplained", res.Unexplained,
		"reconciles", res.Reconciles)
	return res, nil
}

// ratioImpact computes (Δratio/ratio_prior)*roas_prior, negated for inverse
// relationships. Nil when the ratio is undefined or zero in either period -
// flagged upstream, never silently zeroed.
func ratioImpact(priorRatio, currentRatio *float64, roasPrior float64, inverse bool) *float64 {
	if priorRatio == nil || currentRatio == nil || *priorRatio == 0 || *currentRatio == 0 {
		return nil
	}
	v := ((*currentRatio - *priorRatio) / *priorRatio) * roasPrior
	if inverse {
		v = -v
	}
	return &v
}

// addOrZero sums a nullable contribution as 0 while the flag preserving the
// nullness is carried separately.
func addOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
