package impact

import (
	"context"
	"time"

	"github.com/adpulse/ppc-insights/internal/domain"
)

// MetricsReader defines the read contract into the metric period store.
// Implementations must be safe for concurrent use; this service never writes.
type MetricsReader interface {
	// GetMetricRows returns the metric periods for one targeting entity,
	// ordered by period_start ascending. An empty result is not an error.
	GetMetricRows(ctx context.Context, clientID, targetText string, from, to time.Time) ([]domain.MetricPeriod, error)
}

// ActionReader defines the read contract into the action log.
type ActionReader interface {
	// GetActions returns committed actions for a client ordered by
	// action_date ascending. A zero `from` means unbounded. An empty
	// types filter matches all action types.
	GetActions(ctx context.Context, clientID string, from, to time.Time, types ...domain.ActionType) ([]domain.ActionRecord, error)
}

// SPCProvider supplies a longer-window rolling sales-per-click baseline for
// a targeting entity. When available it is preferred over the before-window
// value; the window value is the fallback when the rolling value is nil.
// This is an explicit fallback ordering, never an average of the two.
type SPCProvider interface {
	RollingSPC(ctx context.Context, clientID, targetText string, asOf time.Time) (*float64, error)
}

// ValidationSource supplies the external validation tier for a targeting
// entity. The second return is false when the validation pass has not tagged
// the entity yet.
type ValidationSource interface {
	ValidationTier(clientID, targetText string) (domain.ValidationTier, bool)
}
