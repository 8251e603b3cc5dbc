package warehouse

import (
	"context"
	"sync"
	"time"

	"github.com/adpulse/ppc-insights/internal/domain"
	"github.com/adpulse/ppc-insights/internal/pkg/logger"
	"github.com/adpulse/ppc-insights/internal/validation"
)

// validationReader is the slice of Client the collector needs. Narrowed for
// testing.
type validationReader interface {
	GetValidatedClientIDs(ctx context.Context) ([]string, error)
	GetTargetValidations(ctx context.Context, clientID string) ([]TargetValidation, error)
}

// Collector polls the warehouse for validation tags and serves them from
// memory. It implements impact.ValidationSource.
type Collector struct {
	client   validationReader
	interval time.Duration

	mu        sync.RWMutex
	tiers     map[string]domain.ValidationTier // keyed by clientID + "\x00" + targetText
	lastFetch time.Time
}

// NewCollector creates a validation-tag collector.
func NewCollector(client validationReader, interval time.Duration) *Collector {
	return &Collector{
		client:   client,
		interval: interval,
		tiers:    make(map[string]domain.ValidationTier),
	}
}

// Start begins the collection loop. Blocks until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	c.FetchNow(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.FetchNow(ctx)
		}
	}
}

// FetchNow refreshes the tag cache immediately. A failed refresh keeps the
// previous snapshot; stale tags beat missing tags for a read-only signal.
func (c *Collector) FetchNow(ctx context.Context) {
	clientIDs, err := c.client.GetValidatedClientIDs(ctx)
	if err != nil {
		logger.Warn("warehouse: listing validated clients failed", "error", err)
		return
	}

	fresh := make(map[string]domain.ValidationTier)
	for _, id := range clientIDs {
		tags, err := c.client.GetTargetValidations(ctx, id)
		if err != nil {
			logger.Warn("warehouse: fetching validations failed", "client_id", id, "error", err)
			return
		}
		for _, tv := range tags {
			fresh[tierKey(tv.ClientID, tv.TargetText)] = validation.ParseTag(tv.Tag)
		}
	}

	c.mu.Lock()
	c.tiers = fresh
	c.lastFetch = time.Now()
	c.mu.Unlock()

	logger.Info("warehouse: refreshed validation tags",
		"clients", len(clientIDs), "tags", len(fresh))
}

// ValidationTier returns the tier for a targeting entity. The second return
// is false when the validation pass has not tagged the entity.
func (c *Collector) ValidationTier(clientID, targetText string) (domain.ValidationTier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tier, ok := c.tiers[tierKey(clientID, targetText)]
	return tier, ok
}

// LastFetch returns the time of the last successful refresh.
func (c *Collector) LastFetch() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch
}

func tierKey(clientID, targetText string) string {
	return clientID + "\x00" + targetText
}
