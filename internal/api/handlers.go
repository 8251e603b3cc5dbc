package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adpulse/ppc-insights/internal/cache"
	"github.com/adpulse/ppc-insights/internal/config"
	"github.com/adpulse/ppc-insights/internal/domain"
	"github.com/adpulse/ppc-insights/internal/pkg/logger"
	"github.com/adpulse/ppc-insights/internal/repository/postgres"
	"github.com/adpulse/ppc-insights/internal/service/attribution"
	"github.com/adpulse/ppc-insights/internal/service/impact"
	"github.com/adpulse/ppc-insights/internal/validation"
)

// defaultSummaryTiers is the inclusion set used when the caller does not
// pick one: rows the validation pass has affirmed, plus directional ones.
var defaultSummaryTiers = []domain.ValidationTier{
	domain.TierValidated, domain.TierDirectional, domain.TierConfirmed,
}

// Handlers holds the wired services for the HTTP layer.
type Handlers struct {
	impactEngine *impact.Engine
	attribEngine *attribution.Engine
	actions      *postgres.ActionRepo
	attribCache  *cache.AttributionCache // optional
	cfg          config.AttributionConfig
	startTime    time.Time
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(impactEngine *impact.Engine, attribEngine *attribution.Engine, actions *postgres.ActionRepo, cfg config.AttributionConfig) *Handlers {
	return &Handlers{
		impactEngine: impactEngine,
		attribEngine: attribEngine,
		actions:      actions,
		cfg:          cfg,
		startTime:    time.Now(),
	}
}

// SetAttributionCache wires the optional Redis result cache.
func (h *Handlers) SetAttributionCache(c *cache.AttributionCache) { h.attribCache = c }

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service-layer sentinels onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, impact.ErrInvalidWindow), errors.Is(err, attribution.ErrInvalidWindow):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, impact.ErrNoData), errors.Is(err, attribution.ErrNoData):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, postgres.ErrBatchNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, postgres.ErrUndoWindowExpired):
		respondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatParam(r *http.Request, name string, def float64) float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// HealthCheck reports process liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

// HandleActionImpact computes one impact row per measurable logged action.
// GET /api/clients/{clientID}/impact?before_days=&after_days=&types=
func (h *Handlers) HandleActionImpact(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	beforeDays := intParam(r, "before_days", h.cfg.BeforeDays)
	afterDays := intParam(r, "after_days", h.cfg.AfterDays)
	types := parseActionTypes(r.URL.Query().Get("types"))

	rows, err := h.impactEngine.ComputeActionImpact(r.Context(), clientID, beforeDays, afterDays, types...)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"client_id":   clientID,
		"before_days": beforeDays,
		"after_days":  afterDays,
		"count":       len(rows),
		"rows":        rows,
	})
}

// HandleImpactSummary aggregates the impact cohort into a point estimate
// with a confidence interval.
// GET /api/clients/{clientID}/impact/summary?metric=&tiers=&z=
func (h *Handlers) HandleImpactSummary(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	beforeDays := intParam(r, "before_days", h.cfg.BeforeDays)
	afterDays := intParam(r, "after_days", h.cfg.AfterDays)

	metric := impact.SummaryMetric(r.URL.Query().Get("metric"))
	switch metric {
	case impact.MetricRevenue, impact.MetricSpendAvoided, impact.MetricProfit:
	case "":
		metric = impact.MetricRevenue
	default:
		respondError(w, http.StatusBadRequest, "unknown metric: "+string(metric))
		return
	}

	tiers := validation.ParseTiers(r.URL.Query().Get("tiers"))
	if tiers == nil {
		tiers = defaultSummaryTiers
	}
	z := floatParam(r, "z", h.cfg.ZScore)

	rows, err := h.impactEngine.ComputeActionImpact(r.Context(), clientID, beforeDays, afterDays)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, impact.Summarize(rows, tiers, metric, z))
}

// HandleAttribution decomposes the ROAS change over the lookback window.
// GET /api/clients/{clientID}/attribution?lookback_days=&decision_impact=
// When decision_impact is omitted, the summarizer's revenue point estimate
// over the lookback window is used.
func (h *Handlers) HandleAttribution(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	lookbackDays := intParam(r, "lookback_days", 30)

	if h.attribCache != nil && r.URL.Query().Get("decision_impact") == "" {
		if cached := h.attribCache.Get(r.Context(), clientID, lookbackDays); cached != nil {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	decisionImpact := floatParam(r, "decision_impact", 0)
	explicitImpact := r.URL.Query().Get("decision_impact") != ""
	if !explicitImpact {
		rows, err := h.impactEngine.ComputeActionImpact(r.Context(), clientID, h.cfg.BeforeDays, h.cfg.AfterDays)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		summary := impact.Summarize(rows, defaultSummaryTiers, impact.MetricRevenue, h.cfg.ZScore)
		decisionImpact = summary.Point
	}

	res, err := h.attribEngine.GetROASAttribution(r.Context(), clientID, lookbackDays, decisionImpact)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if h.attribCache != nil && !explicitImpact {
		h.attribCache.Set(r.Context(), res)
	}
	respondJSON(w, http.StatusOK, res)
}

func parseActionTypes(s string) []domain.ActionType {
	if s == "" {
		return nil
	}
	var out []domain.ActionType
	for _, part := range splitCSV(s) {
		switch t := domain.ActionType(part); t {
		case domain.ActionBidChange, domain.ActionNegative, domain.ActionNegativeAdd,
			domain.ActionHarvest, domain.ActionVisibility:
			out = append(out, t)
		}
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
