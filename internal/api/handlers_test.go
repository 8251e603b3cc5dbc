package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/ppc-insights/internal/api"
	"github.com/adpulse/ppc-insights/internal/config"
	"github.com/adpulse/ppc-insights/internal/domain"
	"github.com/adpulse/ppc-insights/internal/repository/postgres"
	"github.com/adpulse/ppc-insights/internal/service/attribution"
	"github.com/adpulse/ppc-insights/internal/service/impact"
)

var actionDate = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

type memMetrics struct {
	periods map[string][]domain.MetricPeriod
	aggs    map[time.Time]*domain.PeriodAggregate
}

func (m *memMetrics) GetMetricRows(_ context.Context, _, targetText string, from, to time.Time) ([]domain.MetricPeriod, error) {
	var out []domain.MetricPeriod
	for _, p := range m.periods[targetText] {
		if !p.PeriodStart.Before(from) && p.PeriodStart.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memMetrics) GetPeriodMetrics(_ context.Context, clientID string, start, end time.Time) (*domain.PeriodAggregate, error) {
	agg, ok := m.aggs[start]
	if !ok {
		return nil, attribution.ErrNoData
	}
	cp := *agg
	cp.ClientID = clientID
	cp.Start = start
	cp.End = end
	return &cp, nil
}

type memActions struct {
	records []domain.ActionRecord
}

func (m *memActions) GetActions(_ context.Context, clientID string, _, _ time.Time, types ...domain.ActionType) ([]domain.ActionRecord, error) {
	var out []domain.ActionRecord
	for _, a := range m.records {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func testAttributionConfig() config.AttributionConfig {
	return config.AttributionConfig{
		BeforeDays:            14,
		AfterDays:             14,
		MinClicks:             5,
		ConfidenceDivisor:     15,
		DirectionalClickCap:   15,
		ZScore:                1.96,
		ScaleThresholdPct:     0.20,
		ScaleCoefficient:      0.05,
		PortfolioThresholdPct: 0.20,
		NewCampaignEfficiency: 0.65,
		ConfoundThresholdPct:  0.30,
		LargeResidual:         0.15,
		ReconcileTolerance:    0.20,
		UndoWindowHours:       24,
	}
}

// testServer wires the handler stack over in-memory stores plus a mocked
// action log.
func testServer(t *testing.T, metrics *memMetrics, actions *memActions) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testAttributionConfig()

	impactEngine := impact.NewEngine(metrics, actions, cfg)
	attribEngine := attribution.NewEngine(metrics, cfg)
	attribEngine.SetClock(func() time.Time { return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC) })

	h := api.NewHandlers(impactEngine, attribEngine, postgres.NewActionRepo(db), cfg)
	return api.SetupRoutes(h), mock
}

func steadyMetrics() *memMetrics {
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	currentStart := end.AddDate(0, 0, -30)
	priorStart := currentStart.AddDate(0, 0, -30)

	return &memMetrics{
		periods: map[string][]domain.MetricPeriod{
			"wireless charger": {
				{ClientID: "acme", TargetText: "wireless charger",
					PeriodStart: actionDate.AddDate(0, 0, -7),
					Spend:       100, Sales: 200, Clicks: 10},
				{ClientID: "acme", TargetText: "wireless charger",
					PeriodStart: actionDate,
					Spend:       150, Sales: 400, Clicks: 12},
			},
		},
		aggs: map[time.Time]*domain.PeriodAggregate{
			priorStart: {Spend: 1000, Sales: 3000, Clicks: 500,
				Orders: 100, ActiveCampaigns: 10},
			currentStart: {Spend: 1100, Sales: 3520, Clicks: 520,
				Orders: 104, ActiveCampaigns: 10},
		},
	}
}

func steadyActions() *memActions {
	return &memActions{records: []domain.ActionRecord{{
		ID: 1, ClientID: "acme", TargetText: "wireless charger",
		ActionType: domain.ActionBidChange, ActionDate: actionDate, BatchID: "batch-1",
	}}}
}

func TestHealthCheck(t *testing.T) {
	router, _ := testServer(t, steadyMetrics(), steadyActions())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleActionImpact(t *testing.T) {
	router, _ := testServer(t, steadyMetrics(), steadyActions())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients/acme/impact", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count int                `json:"count"`
		Rows  []domain.ImpactRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.InDelta(t, 100, body.Rows[0].DecisionImpact, 1e-9)
	assert.Equal(t, domain.ImpactDirectional, body.Rows[0].ImpactTier)
}

func TestHandleActionImpactInvalidWindow(t *testing.T) {
	router, _ := testServer(t, steadyMetrics(), steadyActions())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients/acme/impact?before_days=-3", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleImpactSummary(t *testing.T) {
	router, _ := testServer(t, steadyMetrics(), steadyActions())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients/acme/impact/summary?tiers=pending", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var s impact.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 1, s.N)
	assert.True(t, s.InsufficientSample)
	assert.InDelta(t, 100*10.0/15.0, s.Point, 1e-9)
}

func TestHandleImpactSummaryUnknownMetric(t *testing.T) {
	router, _ := testServer(t, steadyMetrics(), steadyActions())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients/acme/impact/summary?metric=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAttribution(t *testing.T) {
	router, _ := testServer(t, steadyMetrics(), steadyActions())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients/acme/attribution?decision_impact=250", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.AttributionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 3.0, res.BaselineROAS, 1e-9)
	assert.InDelta(t, 3.2, res.ActualROAS, 1e-9)
	assert.InDelta(t, 250.0/1100.0, res.DecisionImpactROAS, 1e-9)

	rebuilt := res.BaselineROAS + res.DecisionImpactROAS + res.MarketImpactROAS +
		res.ScaleEffect + res.PortfolioEffect + res.Unexplained
	assert.InDelta(t, res.ActualROAS, rebuilt, 1e-6)
}

func TestHandleAttributionNoData(t *testing.T) {
	router, _ := testServer(t, &memMetrics{aggs: map[time.Time]*domain.PeriodAggregate{}}, &memActions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients/ghost/attribution?decision_impact=0", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLogBatch(t *testing.T) {
	router, mock := testServer(t, steadyMetrics(), steadyActions())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ppc_action_log").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	body := `{"actions":[{"target_text":"usb hub","action_type":"NEGATIVE"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/clients/acme/actions", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["batch_id"])
	assert.EqualValues(t, 1, resp["count"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleLogBatchValidation(t *testing.T) {
	router, _ := testServer(t, steadyMetrics(), steadyActions())

	cases := []string{
		`{"actions":[]}`,
		`{"actions":[{"target_text":"x","action_type":"NOT_A_TYPE"}]}`,
		`{"actions":[{"target_text":"","action_type":"NEGATIVE"}]}`,
		`not json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/clients/acme/actions", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestHandleUndoBatch(t *testing.T) {
	router, mock := testServer(t, steadyMetrics(), steadyActions())

	mock.ExpectQuery("SELECT MIN").
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(time.Now().Add(-1 * time.Hour)))
	mock.ExpectExec("DELETE FROM ppc_action_log").
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/batches/batch-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["removed"])
}

func TestHandleUndoBatchExpired(t *testing.T) {
	router, mock := testServer(t, steadyMetrics(), steadyActions())

	mock.ExpectQuery("SELECT MIN").
		WithArgs("stale").
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(time.Now().Add(-48 * time.Hour)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/batches/stale", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleUndoBatchNotFound(t *testing.T) {
	router, mock := testServer(t, steadyMetrics(), steadyActions())

	mock.ExpectQuery("SELECT MIN").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/batches/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
