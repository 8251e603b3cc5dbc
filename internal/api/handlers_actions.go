package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adpulse/ppc-insights/internal/domain"
	"github.com/adpulse/ppc-insights/internal/pkg/logger"
)

// logBatchRequest is the payload for accepting a recommendation batch.
type logBatchRequest struct {
	Actions []logBatchAction `json:"actions"`
}

type logBatchAction struct {
	TargetText string    `json:"target_text"`
	ActionType string    `json:"action_type"`
	ActionDate time.Time `json:"action_date"`
	OldValue   *float64  `json:"old_value"`
	NewValue   *float64  `json:"new_value"`
}

// HandleLogBatch appends a batch of accepted optimization actions.
// POST /api/clients/{clientID}/actions
func (h *Handlers) HandleLogBatch(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var req logBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Actions) == 0 {
		respondError(w, http.StatusBadRequest, "actions is required")
		return
	}

	records := make([]domain.ActionRecord, 0, len(req.Actions))
	for _, a := range req.Actions {
		t := domain.ActionType(a.ActionType)
		switch t {
		case domain.ActionBidChange, domain.ActionNegative, domain.ActionNegativeAdd,
			domain.ActionHarvest, domain.ActionVisibility:
		default:
			respondError(w, http.StatusBadRequest, "unknown action_type: "+a.ActionType)
			return
		}
		if a.TargetText == "" {
			respondError(w, http.StatusBadRequest, "target_text is required")
			return
		}
		date := a.ActionDate
		if date.IsZero() {
			date = time.Now().UTC()
		}
		records = append(records, domain.ActionRecord{
			ClientID:   clientID,
			TargetText: a.TargetText,
			ActionType: t,
			ActionDate: date,
			OldValue:   a.OldValue,
			NewValue:   a.NewValue,
		})
	}

	batchID, err := h.actions.LogBatch(r.Context(), records)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if h.attribCache != nil {
		h.attribCache.InvalidateClient(r.Context(), clientID)
	}

	logger.Info("action batch logged",
		"client_id", clientID, "batch_id", batchID, "actions", len(records))
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"batch_id": batchID,
		"count":    len(records),
	})
}

// HandleUndoBatch removes a whole action batch inside the undo window.
// DELETE /api/batches/{batchID}?client_id=
func (h *Handlers) HandleUndoBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	n, err := h.actions.UndoBatch(r.Context(), batchID, h.cfg.UndoWindow())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if clientID := r.URL.Query().Get("client_id"); clientID != "" && h.attribCache != nil {
		h.attribCache.InvalidateClient(r.Context(), clientID)
	}

	logger.Info("action batch undone", "batch_id", batchID, "removed", n)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"batch_id": batchID,
		"removed":  n,
	})
}
