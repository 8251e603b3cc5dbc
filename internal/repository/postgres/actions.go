package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/adpulse/ppc-insights/internal/domain"
)

// Sentinel errors for the action log.
var (
	ErrBatchNotFound     = errors.New("action batch not found")
	ErrUndoWindowExpired = errors.New("undo window expired for batch")
)

// ActionRepo implements the action log against PostgreSQL. The log is
// append-only: LogBatch is the only insert path and UndoBatch the only
// delete path; committed records are never edited in place.
type ActionRepo struct{ db *sql.DB }

// NewActionRepo creates a Postgres-backed action log repository.
func NewActionRepo(db *sql.DB) *ActionRepo { return &ActionRepo{db: db} }

// GetActions returns committed actions for a client ordered by action_date
// ascending. A zero `from` means unbounded; an empty types filter matches
// every action type. Implements impact.ActionReader.
func (r *ActionRepo) GetActions(ctx context.Context, clientID string, from, to time.Time, types ...domain.ActionType) ([]domain.ActionRecord, error) {
	q := `
		SELECT id, client_id, target_text, action_type, action_date,
		       old_value, new_value, batch_id
		FROM ppc_action_log
		WHERE client_id = $1 AND action_date <= $2`
	args := []interface{}{clientID, to}
	idx := 3

	if !from.IsZero() {
		q += fmt.Sprintf(" AND action_date >= $%d", idx)
		args = append(args, from)
		idx++
	}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		q += fmt.Sprintf(" AND action_type = ANY($%d)", idx)
		args = append(args, pq.Array(names))
	}
	q += " ORDER BY action_date ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var out []domain.ActionRecord
	for rows.Next() {
		var a domain.ActionRecord
		var oldVal, newVal sql.NullFloat64
		if err := rows.Scan(
			&a.ID, &a.ClientID, &a.TargetText, &a.ActionType, &a.ActionDate,
			&oldVal, &newVal, &a.BatchID,
		); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if oldVal.Valid {
			a.OldValue = domain.Float64(oldVal.Float64)
		}
		if newVal.Valid {
			a.NewValue = domain.Float64(newVal.Float64)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LogBatch appends a batch of accepted actions atomically and returns the
// generated batch ID. All records share the batch ID so an undo removes the
// whole batch or nothing.
func (r *ActionRepo) LogBatch(ctx context.Context, actions []domain.ActionRecord) (string, error) {
	if len(actions) == 0 {
		return "", fmt.Errorf("empty action batch")
	}

	batchID := uuid.New().String()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, a := range actions {
		var oldVal, newVal sql.NullFloat64
		if a.OldValue != nil {
			oldVal = sql.NullFloat64{Float64: *a.OldValue, Valid: true}
		}
		if a.NewValue != nil {
			newVal = sql.NullFloat64{Float64: *a.NewValue, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ppc_action_log
				(client_id, target_text, action_type, action_date,
				 old_value, new_value, batch_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		`, a.ClientID, a.TargetText, a.ActionType, a.ActionDate,
			oldVal, newVal, batchID); err != nil {
			return "", fmt.Errorf("insert action: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit batch: %w", err)
	}
	return batchID, nil
}

// UndoBatch deletes a whole batch if it is still inside the undo window.
// Returns the number of removed records. Batch-level delete is the only
// delete path for the log.
func (r *ActionRepo) UndoBatch(ctx context.Context, batchID string, window time.Duration) (int, error) {
	// MIN over an empty set is NULL, hence the NullTime scan.
	var createdAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT MIN(created_at) FROM ppc_action_log WHERE batch_id = $1
	`, batchID).Scan(&createdAt)
	if err != nil {
		return 0, fmt.Errorf("resolve batch: %w", err)
	}
	if !createdAt.Valid {
		return 0, ErrBatchNotFound
	}
	if time.Since(createdAt.Time) > window {
		return 0, ErrUndoWindowExpired
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM ppc_action_log WHERE batch_id = $1`, batchID)
	if err != nil {
		return 0, fmt.Errorf("undo batch: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, ErrBatchNotFound
	}
	return int(n), nil
}
