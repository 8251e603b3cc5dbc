package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/adpulse/ppc-insights/internal/domain"
)

func TestActionRepo_GetActions(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	to := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	actionDate := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "target_text", "action_type", "action_date",
		"old_value", "new_value", "batch_id",
	}).
		AddRow(int64(1), "acme", "wireless charger", "BID_CHANGE", actionDate, 0.85, 1.10, "batch-1").
		AddRow(int64(2), "acme", "usb hub", "NEGATIVE", actionDate, nil, nil, "batch-1")

	mock.ExpectQuery("SELECT id, client_id").
		WithArgs("acme", to).
		WillReturnRows(rows)

	repo := NewActionRepo(db)
	got, err := repo.GetActions(context.Background(), "acme", time.Time{}, to)
	if err != nil {
		t.Fatalf("GetActions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d actions, want 2", len(got))
	}
	if got[0].OldValue == nil || *got[0].OldValue != 0.85 {
		t.Errorf("action 0 old value = %v, want 0.85", got[0].OldValue)
	}
	if got[1].OldValue != nil || got[1].NewValue != nil {
		t.Error("negative action should carry nil old/new values")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestActionRepo_GetActionsTypeFilter(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, client_id").
		WithArgs("acme", to, from, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "client_id", "target_text", "action_type", "action_date",
			"old_value", "new_value", "batch_id",
		}))

	repo := NewActionRepo(db)
	got, err := repo.GetActions(context.Background(), "acme", from, to,
		domain.ActionNegative, domain.ActionNegativeAdd)
	if err != nil {
		t.Fatalf("GetActions: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d actions, want 0", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestActionRepo_LogBatch(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	actionDate := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ppc_action_log").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO ppc_action_log").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	repo := NewActionRepo(db)
	batchID, err := repo.LogBatch(context.Background(), []domain.ActionRecord{
		{ClientID: "acme", TargetText: "wireless charger", ActionType: domain.ActionBidChange,
			ActionDate: actionDate, OldValue: domain.Float64(0.85), NewValue: domain.Float64(1.10)},
		{ClientID: "acme", TargetText: "usb hub", ActionType: domain.ActionNegative,
			ActionDate: actionDate},
	})
	if err != nil {
		t.Fatalf("LogBatch: %v", err)
	}
	if batchID == "" {
		t.Error("LogBatch returned empty batch ID")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestActionRepo_LogBatchEmpty(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewActionRepo(db)
	if _, err := repo.LogBatch(context.Background(), nil); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestActionRepo_UndoBatch(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT MIN").
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(time.Now().Add(-1 * time.Hour)))
	mock.ExpectExec("DELETE FROM ppc_action_log").
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewActionRepo(db)
	n, err := repo.UndoBatch(context.Background(), "batch-1", 24*time.Hour)
	if err != nil {
		t.Fatalf("UndoBatch: %v", err)
	}
	if n != 3 {
		t.Errorf("removed %d records, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestActionRepo_UndoBatchNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// MIN over an empty set is a NULL row, not ErrNoRows.
	mock.ExpectQuery("SELECT MIN").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(nil))

	repo := NewActionRepo(db)
	_, err := repo.UndoBatch(context.Background(), "missing", 24*time.Hour)
	if !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestActionRepo_UndoBatchWindowExpired(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT MIN").
		WithArgs("stale").
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(time.Now().Add(-48 * time.Hour)))

	repo := NewActionRepo(db)
	_, err := repo.UndoBatch(context.Background(), "stale", 24*time.Hour)
	if !errors.Is(err, ErrUndoWindowExpired) {
		t.Errorf("expected ErrUndoWindowExpired, got %v", err)
	}
}
