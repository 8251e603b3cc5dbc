package domain

import "time"

// ActionType enumerates the kinds of optimization actions the dashboard
// applies to an advertiser account.
type ActionType string

const (
	ActionBidChange   ActionType = "BID_CHANGE"
	ActionNegative    ActionType = "NEGATIVE"
	ActionNegativeAdd ActionType = "NEGATIVE_ADD"
	ActionHarvest     ActionType = "HARVEST"
	ActionVisibility  ActionType = "VISIBILITY"
)

// IsNegative reports whether the action suppresses spend on a target.
// Negatives carry a guaranteed-savings component (the eliminated spend)
// alongside the uncertain sales-impact component.
func (t ActionType) IsNegative() bool {
	return t == ActionNegative || t == ActionNegativeAdd
}

// ActionRecord is one committed optimization action. Records are append-only:
// the only delete path is an explicit undo of the whole batch within the undo
// window, never an in-place edit.
type ActionRecord struct {
	ID         int64      `json:"id" db:"id"`
	ClientID   string     `json:"client_id" db:"client_id"`
	TargetText string     `json:"target_text" db:"target_text"`
	ActionType ActionType `json:"action_type" db:"action_type"`
	ActionDate time.Time  `json:"action_date" db:"action_date"`
	OldValue   *float64   `json:"old_value" db:"old_value"`
	NewValue   *float64   `json:"new_value" db:"new_value"`
	BatchID    string     `json:"batch_id" db:"batch_id"`
}

// ValidationTier is the closed confidence classification attached to an
// observed impact. Free-text validation tags from the upstream validation
// pass are mapped into this enum at the boundary (see internal/validation);
// the core never re-derives validity from text.
type ValidationTier string

const (
	TierValidated   ValidationTier = "validated"
	TierDirectional ValidationTier = "directional"
	TierConfirmed   ValidationTier = "confirmed"
	TierExcluded    ValidationTier = "excluded"
	TierPending     ValidationTier = "pending"
)
