package warehouse

import "time"

// TargetValidation is one validation-pass tag for a targeting entity.
// Tag is free text as written by the validation pass ("Confirmed ✓",
// "directional", ...); it is mapped to the closed tier enum at the boundary.
type TargetValidation struct {
	ClientID    string    `json:"client_id"`
	TargetText  string    `json:"target_text"`
	Tag         string    `json:"tag"`
	ValidatedAt time.Time `json:"validated_at"`
}
