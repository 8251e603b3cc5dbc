// Package validation converts free-text validation tags from the upstream
// validation pass into the closed tier enumeration the core consumes. Text
// parsing lives here at the boundary so no core formula ever re-derives
// validity from strings.
package validation

import (
	"strings"

	"github.com/adpulse/ppc-insights/internal/domain"
)

// ParseTag maps one free-text validation tag to a tier. Unknown or empty
// tags map to Pending; the core treats Pending rows as untagged, not invalid.
func ParseTag(tag string) domain.ValidationTier {
	t := strings.ToLower(strings.TrimSpace(tag))
	switch {
	case t == "":
		return domain.TierPending
	case strings.Contains(t, "✓") || strings.Contains(t, "confirmed"):
		return domain.TierConfirmed
	case strings.Contains(t, "validated"):
		return domain.TierValidated
	case strings.Contains(t, "directional"):
		return domain.TierDirectional
	case strings.Contains(t, "excluded") || strings.Contains(t, "✗"):
		return domain.TierExcluded
	default:
		return domain.TierPending
	}
}

// ParseTiers parses a comma-separated tier list (API query form) into the
// closed enumeration. Unknown names are dropped rather than guessed.
func ParseTiers(s string) []domain.ValidationTier {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []domain.ValidationTier
	for _, part := range strings.Split(s, ",") {
		switch domain.ValidationTier(strings.ToLower(strings.TrimSpace(part))) {
		case domain.TierValidated:
			out = append(out, domain.TierValidated)
		case domain.TierDirectional:
			out = append(out, domain.TierDirectional)
		case domain.TierConfirmed:
			out = append(out, domain.TierConfirmed)
		case domain.TierExcluded:
			out = append(out, domain.TierExcluded)
		case domain.TierPending:
			out = append(out, domain.TierPending)
		}
	}
	return out
}
