package oracle

import (
	"context"

	"github.com/synthmart/shopagent/internal/shopper"
)

// FirstCandidate deterministically picks the first frontier action. Useful
// for offline runs and as the oracle seam in tests.
type FirstCandidate struct{}

// Choose returns the first candidate's id, or "" on an empty frontier.
func (FirstCandidate) Choose(_ context.Context, decision shopper.Decision) (string, error) {
	if len(decision.Frontier) == 0 {
		return "", nil
	}
	return decision.Frontier[0].ID, nil
}

// PreferType picks the first frontier action of the preferred type, falling
// back to the first candidate. A scripted stand-in for goal-driven choices.
type PreferType struct {
	Preferred shopper.ActionType
}

// Choose scans the frontier for the preferred type.
func (p PreferType) Choose(_ context.Context, decision shopper.Decision) (string, error) {
	if len(decision.Frontier) == 0 {
		return "", nil
	}
	for _, action := range decision.Frontier {
		if action.Type == p.Preferred {
			return action.ID, nil
		}
	}
	return decision.Frontier[0].ID, nil
}
