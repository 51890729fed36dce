package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/synthmart/shopagent/internal/shopper"
)

// promptRecord is the per-action serialization shown to the model. Target
// URLs are withheld; the model chooses by id and context alone.
type promptRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Context string `json:"context"`
}

func serializeActions(actions []shopper.Action) string {
	var b strings.Builder
	for _, action := range actions {
		record, err := json.MarshalIndent(promptRecord{
			ID:      action.ID,
			Type:    string(action.Type),
			Context: action.Context,
		}, "", "  ")
		if err != nil {
			continue
		}
		b.Write(record)
		b.WriteString("\n")
	}
	return b.String()
}

// buildPrompt renders the consumer-roleplay prompt handed to the model for
// one decision.
func buildPrompt(d shopper.Decision) string {
	return fmt.Sprintf(`I am trying to create synthetic data with LLMs for ecommerce startups.
More specifically, I am telling you to act as a consumer with this goal: %s
You are currently browsing the ecommerce webpage and are presented with these options:
%s
You have previously taken the following actions. You want to choose the best option to buy (with a BUY_NOW action) after a maximum of %d steps:
%s
The actions should be taken from the point of view of a user with the following profile:
- Gender: %s
- Age Range: %d - %d
- Location: %s
- Interests: %s

Please think carefully how users with different profiles interact with the platform when making e-commerce purchases.
Tell me which option you are taking by responding with the corresponding action ID only.`,
		d.Goal,
		serializeActions(d.Frontier),
		d.MaxSteps,
		serializeActions(d.History),
		d.Profile.Gender,
		d.Profile.AgeFrom,
		d.Profile.AgeTo,
		d.Profile.Location,
		strings.Join(d.Profile.Interests, ", "),
	)
}
