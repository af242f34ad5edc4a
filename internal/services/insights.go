package services

import (
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

// rawInsight mirrors one record of the insights/generate response.
type rawInsight struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	ActionItems []string `json:"action_items"`
}

// normalizeInsight validates one raw server record. Title, description, and
// category must be non-empty and priority must parse; anything else skips
// the item rather than failing the whole fetch. The timestamp is the moment
// of normalization, never server-supplied.
func normalizeInsight(raw rawInsight, now time.Time) (domain.Insight, bool) {
	if raw.Title == "" || raw.Description == "" || raw.Category == "" {
		return domain.Insight{}, false
	}
	priority, ok := domain.ParsePriority(raw.Priority)
	if !ok {
		return domain.Insight{}, false
	}
	items := raw.ActionItems
	if items == nil {
		items = []string{}
	}
	return domain.Insight{
		Title:       raw.Title,
		Description: raw.Description,
		Category:    raw.Category,
		Priority:    priority,
		ActionItems: items,
		Timestamp:   now,
	}, true
}

// fallbackInsights is the fixed pair shown when the server list normalizes
// to empty, so callers never observe "no insights" as a distinct state.
func fallbackInsights(now time.Time) []domain.Insight {
	return []domain.Insight{
		{
			Title:       "Welcome to GluCoPilot",
			Description: "Connect your Dexcom account and sync your health data to start receiving personalized recommendations.",
			Category:    "General",
			Priority:    domain.PriorityMedium,
			ActionItems: []string{"Connect your Dexcom account", "Sync your health data"},
			Timestamp:   now,
		},
		{
			Title:       "Keep your data fresh",
			Description: "Sync more frequently so recommendations reflect your latest glucose and activity patterns.",
			Category:    "General",
			Priority:    domain.PriorityLow,
			ActionItems: []string{"Sync your data"},
			Timestamp:   now,
		},
	}
}
