package domain

import (
	"strings"
	"time"
)

// Priority ranks an insight for display ordering.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority matches a raw priority string case-insensitively against the
// three known levels. The second return is false for anything else.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(strings.ToLower(raw)) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	}
	return "", false
}

// Insight is one AI-generated recommendation. The timestamp is assigned at
// normalization time on this device; the server is not trusted as a clock
// source for it.
type Insight struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    Priority  `json:"priority"`
	ActionItems []string  `json:"action_items"`
	Timestamp   time.Time `json:"timestamp"`
}
