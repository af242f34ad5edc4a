package utils

import (
	"fmt"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

// TimeframeString renders a duration as the whole-hour timeframe string the
// insights API expects, e.g. "24h". Sub-hour durations round up to one hour.
func TimeframeString(d time.Duration) string {
	hours := int(d.Hours())
	if hours < 1 {
		hours = 1
	}
	return fmt.Sprintf("%dh", hours)
}

// RangeEndingNow builds the aggregation window covering the last span of
// wall-clock time, ending at now.
func RangeEndingNow(span time.Duration) domain.DateRange {
	end := time.Now().UTC()
	return domain.DateRange{Start: end.Add(-span), End: end}
}
