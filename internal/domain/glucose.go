package domain

import (
	"strings"
	"time"
)

// Glucose thresholds in mg/dL. Values below LowThreshold are hypo range,
// values above HighThreshold are hyper range.
const (
	LowThreshold  = 70
	HighThreshold = 180
)

// UnitMgdL is the unit every reading is normalized to before it enters the app.
const UnitMgdL = "mg/dL"

// Trend is the canonical glucose trend direction reported alongside a reading.
type Trend string

const (
	TrendRisingRapidly   Trend = "rising_rapidly"
	TrendRising          Trend = "rising"
	TrendRisingSlightly  Trend = "rising_slightly"
	TrendSteady          Trend = "steady"
	TrendFallingSlightly Trend = "falling_slightly"
	TrendFalling         Trend = "falling"
	TrendFallingRapidly  Trend = "falling_rapidly"
	TrendUnknown         Trend = "unknown"
)

// trendAliases maps every spelling the app accepts onto a canonical trend.
// The table mixes two vocabularies on purpose: the backend's snake_case
// trends and Dexcom's arrow names ("DoubleUp".."DoubleDown"). Matching is
// case-insensitive and exact; nothing else is normalized.
var trendAliases = map[string]Trend{
	"rising rapidly":   TrendRisingRapidly,
	"rising_rapidly":   TrendRisingRapidly,
	"doubleup":         TrendRisingRapidly,
	"rising":           TrendRising,
	"singleup":         TrendRising,
	"rising slightly":  TrendRisingSlightly,
	"rising_slightly":  TrendRisingSlightly,
	"fortyfiveup":      TrendRisingSlightly,
	"steady":           TrendSteady,
	"stable":           TrendSteady,
	"flat":             TrendSteady,
	"falling slightly": TrendFallingSlightly,
	"falling_slightly": TrendFallingSlightly,
	"fortyfivedown":    TrendFallingSlightly,
	"falling":          TrendFalling,
	"singledown":       TrendFalling,
	"falling rapidly":  TrendFallingRapidly,
	"falling_rapidly":  TrendFallingRapidly,
	"doubledown":       TrendFallingRapidly,
	"unknown":          TrendUnknown,
}

// ParseTrend resolves a raw trend string to its canonical trend.
// Unrecognized spellings come back as TrendUnknown, never an error.
func ParseTrend(raw string) Trend {
	if t, ok := trendAliases[strings.ToLower(raw)]; ok {
		return t
	}
	return TrendUnknown
}

// Arrow returns the display glyph for the trend. Seven trends collapse onto
// five glyphs; anything unknown renders as "?".
func (t Trend) Arrow() string {
	switch t {
	case TrendRisingRapidly, TrendRising:
		return "↑"
	case TrendRisingSlightly:
		return "↗"
	case TrendSteady:
		return "→"
	case TrendFallingSlightly:
		return "↘"
	case TrendFalling, TrendFallingRapidly:
		return "↓"
	default:
		return "?"
	}
}

// TrendArrow maps a raw trend string straight to its glyph.
func TrendArrow(raw string) string {
	return ParseTrend(raw).Arrow()
}

// RangeClass buckets a glucose value against the low/high thresholds.
type RangeClass string

const (
	RangeLow  RangeClass = "low"
	RangeIn   RangeClass = "in_range"
	RangeHigh RangeClass = "high"
)

// ClassifyRange places a mg/dL value into exactly one range bucket.
func ClassifyRange(value int) RangeClass {
	switch {
	case value < LowThreshold:
		return RangeLow
	case value > HighThreshold:
		return RangeHigh
	default:
		return RangeIn
	}
}

// GlucoseReading is one CGM measurement. Readings are immutable after
// construction; a new server record produces a new value.
type GlucoseReading struct {
	Value     int       `json:"value"`
	Trend     Trend     `json:"trend"`
	Timestamp time.Time `json:"timestamp"`
	Unit      string    `json:"unit"`
}

// IsLow reports a value below 70 mg/dL.
func (r GlucoseReading) IsLow() bool { return r.Value < LowThreshold }

// IsHigh reports a value above 180 mg/dL.
func (r GlucoseReading) IsHigh() bool { return r.Value > HighThreshold }

// IsInRange reports a value in the 70–180 mg/dL band, inclusive.
func (r GlucoseReading) IsInRange() bool { return !r.IsLow() && !r.IsHigh() }

// Arrow returns the display glyph for the reading's trend.
func (r GlucoseReading) Arrow() string { return r.Trend.Arrow() }
