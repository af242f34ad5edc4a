package domain

import "testing"

func TestRangePredicatesAreExclusive(t *testing.T) {
	t.Parallel()
	for v := 0; v <= 400; v++ {
		r := GlucoseReading{Value: v, Unit: UnitMgdL}
		truths := 0
		for _, ok := range []bool{r.IsLow(), r.IsInRange(), r.IsHigh()} {
			if ok {
				truths++
			}
		}
		if truths != 1 {
			t.Fatalf("value %d: expected exactly one range predicate, got %d", v, truths)
		}
	}
}

func TestClassifyRangeBoundaries(t *testing.T) {
	t.Parallel()
	cases := []struct {
		value int
		want  RangeClass
	}{
		{69, RangeLow},
		{70, RangeIn},
		{180, RangeIn},
		{181, RangeHigh},
		{0, RangeLow},
		{54, RangeLow},
		{250, RangeHigh},
	}
	for _, tc := range cases {
		if got := ClassifyRange(tc.value); got != tc.want {
			t.Errorf("ClassifyRange(%d) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestParseTrendCanonicalAndAliases(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw  string
		want Trend
	}{
		{"rising_rapidly", TrendRisingRapidly},
		{"rising rapidly", TrendRisingRapidly},
		{"DoubleUp", TrendRisingRapidly},
		{"rising", TrendRising},
		{"SingleUp", TrendRising},
		{"rising_slightly", TrendRisingSlightly},
		{"FortyFiveUp", TrendRisingSlightly},
		{"steady", TrendSteady},
		{"stable", TrendSteady},
		{"Flat", TrendSteady},
		{"falling_slightly", TrendFallingSlightly},
		{"FortyFiveDown", TrendFallingSlightly},
		{"falling", TrendFalling},
		{"SingleDown", TrendFalling},
		{"falling_rapidly", TrendFallingRapidly},
		{"DoubleDown", TrendFallingRapidly},
		{"unknown", TrendUnknown},
	}
	for _, tc := range cases {
		if got := ParseTrend(tc.raw); got != tc.want {
			t.Errorf("ParseTrend(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestParseTrendUnrecognized(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "sideways", "NOT COMPUTABLE", "rising  rapidly", "double-up"} {
		if got := ParseTrend(raw); got != TrendUnknown {
			t.Errorf("ParseTrend(%q) = %s, want unknown", raw, got)
		}
	}
}

func TestTrendArrowGlyphs(t *testing.T) {
	t.Parallel()
	known := []string{
		"rising_rapidly", "rising", "rising_slightly", "steady",
		"falling_slightly", "falling", "falling_rapidly",
		"doubleup", "singleup", "fortyfiveup", "flat",
		"fortyfivedown", "singledown", "doubledown", "stable",
	}
	for _, raw := range known {
		if TrendArrow(raw) == "?" {
			t.Errorf("TrendArrow(%q) returned the unknown glyph", raw)
		}
	}
	if got := TrendArrow("garbage"); got != "?" {
		t.Errorf("TrendArrow(garbage) = %q, want ?", got)
	}

	// Seven canonical trends collapse onto exactly five glyphs.
	glyphs := map[string]bool{}
	for _, tr := range []Trend{
		TrendRisingRapidly, TrendRising, TrendRisingSlightly, TrendSteady,
		TrendFallingSlightly, TrendFalling, TrendFallingRapidly,
	} {
		glyphs[tr.Arrow()] = true
	}
	if len(glyphs) != 5 {
		t.Fatalf("expected 5 distinct glyphs, got %d: %v", len(glyphs), glyphs)
	}
}

func TestNewSyncResultRecordCount(t *testing.T) {
	t.Parallel()
	snap := &HealthSnapshot{
		Steps:      8000,
		Workouts:   nil,
		SleepHours: 7.5,
	}
	res := NewSyncResult(snap)
	want := SyncResult{RecordCount: 2, StepCount: 8000, WorkoutCount: 0, SleepHours: 7.5}
	if res != want {
		t.Fatalf("NewSyncResult = %+v, want %+v", res, want)
	}

	empty := NewSyncResult(&HealthSnapshot{})
	if empty.RecordCount != 0 {
		t.Fatalf("empty snapshot record count = %d, want 0", empty.RecordCount)
	}

	full := NewSyncResult(&HealthSnapshot{
		Steps:      1,
		SleepHours: 0.5,
		Workouts:   []Workout{{Type: "Running"}, {Type: "Walking"}, {Type: "Yoga"}},
	})
	if full.RecordCount != 5 {
		t.Fatalf("full snapshot record count = %d, want 5", full.RecordCount)
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()
	for raw, want := range map[string]Priority{
		"low": PriorityLow, "LOW": PriorityLow,
		"Medium": PriorityMedium, "medium": PriorityMedium,
		"high": PriorityHigh, "HiGh": PriorityHigh,
	} {
		got, ok := ParsePriority(raw)
		if !ok || got != want {
			t.Errorf("ParsePriority(%q) = (%s, %v), want (%s, true)", raw, got, ok, want)
		}
	}
	for _, raw := range []string{"", "urgent", "critical", "med"} {
		if _, ok := ParsePriority(raw); ok {
			t.Errorf("ParsePriority(%q) accepted an invalid priority", raw)
		}
	}
}
