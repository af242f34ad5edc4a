package domain

import (
	"fmt"
	"time"
)

// DateRange bounds one aggregation window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate rejects ranges whose start falls after their end.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("date range start %s is after end %s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// Workout is one exercise session as reported by the health provider.
type Workout struct {
	Type      string        `json:"type"`
	Duration  time.Duration `json:"duration"`
	Calories  float64       `json:"calories"`
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
}

// Nutrition accumulates dietary intake over the snapshot window.
type Nutrition struct {
	Calories      float64 `json:"calories"`
	Carbohydrates float64 `json:"carbohydrates"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
}

// HealthSnapshot is one immutable, time-ranged aggregate of health metrics.
// Every Collect call builds a fresh snapshot; nothing mutates it afterwards.
type HealthSnapshot struct {
	Steps            int       `json:"steps"`
	ActiveCalories   int       `json:"active_calories"`
	AverageHeartRate int       `json:"average_heart_rate"`
	Workouts         []Workout `json:"workouts"`
	SleepHours       float64   `json:"sleep_hours"`
	Nutrition        Nutrition `json:"nutrition"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
}

// SyncResult summarizes one completed sync. It is derived from the snapshot
// that was pushed, never from the server response.
type SyncResult struct {
	RecordCount  int     `json:"record_count"`
	StepCount    int     `json:"step_count"`
	WorkoutCount int     `json:"workout_count"`
	SleepHours   float64 `json:"sleep_hours"`
}

// NewSyncResult computes the sync summary from the snapshot's own fields.
// RecordCount counts each workout plus one record apiece for non-zero steps
// and non-zero sleep.
func NewSyncResult(snapshot *HealthSnapshot) SyncResult {
	res := SyncResult{
		StepCount:    snapshot.Steps,
		WorkoutCount: len(snapshot.Workouts),
		SleepHours:   snapshot.SleepHours,
	}
	res.RecordCount = res.WorkoutCount
	if res.StepCount > 0 {
		res.RecordCount++
	}
	if res.SleepHours > 0 {
		res.RecordCount++
	}
	return res
}

// PermissionState tracks where the app stands in the health-data
// authorization lifecycle. Partial means some but not all requested sample
// types were granted.
type PermissionState string

const (
	PermissionNotDetermined PermissionState = "not_determined"
	PermissionAuthorized    PermissionState = "authorized"
	PermissionDenied        PermissionState = "denied"
	PermissionPartial       PermissionState = "partial"
)

// DexcomCredentials carry the share-account login used by the stateless
// CGM endpoints. OUS selects the outside-US Dexcom server.
type DexcomCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OUS      bool   `json:"ous"`
}
