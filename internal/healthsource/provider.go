// Package healthsource defines the boundary to the on-device health data
// provider and ships two adapters: a REST adapter speaking the local
// health-bridge exporter API and a deterministic fixture adapter driven by
// YAML scenarios.
package healthsource

import (
	"context"
	"errors"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

// SampleType identifies one category of health metric queried independently
// from the provider.
type SampleType string

const (
	SampleSteps          SampleType = "steps"
	SampleActiveCalories SampleType = "active_calories"
	SampleHeartRate      SampleType = "heart_rate"
	SampleWorkouts       SampleType = "workouts"
	SampleSleep          SampleType = "sleep"
	SampleNutrition      SampleType = "nutrition"
)

// RequiredSampleTypes returns the fixed set of sample types the agent
// collects, in query order.
func RequiredSampleTypes() []SampleType {
	return []SampleType{
		SampleSteps,
		SampleActiveCalories,
		SampleHeartRate,
		SampleWorkouts,
		SampleSleep,
		SampleNutrition,
	}
}

// AuthorizationStatus is the provider's per-type grant state.
type AuthorizationStatus string

const (
	StatusNotDetermined AuthorizationStatus = "not_determined"
	StatusAuthorized    AuthorizationStatus = "authorized"
	StatusDenied        AuthorizationStatus = "denied"
)

// ErrUnavailable reports that the device has no health store at all, as
// opposed to the user declining a grant.
var ErrUnavailable = errors.New("health data provider unavailable")

// Sample is one provider record. Numeric types carry their measurement in
// Value (sleep values are hours); workout and nutrition samples carry a
// typed payload instead.
type Sample struct {
	Type      SampleType       `json:"type"`
	Value     float64          `json:"value"`
	Unit      string           `json:"unit,omitempty"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`
	Workout   *WorkoutSample   `json:"workout,omitempty"`
	Nutrition *NutritionSample `json:"nutrition,omitempty"`
}

// WorkoutSample is the wire form of one workout session.
type WorkoutSample struct {
	Activity        string    `json:"activity"`
	DurationSeconds float64   `json:"duration_seconds"`
	Calories        float64   `json:"calories"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

// NutritionSample is the wire form of one dietary entry.
type NutritionSample struct {
	Calories      float64 `json:"calories"`
	Carbohydrates float64 `json:"carbohydrates"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
}

// Provider is the capability set the device health store exposes.
// Implementations must honor ctx cancellation on every call.
type Provider interface {
	// RequestAuthorization asks the provider to grant read access for all
	// given types in one batched request. ErrUnavailable means the device
	// has no health store; any other error is a provider-level denial.
	RequestAuthorization(ctx context.Context, types []SampleType) error

	// AuthorizationStatus reports the current grant state for one type.
	AuthorizationStatus(ctx context.Context, t SampleType) (AuthorizationStatus, error)

	// Query returns zero or more samples of the given type inside the
	// range, in the provider's own (assumed chronological) order.
	Query(ctx context.Context, t SampleType, r domain.DateRange) ([]Sample, error)
}
