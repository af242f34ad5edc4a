package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
	apperrors "github.com/glucopilot/glucopilot-agent/internal/errors"
	"github.com/glucopilot/glucopilot-agent/internal/healthsource"
	"github.com/glucopilot/glucopilot-agent/internal/logger"
	"github.com/glucopilot/glucopilot-agent/internal/metrics"
)

// HealthService aggregates provider samples into snapshots. Merge policy:
// a failed or cancelled query defaults its metric to zero, the collect as a
// whole fails only when every query fails. Health sources are frequently
// partially populated and a strict all-or-nothing contract would make the
// feature unusable for most users.
type HealthService struct {
	provider healthsource.Provider
}

func NewHealthService(provider healthsource.Provider) *HealthService {
	return &HealthService{
		provider: provider,
	}
}

type queryResult struct {
	sampleType healthsource.SampleType
	samples    []healthsource.Sample
	err        error
}

// Collect fans out one provider query per required sample type, joins on
// all of them, and merges the results into a fresh snapshot. Per-type
// results are independent; ctx cancellation mid-flight zero-defaults the
// types that did not complete.
func (s *HealthService) Collect(ctx context.Context, r domain.DateRange) (*domain.HealthSnapshot, error) {
	if err := r.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeCollect, "INVALID_RANGE", "invalid collection range")
	}

	types := healthsource.RequiredSampleTypes()
	results := make([]queryResult, len(types))

	var wg sync.WaitGroup
	for i, t := range types {
		wg.Add(1)
		go func(i int, t healthsource.SampleType) {
			defer wg.Done()
			samples, err := s.provider.Query(ctx, t, r)
			results[i] = queryResult{sampleType: t, samples: samples, err: err}
		}(i, t)
	}
	wg.Wait()

	snapshot := &domain.HealthSnapshot{
		Workouts:  []domain.Workout{},
		StartDate: r.Start,
		EndDate:   r.End,
	}

	failures := 0
	for _, res := range results {
		if res.err != nil {
			failures++
			metrics.ProviderQueryFailures.WithLabelValues(string(res.sampleType)).Inc()
			logger.Warn("health query failed, metric defaults to zero",
				"sample_type", res.sampleType, "error", res.err)
			continue
		}
		mergeSamples(snapshot, res.sampleType, res.samples)
	}

	if failures == len(types) {
		return nil, apperrors.ErrAllSourcesFailed
	}
	return snapshot, nil
}

func mergeSamples(snapshot *domain.HealthSnapshot, t healthsource.SampleType, samples []healthsource.Sample) {
	switch t {
	case healthsource.SampleSteps:
		snapshot.Steps = int(sumValues(samples))
	case healthsource.SampleActiveCalories:
		snapshot.ActiveCalories = int(sumValues(samples))
	case healthsource.SampleHeartRate:
		snapshot.AverageHeartRate = meanValue(samples)
	case healthsource.SampleWorkouts:
		snapshot.Workouts = toWorkouts(samples)
	case healthsource.SampleSleep:
		snapshot.SleepHours = sumValues(samples)
	case healthsource.SampleNutrition:
		snapshot.Nutrition = sumNutrition(samples)
	}
}

// sumValues totals sample values, ignoring negative entries so malformed
// provider records cannot push a metric below zero.
func sumValues(samples []healthsource.Sample) float64 {
	var total float64
	for _, s := range samples {
		if s.Value < 0 {
			continue
		}
		total += s.Value
	}
	return total
}

// meanValue is the arithmetic mean rounded to the nearest integer; zero
// usable samples yield 0.
func meanValue(samples []healthsource.Sample) int {
	var total float64
	count := 0
	for _, s := range samples {
		if s.Value < 0 {
			continue
		}
		total += s.Value
		count++
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(total / float64(count)))
}

// toWorkouts keeps provider-return order and drops entries without a
// payload or with an inverted time range.
func toWorkouts(samples []healthsource.Sample) []domain.Workout {
	workouts := make([]domain.Workout, 0, len(samples))
	for _, s := range samples {
		w := s.Workout
		if w == nil || w.StartDate.After(w.EndDate) {
			continue
		}
		duration := time.Duration(w.DurationSeconds * float64(time.Second))
		if duration < 0 {
			duration = 0
		}
		calories := w.Calories
		if calories < 0 {
			calories = 0
		}
		workouts = append(workouts, domain.Workout{
			Type:      w.Activity,
			Duration:  duration,
			Calories:  calories,
			StartDate: w.StartDate,
			EndDate:   w.EndDate,
		})
	}
	return workouts
}

// sumNutrition accumulates dietary fields in arrival order, skipping
// negative components.
func sumNutrition(samples []healthsource.Sample) domain.Nutrition {
	var n domain.Nutrition
	for _, s := range samples {
		payload := s.Nutrition
		if payload == nil {
			continue
		}
		if payload.Calories > 0 {
			n.Calories += payload.Calories
		}
		if payload.Carbohydrates > 0 {
			n.Carbohydrates += payload.Carbohydrates
		}
		if payload.Protein > 0 {
			n.Protein += payload.Protein
		}
		if payload.Fat > 0 {
			n.Fat += payload.Fat
		}
	}
	return n
}
