package healthsource

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

// Authorization outcomes a scenario may script.
const (
	ScenarioGranted     = "granted"
	ScenarioDenied      = "denied"
	ScenarioUnavailable = "unavailable"
)

// Scenario scripts a deterministic provider: the authorization outcome,
// per-type grant states, the samples each query returns, and the types
// whose queries fail outright.
type Scenario struct {
	Name          string                          `yaml:"name"`
	Description   string                          `yaml:"description"`
	Authorization ScenarioAuthorization           `yaml:"authorization"`
	Samples       map[SampleType][]ScenarioSample `yaml:"samples"`
	Failures      []SampleType                    `yaml:"failures"`
}

// ScenarioAuthorization scripts the grant flow. Result defaults to granted;
// Statuses overrides individual types (absent types inherit the result).
type ScenarioAuthorization struct {
	Result   string                             `yaml:"result"`
	Statuses map[SampleType]AuthorizationStatus `yaml:"statuses"`
}

// ScenarioSample is one scripted provider record. Numeric types use Value;
// workout entries use Activity/DurationSeconds/Calories; nutrition entries
// use Calories/Carbohydrates/Protein/Fat.
type ScenarioSample struct {
	Value           float64   `yaml:"value,omitempty"`
	Unit            string    `yaml:"unit,omitempty"`
	Start           time.Time `yaml:"start"`
	End             time.Time `yaml:"end"`
	Activity        string    `yaml:"activity,omitempty"`
	DurationSeconds float64   `yaml:"duration_seconds,omitempty"`
	Calories        float64   `yaml:"calories,omitempty"`
	Carbohydrates   float64   `yaml:"carbohydrates,omitempty"`
	Protein         float64   `yaml:"protein,omitempty"`
	Fat             float64   `yaml:"fat,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// Validate rejects authorization results outside the scripted vocabulary.
func (s *Scenario) Validate() error {
	switch s.Authorization.Result {
	case "", ScenarioGranted, ScenarioDenied, ScenarioUnavailable:
		return nil
	default:
		return fmt.Errorf("unknown authorization result %q", s.Authorization.Result)
	}
}

// FixtureProvider replays a Scenario. It is fully deterministic and safe
// for concurrent use; tests, demos, and --fixture runs rely on it.
type FixtureProvider struct {
	scenario *Scenario
	failures map[SampleType]bool
}

// NewFixtureProvider wraps a parsed scenario.
func NewFixtureProvider(s *Scenario) *FixtureProvider {
	failures := make(map[SampleType]bool, len(s.Failures))
	for _, t := range s.Failures {
		failures[t] = true
	}
	return &FixtureProvider{scenario: s, failures: failures}
}

// FixtureFromFile loads a scenario file and wraps it in a provider.
func FixtureFromFile(path string) (*FixtureProvider, error) {
	s, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return NewFixtureProvider(s), nil
}

func (p *FixtureProvider) RequestAuthorization(ctx context.Context, types []SampleType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch p.scenario.Authorization.Result {
	case ScenarioUnavailable:
		return ErrUnavailable
	case ScenarioDenied:
		return fmt.Errorf("authorization declined by scenario %s", p.scenario.Name)
	default:
		return nil
	}
}

func (p *FixtureProvider) AuthorizationStatus(ctx context.Context, t SampleType) (AuthorizationStatus, error) {
	if err := ctx.Err(); err != nil {
		return StatusNotDetermined, err
	}
	if status, ok := p.scenario.Authorization.Statuses[t]; ok {
		return status, nil
	}
	if p.scenario.Authorization.Result == ScenarioGranted || p.scenario.Authorization.Result == "" {
		return StatusAuthorized, nil
	}
	return StatusNotDetermined, nil
}

func (p *FixtureProvider) Query(ctx context.Context, t SampleType, r domain.DateRange) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.failures[t] {
		return nil, fmt.Errorf("scripted query failure for %s", t)
	}
	scripted := p.scenario.Samples[t]
	samples := make([]Sample, 0, len(scripted))
	for _, s := range scripted {
		samples = append(samples, s.toSample(t))
	}
	return samples, nil
}

func (s ScenarioSample) toSample(t SampleType) Sample {
	out := Sample{
		Type:      t,
		Value:     s.Value,
		Unit:      s.Unit,
		StartDate: s.Start,
		EndDate:   s.End,
	}
	switch t {
	case SampleWorkouts:
		out.Workout = &WorkoutSample{
			Activity:        s.Activity,
			DurationSeconds: s.DurationSeconds,
			Calories:        s.Calories,
			StartDate:       s.Start,
			EndDate:         s.End,
		}
	case SampleNutrition:
		out.Nutrition = &NutritionSample{
			Calories:      s.Calories,
			Carbohydrates: s.Carbohydrates,
			Protein:       s.Protein,
			Fat:           s.Fat,
		}
	}
	return out
}
