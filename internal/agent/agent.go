// Package agent drives the collect-and-sync pipeline: authorize against
// the health provider, aggregate a snapshot, push it to the backend, fetch
// insights, and publish everything to the status store and event feed.
package agent

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
	apperrors "github.com/glucopilot/glucopilot-agent/internal/errors"
	"github.com/glucopilot/glucopilot-agent/internal/healthsource"
	"github.com/glucopilot/glucopilot-agent/internal/interfaces"
	"github.com/glucopilot/glucopilot-agent/internal/logger"
	"github.com/glucopilot/glucopilot-agent/internal/repository"
	"github.com/glucopilot/glucopilot-agent/internal/status"
	"github.com/glucopilot/glucopilot-agent/internal/utils"
)

// ErrNoReadAccess is returned when the provider granted nothing; without at
// least partial read access there is no data to collect.
var ErrNoReadAccess = errors.New("health data read access denied")

// EventType labels entries on the agent's event feed.
type EventType string

const (
	EventPermission    EventType = "permission"
	EventSyncCompleted EventType = "sync_completed"
	EventSyncFailed    EventType = "sync_failed"
	EventReading       EventType = "glucose_reading"
	EventInsights      EventType = "insights"
)

// Event is one feed entry. Data is JSON-serializable.
type Event struct {
	ID   string      `json:"id"`
	Type EventType   `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data,omitempty"`
}

// Deps wires the agent. History is optional (nil disables the audit log);
// Dexcom credentials are optional (zero value skips the CGM fetch).
type Deps struct {
	Permissions interfaces.PermissionServiceInterface
	Health      interfaces.HealthServiceInterface
	Sync        interfaces.SyncServiceInterface
	Status      status.Store
	History     *repository.HistoryRepository
	Dexcom      domain.DexcomCredentials

	CollectRange     time.Duration
	InsightTimeframe time.Duration
}

// Agent runs the pipeline, once or on an interval.
type Agent struct {
	deps   Deps
	runID  string
	events chan Event
	errs   *apperrors.Handler
}

// New builds an agent with a fresh run ID and registers it on the status
// store.
func New(deps Deps) *Agent {
	if deps.CollectRange <= 0 {
		deps.CollectRange = 24 * time.Hour
	}
	a := &Agent{
		deps:   deps,
		runID:  uuid.NewString(),
		events: make(chan Event, 64),
		errs:   apperrors.NewHandler(logger.GetLogger()),
	}
	deps.Status.SetRunID(a.runID)
	return a
}

// RunID identifies this agent process across status and history records.
func (a *Agent) RunID() string {
	return a.runID
}

// Events exposes the feed the bridge broadcasts. Entries are dropped when
// the buffer is full; the feed is advisory, not durable.
func (a *Agent) Events() <-chan Event {
	return a.events
}

func (a *Agent) emit(t EventType, data interface{}) {
	ev := Event{
		ID:   uuid.NewString(),
		Type: t,
		At:   time.Now().UTC(),
		Data: data,
	}
	select {
	case a.events <- ev:
	default:
		logger.Debug("event feed full, dropping event", "type", t)
	}
}

// RunOnce executes one full cycle: authorize, collect, sync, fetch
// insights, then the optional CGM fetch and history writes. Every failure
// is recorded on the status store and returned typed; nothing is fatal to
// the process.
func (a *Agent) RunOnce(ctx context.Context) error {
	state, err := a.deps.Permissions.EnsureAuthorized(ctx, healthsource.RequiredSampleTypes())
	a.deps.Status.SetPermissionState(state)
	a.emit(EventPermission, map[string]string{"state": string(state)})
	if err != nil {
		a.fail(err)
		return err
	}
	if !a.deps.Permissions.HasReadAccess() {
		a.fail(ErrNoReadAccess)
		return ErrNoReadAccess
	}

	snapshot, err := a.deps.Health.Collect(ctx, utils.RangeEndingNow(a.deps.CollectRange))
	if err != nil {
		a.fail(err)
		return err
	}
	logger.Debug("snapshot collected",
		"steps", snapshot.Steps, "workouts", len(snapshot.Workouts), "sleep_hours", snapshot.SleepHours)

	result, err := a.deps.Sync.Sync(ctx, snapshot)
	if err != nil {
		a.fail(err)
		return err
	}
	syncedAt := time.Now().UTC()
	a.deps.Status.SetLastSync(*result, syncedAt)
	a.emit(EventSyncCompleted, result)
	logger.Info("snapshot synced",
		"records", result.RecordCount, "steps", result.StepCount, "workouts", result.WorkoutCount)

	syncID := a.recordSync(ctx, snapshot, *result)

	insights, err := a.deps.Sync.FetchInsights(ctx, a.deps.InsightTimeframe)
	if err != nil {
		a.fail(err)
		return err
	}
	a.deps.Status.SetInsights(insights)
	a.emit(EventInsights, map[string]int{"count": len(insights)})
	a.recordInsights(ctx, syncID, insights)

	a.fetchGlucose(ctx, syncID)

	a.deps.Status.ClearLastError()
	return nil
}

// fetchGlucose pulls the latest CGM reading when share credentials are
// configured. Failures are logged, never fatal: glucose is an enrichment
// on top of an already completed sync.
func (a *Agent) fetchGlucose(ctx context.Context, syncID string) {
	if a.deps.Dexcom.Username == "" {
		return
	}
	reading, err := a.deps.Sync.LatestGlucose(ctx, a.deps.Dexcom)
	if err != nil {
		logger.Warn("latest glucose fetch failed", "error", err)
		return
	}
	a.deps.Status.SetLatestReading(*reading)
	a.emit(EventReading, reading)

	if a.deps.History != nil && syncID != "" {
		if err := a.deps.History.SaveReading(ctx, syncID, *reading); err != nil {
			logger.Warn("failed to record glucose reading", "error", err)
		}
	}
}

func (a *Agent) recordSync(ctx context.Context, snapshot *domain.HealthSnapshot, result domain.SyncResult) string {
	if a.deps.History == nil {
		return ""
	}
	syncID, err := a.deps.History.SaveSync(ctx, a.runID, snapshot, result)
	if err != nil {
		logger.Warn("failed to record sync", "error", err)
		return ""
	}
	return syncID
}

func (a *Agent) recordInsights(ctx context.Context, syncID string, insights []domain.Insight) {
	if a.deps.History == nil || syncID == "" {
		return
	}
	if err := a.deps.History.SaveInsights(ctx, syncID, insights); err != nil {
		logger.Warn("failed to record insights", "error", err)
	}
}

func (a *Agent) fail(err error) {
	a.deps.Status.SetLastError(err.Error())
	a.emit(EventSyncFailed, map[string]string{"error": err.Error()})
}

// Watch runs the pipeline on an interval until ctx is cancelled. A failed
// cycle backs off exponentially; a successful one resets the backoff and
// returns to the regular interval. Retry lives here, in the caller, so the
// services themselves stay single-attempt.
func (a *Agent) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 30 * time.Second
	exp.MaxInterval = interval
	exp.MaxElapsedTime = 0 // keep retrying until cancelled
	exp.Reset()

	logger.Info("watch started", "interval", interval, "run_id", a.runID)
	for {
		wait := interval
		if err := a.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.errs.Handle(ctx, err)
			wait = exp.NextBackOff()
			logger.Warn("cycle failed, backing off", "retry_in", wait)
		} else {
			exp.Reset()
		}

		select {
		case <-ctx.Done():
			logger.Info("watch stopping", "run_id", a.runID)
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
