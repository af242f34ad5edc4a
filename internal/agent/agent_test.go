package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
	apperrors "github.com/glucopilot/glucopilot-agent/internal/errors"
	"github.com/glucopilot/glucopilot-agent/internal/healthsource"
	"github.com/glucopilot/glucopilot-agent/internal/services"
	"github.com/glucopilot/glucopilot-agent/internal/status"
)

func grantedProvider() *healthsource.FixtureProvider {
	day := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	return healthsource.NewFixtureProvider(&healthsource.Scenario{
		Name: "agent-run",
		Samples: map[healthsource.SampleType][]healthsource.ScenarioSample{
			healthsource.SampleSteps: {
				{Value: 8000, Unit: "count", Start: day, End: day.Add(15 * time.Hour)},
			},
			healthsource.SampleSleep: {
				{Value: 7.5, Unit: "hours", Start: day.Add(-8 * time.Hour), End: day},
			},
		},
	})
}

type backendCalls struct {
	sync     int32
	insights int32
	glucose  int32
}

func (c *backendCalls) counts() (syncs, insights, glucose int32) {
	return atomic.LoadInt32(&c.sync), atomic.LoadInt32(&c.insights), atomic.LoadInt32(&c.glucose)
}

func testBackend(t *testing.T, calls *backendCalls) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health/sync":
			atomic.AddInt32(&calls.sync, 1)
			w.WriteHeader(http.StatusOK)
		case "/api/insights/generate":
			atomic.AddInt32(&calls.insights, 1)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"insights": []map[string]interface{}{
					{
						"title":       "Post-meal walks",
						"description": "A short walk after lunch flattens your afternoon spike.",
						"category":    "Activity",
						"priority":    "medium",
					},
				},
			})
		case "/api/v1/glucose/stateless/sync":
			atomic.AddInt32(&calls.glucose, 1)
			_, _ = w.Write([]byte(`{"readings":[{"value":104,"trend":"flat","timestamp":"2025-03-01T20:55:00Z"}]}`))
		default:
			t.Errorf("unexpected backend path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAgent(provider healthsource.Provider, baseURL string, store status.Store, dexcom domain.DexcomCredentials) *Agent {
	return New(Deps{
		Permissions:      services.NewPermissionService(provider),
		Health:           services.NewHealthService(provider),
		Sync:             services.NewSyncService(baseURL, nil, time.Second),
		Status:           store,
		Dexcom:           dexcom,
		CollectRange:     24 * time.Hour,
		InsightTimeframe: 24 * time.Hour,
	})
}

func drainEvents(a *Agent) map[EventType]int {
	counts := make(map[EventType]int)
	for {
		select {
		case ev := <-a.Events():
			counts[ev.Type]++
		default:
			return counts
		}
	}
}

func TestRunOnceHappyPath(t *testing.T) {
	t.Parallel()

	var calls backendCalls
	srv := testBackend(t, &calls)
	defer srv.Close()

	store := status.NewManager()
	a := newTestAgent(grantedProvider(), srv.URL, store, domain.DexcomCredentials{Username: "share-user", Password: "pw"})

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	snap := store.Snapshot()
	if snap.RunID != a.RunID() {
		t.Errorf("RunID = %q, want %q", snap.RunID, a.RunID())
	}
	if snap.PermissionState != domain.PermissionAuthorized {
		t.Errorf("PermissionState = %s", snap.PermissionState)
	}
	if snap.LastSync == nil {
		t.Fatal("LastSync not recorded")
	}
	want := domain.SyncResult{RecordCount: 2, StepCount: 8000, WorkoutCount: 0, SleepHours: 7.5}
	if *snap.LastSync != want {
		t.Errorf("LastSync = %+v, want %+v", *snap.LastSync, want)
	}
	if len(snap.Insights) != 1 || snap.Insights[0].Title != "Post-meal walks" {
		t.Errorf("Insights = %+v", snap.Insights)
	}
	if snap.LatestReading == nil || snap.LatestReading.Value != 104 {
		t.Errorf("LatestReading = %+v", snap.LatestReading)
	}
	if snap.LastError != "" {
		t.Errorf("LastError = %q, want empty", snap.LastError)
	}

	if syncs, insights, glucose := calls.counts(); syncs != 1 || insights != 1 || glucose != 1 {
		t.Errorf("backend calls = %d/%d/%d, want one of each", syncs, insights, glucose)
	}

	events := drainEvents(a)
	for _, et := range []EventType{EventPermission, EventSyncCompleted, EventInsights, EventReading} {
		if events[et] != 1 {
			t.Errorf("event %s emitted %d times, want 1", et, events[et])
		}
	}
	if events[EventSyncFailed] != 0 {
		t.Errorf("unexpected sync_failed events: %d", events[EventSyncFailed])
	}
}

func TestRunOnceSkipsGlucoseWithoutCredentials(t *testing.T) {
	t.Parallel()

	var calls backendCalls
	srv := testBackend(t, &calls)
	defer srv.Close()

	store := status.NewManager()
	a := newTestAgent(grantedProvider(), srv.URL, store, domain.DexcomCredentials{})

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, _, glucose := calls.counts(); glucose != 0 {
		t.Errorf("glucose endpoint called %d times, want 0", glucose)
	}
	if store.Snapshot().LatestReading != nil {
		t.Error("LatestReading should stay unset without credentials")
	}
}

func TestRunOnceDeniedBlocksCollection(t *testing.T) {
	t.Parallel()

	var calls backendCalls
	srv := testBackend(t, &calls)
	defer srv.Close()

	denied := healthsource.NewFixtureProvider(&healthsource.Scenario{
		Name: "deny-all",
		Authorization: healthsource.ScenarioAuthorization{
			Result: healthsource.ScenarioGranted,
			Statuses: map[healthsource.SampleType]healthsource.AuthorizationStatus{
				healthsource.SampleSteps:          healthsource.StatusDenied,
				healthsource.SampleActiveCalories: healthsource.StatusDenied,
				healthsource.SampleHeartRate:      healthsource.StatusDenied,
				healthsource.SampleWorkouts:       healthsource.StatusDenied,
				healthsource.SampleSleep:          healthsource.StatusDenied,
				healthsource.SampleNutrition:      healthsource.StatusDenied,
			},
		},
	})

	store := status.NewManager()
	a := newTestAgent(denied, srv.URL, store, domain.DexcomCredentials{})

	err := a.RunOnce(context.Background())
	if !errors.Is(err, ErrNoReadAccess) {
		t.Fatalf("err = %v, want ErrNoReadAccess", err)
	}

	snap := store.Snapshot()
	if snap.PermissionState != domain.PermissionDenied {
		t.Errorf("PermissionState = %s, want denied", snap.PermissionState)
	}
	if snap.LastError == "" {
		t.Error("LastError should record the denial")
	}
	if syncs, _, _ := calls.counts(); syncs != 0 {
		t.Errorf("sync endpoint called %d times despite denial", syncs)
	}
}

func TestRunOnceUnavailableProvider(t *testing.T) {
	t.Parallel()

	var calls backendCalls
	srv := testBackend(t, &calls)
	defer srv.Close()

	unavailable := healthsource.NewFixtureProvider(&healthsource.Scenario{
		Authorization: healthsource.ScenarioAuthorization{Result: healthsource.ScenarioUnavailable},
	})

	a := newTestAgent(unavailable, srv.URL, status.NewManager(), domain.DexcomCredentials{})
	if err := a.RunOnce(context.Background()); !errors.Is(err, apperrors.ErrHealthDataUnavailable) {
		t.Fatalf("err = %v, want ErrHealthDataUnavailable", err)
	}
	if syncs, _, _ := calls.counts(); syncs != 0 {
		t.Error("no backend call should happen when the provider is unavailable")
	}
}

func TestRunOnceSyncFailureRecorded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health/sync" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "backend maintenance"})
	}))
	defer srv.Close()

	store := status.NewManager()
	a := newTestAgent(grantedProvider(), srv.URL, store, domain.DexcomCredentials{})

	err := a.RunOnce(context.Background())
	var srvErr *apperrors.ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("err = %v, want *ServerError", err)
	}

	snap := store.Snapshot()
	if snap.LastSync != nil {
		t.Error("LastSync must stay unset after a failed push")
	}
	if snap.LastError == "" {
		t.Error("LastError should carry the failure")
	}
	if events := drainEvents(a); events[EventSyncFailed] != 1 {
		t.Errorf("sync_failed events = %d, want 1", events[EventSyncFailed])
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	var calls backendCalls
	srv := testBackend(t, &calls)
	defer srv.Close()

	a := newTestAgent(grantedProvider(), srv.URL, status.NewManager(), domain.DexcomCredentials{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, 10*time.Millisecond) }()

	// Let at least one cycle complete, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancellation")
	}

	if syncs, _, _ := calls.counts(); syncs == 0 {
		t.Error("Watch should have completed at least one cycle")
	}
}
