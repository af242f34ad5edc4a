package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
	apperrors "github.com/glucopilot/glucopilot-agent/internal/errors"
	"github.com/glucopilot/glucopilot-agent/internal/healthsource"
)

// fakeProvider lets each test script the provider boundary. Unset hooks
// default to full success with no samples.
type fakeProvider struct {
	authorizeFn func(ctx context.Context, types []healthsource.SampleType) error
	statusFn    func(ctx context.Context, t healthsource.SampleType) (healthsource.AuthorizationStatus, error)
	queryFn     func(ctx context.Context, t healthsource.SampleType, r domain.DateRange) ([]healthsource.Sample, error)
}

func (f *fakeProvider) RequestAuthorization(ctx context.Context, types []healthsource.SampleType) error {
	if f.authorizeFn != nil {
		return f.authorizeFn(ctx, types)
	}
	return nil
}

func (f *fakeProvider) AuthorizationStatus(ctx context.Context, t healthsource.SampleType) (healthsource.AuthorizationStatus, error) {
	if f.statusFn != nil {
		return f.statusFn(ctx, t)
	}
	return healthsource.StatusAuthorized, nil
}

func (f *fakeProvider) Query(ctx context.Context, t healthsource.SampleType, r domain.DateRange) ([]healthsource.Sample, error) {
	if f.queryFn != nil {
		return f.queryFn(ctx, t, r)
	}
	return nil, nil
}

func TestEnsureAuthorizedClassifiesGrant(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		statuses map[healthsource.SampleType]healthsource.AuthorizationStatus
		want     domain.PermissionState
		readable bool
	}{
		{
			name:     "all granted",
			statuses: nil, // fakeProvider defaults every type to authorized
			want:     domain.PermissionAuthorized,
			readable: true,
		},
		{
			name: "none granted",
			statuses: map[healthsource.SampleType]healthsource.AuthorizationStatus{
				healthsource.SampleSteps:          healthsource.StatusDenied,
				healthsource.SampleActiveCalories: healthsource.StatusDenied,
				healthsource.SampleHeartRate:      healthsource.StatusDenied,
				healthsource.SampleWorkouts:       healthsource.StatusDenied,
				healthsource.SampleSleep:          healthsource.StatusDenied,
				healthsource.SampleNutrition:      healthsource.StatusDenied,
			},
			want:     domain.PermissionDenied,
			readable: false,
		},
		{
			name: "some granted",
			statuses: map[healthsource.SampleType]healthsource.AuthorizationStatus{
				healthsource.SampleSleep:     healthsource.StatusDenied,
				healthsource.SampleNutrition: healthsource.StatusNotDetermined,
			},
			want:     domain.PermissionPartial,
			readable: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			provider := &fakeProvider{
				statusFn: func(_ context.Context, st healthsource.SampleType) (healthsource.AuthorizationStatus, error) {
					if s, ok := tc.statuses[st]; ok {
						return s, nil
					}
					return healthsource.StatusAuthorized, nil
				},
			}
			svc := NewPermissionService(provider)

			state, err := svc.EnsureAuthorized(context.Background(), healthsource.RequiredSampleTypes())
			if err != nil {
				t.Fatalf("EnsureAuthorized: %v", err)
			}
			if state != tc.want {
				t.Errorf("state = %s, want %s", state, tc.want)
			}
			if svc.State() != tc.want {
				t.Errorf("State() = %s, want %s", svc.State(), tc.want)
			}
			if svc.HasReadAccess() != tc.readable {
				t.Errorf("HasReadAccess() = %v, want %v", svc.HasReadAccess(), tc.readable)
			}
		})
	}
}

func TestEnsureAuthorizedUnavailable(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		authorizeFn: func(context.Context, []healthsource.SampleType) error {
			return healthsource.ErrUnavailable
		},
	}
	svc := NewPermissionService(provider)

	state, err := svc.EnsureAuthorized(context.Background(), healthsource.RequiredSampleTypes())
	if !errors.Is(err, apperrors.ErrHealthDataUnavailable) {
		t.Errorf("err = %v, want ErrHealthDataUnavailable", err)
	}
	if state != domain.PermissionNotDetermined {
		t.Errorf("state = %s, want untouched not_determined", state)
	}
}

func TestEnsureAuthorizedProviderDenied(t *testing.T) {
	t.Parallel()

	cause := errors.New("user dismissed the grant sheet")
	provider := &fakeProvider{
		authorizeFn: func(context.Context, []healthsource.SampleType) error {
			return cause
		},
	}
	svc := NewPermissionService(provider)

	_, err := svc.EnsureAuthorized(context.Background(), healthsource.RequiredSampleTypes())
	var authErr *apperrors.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthorizationError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("AuthorizationError should wrap the provider cause")
	}
	if svc.State() != domain.PermissionNotDetermined {
		t.Errorf("failed authorization must not move the state")
	}
}

func TestEnsureAuthorizedCoalescesConcurrentCalls(t *testing.T) {
	t.Parallel()

	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})
	provider := &fakeProvider{
		authorizeFn: func(context.Context, []healthsource.SampleType) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(entered)
			}
			<-release
			return nil
		},
	}
	svc := NewPermissionService(provider)

	var wg sync.WaitGroup
	results := make([]domain.PermissionState, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.EnsureAuthorized(context.Background(), healthsource.RequiredSampleTypes())
		}()
	}

	<-entered
	// Give the second caller time to join the in-flight request before the
	// provider returns.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("provider saw %d authorization requests, want 1", got)
	}
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: %v", i, errs[i])
		}
		if results[i] != domain.PermissionAuthorized {
			t.Errorf("caller %d state = %s, want authorized", i, results[i])
		}
	}
}

func TestEnsureAuthorizedReEvaluates(t *testing.T) {
	t.Parallel()

	var denied atomic.Bool
	provider := &fakeProvider{
		statusFn: func(context.Context, healthsource.SampleType) (healthsource.AuthorizationStatus, error) {
			if denied.Load() {
				return healthsource.StatusDenied, nil
			}
			return healthsource.StatusAuthorized, nil
		},
	}
	svc := NewPermissionService(provider)
	ctx := context.Background()

	state, err := svc.EnsureAuthorized(ctx, healthsource.RequiredSampleTypes())
	if err != nil || state != domain.PermissionAuthorized {
		t.Fatalf("first call = (%s, %v), want authorized", state, err)
	}

	// The user revokes everything in OS settings; a later call observes it.
	denied.Store(true)
	state, err = svc.EnsureAuthorized(ctx, healthsource.RequiredSampleTypes())
	if err != nil || state != domain.PermissionDenied {
		t.Fatalf("second call = (%s, %v), want denied", state, err)
	}
	if svc.HasReadAccess() {
		t.Error("HasReadAccess should be false after revocation")
	}
}
