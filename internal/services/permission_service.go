package services

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
	apperrors "github.com/glucopilot/glucopilot-agent/internal/errors"
	"github.com/glucopilot/glucopilot-agent/internal/healthsource"
)

// PermissionService tracks the authorization lifecycle against the health
// provider. It owns the permission state; nothing else mutates it.
type PermissionService struct {
	provider healthsource.Provider

	mu    sync.RWMutex
	state domain.PermissionState

	group singleflight.Group
}

func NewPermissionService(provider healthsource.Provider) *PermissionService {
	return &PermissionService{
		provider: provider,
		state:    domain.PermissionNotDetermined,
	}
}

// State returns the current permission state.
func (s *PermissionService) State() domain.PermissionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// HasReadAccess reports whether at least some sample types are readable.
func (s *PermissionService) HasReadAccess() bool {
	state := s.State()
	return state == domain.PermissionAuthorized || state == domain.PermissionPartial
}

// EnsureAuthorized requests access for all given types in one batched
// provider call, then re-queries per-type status to classify the grant:
// every type authorized means authorized, none means denied, anything in
// between means partial. Safe to call repeatedly; concurrent calls coalesce
// into a single in-flight provider request and share its result. Errors
// leave the stored state untouched.
func (s *PermissionService) EnsureAuthorized(ctx context.Context, types []healthsource.SampleType) (domain.PermissionState, error) {
	if len(types) == 0 {
		types = healthsource.RequiredSampleTypes()
	}

	v, err, _ := s.group.Do("authorize", func() (interface{}, error) {
		return s.authorize(ctx, types)
	})
	if err != nil {
		return s.State(), err
	}
	return v.(domain.PermissionState), nil
}

func (s *PermissionService) authorize(ctx context.Context, types []healthsource.SampleType) (domain.PermissionState, error) {
	if err := s.provider.RequestAuthorization(ctx, types); err != nil {
		if errors.Is(err, healthsource.ErrUnavailable) {
			return "", apperrors.ErrHealthDataUnavailable
		}
		return "", &apperrors.AuthorizationError{Err: err}
	}

	granted := 0
	for _, t := range types {
		status, err := s.provider.AuthorizationStatus(ctx, t)
		if err != nil {
			if errors.Is(err, healthsource.ErrUnavailable) {
				return "", apperrors.ErrHealthDataUnavailable
			}
			return "", &apperrors.AuthorizationError{Err: err}
		}
		if status == healthsource.StatusAuthorized {
			granted++
		}
	}

	var state domain.PermissionState
	switch granted {
	case len(types):
		state = domain.PermissionAuthorized
	case 0:
		state = domain.PermissionDenied
	default:
		state = domain.PermissionPartial
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	return state, nil
}
