package interfaces

import (
	"context"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
	"github.com/glucopilot/glucopilot-agent/internal/healthsource"
)

// PermissionServiceInterface defines the contract for the authorization
// lifecycle.
type PermissionServiceInterface interface {
	EnsureAuthorized(ctx context.Context, types []healthsource.SampleType) (domain.PermissionState, error)
	State() domain.PermissionState
	HasReadAccess() bool
}

// HealthServiceInterface defines the contract for snapshot aggregation.
type HealthServiceInterface interface {
	Collect(ctx context.Context, r domain.DateRange) (*domain.HealthSnapshot, error)
}

// SyncServiceInterface defines the contract for backend operations.
type SyncServiceInterface interface {
	Sync(ctx context.Context, snapshot *domain.HealthSnapshot) (*domain.SyncResult, error)
	FetchInsights(ctx context.Context, timeframe time.Duration) ([]domain.Insight, error)
	SignIn(ctx context.Context, creds domain.DexcomCredentials) error
	LatestGlucose(ctx context.Context, creds domain.DexcomCredentials) (*domain.GlucoseReading, error)
}
