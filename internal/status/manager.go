// Package status holds the agent's latest observable state: permission
// state, newest glucose reading, last sync outcome, and current insights.
// A UI collaborator polls it through the bridge server; the agent is the
// only writer.
package status

import (
	"sync"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

// Snapshot is one consistent view of everything the agent knows right now.
type Snapshot struct {
	RunID           string                 `json:"run_id"`
	PermissionState domain.PermissionState `json:"permission_state"`
	LatestReading   *domain.GlucoseReading `json:"latest_reading,omitempty"`
	LastSync        *domain.SyncResult     `json:"last_sync,omitempty"`
	LastSyncAt      *time.Time             `json:"last_sync_at,omitempty"`
	Insights        []domain.Insight       `json:"insights"`
	LastError       string                 `json:"last_error,omitempty"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Store is the write/read surface shared by the in-memory and Redis
// managers.
type Store interface {
	SetRunID(id string)
	SetPermissionState(state domain.PermissionState)
	SetLatestReading(r domain.GlucoseReading)
	SetLastSync(res domain.SyncResult, at time.Time)
	SetInsights(list []domain.Insight)
	SetLastError(msg string)
	ClearLastError()
	Snapshot() Snapshot
}

// Manager is the in-memory store. Safe for concurrent use.
type Manager struct {
	mu              sync.RWMutex
	runID           string
	permissionState domain.PermissionState
	latestReading   *domain.GlucoseReading
	lastSync        *domain.SyncResult
	lastSyncAt      *time.Time
	insights        []domain.Insight
	lastError       string
	updatedAt       time.Time
}

// NewManager creates an empty in-memory status store.
func NewManager() *Manager {
	return &Manager{
		permissionState: domain.PermissionNotDetermined,
	}
}

func (m *Manager) SetRunID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runID = id
	m.updatedAt = time.Now().UTC()
}

func (m *Manager) SetPermissionState(state domain.PermissionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissionState = state
	m.updatedAt = time.Now().UTC()
}

func (m *Manager) SetLatestReading(r domain.GlucoseReading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestReading = &r
	m.updatedAt = time.Now().UTC()
}

func (m *Manager) SetLastSync(res domain.SyncResult, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSync = &res
	m.lastSyncAt = &at
	m.updatedAt = time.Now().UTC()
}

func (m *Manager) SetInsights(list []domain.Insight) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights = append([]domain.Insight(nil), list...)
	m.updatedAt = time.Now().UTC()
}

func (m *Manager) SetLastError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = msg
	m.updatedAt = time.Now().UTC()
}

func (m *Manager) ClearLastError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = ""
	m.updatedAt = time.Now().UTC()
}

// Snapshot copies the current state. The returned value shares nothing with
// the manager's internals.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		RunID:           m.runID,
		PermissionState: m.permissionState,
		Insights:        append([]domain.Insight(nil), m.insights...),
		LastError:       m.lastError,
		UpdatedAt:       m.updatedAt,
	}
	if m.latestReading != nil {
		reading := *m.latestReading
		snap.LatestReading = &reading
	}
	if m.lastSync != nil {
		sync := *m.lastSync
		snap.LastSync = &sync
	}
	if m.lastSyncAt != nil {
		at := *m.lastSyncAt
		snap.LastSyncAt = &at
	}
	return snap
}
