package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

// statusTTL expires stale status automatically so a crashed agent does not
// leave last week's numbers behind.
const statusTTL = 24 * time.Hour

const (
	keyRunID      = "glucopilot:status:run_id"
	keyPermission = "glucopilot:status:permission_state"
	keyReading    = "glucopilot:status:latest_reading"
	keySync       = "glucopilot:status:last_sync"
	keySyncAt     = "glucopilot:status:last_sync_at"
	keyInsights   = "glucopilot:status:insights"
	keyLastError  = "glucopilot:status:last_error"
	keyUpdatedAt  = "glucopilot:status:updated_at"
)

// RedisManager keeps the status in Redis so it survives agent restarts and
// can be shared across processes. Reads fall back to zero values on any
// Redis error; status is a cache, not a source of truth.
type RedisManager struct {
	client *redis.Client
}

// NewRedisManager connects to Redis and verifies the connection.
func NewRedisManager(redisHost, redisPort string) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password:     "", // no password
		DB:           0,  // default DB
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisManager{
		client: client,
	}, nil
}

func (m *RedisManager) SetRunID(id string) {
	m.setString(keyRunID, id)
}

func (m *RedisManager) SetPermissionState(state domain.PermissionState) {
	m.setString(keyPermission, string(state))
}

func (m *RedisManager) SetLatestReading(r domain.GlucoseReading) {
	m.setJSON(keyReading, r)
}

func (m *RedisManager) SetLastSync(res domain.SyncResult, at time.Time) {
	m.setJSON(keySync, res)
	m.setString(keySyncAt, at.UTC().Format(time.RFC3339))
}

func (m *RedisManager) SetInsights(list []domain.Insight) {
	m.setJSON(keyInsights, list)
}

func (m *RedisManager) SetLastError(msg string) {
	m.setString(keyLastError, msg)
}

func (m *RedisManager) ClearLastError() {
	ctx := context.Background()
	m.client.Del(ctx, keyLastError)
	m.touch()
}

// Snapshot assembles the stored fields. Missing or unreadable keys resolve
// to their zero values.
func (m *RedisManager) Snapshot() Snapshot {
	snap := Snapshot{
		RunID:           m.getString(keyRunID),
		PermissionState: domain.PermissionNotDetermined,
		Insights:        []domain.Insight{},
		LastError:       m.getString(keyLastError),
	}

	if state := m.getString(keyPermission); state != "" {
		snap.PermissionState = domain.PermissionState(state)
	}

	var reading domain.GlucoseReading
	if m.getJSON(keyReading, &reading) {
		snap.LatestReading = &reading
	}

	var sync domain.SyncResult
	if m.getJSON(keySync, &sync) {
		snap.LastSync = &sync
	}
	if raw := m.getString(keySyncAt); raw != "" {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			snap.LastSyncAt = &at
		}
	}

	var insights []domain.Insight
	if m.getJSON(keyInsights, &insights) && insights != nil {
		snap.Insights = insights
	}

	if raw := m.getString(keyUpdatedAt); raw != "" {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			snap.UpdatedAt = at
		}
	}
	return snap
}

// Close closes the Redis connection.
func (m *RedisManager) Close() error {
	return m.client.Close()
}

func (m *RedisManager) setString(key, value string) {
	ctx := context.Background()
	m.client.Set(ctx, key, value, statusTTL)
	m.touch()
}

func (m *RedisManager) getString(key string) string {
	ctx := context.Background()
	result := m.client.Get(ctx, key)
	if result.Err() != nil {
		return ""
	}
	return result.Val()
}

func (m *RedisManager) setJSON(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	ctx := context.Background()
	m.client.Set(ctx, key, data, statusTTL)
	m.touch()
}

func (m *RedisManager) getJSON(key string, out interface{}) bool {
	ctx := context.Background()
	result := m.client.Get(ctx, key)
	if result.Err() != nil {
		return false
	}
	return json.Unmarshal([]byte(result.Val()), out) == nil
}

func (m *RedisManager) touch() {
	ctx := context.Background()
	m.client.Set(ctx, keyUpdatedAt, time.Now().UTC().Format(time.RFC3339), statusTTL)
}
