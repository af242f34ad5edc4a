// Package repository persists the agent's audit trail of completed syncs.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glucopilot/glucopilot-agent/internal/database"
	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

// HistoryRepository records completed syncs, the readings captured with
// them, and the insights the backend produced.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SaveSync persists the outcome of one completed sync and returns the sync
// ID the related records hang off.
func (r *HistoryRepository) SaveSync(ctx context.Context, runID string, snapshot *domain.HealthSnapshot, result domain.SyncResult) (string, error) {
	record := &database.SyncRecord{
		SyncID:       uuid.NewString(),
		RunID:        runID,
		RecordCount:  result.RecordCount,
		StepCount:    result.StepCount,
		WorkoutCount: result.WorkoutCount,
		SleepHours:   result.SleepHours,
		StartDate:    snapshot.StartDate,
		EndDate:      snapshot.EndDate,
		SyncedAt:     time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to create sync record: %w", err)
	}
	return record.SyncID, nil
}

// SaveReading stores one glucose reading under a sync.
func (r *HistoryRepository) SaveReading(ctx context.Context, syncID string, reading domain.GlucoseReading) error {
	record := &database.GlucoseRecord{
		SyncID:    syncID,
		Value:     reading.Value,
		Trend:     string(reading.Trend),
		Timestamp: reading.Timestamp,
		Unit:      reading.Unit,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create glucose record: %w", err)
	}
	return nil
}

// SaveInsights stores the normalized insights shown for a sync.
func (r *HistoryRepository) SaveInsights(ctx context.Context, syncID string, insights []domain.Insight) error {
	if len(insights) == 0 {
		return nil
	}

	records := make([]database.InsightRecord, 0, len(insights))
	for _, in := range insights {
		records = append(records, database.InsightRecord{
			SyncID:      syncID,
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
			Priority:    string(in.Priority),
			ActionItems: strings.Join(in.ActionItems, "\n"),
			Timestamp:   in.Timestamp,
		})
	}

	if err := r.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("failed to create insight records: %w", err)
	}
	return nil
}

// RecentSyncs returns the newest completed syncs, most recent first.
func (r *HistoryRepository) RecentSyncs(ctx context.Context, limit int) ([]database.SyncRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	var records []database.SyncRecord
	if err := r.db.WithContext(ctx).
		Order("synced_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent syncs: %w", err)
	}
	return records, nil
}
