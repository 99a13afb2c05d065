package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/models"
)

// ScheduleBlockRepository handles database operations for schedule blocks
type ScheduleBlockRepository struct {
	db *DB
}

// NewScheduleBlockRepository creates a new schedule block repository
func NewScheduleBlockRepository(db *DB) *ScheduleBlockRepository {
	return &ScheduleBlockRepository{db: db}
}

// Create inserts a new schedule block into the database
func (r *ScheduleBlockRepository) Create(ctx context.Context, block *models.ScheduleBlock) error {
	result := r.db.WithContext(ctx).Create(block)
	if result.Error != nil {
		return fmt.Errorf("failed to create schedule block: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a schedule block by its UUID
func (r *ScheduleBlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ScheduleBlock, error) {
	var block models.ScheduleBlock
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&block)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &block, nil
}

// ListByChannel retrieves all schedule blocks for a channel in resolution
// order: priority descending, then creation time, then id as the final
// deterministic tie-break.
func (r *ScheduleBlockRepository) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]*models.ScheduleBlock, error) {
	var blocks []*models.ScheduleBlock
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID.String()).
		Order("priority DESC, created_at ASC, id ASC").
		Find(&blocks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list schedule blocks: %w", MapGormError(result.Error))
	}
	return blocks, nil
}

// ListEnabledByChannel retrieves enabled schedule blocks for a channel in
// resolution order. Day-of-week filtering happens in the resolver, not
// here; SQLite cannot index into the JSON day array and the per-channel
// block count is small.
func (r *ScheduleBlockRepository) ListEnabledByChannel(ctx context.Context, channelID uuid.UUID) ([]*models.ScheduleBlock, error) {
	var blocks []*models.ScheduleBlock
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND enabled = ?", channelID.String(), true).
		Order("priority DESC, created_at ASC, id ASC").
		Find(&blocks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list enabled schedule blocks: %w", MapGormError(result.Error))
	}
	return blocks, nil
}

// Update updates an existing schedule block
func (r *ScheduleBlockRepository) Update(ctx context.Context, block *models.ScheduleBlock) error {
	block.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Where("id = ?", block.ID.String()).
		Select("name", "days_of_week", "start_time", "end_time", "bucket_id", "playback_mode", "priority", "enabled", "updated_at").
		Updates(block)
	if result.Error != nil {
		return fmt.Errorf("failed to update schedule block: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled flips a block's enabled flag without touching its window
func (r *ScheduleBlockRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.ScheduleBlock{}).
		Where("id = ?", id.String()).
		Updates(map[string]interface{}{
			"enabled":    enabled,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set schedule block enabled: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a schedule block by its UUID
func (r *ScheduleBlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.ScheduleBlock{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete schedule block: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
