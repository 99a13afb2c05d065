// Package db provides database connection management and repository interfaces.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/models"
)

// ChannelRepository handles database operations for channels
type ChannelRepository struct {
	db *DB
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create inserts a new channel into the database
func (r *ChannelRepository) Create(ctx context.Context, channel *models.Channel) error {
	result := r.db.WithContext(ctx).Create(channel)
	if result.Error != nil {
		return fmt.Errorf("failed to create channel: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a channel by its UUID
func (r *ChannelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	var channel models.Channel
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&channel)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &channel, nil
}

// List retrieves all channels ordered by number then name
func (r *ChannelRepository) List(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	result := r.db.WithContext(ctx).
		Order("COALESCE(number, 9999999) ASC, name ASC").
		Find(&channels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list channels: %w", MapGormError(result.Error))
	}
	return channels, nil
}

// Update updates an existing channel's descriptive fields. The timeline
// anchor is deliberately excluded; it changes only through the anchor
// methods below.
func (r *ChannelRepository) Update(ctx context.Context, channel *models.Channel) error {
	channel.UpdatedAt = time.Now().UTC()

	// Use Select to explicitly update all fields including zero values
	result := r.db.WithContext(ctx).
		Where("id = ?", channel.ID.String()).
		Select("name", "number", "icon", "enabled", "updated_at").
		Updates(channel)
	if result.Error != nil {
		return fmt.Errorf("failed to update channel: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a channel by its UUID (cascade delete to schedule blocks,
// channel buckets, and progression rows)
func (r *ChannelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.Channel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete channel: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InitializeAnchor sets the channel's schedule start time to anchor only
// if it is currently null. The condition lives in the UPDATE itself so two
// concurrent first-start events cannot both win; exactly one caller sees
// initialized=true. Returns ErrNotFound if the channel does not exist.
func (r *ChannelRepository) InitializeAnchor(ctx context.Context, id uuid.UUID, anchor time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ? AND schedule_start_time IS NULL", id.String()).
		Updates(map[string]interface{}{
			"schedule_start_time": anchor.UTC(),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to initialize channel anchor: %w", MapGormError(result.Error))
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// No row updated: either the anchor was already set or the channel is
	// missing. Distinguish the two for the caller.
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// SetAnchor overwrites the channel's schedule start time unconditionally.
// Used for administrative timeline adjustment.
func (r *ChannelRepository) SetAnchor(ctx context.Context, id uuid.UUID, anchor time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id.String()).
		Updates(map[string]interface{}{
			"schedule_start_time": anchor.UTC(),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set channel anchor: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearAnchor nulls the channel's schedule start time so the next start
// event re-initializes the timeline.
func (r *ChannelRepository) ClearAnchor(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id.String()).
		Updates(map[string]interface{}{
			"schedule_start_time": nil,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to clear channel anchor: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
