package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/models"
	"gorm.io/gorm/clause"
)

// ProgressionRepository handles database operations for per-(channel,
// bucket) sequential playback cursors
type ProgressionRepository struct {
	db *DB
}

// NewProgressionRepository creates a new progression repository
func NewProgressionRepository(db *DB) *ProgressionRepository {
	return &ProgressionRepository{db: db}
}

// Get retrieves the progression record for a channel and bucket.
// Returns ErrNotFound when no record exists yet; records are created
// lazily on first advance.
func (r *ProgressionRepository) Get(ctx context.Context, channelID, bucketID uuid.UUID) (*models.BucketProgression, error) {
	var prog models.BucketProgression
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND bucket_id = ?", channelID.String(), bucketID.String()).
		First(&prog)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &prog, nil
}

// Upsert writes a progression record as a single-row insert-or-update.
// Concurrent writers race benignly; last writer wins.
func (r *ProgressionRepository) Upsert(ctx context.Context, prog *models.BucketProgression) error {
	prog.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel_id"}, {Name: "bucket_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"current_position", "last_played_media_id", "updated_at",
			}),
		}).
		Create(prog)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert progression: %w", MapGormError(result.Error))
	}
	return nil
}

// Delete removes the progression record for a channel and bucket
func (r *ProgressionRepository) Delete(ctx context.Context, channelID, bucketID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND bucket_id = ?", channelID.String(), bucketID.String()).
		Delete(&models.BucketProgression{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete progression: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByChannel removes every progression record for a channel. Used by
// the administrative timeline reset so sequential buckets restart at
// position zero alongside the cleared anchor.
func (r *ProgressionRepository) DeleteByChannel(ctx context.Context, channelID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID.String()).
		Delete(&models.BucketProgression{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete channel progressions: %w", MapGormError(result.Error))
	}
	return nil
}
