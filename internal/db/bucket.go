package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/models"
	"gorm.io/gorm"
)

// Offset applied to all positions before a renumber so the rewritten
// positions never collide with surviving ones mid-statement; the
// (bucket_id, position) primary key is checked per row in SQLite.
const renumberOffset = 1000000

// BucketRepository handles database operations for media buckets, their
// positioned members, and their direct channel attachments
type BucketRepository struct {
	db *DB
}

// NewBucketRepository creates a new bucket repository
func NewBucketRepository(db *DB) *BucketRepository {
	return &BucketRepository{db: db}
}

// Create inserts a new bucket into the database
func (r *BucketRepository) Create(ctx context.Context, bucket *models.MediaBucket) error {
	result := r.db.WithContext(ctx).Create(bucket)
	if result.Error != nil {
		return fmt.Errorf("failed to create bucket: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a bucket by its UUID
func (r *BucketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaBucket, error) {
	var bucket models.MediaBucket
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&bucket)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &bucket, nil
}

// GetByName retrieves a bucket by its unique name
func (r *BucketRepository) GetByName(ctx context.Context, name string) (*models.MediaBucket, error) {
	var bucket models.MediaBucket
	result := r.db.WithContext(ctx).Where("name = ?", name).First(&bucket)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &bucket, nil
}

// List retrieves all buckets ordered by name
func (r *BucketRepository) List(ctx context.Context) ([]*models.MediaBucket, error) {
	var buckets []*models.MediaBucket
	result := r.db.WithContext(ctx).Order("name ASC").Find(&buckets)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", MapGormError(result.Error))
	}
	return buckets, nil
}

// Update updates an existing bucket's descriptive fields
func (r *BucketRepository) Update(ctx context.Context, bucket *models.MediaBucket) error {
	bucket.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Where("id = ?", bucket.ID.String()).
		Select("name", "bucket_type", "description", "updated_at").
		Updates(bucket)
	if result.Error != nil {
		return fmt.Errorf("failed to update bucket: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a bucket by its UUID (cascade delete to members,
// channel attachments, and progression rows)
func (r *BucketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.MediaBucket{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete bucket: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMembers retrieves a bucket's members ordered by position
func (r *BucketRepository) ListMembers(ctx context.Context, bucketID uuid.UUID) ([]*models.BucketMember, error) {
	var members []*models.BucketMember
	result := r.db.WithContext(ctx).
		Where("bucket_id = ?", bucketID.String()).
		Order("position ASC").
		Find(&members)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list bucket members: %w", MapGormError(result.Error))
	}
	return members, nil
}

// ListMembersForBuckets retrieves the members of several buckets in one
// query, grouped by bucket and ordered by position within each. Callers
// that union buckets decide the cross-bucket ordering themselves.
func (r *BucketRepository) ListMembersForBuckets(ctx context.Context, bucketIDs []uuid.UUID) (map[uuid.UUID][]*models.BucketMember, error) {
	grouped := make(map[uuid.UUID][]*models.BucketMember, len(bucketIDs))
	if len(bucketIDs) == 0 {
		return grouped, nil
	}

	idStrings := make([]string, len(bucketIDs))
	for i, id := range bucketIDs {
		idStrings[i] = id.String()
	}

	var members []*models.BucketMember
	result := r.db.WithContext(ctx).
		Where("bucket_id IN ?", idStrings).
		Order("bucket_id ASC, position ASC").
		Find(&members)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list members for buckets: %w", MapGormError(result.Error))
	}

	for _, m := range members {
		grouped[m.BucketID] = append(grouped[m.BucketID], m)
	}
	return grouped, nil
}

// CountMembers returns the number of members in a bucket
func (r *BucketRepository) CountMembers(ctx context.Context, bucketID uuid.UUID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.BucketMember{}).
		Where("bucket_id = ?", bucketID.String()).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count bucket members: %w", MapGormError(result.Error))
	}
	return count, nil
}

// ReplaceMembers atomically rewrites a bucket's member list. Positions are
// assigned 0..n-1 in the order given. Delete-and-insert inside one
// transaction keeps the contiguous-position invariant without fighting the
// composite primary key during in-place shifts.
func (r *BucketRepository) ReplaceMembers(ctx context.Context, bucketID uuid.UUID, mediaFileIDs []uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Where("bucket_id = ?", bucketID.String()).Delete(&models.BucketMember{})
		if result.Error != nil {
			return fmt.Errorf("failed to clear bucket members: %w", MapGormError(result.Error))
		}

		if len(mediaFileIDs) == 0 {
			return nil
		}

		members := make([]*models.BucketMember, len(mediaFileIDs))
		for i, mediaID := range mediaFileIDs {
			members[i] = models.NewBucketMember(bucketID, mediaID, i)
		}
		if result := tx.Create(&members); result.Error != nil {
			return fmt.Errorf("failed to insert bucket members: %w", MapGormError(result.Error))
		}
		return nil
	})
}

// AppendMember adds a media file at the end of the bucket
func (r *BucketRepository) AppendMember(ctx context.Context, bucketID, mediaFileID uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var next int
		row := tx.Model(&models.BucketMember{}).
			Where("bucket_id = ?", bucketID.String()).
			Select("COALESCE(MAX(position) + 1, 0)").
			Row()
		if err := row.Scan(&next); err != nil {
			return fmt.Errorf("failed to find next bucket position: %w", err)
		}

		member := models.NewBucketMember(bucketID, mediaFileID, next)
		if result := tx.Create(member); result.Error != nil {
			return fmt.Errorf("failed to append bucket member: %w", MapGormError(result.Error))
		}
		return nil
	})
}

// RemoveMemberAt deletes the member at the given position and renumbers
// the remainder sequentially. The renumber happens in two passes: shift
// every position into a range no live row occupies, then assign
// ROW_NUMBER-based positions counting from zero.
func (r *BucketRepository) RemoveMemberAt(ctx context.Context, bucketID uuid.UUID, position int) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Where("bucket_id = ? AND position = ?", bucketID.String(), position).
			Delete(&models.BucketMember{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove bucket member: %w", MapGormError(result.Error))
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		result = tx.Exec(`
			UPDATE bucket_media
			SET position = position + ?
			WHERE bucket_id = ?
		`, renumberOffset, bucketID.String())
		if result.Error != nil {
			return fmt.Errorf("failed to shift bucket positions: %w", MapGormError(result.Error))
		}

		result = tx.Exec(`
			UPDATE bucket_media
			SET position = numbered.new_pos
			FROM (
				SELECT position AS old_pos, ROW_NUMBER() OVER (ORDER BY position) - 1 AS new_pos
				FROM bucket_media
				WHERE bucket_id = ?
			) AS numbered
			WHERE bucket_media.bucket_id = ? AND bucket_media.position = numbered.old_pos
		`, bucketID.String(), bucketID.String())
		if result.Error != nil {
			return fmt.Errorf("failed to renumber bucket positions: %w", MapGormError(result.Error))
		}
		return nil
	})
}

// AttachToChannel links a bucket directly to a channel (legacy playlist
// fallback path)
func (r *BucketRepository) AttachToChannel(ctx context.Context, cb *models.ChannelBucket) error {
	result := r.db.WithContext(ctx).Create(cb)
	if result.Error != nil {
		return fmt.Errorf("failed to attach bucket to channel: %w", MapGormError(result.Error))
	}
	return nil
}

// DetachFromChannel removes a direct channel-bucket link
func (r *BucketRepository) DetachFromChannel(ctx context.Context, channelID, bucketID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND bucket_id = ?", channelID.String(), bucketID.String()).
		Delete(&models.ChannelBucket{})
	if result.Error != nil {
		return fmt.Errorf("failed to detach bucket from channel: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForChannel retrieves the buckets directly attached to a channel,
// highest priority first, creation order breaking ties.
func (r *BucketRepository) ListForChannel(ctx context.Context, channelID uuid.UUID) ([]*models.ChannelBucket, error) {
	var attachments []*models.ChannelBucket
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID.String()).
		Order("priority DESC, created_at ASC, bucket_id ASC").
		Find(&attachments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list channel buckets: %w", MapGormError(result.Error))
	}
	return attachments, nil
}
