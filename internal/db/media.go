package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/models"
	"gorm.io/gorm/clause"
)

// MediaFileRepository handles database operations for the media catalog.
// The catalog is written by an external library scanner; the broadcast
// core only reads it.
type MediaFileRepository struct {
	db *DB
}

// NewMediaFileRepository creates a new media file repository
func NewMediaFileRepository(db *DB) *MediaFileRepository {
	return &MediaFileRepository{db: db}
}

// Create inserts a new media file into the catalog
func (r *MediaFileRepository) Create(ctx context.Context, media *models.MediaFile) error {
	result := r.db.WithContext(ctx).Create(media)
	if result.Error != nil {
		return fmt.Errorf("failed to create media file: %w", MapGormError(result.Error))
	}
	return nil
}

// Upsert inserts or refreshes a catalog entry keyed by path. The scanner
// calls this on every pass so durations and existence flags track disk.
func (r *MediaFileRepository) Upsert(ctx context.Context, media *models.MediaFile) error {
	media.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "show_name", "season", "episode", "duration", "file_exists", "updated_at",
			}),
		}).
		Create(media)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert media file: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a media file by its UUID
func (r *MediaFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error) {
	var media models.MediaFile
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&media)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &media, nil
}

// GetByPath retrieves a media file by its path
func (r *MediaFileRepository) GetByPath(ctx context.Context, path string) (*models.MediaFile, error) {
	var media models.MediaFile
	result := r.db.WithContext(ctx).Where("path = ?", path).First(&media)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &media, nil
}

// List retrieves media files with pagination
func (r *MediaFileRepository) List(ctx context.Context, limit, offset int) ([]*models.MediaFile, error) {
	var mediaList []*models.MediaFile
	query := r.db.WithContext(ctx).Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	result := query.Find(&mediaList)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list media files: %w", MapGormError(result.Error))
	}
	return mediaList, nil
}

// ListByIDs retrieves media files for the given ids, keyed by id. Missing
// ids simply have no entry; callers treat them as catalog inconsistencies,
// not errors.
func (r *MediaFileRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MediaFile, error) {
	byID := make(map[uuid.UUID]*models.MediaFile, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	var mediaList []*models.MediaFile
	result := r.db.WithContext(ctx).Where("id IN ?", idStrings).Find(&mediaList)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load media files by id: %w", MapGormError(result.Error))
	}

	for _, m := range mediaList {
		byID[m.ID] = m
	}
	return byID, nil
}

// SetExists flips a catalog entry's file_exists flag. The scanner marks
// files missing instead of deleting rows so bucket references stay intact.
func (r *MediaFileRepository) SetExists(ctx context.Context, id uuid.UUID, exists bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.MediaFile{}).
		Where("id = ?", id.String()).
		Updates(map[string]interface{}{
			"file_exists": exists,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set media file existence: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a media file by its UUID
func (r *MediaFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.MediaFile{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete media file: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of catalog entries
func (r *MediaFileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.MediaFile{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count media files: %w", MapGormError(result.Error))
	}
	return count, nil
}
