// Package bucket provides business logic for media bucket administration:
// lifecycle, positioned membership, and sequential rotation.
package bucket

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/models"
)

const maxBucketNameLength = 255

// BucketService handles business logic for bucket operations
type BucketService struct {
	repos *db.Repositories
}

// NewBucketService creates a new bucket service instance
func NewBucketService(repos *db.Repositories) *BucketService {
	return &BucketService{
		repos: repos,
	}
}

// CreateBucket creates a new bucket with validation. Names are unique.
func (s *BucketService) CreateBucket(ctx context.Context, name, bucketType string, description *string) (*models.MediaBucket, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > maxBucketNameLength {
		logger.Log.Warn().
			Str("name", name).
			Msg("Bucket creation failed: invalid name")
		return nil, fmt.Errorf("failed to create bucket: %w", ErrInvalidBucketName)
	}

	if bucketType == "" {
		bucketType = models.BucketTypeGeneral
	}

	bucket := models.NewMediaBucket(trimmed, bucketType)
	bucket.Description = description

	if err := s.repos.Buckets.Create(ctx, bucket); err != nil {
		if db.IsDuplicate(err) {
			logger.Log.Warn().
				Str("name", trimmed).
				Msg("Bucket creation failed: duplicate name")
			return nil, fmt.Errorf("failed to create bucket: %w", ErrDuplicateBucketName)
		}
		logger.Log.Error().
			Err(err).
			Str("name", trimmed).
			Msg("Failed to create bucket in database")
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger.Log.Info().
		Str("bucket_id", bucket.ID.String()).
		Str("name", bucket.Name).
		Str("bucket_type", bucket.BucketType).
		Msg("Bucket created successfully")

	return bucket, nil
}

// GetByID retrieves a bucket by its ID
func (s *BucketService) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaBucket, error) {
	bucket, err := s.repos.Buckets.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrBucketNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("bucket_id", id.String()).
			Msg("Failed to get bucket by ID")
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return bucket, nil
}

// List retrieves all buckets ordered by name
func (s *BucketService) List(ctx context.Context) ([]*models.MediaBucket, error) {
	buckets, err := s.repos.Buckets.List(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list buckets")
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	return buckets, nil
}

// DeleteBucket deletes a bucket. Members, channel attachments, and
// progression rows cascade in the database.
func (s *BucketService) DeleteBucket(ctx context.Context, id uuid.UUID) error {
	if err := s.repos.Buckets.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrBucketNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("bucket_id", id.String()).
			Msg("Failed to delete bucket from database")
		return fmt.Errorf("failed to delete bucket: %w", err)
	}

	logger.Log.Info().
		Str("bucket_id", id.String()).
		Msg("Bucket deleted successfully")
	return nil
}

// Members retrieves the bucket's members ordered by position, with the
// catalog record populated on each member when present
func (s *BucketService) Members(ctx context.Context, bucketID uuid.UUID) ([]*models.BucketMember, error) {
	if _, err := s.GetByID(ctx, bucketID); err != nil {
		return nil, err
	}

	members, err := s.repos.Buckets.ListMembers(ctx, bucketID)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("bucket_id", bucketID.String()).
			Msg("Failed to list bucket members")
		return nil, fmt.Errorf("failed to list bucket members: %w", err)
	}

	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.MediaFileID
	}
	mediaByID, err := s.repos.Media.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load member media: %w", err)
	}
	for _, m := range members {
		m.MediaFile = mediaByID[m.MediaFileID]
	}

	return members, nil
}

// SetMembers atomically replaces the bucket's member list with the given
// media files in order. Positions are rewritten 0..n-1 in one transaction
// so the contiguous-position invariant holds at every point a reader can
// observe.
func (s *BucketService) SetMembers(ctx context.Context, bucketID uuid.UUID, mediaFileIDs []uuid.UUID) error {
	if _, err := s.GetByID(ctx, bucketID); err != nil {
		return err
	}

	if err := s.verifyMediaExists(ctx, mediaFileIDs); err != nil {
		return err
	}

	if err := s.repos.Buckets.ReplaceMembers(ctx, bucketID, mediaFileIDs); err != nil {
		logger.Log.Error().
			Err(err).
			Str("bucket_id", bucketID.String()).
			Int("member_count", len(mediaFileIDs)).
			Msg("Failed to replace bucket members")
		return fmt.Errorf("failed to set bucket members: %w", err)
	}

	logger.Log.Info().
		Str("bucket_id", bucketID.String()).
		Int("member_count", len(mediaFileIDs)).
		Msg("Bucket members replaced")
	return nil
}

// AddMember appends a media file at the end of the bucket
func (s *BucketService) AddMember(ctx context.Context, bucketID, mediaFileID uuid.UUID) error {
	if _, err := s.GetByID(ctx, bucketID); err != nil {
		return err
	}
	if err := s.verifyMediaExists(ctx, []uuid.UUID{mediaFileID}); err != nil {
		return err
	}

	if err := s.repos.Buckets.AppendMember(ctx, bucketID, mediaFileID); err != nil {
		logger.Log.Error().
			Err(err).
			Str("bucket_id", bucketID.String()).
			Str("media_file_id", mediaFileID.String()).
			Msg("Failed to append bucket member")
		return fmt.Errorf("failed to add bucket member: %w", err)
	}

	logger.Log.Info().
		Str("bucket_id", bucketID.String()).
		Str("media_file_id", mediaFileID.String()).
		Msg("Bucket member added")
	return nil
}

// RemoveMember deletes the member at the given position and closes the
// gap, renumbering the remainder 0..n-1
func (s *BucketService) RemoveMember(ctx context.Context, bucketID uuid.UUID, position int) error {
	if _, err := s.GetByID(ctx, bucketID); err != nil {
		return err
	}

	if err := s.repos.Buckets.RemoveMemberAt(ctx, bucketID, position); err != nil {
		if db.IsNotFound(err) {
			return ErrMemberNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("bucket_id", bucketID.String()).
			Int("position", position).
			Msg("Failed to remove bucket member")
		return fmt.Errorf("failed to remove bucket member: %w", err)
	}

	logger.Log.Info().
		Str("bucket_id", bucketID.String()).
		Int("position", position).
		Msg("Bucket member removed")
	return nil
}

// Rotate advances the channel's sequential cursor for this bucket by one
// position, wrapping at the end. The member being left behind is recorded
// as last played. Missing progression starts from position 0.
func (s *BucketService) Rotate(ctx context.Context, channelID, bucketID uuid.UUID) (*models.BucketProgression, error) {
	members, err := s.repos.Buckets.ListMembers(ctx, bucketID)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate bucket: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrEmptyBucket
	}

	current := 0
	prog, err := s.repos.Progressions.Get(ctx, channelID, bucketID)
	switch {
	case err == nil:
		if prog.CurrentPosition >= 0 && prog.CurrentPosition < len(members) {
			current = prog.CurrentPosition
		}
	case db.IsNotFound(err):
		// First rotation; cursor starts at the top of the bucket.
	default:
		return nil, fmt.Errorf("failed to rotate bucket: %w", err)
	}

	next := (current + 1) % len(members)
	updated := &models.BucketProgression{
		ChannelID:         channelID,
		BucketID:          bucketID,
		CurrentPosition:   next,
		LastPlayedMediaID: &members[current].MediaFileID,
	}
	if err := s.repos.Progressions.Upsert(ctx, updated); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("bucket_id", bucketID.String()).
			Msg("Failed to write rotated progression")
		return nil, fmt.Errorf("failed to rotate bucket: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Str("bucket_id", bucketID.String()).
		Int("from", current).
		Int("to", next).
		Msg("Bucket progression rotated")

	return updated, nil
}

// verifyMediaExists checks every id against the catalog
func (s *BucketService) verifyMediaExists(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	mediaByID, err := s.repos.Media.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to verify media: %w", err)
	}
	for _, id := range ids {
		if _, ok := mediaByID[id]; !ok {
			logger.Log.Warn().
				Str("media_file_id", id.String()).
				Msg("Bucket operation references unknown media")
			return fmt.Errorf("%w: %s", ErrMediaNotFound, id)
		}
	}
	return nil
}
