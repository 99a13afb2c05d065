// Package channel provides business logic for channel lifecycle and the
// direct channel-bucket lineup.
package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/models"
)

const maxChannelNameLength = 255

// ChannelService handles business logic for channel operations
type ChannelService struct {
	repos *db.Repositories
}

// NewChannelService creates a new channel service instance
func NewChannelService(repos *db.Repositories) *ChannelService {
	return &ChannelService{
		repos: repos,
	}
}

// CreateChannel creates a new channel with validation. The timeline
// anchor starts unset; StartBroadcast or the first feed request sets it.
func (s *ChannelService) CreateChannel(ctx context.Context, name string, number *int, icon *string) (*models.Channel, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > maxChannelNameLength {
		logger.Log.Warn().
			Str("name", name).
			Msg("Channel creation failed: invalid name")
		return nil, fmt.Errorf("failed to create channel: %w", ErrInvalidChannelName)
	}

	if err := s.validateNameUniqueness(ctx, trimmed, uuid.Nil); err != nil {
		logger.Log.Warn().
			Str("name", trimmed).
			Msg("Channel creation failed: duplicate name")
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	ch := models.NewChannel(trimmed)
	ch.Number = number
	ch.Icon = icon

	if err := s.repos.Channels.Create(ctx, ch); err != nil {
		if db.IsDuplicate(err) {
			return nil, fmt.Errorf("failed to create channel: %w", ErrDuplicateChannelName)
		}
		logger.Log.Error().
			Err(err).
			Str("name", trimmed).
			Msg("Failed to create channel in database")
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", ch.ID.String()).
		Str("name", ch.Name).
		Msg("Channel created successfully")

	return ch, nil
}

// GetByID retrieves a channel by its ID
func (s *ChannelService) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	ch, err := s.repos.Channels.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to get channel by ID")
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return ch, nil
}

// List retrieves all channels ordered by number then name
func (s *ChannelService) List(ctx context.Context) ([]*models.Channel, error) {
	channels, err := s.repos.Channels.List(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list channels")
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	logger.Log.Debug().
		Int("count", len(channels)).
		Msg("Listed channels")

	return channels, nil
}

// UpdateChannel updates a channel's descriptive fields with validation.
// The timeline anchor is untouched; it changes only through the timeline
// service.
func (s *ChannelService) UpdateChannel(ctx context.Context, ch *models.Channel) error {
	existing, err := s.GetByID(ctx, ch.ID)
	if err != nil {
		return err
	}

	trimmed := strings.TrimSpace(ch.Name)
	if trimmed == "" || len(trimmed) > maxChannelNameLength {
		return fmt.Errorf("failed to update channel: %w", ErrInvalidChannelName)
	}
	ch.Name = trimmed

	if !strings.EqualFold(existing.Name, ch.Name) {
		if err := s.validateNameUniqueness(ctx, ch.Name, ch.ID); err != nil {
			logger.Log.Warn().
				Str("channel_id", ch.ID.String()).
				Str("name", ch.Name).
				Msg("Channel update failed: duplicate name")
			return fmt.Errorf("failed to update channel: %w", err)
		}
	}

	if err := s.repos.Channels.Update(ctx, ch); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", ch.ID.String()).
			Msg("Failed to update channel in database")
		return fmt.Errorf("failed to update channel: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", ch.ID.String()).
		Str("name", ch.Name).
		Msg("Channel updated successfully")

	return nil
}

// DeleteChannel deletes a channel by its ID. Schedule blocks, bucket
// attachments, and progression rows cascade in the database.
func (s *ChannelService) DeleteChannel(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repos.Channels.Delete(ctx, id); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to delete channel from database")
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", id.String()).
		Msg("Channel deleted successfully")

	return nil
}

// AttachBucket links a bucket directly to the channel. Direct attachments
// are the last playlist fallback when no schedule block yields media.
func (s *ChannelService) AttachBucket(ctx context.Context, channelID, bucketID uuid.UUID, priority int) error {
	if _, err := s.GetByID(ctx, channelID); err != nil {
		return err
	}
	if _, err := s.repos.Buckets.GetByID(ctx, bucketID); err != nil {
		if db.IsNotFound(err) {
			return ErrBucketNotFound
		}
		return fmt.Errorf("failed to verify bucket: %w", err)
	}

	cb := models.NewChannelBucket(channelID, bucketID, priority)
	if err := s.repos.Buckets.AttachToChannel(ctx, cb); err != nil {
		if db.IsDuplicate(err) {
			return ErrBucketAlreadyAttached
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("bucket_id", bucketID.String()).
			Msg("Failed to attach bucket to channel")
		return fmt.Errorf("failed to attach bucket: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Str("bucket_id", bucketID.String()).
		Int("priority", priority).
		Msg("Bucket attached to channel")

	return nil
}

// DetachBucket removes a direct channel-bucket link
func (s *ChannelService) DetachBucket(ctx context.Context, channelID, bucketID uuid.UUID) error {
	if err := s.repos.Buckets.DetachFromChannel(ctx, channelID, bucketID); err != nil {
		if db.IsNotFound(err) {
			return ErrBucketNotAttached
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("bucket_id", bucketID.String()).
			Msg("Failed to detach bucket from channel")
		return fmt.Errorf("failed to detach bucket: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Str("bucket_id", bucketID.String()).
		Msg("Bucket detached from channel")

	return nil
}

// AttachedBuckets lists the buckets directly attached to the channel,
// highest priority first
func (s *ChannelService) AttachedBuckets(ctx context.Context, channelID uuid.UUID) ([]*models.ChannelBucket, error) {
	attachments, err := s.repos.Buckets.ListForChannel(ctx, channelID)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to list channel buckets")
		return nil, fmt.Errorf("failed to list attached buckets: %w", err)
	}
	return attachments, nil
}

// StartBroadcast pins the channel's timeline anchor to now if it is not
// already set. Idempotent: repeated starts leave the original anchor in
// place. Returns true when this call started the broadcast.
func (s *ChannelService) StartBroadcast(ctx context.Context, channelID uuid.UUID) (bool, error) {
	started, err := s.repos.Channels.InitializeAnchor(ctx, channelID, time.Now().UTC())
	if err != nil {
		if db.IsNotFound(err) {
			return false, ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to start channel broadcast")
		return false, fmt.Errorf("failed to start broadcast: %w", err)
	}

	if started {
		logger.Log.Info().
			Str("channel_id", channelID.String()).
			Msg("Channel broadcast started")
	}
	return started, nil
}

// validateNameUniqueness checks if a channel name is unique (case-insensitive).
// excludeID allows excluding a specific channel ID (for updates).
func (s *ChannelService) validateNameUniqueness(ctx context.Context, name string, excludeID uuid.UUID) error {
	channels, err := s.repos.Channels.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to validate name uniqueness: %w", err)
	}

	nameLower := strings.ToLower(name)
	for _, ch := range channels {
		if ch.ID == excludeID {
			continue
		}
		if strings.ToLower(strings.TrimSpace(ch.Name)) == nameLower {
			return ErrDuplicateChannelName
		}
	}

	return nil
}
