package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/models"
)

// TimelineService handles timeline anchor lifecycle and position queries
//
//nolint:revive // Service name matches established patterns in codebase
type TimelineService struct {
	repos *db.Repositories
}

// NewTimelineService creates a new timeline service instance
func NewTimelineService(repos *db.Repositories) *TimelineService {
	return &TimelineService{
		repos: repos,
	}
}

// Initialize sets the channel's anchor to now if and only if it is still
// unset. The condition runs inside the UPDATE statement, so concurrent
// first-start events cannot both win. Returns true when this call set the
// anchor, false when one was already in place.
func (s *TimelineService) Initialize(ctx context.Context, channelID uuid.UUID) (bool, error) {
	initialized, err := s.repos.Channels.InitializeAnchor(ctx, channelID, time.Now().UTC())
	if err != nil {
		if db.IsNotFound(err) {
			return false, channel.ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to initialize timeline anchor")
		return false, fmt.Errorf("failed to initialize timeline: %w", err)
	}

	if initialized {
		logger.Log.Info().
			Str("channel_id", channelID.String()).
			Msg("Timeline anchor initialized")
	}
	return initialized, nil
}

// CurrentPosition computes the channel's playhead within the given
// playlist at the given instant. Pure with respect to state: nothing is
// written. Returns ErrNotStarted when the channel has no anchor and
// channel.ErrChannelNotFound when the channel does not exist.
func (s *TimelineService) CurrentPosition(ctx context.Context, channelID uuid.UUID, files []*models.MediaFile, at time.Time) (*Position, error) {
	ch, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, channel.ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to load channel for position query")
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	if ch.ScheduleStartTime == nil {
		return nil, ErrNotStarted
	}

	pos := CalculatePosition(*ch.ScheduleStartTime, at, files)

	logger.Log.Debug().
		Str("channel_id", channelID.String()).
		Int("file_index", pos.FileIndex).
		Int64("offset_seconds", pos.OffsetSeconds).
		Int64("elapsed_seconds", pos.ElapsedSeconds).
		Int("playlist_len", len(files)).
		Msg("Computed timeline position")

	return pos, nil
}

// Reset clears the channel's anchor and drops its saved progressions so
// the next start event begins a fresh timeline. Administrative only.
func (s *TimelineService) Reset(ctx context.Context, channelID uuid.UUID) error {
	if err := s.repos.Channels.ClearAnchor(ctx, channelID); err != nil {
		if db.IsNotFound(err) {
			return channel.ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to clear timeline anchor")
		return fmt.Errorf("failed to reset timeline: %w", err)
	}

	if err := s.repos.Progressions.DeleteByChannel(ctx, channelID); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to clear channel progressions during reset")
		return fmt.Errorf("failed to reset timeline: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Msg("Timeline reset")
	return nil
}

// SetAnchor overwrites the channel's anchor unconditionally. Used for
// administrative timeline adjustment; shifts the playhead of every
// playlist computed against it.
func (s *TimelineService) SetAnchor(ctx context.Context, channelID uuid.UUID, at time.Time) error {
	if err := s.repos.Channels.SetAnchor(ctx, channelID, at); err != nil {
		if db.IsNotFound(err) {
			return channel.ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Time("anchor", at).
			Msg("Failed to set timeline anchor")
		return fmt.Errorf("failed to set timeline anchor: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Time("anchor", at).
		Msg("Timeline anchor adjusted")
	return nil
}

// AdvanceProgression writes the sequential resume cursor for a channel
// and bucket as an absolute single-row upsert. Concurrent advances to the
// same position race benignly; last writer wins.
func (s *TimelineService) AdvanceProgression(ctx context.Context, channelID, bucketID uuid.UUID, position int, lastPlayedMediaID *uuid.UUID) error {
	prog := &models.BucketProgression{
		ChannelID:         channelID,
		BucketID:          bucketID,
		CurrentPosition:   position,
		LastPlayedMediaID: lastPlayedMediaID,
	}

	if err := s.repos.Progressions.Upsert(ctx, prog); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("bucket_id", bucketID.String()).
			Int("position", position).
			Msg("Failed to advance bucket progression")
		return fmt.Errorf("failed to advance progression: %w", err)
	}

	logger.Log.Debug().
		Str("channel_id", channelID.String()).
		Str("bucket_id", bucketID.String()).
		Int("position", position).
		Msg("Bucket progression advanced")
	return nil
}
