package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/models"
)

const maxBlockNameLength = 255

// ScheduleService handles business logic for schedule block administration
type ScheduleService struct {
	repos *db.Repositories
}

// NewScheduleService creates a new schedule service instance
func NewScheduleService(repos *db.Repositories) *ScheduleService {
	return &ScheduleService{
		repos: repos,
	}
}

// BlockInput carries the caller-supplied fields for creating or updating
// a schedule block
type BlockInput struct {
	Name         string
	DaysOfWeek   models.DaySet
	StartTime    string
	EndTime      string
	BucketID     *uuid.UUID
	PlaybackMode string
	Priority     int
	Enabled      bool
}

// CreateBlock creates a new schedule block for a channel with validation
func (s *ScheduleService) CreateBlock(ctx context.Context, channelID uuid.UUID, input BlockInput) (*models.ScheduleBlock, error) {
	if err := s.validateInput(ctx, input); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("name", input.Name).
			Msg("Schedule block creation failed: invalid input")
		return nil, fmt.Errorf("failed to create schedule block: %w", err)
	}

	// Verify the channel exists
	if _, err := s.repos.Channels.GetByID(ctx, channelID); err != nil {
		if db.IsNotFound(err) {
			return nil, channel.ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to verify channel for schedule block")
		return nil, fmt.Errorf("failed to create schedule block: %w", err)
	}

	block := models.NewScheduleBlock(channelID, strings.TrimSpace(input.Name), input.StartTime, input.EndTime, input.PlaybackMode)
	block.DaysOfWeek = input.DaysOfWeek
	block.BucketID = input.BucketID
	block.Priority = input.Priority
	block.Enabled = input.Enabled

	if err := s.repos.Blocks.Create(ctx, block); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("name", block.Name).
			Msg("Failed to create schedule block in database")
		return nil, fmt.Errorf("failed to create schedule block: %w", err)
	}

	logger.Log.Info().
		Str("block_id", block.ID.String()).
		Str("channel_id", channelID.String()).
		Str("name", block.Name).
		Str("playback_mode", block.PlaybackMode).
		Int("priority", block.Priority).
		Msg("Schedule block created successfully")

	return block, nil
}

// GetBlock retrieves a schedule block by its ID
func (s *ScheduleService) GetBlock(ctx context.Context, id uuid.UUID) (*models.ScheduleBlock, error) {
	block, err := s.repos.Blocks.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrBlockNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("block_id", id.String()).
			Msg("Failed to get schedule block by ID")
		return nil, fmt.Errorf("failed to get schedule block: %w", err)
	}
	return block, nil
}

// ListBlocks retrieves all schedule blocks for a channel in resolution order
func (s *ScheduleService) ListBlocks(ctx context.Context, channelID uuid.UUID) ([]*models.ScheduleBlock, error) {
	blocks, err := s.repos.Blocks.ListByChannel(ctx, channelID)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to list schedule blocks")
		return nil, fmt.Errorf("failed to list schedule blocks: %w", err)
	}

	logger.Log.Debug().
		Str("channel_id", channelID.String()).
		Int("count", len(blocks)).
		Msg("Listed schedule blocks")

	return blocks, nil
}

// UpdateBlock replaces a block's configurable fields with validation
func (s *ScheduleService) UpdateBlock(ctx context.Context, id uuid.UUID, input BlockInput) (*models.ScheduleBlock, error) {
	block, err := s.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validateInput(ctx, input); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("block_id", id.String()).
			Msg("Schedule block update failed: invalid input")
		return nil, fmt.Errorf("failed to update schedule block: %w", err)
	}

	block.Name = strings.TrimSpace(input.Name)
	block.DaysOfWeek = input.DaysOfWeek
	block.StartTime = input.StartTime
	block.EndTime = input.EndTime
	block.BucketID = input.BucketID
	block.PlaybackMode = input.PlaybackMode
	block.Priority = input.Priority
	block.Enabled = input.Enabled

	if err := s.repos.Blocks.Update(ctx, block); err != nil {
		if db.IsNotFound(err) {
			return nil, ErrBlockNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("block_id", id.String()).
			Msg("Failed to update schedule block in database")
		return nil, fmt.Errorf("failed to update schedule block: %w", err)
	}

	logger.Log.Info().
		Str("block_id", block.ID.String()).
		Str("name", block.Name).
		Msg("Schedule block updated successfully")

	return block, nil
}

// SetBlockEnabled enables or disables a block without touching its window
func (s *ScheduleService) SetBlockEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if err := s.repos.Blocks.SetEnabled(ctx, id, enabled); err != nil {
		if db.IsNotFound(err) {
			return ErrBlockNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("block_id", id.String()).
			Bool("enabled", enabled).
			Msg("Failed to set schedule block enabled state")
		return fmt.Errorf("failed to set schedule block enabled: %w", err)
	}

	logger.Log.Info().
		Str("block_id", id.String()).
		Bool("enabled", enabled).
		Msg("Schedule block enabled state changed")

	return nil
}

// DeleteBlock deletes a schedule block by its ID
func (s *ScheduleService) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	if err := s.repos.Blocks.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrBlockNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("block_id", id.String()).
			Msg("Failed to delete schedule block from database")
		return fmt.Errorf("failed to delete schedule block: %w", err)
	}

	logger.Log.Info().
		Str("block_id", id.String()).
		Msg("Schedule block deleted successfully")

	return nil
}

// validateInput checks block fields against their declared invariants
func (s *ScheduleService) validateInput(ctx context.Context, input BlockInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxBlockNameLength {
		return ErrInvalidBlockName
	}

	if err := input.DaysOfWeek.Validate(); err != nil {
		return ErrInvalidDayOfWeek
	}

	if _, err := parseTimeOfDay(input.StartTime); err != nil {
		return err
	}
	if _, err := parseTimeOfDay(input.EndTime); err != nil {
		return err
	}

	if !models.IsValidPlaybackMode(input.PlaybackMode) {
		return ErrInvalidPlaybackMode
	}

	if input.BucketID != nil {
		if _, err := s.repos.Buckets.GetByID(ctx, *input.BucketID); err != nil {
			if db.IsNotFound(err) {
				return ErrBucketNotFound
			}
			return fmt.Errorf("failed to verify bucket: %w", err)
		}
	}

	return nil
}
