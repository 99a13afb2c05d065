// Package schedule resolves weekly schedule blocks: given a channel and a
// wall-clock instant, which block is on air, and when does the lineup next
// change. Blocks recur weekly, carry priorities, and may wrap past
// midnight (end time at or before start time).
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/models"
)

const (
	secondsPerDay = 24 * 3600

	// How far ahead NextTransition searches before reporting none.
	transitionHorizonDays = 7
)

// Resolver picks the active schedule block for a channel at an instant and
// reports the next upcoming block boundary. There is one concrete
// implementation; the interface exists so consumers can be composed and
// tested without a database.
type Resolver interface {
	ActiveBlock(ctx context.Context, channelID uuid.UUID, at time.Time) (*models.ScheduleBlock, error)
	NextTransition(ctx context.Context, channelID uuid.UUID, after time.Time) (*time.Time, error)
}

// BlockResolver resolves schedule blocks against the store. All weekday
// and time-of-day comparisons happen in the configured location.
type BlockResolver struct {
	repos *db.Repositories
	loc   *time.Location
}

// NewBlockResolver creates a block resolver evaluating schedules in loc.
// A nil loc falls back to UTC.
func NewBlockResolver(repos *db.Repositories, loc *time.Location) *BlockResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &BlockResolver{repos: repos, loc: loc}
}

// Location returns the timezone schedule evaluation happens in
func (r *BlockResolver) Location() *time.Location {
	return r.loc
}

// ActiveBlock returns the schedule block on air for the channel at the
// given instant, or nil when nothing is scheduled. Candidates are ranked
// by priority descending, then creation time, then id; the first active
// candidate wins. Blocks with malformed time strings are skipped with a
// warning rather than failing the resolution.
func (r *BlockResolver) ActiveBlock(ctx context.Context, channelID uuid.UUID, at time.Time) (*models.ScheduleBlock, error) {
	blocks, err := r.repos.Blocks.ListEnabledByChannel(ctx, channelID)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to load schedule blocks")
		return nil, fmt.Errorf("failed to resolve active block: %w", err)
	}

	local := at.In(r.loc)

	for i, block := range blocks {
		active, err := r.blockActiveAt(block, local)
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("block_id", block.ID.String()).
				Str("block_name", block.Name).
				Msg("Skipping schedule block with invalid time configuration")
			continue
		}
		if !active {
			continue
		}

		r.warnOnAmbiguousTie(blocks[i+1:], block, local)

		logger.Log.Debug().
			Str("channel_id", channelID.String()).
			Str("block_id", block.ID.String()).
			Str("block_name", block.Name).
			Int("priority", block.Priority).
			Time("at", at).
			Msg("Resolved active schedule block")
		return block, nil
	}

	logger.Log.Debug().
		Str("channel_id", channelID.String()).
		Time("at", at).
		Int("candidates", len(blocks)).
		Msg("No active schedule block")
	return nil, nil
}

// NextTransition returns the earliest start-time boundary strictly after
// the given instant across the channel's enabled blocks that carry a
// bucket, or nil when no boundary falls within the search horizon.
func (r *BlockResolver) NextTransition(ctx context.Context, channelID uuid.UUID, after time.Time) (*time.Time, error) {
	blocks, err := r.repos.Blocks.ListEnabledByChannel(ctx, channelID)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to load schedule blocks for transition search")
		return nil, fmt.Errorf("failed to find next transition: %w", err)
	}

	local := after.In(r.loc)
	var next *time.Time

	for _, block := range blocks {
		if block.BucketID == nil {
			continue
		}
		startSec, err := parseTimeOfDay(block.StartTime)
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("block_id", block.ID.String()).
				Str("block_name", block.Name).
				Msg("Skipping schedule block with invalid start time in transition search")
			continue
		}

		for offset := 0; offset <= transitionHorizonDays; offset++ {
			day := local.AddDate(0, 0, offset)
			if !block.DaysOfWeek.Contains(day.Weekday()) {
				continue
			}
			// time.Date normalizes hour 24 into midnight of the next day.
			candidate := time.Date(
				day.Year(), day.Month(), day.Day(),
				startSec/3600, (startSec%3600)/60, startSec%60, 0,
				r.loc,
			)
			if !candidate.After(after) {
				continue
			}
			utc := candidate.UTC()
			if next == nil || utc.Before(*next) {
				next = &utc
			}
			break
		}
	}

	return next, nil
}

// blockActiveAt reports whether the block covers the given local instant.
// A wraparound block (end at or before start) is active from its start
// time to end of day on its scheduled days, and from midnight to its end
// time on the following days, however far past midnight that reaches.
func (r *BlockResolver) blockActiveAt(block *models.ScheduleBlock, local time.Time) (bool, error) {
	startSec, err := parseTimeOfDay(block.StartTime)
	if err != nil {
		return false, fmt.Errorf("start time %q: %w", block.StartTime, err)
	}
	endSec, err := parseTimeOfDay(block.EndTime)
	if err != nil {
		return false, fmt.Errorf("end time %q: %w", block.EndTime, err)
	}

	daySec := local.Hour()*3600 + local.Minute()*60 + local.Second()
	dow := local.Weekday()

	if endSec > startSec {
		return block.DaysOfWeek.Contains(dow) && daySec >= startSec && daySec < endSec, nil
	}

	// Wraparound: tail of the scheduled day, or spillover from yesterday.
	if block.DaysOfWeek.Contains(dow) && daySec >= startSec {
		return true, nil
	}
	yesterday := time.Weekday((int(dow) + 6) % 7)
	return block.DaysOfWeek.Contains(yesterday) && daySec < endSec, nil
}

// warnOnAmbiguousTie logs when another active block shares the winner's
// priority and creation time; the id ordering already made the pick
// deterministic, but the schedule author should know.
func (r *BlockResolver) warnOnAmbiguousTie(rest []*models.ScheduleBlock, winner *models.ScheduleBlock, local time.Time) {
	for _, other := range rest {
		if other.Priority != winner.Priority {
			return
		}
		if !other.CreatedAt.Equal(winner.CreatedAt) {
			return
		}
		active, err := r.blockActiveAt(other, local)
		if err != nil || !active {
			continue
		}
		logger.Log.Warn().
			Str("winner_block_id", winner.ID.String()).
			Str("tied_block_id", other.ID.String()).
			Int("priority", winner.Priority).
			Msg("Schedule blocks tie on priority and creation time; picked by id")
	}
}

// parseTimeOfDay converts an "HH:MM:SS" (or "HH:MM") string into seconds
// since midnight. "24:00:00" is accepted as end-of-day.
func parseTimeOfDay(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrInvalidTimeOfDay
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, ErrInvalidTimeOfDay
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, ErrInvalidTimeOfDay
	}
	second := 0
	if len(parts) == 3 {
		second, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, ErrInvalidTimeOfDay
		}
	}

	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, ErrInvalidTimeOfDay
	}
	total := hour*3600 + minute*60 + second
	if total > secondsPerDay {
		return 0, ErrInvalidTimeOfDay
	}
	return total, nil
}
