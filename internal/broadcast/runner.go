// Package broadcast drives channel timelines forward. The runner wakes on
// a fixed interval, recomputes every started channel's position, and keeps
// the sequential episode cursor in memory while a bucket is on air. The
// cursor is persisted only when the bucket stops being the channel's
// source (block transition, channel leaving the air, shutdown): a cursor
// write rotates the next resolution, so persisting mid-airing would drag
// the live playhead along with it.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/metrics"
	"github.com/stwalsh4118/rerun/internal/models"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

const (
	defaultTickInterval = 10 * time.Second
	flushTimeout        = 5 * time.Second
)

// playState is what the runner remembers about one on-air channel between
// ticks. The resume fields are valid while tracked is set: cursor is the
// bucket ordinal of the episode currently on air, lastPlayed the episode
// the playhead most recently left behind.
type playState struct {
	mediaID uuid.UUID

	tracked    bool
	bucketID   uuid.UUID
	cursor     int
	lastPlayed *uuid.UUID
}

// Runner is the broadcast progression loop.
type Runner struct {
	repos    *db.Repositories
	resolver playlist.Resolver
	timeline *timeline.TimelineService
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	states map[uuid.UUID]*playState
}

// NewRunner constructs the progression loop. A non-positive interval
// falls back to the default.
func NewRunner(repos *db.Repositories, resolver playlist.Resolver, tl *timeline.TimelineService, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &Runner{
		repos:    repos,
		resolver: resolver,
		timeline: tl,
		interval: interval,
		log:      logger.WithComponent("broadcast"),
		states:   make(map[uuid.UUID]*playState),
	}
}

// Run executes the progression loop until the context is cancelled, then
// persists any pending resume cursors before returning.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().
		Dur("interval", r.interval).
		Msg("Broadcast runner started")
	for {
		select {
		case <-ctx.Done():
			r.flushAll()
			r.log.Info().Msg("Broadcast runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx, time.Now().UTC())
		}
	}
}

// tick advances every enabled channel once. Per-channel failures are
// logged and skipped so one broken channel cannot stall the rest.
func (r *Runner) tick(ctx context.Context, now time.Time) {
	start := time.Now()

	channels, err := r.repos.Channels.List(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("Broadcast tick failed to list channels")
		metrics.ObserveTick(err, time.Since(start))
		return
	}

	onAir := 0
	seen := make(map[uuid.UUID]bool, len(channels))
	for _, ch := range channels {
		seen[ch.ID] = true
		if ch.ScheduleStartTime == nil {
			// A reset timeline discards its cursors; flushing here would
			// resurrect a progression the reset just deleted.
			r.drop(ch.ID)
			continue
		}
		if !ch.Enabled {
			r.retire(ctx, ch.ID)
			continue
		}
		playing, err := r.tickChannel(ctx, ch, now)
		if err != nil {
			r.log.Warn().
				Err(err).
				Str("channel_id", ch.ID.String()).
				Msg("Channel progression failed")
			continue
		}
		if playing {
			onAir++
		}
	}

	// Deleted channels: nothing left to write a cursor against.
	r.mu.Lock()
	for channelID := range r.states {
		if !seen[channelID] {
			delete(r.states, channelID)
		}
	}
	r.mu.Unlock()

	metrics.ChannelsOnAir.Set(float64(onAir))
	metrics.ObserveTick(nil, time.Since(start))
}

// tickChannel recomputes one channel's position and carries the sequential
// resume cursor forward in memory. File boundary crossings update the
// cursor but never write it: the stored cursor feeds the next Resolve, and
// moving it while the bucket is still the source would change the playlist
// under the fixed anchor and jump the playhead.
func (r *Runner) tickChannel(ctx context.Context, ch *models.Channel, now time.Time) (bool, error) {
	res, err := r.resolver.Resolve(ctx, ch.ID, now)
	if err != nil {
		return false, err
	}
	metrics.IncResolution(res.Tier.String())

	if len(res.Files) == 0 {
		r.retire(ctx, ch.ID)
		return false, nil
	}

	pos := timeline.CalculatePosition(*ch.ScheduleStartTime, now, res.Files)
	if pos.Media == nil {
		r.retire(ctx, ch.ID)
		return false, nil
	}

	eligible := res.ProgressionEligible && res.BucketID != nil && pos.FileIndex < len(res.Positions)

	r.mu.Lock()
	state := r.states[ch.ID]
	if state == nil {
		state = &playState{mediaID: pos.Media.ID}
		if eligible {
			state.tracked = true
			state.bucketID = *res.BucketID
			state.cursor = res.Positions[pos.FileIndex]
		}
		r.states[ch.ID] = state
		r.mu.Unlock()
		r.logNowPlaying(ch, pos)
		return true, nil
	}

	sameBucket := state.tracked && eligible && state.bucketID == *res.BucketID

	// The tracked bucket stopped being the source: persist what it got to
	// before following the new resolution.
	if state.tracked && !sameBucket {
		r.flushLocked(ctx, ch.ID, state)
		state.tracked = false
		state.lastPlayed = nil
	}

	changed := state.mediaID != pos.Media.ID
	previous := state.mediaID
	state.mediaID = pos.Media.ID

	switch {
	case sameBucket:
		if changed {
			prev := previous
			state.cursor = res.Positions[pos.FileIndex]
			state.lastPlayed = &prev
		}
	case eligible:
		state.tracked = true
		state.bucketID = *res.BucketID
		state.cursor = res.Positions[pos.FileIndex]
		state.lastPlayed = nil
	}
	r.mu.Unlock()

	if changed {
		r.logNowPlaying(ch, pos)
	}
	return true, nil
}

func (r *Runner) logNowPlaying(ch *models.Channel, pos *timeline.Position) {
	r.log.Info().
		Str("channel_id", ch.ID.String()).
		Str("channel_name", ch.Name).
		Str("media_id", pos.Media.ID.String()).
		Str("title", pos.Media.Title).
		Int("file_index", pos.FileIndex).
		Time("ends_at", pos.EndsAt).
		Msg("Now playing")
}

// flushLocked persists the pending resume cursor for a tracked state.
// Callers hold r.mu.
func (r *Runner) flushLocked(ctx context.Context, channelID uuid.UUID, state *playState) {
	if state == nil || !state.tracked {
		return
	}
	err := r.timeline.AdvanceProgression(ctx, channelID, state.bucketID, state.cursor, state.lastPlayed)
	if err != nil {
		r.log.Warn().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("bucket_id", state.bucketID.String()).
			Msg("Failed to persist sequential resume cursor")
		return
	}
	metrics.ProgressionAdvancesTotal.Inc()
}

// retire flushes and forgets a channel's state when it leaves the air.
func (r *Runner) retire(ctx context.Context, channelID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[channelID]
	if !ok {
		return
	}
	r.flushLocked(ctx, channelID, state)
	delete(r.states, channelID)
}

// drop forgets a channel without persisting its cursor.
func (r *Runner) drop(channelID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, channelID)
}

// flushAll persists every pending cursor; called once on shutdown.
func (r *Runner) flushAll() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	for channelID, state := range r.states {
		r.flushLocked(ctx, channelID, state)
		delete(r.states, channelID)
	}
}
