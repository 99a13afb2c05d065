// Package guide projects a channel's timeline forward into program guide
// entries. The projection replays exactly what the timeline will compute:
// within a schedule block it walks the resolved playlist, and at each
// block boundary it re-resolves, because the playlist may change there.
package guide

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/schedule"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

const (
	defaultHorizon    = 24 * time.Hour
	defaultMaxEntries = 100
)

// Entry is one upcoming program in the guide. The first entry may start
// before the query instant when something is already mid-play.
type Entry struct {
	MediaID  uuid.UUID `json:"media_id"`
	Title    string    `json:"title"`
	ShowName *string   `json:"show_name,omitempty"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Guide computes upcoming program listings for channels.
type Guide struct {
	repos    *db.Repositories
	resolver playlist.Resolver
	schedule schedule.Resolver
}

// NewGuide creates a guide service.
func NewGuide(repos *db.Repositories, resolver playlist.Resolver, scheduleResolver schedule.Resolver) *Guide {
	return &Guide{
		repos:    repos,
		resolver: resolver,
		schedule: scheduleResolver,
	}
}

// Upcoming projects the channel's timeline from the given instant over the
// horizon, capped at maxEntries. Non-positive horizon and maxEntries fall
// back to defaults. Returns timeline.ErrNotStarted for channels without an
// anchor and channel.ErrChannelNotFound for unknown channels.
func (g *Guide) Upcoming(ctx context.Context, channelID uuid.UUID, from time.Time, horizon time.Duration, maxEntries int) ([]Entry, error) {
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	ch, err := g.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, channel.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to load channel for guide: %w", err)
	}
	if ch.ScheduleStartTime == nil {
		return nil, timeline.ErrNotStarted
	}
	anchor := *ch.ScheduleStartTime

	end := from.Add(horizon)
	entries := make([]Entry, 0, maxEntries)
	cursor := from

	for cursor.Before(end) && len(entries) < maxEntries {
		boundary := end
		next, err := g.schedule.NextTransition(ctx, channelID, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to find schedule transition: %w", err)
		}
		if next != nil && next.Before(end) {
			boundary = *next
		}

		segment, err := g.projectSegment(ctx, channelID, anchor, cursor, boundary, maxEntries-len(entries))
		if err != nil {
			return nil, err
		}
		entries = append(entries, segment...)
		cursor = boundary
	}

	logger.Log.Debug().
		Str("channel_id", channelID.String()).
		Time("from", from).
		Dur("horizon", horizon).
		Int("entries", len(entries)).
		Msg("Guide projection computed")

	return entries, nil
}

// projectSegment walks the playlist that holds between cursor and boundary.
// The playlist loops, so the walk only stops at the boundary or the cap.
func (g *Guide) projectSegment(ctx context.Context, channelID uuid.UUID, anchor, cursor, boundary time.Time, limit int) ([]Entry, error) {
	res, err := g.resolver.Resolve(ctx, channelID, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve playlist for guide: %w", err)
	}
	if len(res.Files) == 0 || res.TotalDuration() == 0 {
		return nil, nil
	}

	pos := timeline.CalculatePosition(anchor, cursor, res.Files)
	if pos.Media == nil {
		return nil, nil
	}

	entries := make([]Entry, 0, limit)
	idx := pos.FileIndex
	startsAt := pos.StartedAt
	for startsAt.Before(boundary) && len(entries) < limit {
		f := res.Files[idx]
		endsAt := startsAt.Add(time.Duration(f.Duration) * time.Second)
		entries = append(entries, Entry{
			MediaID:  f.ID,
			Title:    f.Title,
			ShowName: f.ShowName,
			StartsAt: startsAt,
			EndsAt:   endsAt,
		})
		startsAt = endsAt
		idx = (idx + 1) % len(res.Files)
	}
	return entries, nil
}
