package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Eyevinn/hls-m3u8/m3u8"
	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

const m3u8ContentType = "application/vnd.apple.mpegurl"

// FeedHandler serves channel playlists as HLS media playlists. Each entry
// is a whole media file; players seek within the first entry using the
// offset header to land on the live position.
type FeedHandler struct {
	timelineService *timeline.TimelineService
	resolver        playlist.Resolver
}

// NewFeedHandler creates a new feed handler instance
func NewFeedHandler(timelineService *timeline.TimelineService, resolver playlist.Resolver) *FeedHandler {
	return &FeedHandler{
		timelineService: timelineService,
		resolver:        resolver,
	}
}

// GetFeed handles GET /api/channels/:id/feed.m3u8. The first request for a
// channel anchors its timeline; after that the feed always reflects the
// channel's live position.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	initialized, err := h.timelineService.Initialize(ctx, id)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to initialize timeline for feed")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "initialize_failed",
			Message: "Failed to initialize channel timeline",
		})
		return
	}
	if initialized {
		logger.Log.Info().
			Str("channel_id", id.String()).
			Msg("Channel timeline anchored by first feed request")
	}

	now := time.Now().UTC()
	res, err := h.resolver.Resolve(ctx, id, now)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to resolve playlist for feed")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "resolve_failed",
			Message: "Failed to resolve channel playlist",
		})
		return
	}
	if len(res.Files) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "off_air",
			Message: "Channel has no playable media right now",
		})
		return
	}

	pos, err := h.timelineService.CurrentPosition(ctx, id, res.Files, now)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to compute position for feed")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "position_failed",
			Message: "Failed to compute playback position",
		})
		return
	}

	body, err := h.encodePlaylist(res, pos)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to encode feed playlist")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "encode_failed",
			Message: "Failed to encode playlist",
		})
		return
	}

	c.Header("X-Playback-Offset-Seconds", strconv.FormatInt(pos.OffsetSeconds, 10))
	c.Data(http.StatusOK, m3u8ContentType, body)
}

// encodePlaylist renders the resolved files as a finite media playlist,
// rotated so the currently playing file comes first. Every entry is an
// independent video, so each boundary carries a discontinuity tag.
func (h *FeedHandler) encodePlaylist(res *playlist.Resolution, pos *timeline.Position) ([]byte, error) {
	n := len(res.Files)
	pl, err := m3u8.NewMediaPlaylist(0, uint(n))
	if err != nil {
		return nil, err
	}

	var maxDuration float64
	startsAt := pos.StartedAt
	for i := 0; i < n; i++ {
		f := res.Files[(pos.FileIndex+i)%n]
		duration := float64(f.Duration)
		if duration > maxDuration {
			maxDuration = duration
		}

		seg := &m3u8.MediaSegment{
			SeqId:           uint64(i),
			URI:             f.Path,
			Duration:        duration,
			Title:           f.Title,
			Discontinuity:   i > 0,
			ProgramDateTime: startsAt,
		}
		if err := pl.AppendSegment(seg); err != nil {
			return nil, err
		}
		startsAt = startsAt.Add(time.Duration(f.Duration) * time.Second)
	}

	pl.TargetDuration = uint(math.Ceil(maxDuration))

	// Close marks the playlist finished, which appends the end tag.
	pl.Close()

	buf := pl.Encode()
	if buf == nil {
		return nil, errors.New("playlist encoding produced no output")
	}
	return buf.Bytes(), nil
}

// SetupFeedRoutes registers the HLS feed route
func SetupFeedRoutes(apiGroup *gin.RouterGroup, timelineService *timeline.TimelineService, resolver playlist.Resolver) {
	handler := NewFeedHandler(timelineService, resolver)
	apiGroup.GET("/channels/:id/feed.m3u8", handler.GetFeed)
}
