package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/config"
	"github.com/stwalsh4118/rerun/internal/guide"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/models"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

// Response DTOs

// ChannelResponse represents a channel in API responses
type ChannelResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Number    *int      `json:"number,omitempty"`
	Icon      *string   `json:"icon,omitempty"`
	OnAir     bool      `json:"on_air"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChannelListResponse represents the channel lineup
type ChannelListResponse struct {
	Channels []*ChannelResponse `json:"channels"`
}

// NowPlayingMedia is the media portion of a now-playing response
type NowPlayingMedia struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ShowName *string `json:"show_name,omitempty"`
	Duration int64   `json:"duration_seconds"`
}

// NowPlayingResponse represents what a channel is playing right now
type NowPlayingResponse struct {
	ChannelID     string          `json:"channel_id"`
	Media         NowPlayingMedia `json:"media"`
	FileIndex     int             `json:"file_index"`
	OffsetSeconds int64           `json:"offset_seconds"`
	StartedAt     time.Time       `json:"started_at"`
	EndsAt        time.Time       `json:"ends_at"`
	Tier          string          `json:"tier"`
}

// GuideResponse represents a channel's upcoming programme listing
type GuideResponse struct {
	ChannelID string        `json:"channel_id"`
	Entries   []guide.Entry `json:"entries"`
}

// ChannelHandler handles the viewer-facing channel queries
type ChannelHandler struct {
	channelService  *channel.ChannelService
	timelineService *timeline.TimelineService
	resolver        playlist.Resolver
	guide           *guide.Guide
	guideCfg        config.GuideConfig
}

// NewChannelHandler creates a new channel handler instance
func NewChannelHandler(channelService *channel.ChannelService, timelineService *timeline.TimelineService, resolver playlist.Resolver, g *guide.Guide, guideCfg config.GuideConfig) *ChannelHandler {
	return &ChannelHandler{
		channelService:  channelService,
		timelineService: timelineService,
		resolver:        resolver,
		guide:           g,
		guideCfg:        guideCfg,
	}
}

// toChannelResponse converts a channel model to API response format. A
// channel is on air once its timeline has been anchored.
func toChannelResponse(ch *models.Channel) *ChannelResponse {
	return &ChannelResponse{
		ID:        ch.ID.String(),
		Name:      ch.Name,
		Number:    ch.Number,
		Icon:      ch.Icon,
		OnAir:     ch.ScheduleStartTime != nil,
		Enabled:   ch.Enabled,
		CreatedAt: ch.CreatedAt,
		UpdatedAt: ch.UpdatedAt,
	}
}

// parseChannelID validates the :id path parameter, writing the error
// response itself when the value is malformed
func parseChannelID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid channel ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

// ListChannels handles GET /api/channels
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	channels, err := h.channelService.List(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list channels")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve channel lineup",
		})
		return
	}

	responses := make([]*ChannelResponse, len(channels))
	for i, ch := range channels {
		responses[i] = toChannelResponse(ch)
	}

	c.JSON(http.StatusOK, ChannelListResponse{
		Channels: responses,
	})
}

// GetChannel handles GET /api/channels/:id
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ch, err := h.channelService.GetByID(ctx, id)
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
			Msg("Failed to get channel by ID")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve channel",
		})
		return
	}

	c.JSON(http.StatusOK, toChannelResponse(ch))
}

// NowPlaying handles GET /api/channels/:id/now
func (h *ChannelHandler) NowPlaying(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	res, err := h.resolver.Resolve(ctx, id, now)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to resolve playlist for now playing")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "resolve_failed",
			Message: "Failed to resolve channel playlist",
		})
		return
	}

	pos, err := h.timelineService.CurrentPosition(ctx, id, res.Files, now)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		if errors.Is(err, timeline.ErrNotStarted) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_started",
				Message: "Channel broadcast has not started",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to compute timeline position")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "position_failed",
			Message: "Failed to compute playback position",
		})
		return
	}

	if pos.Media == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "off_air",
			Message: "Channel has no playable media right now",
		})
		return
	}

	c.JSON(http.StatusOK, NowPlayingResponse{
		ChannelID: id.String(),
		Media: NowPlayingMedia{
			ID:       pos.Media.ID.String(),
			Title:    pos.Media.Title,
			ShowName: pos.Media.ShowName,
			Duration: pos.Media.Duration,
		},
		FileIndex:     pos.FileIndex,
		OffsetSeconds: pos.OffsetSeconds,
		StartedAt:     pos.StartedAt,
		EndsAt:        pos.EndsAt,
		Tier:          res.Tier.String(),
	})
}

// GetGuide handles GET /api/channels/:id/guide?hours=N
func (h *ChannelHandler) GetGuide(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	horizon := h.guideCfg.Horizon
	if hoursStr := c.Query("hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours < 1 || hours > 168 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_hours",
				Message: "hours must be an integer between 1 and 168",
			})
			return
		}
		horizon = time.Duration(hours) * time.Hour
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	entries, err := h.guide.Upcoming(ctx, id, time.Now().UTC(), horizon, h.guideCfg.MaxEntries)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		if errors.Is(err, timeline.ErrNotStarted) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_started",
				Message: "Channel broadcast has not started",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to compute guide")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "guide_failed",
			Message: "Failed to compute programme guide",
		})
		return
	}

	c.JSON(http.StatusOK, GuideResponse{
		ChannelID: id.String(),
		Entries:   entries,
	})
}

// SetupChannelRoutes registers the viewer-facing channel query routes
func SetupChannelRoutes(apiGroup *gin.RouterGroup, handler *ChannelHandler) {
	apiGroup.GET("/channels", handler.ListChannels)
	apiGroup.GET("/channels/:id", handler.GetChannel)
	apiGroup.GET("/channels/:id/now", handler.NowPlaying)
	apiGroup.GET("/channels/:id/guide", handler.GetGuide)
}
