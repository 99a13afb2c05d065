package timeline

import (
	"time"

	"github.com/stwalsh4118/rerun/internal/models"
)

// Position describes where a channel's virtual playhead sits within a
// materialized playlist at a given instant.
type Position struct {
	// FileIndex is the index of the currently playing file in the playlist
	FileIndex int `json:"file_index"`

	// OffsetSeconds is the playback offset within the current file
	OffsetSeconds int64 `json:"offset_seconds"`

	// ElapsedSeconds is the total time since the channel's anchor, before
	// wrapping around the playlist duration
	ElapsedSeconds int64 `json:"elapsed_seconds"`

	// Media is the catalog record for the current file. Nil when the
	// playlist is empty or has zero total duration.
	Media *models.MediaFile `json:"media,omitempty"`

	// StartedAt is when the current file began playing
	StartedAt time.Time `json:"started_at"`

	// EndsAt is when the current file finishes playing
	EndsAt time.Time `json:"ends_at"`
}
