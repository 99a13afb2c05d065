package playlist

import (
	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/models"
)

// Tier identifies which step of the resolution cascade produced a playlist
type Tier int

const (
	// TierNone means no tier produced media; the playlist is empty
	TierNone Tier = iota
	// TierActiveBlock is the primary path: the active block's own bucket
	TierActiveBlock
	// TierOtherBlocks unions the other enabled blocks' buckets when the
	// active block has no usable bucket
	TierOtherBlocks
	// TierAllBlocks unions every enabled block's bucket when nothing is
	// currently scheduled
	TierAllBlocks
	// TierChannelAttached falls back to buckets attached directly to the
	// channel
	TierChannelAttached
)

// String returns a log-friendly tier name
func (t Tier) String() string {
	switch t {
	case TierActiveBlock:
		return "active_block"
	case TierOtherBlocks:
		return "other_blocks"
	case TierAllBlocks:
		return "all_blocks"
	case TierChannelAttached:
		return "channel_attached"
	default:
		return "none"
	}
}

// Fallback reports whether the tier is one of the degraded paths
func (t Tier) Fallback() bool {
	return t == TierOtherBlocks || t == TierAllBlocks || t == TierChannelAttached
}

// Resolution is the materialized playlist for a channel at an instant.
// Files is ordered and contains only catalogued, existing media; it may be
// empty, which is a valid "nothing scheduled" answer rather than an error.
type Resolution struct {
	// Files is the ordered playable list
	Files []*models.MediaFile

	// Positions holds, for sequential active-block resolutions, the bucket
	// ordinal of each file, parallel to Files. Progression advancement maps
	// a finished file index back to its bucket position through this.
	// Nil for every other mode and tier.
	Positions []int

	// Tier names the cascade step that produced Files
	Tier Tier

	// Block is the active schedule block, if any (set even when a
	// fallback tier produced the media)
	Block *models.ScheduleBlock

	// BucketID is the bucket the playlist came from when Tier is
	// TierActiveBlock; nil for union tiers
	BucketID *uuid.UUID

	// BucketLen is the member count of the source bucket before
	// materialization dropped anything; the modulus for progression
	// arithmetic. Zero for union tiers.
	BucketLen int

	// ProgressionEligible is true when the resolution came from a
	// sequential single-series bucket, meaning file-boundary advancement
	// should write progression
	ProgressionEligible bool
}

// TotalDuration sums the playlist's file durations in seconds
func (r *Resolution) TotalDuration() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Duration
	}
	return total
}
