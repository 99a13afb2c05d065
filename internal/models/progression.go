package models

import (
	"time"

	"github.com/google/uuid"
)

// BucketProgression is the resume point for sequential playback of a
// bucket on a channel. CurrentPosition must stay inside [0, |bucket|)
// while the bucket is non-empty; out-of-bounds values are reset to 0 on
// the next resolution. Updates are single-row upserts, last writer wins.
type BucketProgression struct {
	ChannelID         uuid.UUID  `json:"channel_id" gorm:"type:text;primaryKey;column:channel_id" validate:"required"`
	BucketID          uuid.UUID  `json:"bucket_id" gorm:"type:text;primaryKey;column:bucket_id" validate:"required"`
	CurrentPosition   int        `json:"current_position" gorm:"type:integer;not null;default:0;column:current_position" validate:"gte=0"`
	LastPlayedMediaID *uuid.UUID `json:"last_played_media_id,omitempty" gorm:"type:text;column:last_played_media_id"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// TableName maps BucketProgression onto the singular bucket_progression table
func (BucketProgression) TableName() string {
	return "bucket_progression"
}

// NewBucketProgression creates a progression record starting at position 0
func NewBucketProgression(channelID, bucketID uuid.UUID) *BucketProgression {
	return &BucketProgression{
		ChannelID:       channelID,
		BucketID:        bucketID,
		CurrentPosition: 0,
		UpdatedAt:       time.Now().UTC(),
	}
}
