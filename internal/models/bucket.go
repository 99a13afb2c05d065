package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaBucket represents a named, ordered collection of media files
type MediaBucket struct {
	ID          uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	Name        string    `json:"name" gorm:"type:text;not null;uniqueIndex;column:name" validate:"required,min=1,max=255"`
	BucketType  string    `json:"bucket_type" gorm:"type:text;not null;default:general;column:bucket_type"`
	Description *string   `json:"description,omitempty" gorm:"type:text;column:description"`
	CreatedAt   time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewMediaBucket creates a new MediaBucket with generated UUID and timestamps
func NewMediaBucket(name, bucketType string) *MediaBucket {
	now := time.Now().UTC()
	return &MediaBucket{
		ID:         uuid.New(),
		Name:       name,
		BucketType: bucketType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// BucketMember represents one positioned media file inside a bucket.
// The bucket owns its members; positions within a bucket are unique and
// rewritten atomically on reorder.
type BucketMember struct {
	BucketID    uuid.UUID `json:"bucket_id" gorm:"type:text;primaryKey;column:bucket_id" validate:"required"`
	Position    int       `json:"position" gorm:"type:integer;primaryKey;column:position" validate:"gte=0"`
	MediaFileID uuid.UUID `json:"media_file_id" gorm:"type:text;not null;column:media_file_id" validate:"required"`
	CreatedAt   time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`

	// Populated by joins, not stored in database
	MediaFile *MediaFile `json:"media_file,omitempty" gorm:"-"`
}

// TableName maps BucketMember onto the bucket_media join table
func (BucketMember) TableName() string {
	return "bucket_media"
}

// NewBucketMember creates a new BucketMember with timestamp
func NewBucketMember(bucketID, mediaFileID uuid.UUID, position int) *BucketMember {
	return &BucketMember{
		BucketID:    bucketID,
		MediaFileID: mediaFileID,
		Position:    position,
		CreatedAt:   time.Now().UTC(),
	}
}

// ChannelBucket attaches a bucket directly to a channel. This is the
// legacy association used as the last playlist fallback when no schedule
// block yields media.
type ChannelBucket struct {
	ChannelID uuid.UUID `json:"channel_id" gorm:"type:text;primaryKey;column:channel_id" validate:"required"`
	BucketID  uuid.UUID `json:"bucket_id" gorm:"type:text;primaryKey;column:bucket_id" validate:"required"`
	Priority  int       `json:"priority" gorm:"type:integer;not null;default:0;column:priority"`
	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
}

// NewChannelBucket creates a new ChannelBucket with timestamp
func NewChannelBucket(channelID, bucketID uuid.UUID, priority int) *ChannelBucket {
	return &ChannelBucket{
		ChannelID: channelID,
		BucketID:  bucketID,
		Priority:  priority,
		CreatedAt: time.Now().UTC(),
	}
}
