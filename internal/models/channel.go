package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents a virtual broadcast channel entity.
// ScheduleStartTime is the timeline anchor: the UTC instant the channel's
// virtual playhead is pinned to. It stays null until the first start event
// and is only cleared or overwritten by explicit administrative calls.
type Channel struct {
	ID                uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	Name              string     `json:"name" gorm:"type:text;not null;uniqueIndex;column:name" validate:"required,min=1,max=255"`
	Number            *int       `json:"number,omitempty" gorm:"type:integer;column:number"`
	Icon              *string    `json:"icon,omitempty" gorm:"type:text;column:icon"`
	ScheduleStartTime *time.Time `json:"schedule_start_time,omitempty" gorm:"type:datetime;column:schedule_start_time"`
	Enabled           bool       `json:"enabled" gorm:"type:integer;not null;default:1;column:enabled"`
	CreatedAt         time.Time  `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewChannel creates a new Channel with generated UUID and timestamps.
// The timeline anchor starts null; it is set by the first start event.
func NewChannel(name string) *Channel {
	now := time.Now().UTC()
	return &Channel{
		ID:        uuid.New(),
		Name:      name,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
