package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DaySet is the set of weekdays a schedule block applies to, 0 = Sunday.
// An empty (or nil) set means "all days". Stored as a JSON array in a
// text column since SQLite has no array type.
type DaySet []int

// AllDays reports whether the set applies to every weekday.
func (d DaySet) AllDays() bool {
	return len(d) == 0
}

// Contains reports whether the set applies on the given weekday.
// An empty set matches every day.
func (d DaySet) Contains(day time.Weekday) bool {
	if d.AllDays() {
		return true
	}
	for _, v := range d {
		if v == int(day) {
			return true
		}
	}
	return false
}

// Validate checks every member is a weekday ordinal.
func (d DaySet) Validate() error {
	for _, v := range d {
		if v < 0 || v > 6 {
			return fmt.Errorf("day of week %d out of range [0,6]", v)
		}
	}
	return nil
}

// Value implements driver.Valuer. Empty sets persist as NULL so "all days"
// survives round trips unambiguously.
func (d DaySet) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]int(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *DaySet) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into DaySet", value)
	}
	if len(raw) == 0 {
		*d = nil
		return nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return fmt.Errorf("malformed day set %q: %w", raw, err)
	}
	*d = days
	return nil
}

// ScheduleBlock represents a weekly recurring time window during which a
// bucket and playback mode apply to a channel. StartTime and EndTime are
// "HH:MM:SS" time-of-day strings; EndTime <= StartTime denotes a block
// that wraps past midnight.
type ScheduleBlock struct {
	ID           uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID    uuid.UUID  `json:"channel_id" gorm:"type:text;not null;index;column:channel_id" validate:"required"`
	Name         string     `json:"name" gorm:"type:text;not null;column:name" validate:"required,min=1,max=255"`
	DaysOfWeek   DaySet     `json:"days_of_week,omitempty" gorm:"type:text;column:days_of_week"`
	StartTime    string     `json:"start_time" gorm:"type:text;not null;column:start_time" validate:"required"`
	EndTime      string     `json:"end_time" gorm:"type:text;not null;column:end_time" validate:"required"`
	BucketID     *uuid.UUID `json:"bucket_id,omitempty" gorm:"type:text;column:bucket_id"`
	PlaybackMode string     `json:"playback_mode" gorm:"type:text;not null;default:sequential;column:playback_mode" validate:"oneof=sequential shuffle random"`
	Priority     int        `json:"priority" gorm:"type:integer;not null;default:0;column:priority"`
	Enabled      bool       `json:"enabled" gorm:"type:integer;not null;default:1;column:enabled"`
	CreatedAt    time.Time  `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewScheduleBlock creates a new ScheduleBlock with generated UUID and timestamps
func NewScheduleBlock(channelID uuid.UUID, name, startTime, endTime, playbackMode string) *ScheduleBlock {
	now := time.Now().UTC()
	return &ScheduleBlock{
		ID:           uuid.New(),
		ChannelID:    channelID,
		Name:         name,
		StartTime:    startTime,
		EndTime:      endTime,
		PlaybackMode: playbackMode,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Wraparound reports whether the block spans midnight. It compares the raw
// strings, which is sound because "HH:MM:SS" compares lexicographically in
// time order.
func (b *ScheduleBlock) Wraparound() bool {
	return b.EndTime <= b.StartTime
}
