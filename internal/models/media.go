package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MediaFile represents a media file catalog entry. Records are written by
// an external library scanner; the core reads id, duration, file_exists,
// and show_name.
type MediaFile struct {
	ID         uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	Path       string    `json:"path" gorm:"type:text;not null;uniqueIndex;column:path" validate:"required"`
	Title      string    `json:"title" gorm:"type:text;not null;column:title" validate:"required"`
	ShowName   *string   `json:"show_name,omitempty" gorm:"type:text;column:show_name"`
	Season     *int      `json:"season,omitempty" gorm:"type:integer;column:season"`
	Episode    *int      `json:"episode,omitempty" gorm:"type:integer;column:episode"`
	Duration   int64     `json:"duration" gorm:"type:integer;not null;column:duration" validate:"gte=0"` // seconds
	FileExists bool      `json:"file_exists" gorm:"type:integer;not null;default:1;column:file_exists"`
	CreatedAt  time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewMediaFile creates a new MediaFile with generated UUID and timestamps
func NewMediaFile(path, title string, duration int64) *MediaFile {
	now := time.Now().UTC()
	return &MediaFile{
		ID:         uuid.New(),
		Path:       path,
		Title:      title,
		Duration:   duration,
		FileExists: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// DurationString returns duration in HH:MM:SS format
func (m *MediaFile) DurationString() string {
	hours := m.Duration / 3600
	minutes := (m.Duration % 3600) / 60
	seconds := m.Duration % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
