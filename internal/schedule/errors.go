package schedule

import "errors"

// Custom schedule service errors
var (
	// ErrBlockNotFound indicates the requested schedule block does not exist
	ErrBlockNotFound = errors.New("schedule block not found")

	// ErrInvalidTimeOfDay indicates a start or end time is not a valid HH:MM:SS string
	ErrInvalidTimeOfDay = errors.New("invalid time of day, expected HH:MM:SS")

	// ErrInvalidDayOfWeek indicates a day outside the 0 (Sunday) to 6 (Saturday) range
	ErrInvalidDayOfWeek = errors.New("day of week must be between 0 and 6")

	// ErrInvalidPlaybackMode indicates an unsupported playback mode
	ErrInvalidPlaybackMode = errors.New("playback mode must be sequential, shuffle, or random")

	// ErrInvalidBlockName indicates an empty or overlong block name
	ErrInvalidBlockName = errors.New("block name must be between 1 and 255 characters")

	// ErrBucketNotFound indicates the referenced bucket does not exist
	ErrBucketNotFound = errors.New("bucket not found")
)

// IsBlockNotFound checks if the error is a schedule block not found error
func IsBlockNotFound(err error) bool {
	return errors.Is(err, ErrBlockNotFound)
}

// IsInvalidTimeOfDay checks if the error is an invalid time of day error
func IsInvalidTimeOfDay(err error) bool {
	return errors.Is(err, ErrInvalidTimeOfDay)
}

// IsInvalidPlaybackMode checks if the error is an invalid playback mode error
func IsInvalidPlaybackMode(err error) bool {
	return errors.Is(err, ErrInvalidPlaybackMode)
}
