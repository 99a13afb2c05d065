package models

// Playback mode constants for schedule blocks
const (
	PlaybackModeSequential = "sequential"
	PlaybackModeShuffle    = "shuffle"
	PlaybackModeRandom     = "random"
)

// Bucket type constants
const (
	BucketTypeGeneral = "general"
	BucketTypeSeries  = "series"
	BucketTypeMovies  = "movies"
)

// IsValidPlaybackMode reports whether mode is one of the supported playback modes
func IsValidPlaybackMode(mode string) bool {
	switch mode {
	case PlaybackModeSequential, PlaybackModeShuffle, PlaybackModeRandom:
		return true
	}
	return false
}
