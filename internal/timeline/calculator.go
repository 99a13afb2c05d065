// Package timeline maintains each channel's virtual playhead: which file
// is on air and how far into it playback sits, derived purely from the
// channel's anchor instant and its materialized playlist. Nothing about
// in-flight playback is stored, so restarts and viewer churn never shift
// the timeline.
package timeline

import (
	"time"

	"github.com/stwalsh4118/rerun/internal/models"
)

// CalculatePosition maps an instant onto a playlist given the channel's
// anchor. It is a pure function with no I/O and never fails: an anchor in
// the future clamps elapsed time to zero, and an empty or zero-duration
// playlist yields index 0 at offset 0. The playlist loops indefinitely,
// so elapsed time wraps modulo the total duration.
//
// The result only means anything if files is the same ordered list the
// previous computation used; the playlist resolver guarantees that by
// being deterministic for a given (channel, instant).
//
// O(n) over the playlist length.
func CalculatePosition(anchor, at time.Time, files []*models.MediaFile) *Position {
	elapsed := int64(at.Sub(anchor).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	var total int64
	for _, f := range files {
		total += f.Duration
	}

	if len(files) == 0 || total == 0 {
		return &Position{
			FileIndex:      0,
			OffsetSeconds:  0,
			ElapsedSeconds: elapsed,
		}
	}

	normalized := elapsed % total

	var accumulated int64
	for i, f := range files {
		if normalized < accumulated+f.Duration {
			offset := normalized - accumulated
			startedAt := at.Add(-time.Duration(offset) * time.Second)
			return &Position{
				FileIndex:      i,
				OffsetSeconds:  offset,
				ElapsedSeconds: elapsed,
				Media:          f,
				StartedAt:      startedAt,
				EndsAt:         startedAt.Add(time.Duration(f.Duration) * time.Second),
			}
		}
		accumulated += f.Duration
	}

	// Unreachable: normalized < total and the loop covers [0, total).
	last := files[len(files)-1]
	return &Position{
		FileIndex:      len(files) - 1,
		OffsetSeconds:  last.Duration - 1,
		ElapsedSeconds: elapsed,
		Media:          last,
		StartedAt:      at.Add(-time.Duration(last.Duration-1) * time.Second),
		EndsAt:         at.Add(time.Second),
	}
}

// TotalDuration sums the playlist's file durations in seconds
func TotalDuration(files []*models.MediaFile) int64 {
	var total int64
	for _, f := range files {
		total += f.Duration
	}
	return total
}
