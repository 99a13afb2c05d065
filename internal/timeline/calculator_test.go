package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/rerun/internal/models"
)

// testPlaylist builds media files with the given durations in seconds
func testPlaylist(durations ...int64) []*models.MediaFile {
	files := make([]*models.MediaFile, len(durations))
	for i, d := range durations {
		files[i] = models.NewMediaFile("/media/file.mkv", "File", d)
	}
	return files
}

func TestCalculatePosition_WalksIntoSecondFile(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	files := testPlaylist(30, 60, 10)

	pos := CalculatePosition(anchor, anchor.Add(45*time.Second), files)

	assert.Equal(t, 1, pos.FileIndex)
	assert.Equal(t, int64(15), pos.OffsetSeconds)
	assert.Equal(t, int64(45), pos.ElapsedSeconds)
	require.NotNil(t, pos.Media)
	assert.Equal(t, files[1].ID, pos.Media.ID)
	assert.Equal(t, anchor.Add(30*time.Second), pos.StartedAt)
	assert.Equal(t, anchor.Add(90*time.Second), pos.EndsAt)
}

func TestCalculatePosition_WrapsAtExactCycleBoundary(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	files := testPlaylist(30, 60, 10)

	// Total duration is 100s, so 100s elapsed lands back at the start.
	pos := CalculatePosition(anchor, anchor.Add(100*time.Second), files)

	assert.Equal(t, 0, pos.FileIndex)
	assert.Equal(t, int64(0), pos.OffsetSeconds)
	assert.Equal(t, int64(100), pos.ElapsedSeconds)
}

func TestCalculatePosition_AnchorInFuture(t *testing.T) {
	anchor := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	files := testPlaylist(30, 60)

	pos := CalculatePosition(anchor, anchor.Add(-time.Hour), files)

	assert.Equal(t, 0, pos.FileIndex)
	assert.Equal(t, int64(0), pos.OffsetSeconds)
	assert.Equal(t, int64(0), pos.ElapsedSeconds)
}

func TestCalculatePosition_EmptyPlaylist(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	pos := CalculatePosition(anchor, anchor.Add(500*time.Second), nil)

	assert.Equal(t, 0, pos.FileIndex)
	assert.Equal(t, int64(0), pos.OffsetSeconds)
	assert.Equal(t, int64(500), pos.ElapsedSeconds)
	assert.Nil(t, pos.Media)
}

func TestCalculatePosition_ZeroTotalDuration(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	files := testPlaylist(0, 0)

	pos := CalculatePosition(anchor, anchor.Add(42*time.Second), files)

	assert.Equal(t, 0, pos.FileIndex)
	assert.Equal(t, int64(0), pos.OffsetSeconds)
	assert.Equal(t, int64(42), pos.ElapsedSeconds)
	assert.Nil(t, pos.Media)
}

func TestCalculatePosition_BoundsInvariant(t *testing.T) {
	anchor := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	files := testPlaylist(7, 13, 1, 42, 5)
	total := TotalDuration(files)

	// Every second across several cycles must land inside a valid file
	// with an offset strictly below that file's duration.
	for elapsed := int64(0); elapsed < 3*total; elapsed++ {
		pos := CalculatePosition(anchor, anchor.Add(time.Duration(elapsed)*time.Second), files)

		require.GreaterOrEqual(t, pos.FileIndex, 0)
		require.Less(t, pos.FileIndex, len(files))
		require.GreaterOrEqual(t, pos.OffsetSeconds, int64(0))
		require.Less(t, pos.OffsetSeconds, files[pos.FileIndex].Duration,
			"elapsed=%d", elapsed)
	}
}

func TestCalculatePosition_CycleProperty(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	files := testPlaylist(30, 60, 10)
	total := TotalDuration(files)

	base := CalculatePosition(anchor, anchor.Add(37*time.Second), files)
	for k := int64(1); k <= 4; k++ {
		at := anchor.Add(time.Duration(37+k*total) * time.Second)
		shifted := CalculatePosition(anchor, at, files)
		assert.Equal(t, base.FileIndex, shifted.FileIndex, "k=%d", k)
		assert.Equal(t, base.OffsetSeconds, shifted.OffsetSeconds, "k=%d", k)
	}
}

func TestCalculatePosition_MonotoneWithinCycle(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	files := testPlaylist(30, 60, 10)
	total := TotalDuration(files)

	prevIndex := -1
	prevOffset := int64(-1)
	for elapsed := int64(0); elapsed < total; elapsed++ {
		pos := CalculatePosition(anchor, anchor.Add(time.Duration(elapsed)*time.Second), files)

		// Lexicographic (fileIndex, offset) must strictly increase.
		advanced := pos.FileIndex > prevIndex ||
			(pos.FileIndex == prevIndex && pos.OffsetSeconds > prevOffset)
		require.True(t, advanced, "elapsed=%d", elapsed)

		prevIndex = pos.FileIndex
		prevOffset = pos.OffsetSeconds
	}
}

func TestTotalDuration(t *testing.T) {
	assert.Equal(t, int64(0), TotalDuration(nil))
	assert.Equal(t, int64(100), TotalDuration(testPlaylist(30, 60, 10)))
}
