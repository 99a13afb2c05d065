package guide

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/models"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/schedule"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

// setupTestGuide creates a guide backed by a test database
func setupTestGuide(t *testing.T) (*Guide, *db.Repositories, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(tmpFile, false)
	require.NoError(t, err)

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)

	migrationsPath := "file://../../migrations"
	err = db.RunMigrations(sqlDB, migrationsPath)
	require.NoError(t, err)

	repos := db.NewRepositories(database)
	scheduleResolver := schedule.NewBlockResolver(repos, time.UTC)
	resolver := playlist.NewCascadeResolver(repos, scheduleResolver, time.UTC)
	g := NewGuide(repos, resolver, scheduleResolver)

	cleanup := func() {
		_ = database.Close()
	}

	return g, repos, cleanup
}

func createAnchoredChannel(t *testing.T, repos *db.Repositories, name string, anchor time.Time) *models.Channel {
	t.Helper()
	ctx := context.Background()
	ch := models.NewChannel(name)
	require.NoError(t, repos.Channels.Create(ctx, ch))
	require.NoError(t, repos.Channels.SetAnchor(ctx, ch.ID, anchor))
	ch.ScheduleStartTime = &anchor
	return ch
}

// createShowBucket inserts a bucket of same-duration episodes of one show
func createShowBucket(t *testing.T, repos *db.Repositories, name, show string, episodes int, duration int64) (*models.MediaBucket, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	bucket := models.NewMediaBucket(name, models.BucketTypeSeries)
	require.NoError(t, repos.Buckets.Create(ctx, bucket))

	ids := make([]uuid.UUID, episodes)
	for i := 0; i < episodes; i++ {
		media := models.NewMediaFile(
			fmt.Sprintf("/media/%s/e%02d.mkv", name, i+1),
			fmt.Sprintf("%s E%02d", show, i+1),
			duration,
		)
		s := show
		media.ShowName = &s
		require.NoError(t, repos.Media.Create(ctx, media))
		ids[i] = media.ID
	}
	require.NoError(t, repos.Buckets.ReplaceMembers(ctx, bucket.ID, ids))
	return bucket, ids
}

func createBlock(t *testing.T, repos *db.Repositories, channelID uuid.UUID, name, start, end string, bucketID uuid.UUID) *models.ScheduleBlock {
	t.Helper()
	block := models.NewScheduleBlock(channelID, name, start, end, models.PlaybackModeSequential)
	block.BucketID = &bucketID
	require.NoError(t, repos.Blocks.Create(context.Background(), block))
	return block
}

var base = time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC)

func TestUpcoming_ContiguousEntriesWithinOneBlock(t *testing.T) {
	g, repos, cleanup := setupTestGuide(t)
	defer cleanup()

	// Anchored 90 seconds ago over three minute-long episodes: the second
	// episode is 30 seconds in right now.
	ch := createAnchoredChannel(t, repos, "Continuous", base.Add(-90*time.Second))
	bucket, ids := createShowBucket(t, repos, "continuous-bucket", "Show X", 3, 60)
	createBlock(t, repos, ch.ID, "All Day", "00:00:00", "24:00:00", bucket.ID)

	entries, err := g.Upcoming(context.Background(), ch.ID, base, 10*time.Minute, 5)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// The first entry is mid-play and starts before the query instant.
	assert.Equal(t, ids[1], entries[0].MediaID)
	assert.Equal(t, base.Add(-30*time.Second), entries[0].StartsAt)
	assert.Equal(t, base.Add(30*time.Second), entries[0].EndsAt)

	// The playlist loops: 1, 2, 0, 1, 2.
	assert.Equal(t, ids[2], entries[1].MediaID)
	assert.Equal(t, ids[0], entries[2].MediaID)
	assert.Equal(t, ids[1], entries[3].MediaID)
	assert.Equal(t, ids[2], entries[4].MediaID)

	// Entries are contiguous.
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].EndsAt, entries[i].StartsAt)
	}

	require.NotNil(t, entries[0].ShowName)
	assert.Equal(t, "Show X", *entries[0].ShowName)
}

func TestUpcoming_ReResolvesAtBlockBoundary(t *testing.T) {
	g, repos, cleanup := setupTestGuide(t)
	defer cleanup()

	day := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	ch := createAnchoredChannel(t, repos, "Two Blocks", day.Add(11*time.Hour))

	bucketA, idsA := createShowBucket(t, repos, "morning-bucket", "Morning Show", 3, 600)
	bucketB, idsB := createShowBucket(t, repos, "afternoon-bucket", "Afternoon Show", 2, 600)
	createBlock(t, repos, ch.ID, "Morning", "00:00:00", "12:00:00", bucketA.ID)
	createBlock(t, repos, ch.ID, "Afternoon", "12:00:00", "24:00:00", bucketB.ID)

	from := day.Add(11*time.Hour + 58*time.Minute)
	entries, err := g.Upcoming(context.Background(), ch.ID, from, 30*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	noon := day.Add(12 * time.Hour)

	// Before noon the morning bucket plays; its last episode runs out
	// exactly at the boundary.
	assert.Equal(t, idsA[2], entries[0].MediaID)
	assert.Equal(t, noon, entries[0].EndsAt)

	// At noon the guide re-resolves and the afternoon bucket takes over.
	assert.Equal(t, idsB[0], entries[1].MediaID)
	assert.Equal(t, noon, entries[1].StartsAt)
	assert.Equal(t, idsB[1], entries[2].MediaID)
	assert.Equal(t, idsB[0], entries[3].MediaID)
}

func TestUpcoming_CapsAtMaxEntries(t *testing.T) {
	g, repos, cleanup := setupTestGuide(t)
	defer cleanup()

	ch := createAnchoredChannel(t, repos, "Capped", base.Add(-time.Hour))
	bucket, _ := createShowBucket(t, repos, "capped-bucket", "Show X", 2, 30)
	createBlock(t, repos, ch.ID, "All Day", "00:00:00", "24:00:00", bucket.ID)

	entries, err := g.Upcoming(context.Background(), ch.ID, base, 24*time.Hour, 7)
	require.NoError(t, err)
	assert.Len(t, entries, 7)
}

func TestUpcoming_EmptyPlaylist(t *testing.T) {
	g, repos, cleanup := setupTestGuide(t)
	defer cleanup()

	ch := createAnchoredChannel(t, repos, "Silent", base.Add(-time.Hour))

	entries, err := g.Upcoming(context.Background(), ch.ID, base, time.Hour, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpcoming_NotStarted(t *testing.T) {
	g, repos, cleanup := setupTestGuide(t)
	defer cleanup()

	ch := models.NewChannel("Unanchored")
	require.NoError(t, repos.Channels.Create(context.Background(), ch))

	_, err := g.Upcoming(context.Background(), ch.ID, base, time.Hour, 10)
	assert.ErrorIs(t, err, timeline.ErrNotStarted)
}

func TestUpcoming_ChannelNotFound(t *testing.T) {
	g, _, cleanup := setupTestGuide(t)
	defer cleanup()

	_, err := g.Upcoming(context.Background(), uuid.New(), base, time.Hour, 10)
	assert.ErrorIs(t, err, channel.ErrChannelNotFound)
}
