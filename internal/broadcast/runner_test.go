package broadcast

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/models"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/schedule"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

// setupTestRunner creates a runner backed by a test database
func setupTestRunner(t *testing.T, interval time.Duration) (*Runner, *db.Repositories, func()) {
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
	runner := NewRunner(repos, resolver, timeline.NewTimelineService(repos), interval)

	cleanup := func() {
		_ = database.Close()
	}

	return runner, repos, cleanup
}

// createShowBucket inserts a single-show bucket of minute-long episodes
func createShowBucket(t *testing.T, repos *db.Repositories, name, show string, episodes int) (*models.MediaBucket, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	bucket := models.NewMediaBucket(name, models.BucketTypeSeries)
	require.NoError(t, repos.Buckets.Create(ctx, bucket))

	ids := make([]uuid.UUID, episodes)
	for i := 0; i < episodes; i++ {
		media := models.NewMediaFile(
			fmt.Sprintf("/media/%s/e%02d.mkv", name, i+1),
			fmt.Sprintf("%s E%02d", show, i+1),
			60,
		)
		media.ShowName = &show
		require.NoError(t, repos.Media.Create(ctx, media))
		ids[i] = media.ID
	}
	require.NoError(t, repos.Buckets.ReplaceMembers(ctx, bucket.ID, ids))

	return bucket, ids
}

// setupBroadcastChannel creates an anchored channel with one sequential
// all-day block over a single-show bucket of minute-long episodes.
func setupBroadcastChannel(t *testing.T, repos *db.Repositories, anchor time.Time, episodes int) (*models.Channel, *models.MediaBucket, *models.ScheduleBlock, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	ch := models.NewChannel(fmt.Sprintf("Broadcast %s", uuid.NewString()[:8]))
	require.NoError(t, repos.Channels.Create(ctx, ch))
	require.NoError(t, repos.Channels.SetAnchor(ctx, ch.ID, anchor))
	ch.ScheduleStartTime = &anchor

	bucket, ids := createShowBucket(t, repos, fmt.Sprintf("broadcast-bucket-%s", uuid.NewString()[:8]), "Show X", episodes)

	block := models.NewScheduleBlock(ch.ID, "All Day", "00:00:00", "24:00:00", models.PlaybackModeSequential)
	block.BucketID = &bucket.ID
	require.NoError(t, repos.Blocks.Create(ctx, block))

	return ch, bucket, block, ids
}

func (r *Runner) playing(channelID uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[channelID]
	if !ok {
		return uuid.Nil, false
	}
	return state.mediaID, true
}

func TestTick_SkipsUnstartedChannels(t *testing.T) {
	runner, repos, cleanup := setupTestRunner(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	ch := models.NewChannel("Not Started")
	require.NoError(t, repos.Channels.Create(ctx, ch))

	runner.tick(ctx, time.Now().UTC())

	_, ok := runner.playing(ch.ID)
	assert.False(t, ok)
}

func TestTick_TracksNowPlaying(t *testing.T) {
	runner, repos, cleanup := setupTestRunner(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	ch, bucket, _, ids := setupBroadcastChannel(t, repos, now.Add(-30*time.Second), 3)

	// 30 seconds in: the first episode is on air.
	runner.tick(ctx, now)

	playing, ok := runner.playing(ch.ID)
	require.True(t, ok)
	assert.Equal(t, ids[0], playing)

	// The cursor lives in memory while the bucket is on air.
	_, err := repos.Progressions.Get(ctx, ch.ID, bucket.ID)
	assert.True(t, db.IsNotFound(err))

	// Same instant again: no change.
	runner.tick(ctx, now)
	playing, _ = runner.playing(ch.ID)
	assert.Equal(t, ids[0], playing)
}

// Crossing a file boundary must not disturb the playlist that position
// computations run against: the on-air episode stays on air for its full
// duration and the stored cursor stays untouched while the bucket remains
// the channel's source.
func TestTick_BoundaryCrossingKeepsPlayheadStable(t *testing.T) {
	runner, repos, cleanup := setupTestRunner(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	ch, bucket, _, ids := setupBroadcastChannel(t, repos, now.Add(-30*time.Second), 3)

	runner.tick(ctx, now)

	// 70 seconds of elapsed time: the playhead crossed into episode two,
	// which holds the air until the 120 second mark.
	runner.tick(ctx, now.Add(40*time.Second))
	playing, ok := runner.playing(ch.ID)
	require.True(t, ok)
	assert.Equal(t, ids[1], playing)

	for _, offset := range []time.Duration{50, 60, 70, 80} {
		runner.tick(ctx, now.Add(offset*time.Second))

		playing, ok := runner.playing(ch.ID)
		require.True(t, ok)
		assert.Equal(t, ids[1], playing, "episode two left the air at elapsed %v", offset+30*time.Second)

		// No cursor write, so every Resolve sees the same list.
		_, err := repos.Progressions.Get(ctx, ch.ID, bucket.ID)
		assert.True(t, db.IsNotFound(err))

		res, err := runner.resolver.Resolve(ctx, ch.ID, now.Add(offset*time.Second))
		require.NoError(t, err)
		got := make([]uuid.UUID, len(res.Files))
		for i, f := range res.Files {
			got[i] = f.ID
		}
		assert.Equal(t, ids, got)
	}

	// 130 seconds in: episode three, still nothing persisted.
	runner.tick(ctx, now.Add(100*time.Second))
	playing, _ = runner.playing(ch.ID)
	assert.Equal(t, ids[2], playing)

	_, err := repos.Progressions.Get(ctx, ch.ID, bucket.ID)
	assert.True(t, db.IsNotFound(err))
}

// When a block transition swaps the source bucket, the cursor the old
// bucket accumulated is persisted so the show resumes there next time.
func TestTick_FlushesCursorWhenSourceBucketChanges(t *testing.T) {
	runner, repos, cleanup := setupTestRunner(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	ch, bucketA, blockA, idsA := setupBroadcastChannel(t, repos, now.Add(-30*time.Second), 3)

	blockA.Priority = 10
	require.NoError(t, repos.Blocks.Update(ctx, blockA))

	bucketB, idsB := createShowBucket(t, repos, "standby-bucket", "Show Y", 3)
	blockB := models.NewScheduleBlock(ch.ID, "Standby", "00:00:00", "24:00:00", models.PlaybackModeSequential)
	blockB.BucketID = &bucketB.ID
	require.NoError(t, repos.Blocks.Create(ctx, blockB))

	// Show X airs: episode one, then episode two at the 60 second mark.
	runner.tick(ctx, now)
	runner.tick(ctx, now.Add(40*time.Second))

	playing, ok := runner.playing(ch.ID)
	require.True(t, ok)
	assert.Equal(t, idsA[1], playing)

	// Take the first block off the schedule; the standby block wins the
	// next resolution.
	require.NoError(t, repos.Blocks.SetEnabled(ctx, blockA.ID, false))
	runner.tick(ctx, now.Add(50*time.Second))

	// 80 seconds of elapsed time into Show Y's three episodes.
	playing, ok = runner.playing(ch.ID)
	require.True(t, ok)
	assert.Equal(t, idsB[1], playing)

	// Show X's resume point was written as the bucket changed hands.
	prog, err := repos.Progressions.Get(ctx, ch.ID, bucketA.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.CurrentPosition)
	require.NotNil(t, prog.LastPlayedMediaID)
	assert.Equal(t, idsA[0], *prog.LastPlayedMediaID)

	// Show Y's cursor is still in flight.
	_, err = repos.Progressions.Get(ctx, ch.ID, bucketB.ID)
	assert.True(t, db.IsNotFound(err))
}

// Disabling a channel mid-airing persists its pending cursor.
func TestTick_DisablingChannelFlushesCursor(t *testing.T) {
	runner, repos, cleanup := setupTestRunner(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	ch, bucket, _, ids := setupBroadcastChannel(t, repos, now.Add(-30*time.Second), 3)

	runner.tick(ctx, now)
	runner.tick(ctx, now.Add(40*time.Second))

	ch.Enabled = false
	require.NoError(t, repos.Channels.Update(ctx, ch))
	runner.tick(ctx, now.Add(50*time.Second))

	_, ok := runner.playing(ch.ID)
	assert.False(t, ok)

	prog, err := repos.Progressions.Get(ctx, ch.ID, bucket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.CurrentPosition)
	require.NotNil(t, prog.LastPlayedMediaID)
	assert.Equal(t, ids[0], *prog.LastPlayedMediaID)
}

// A timeline reset deletes the channel's progressions; the runner must not
// write its stale in-memory cursor back afterwards.
func TestTick_ResetDiscardsPendingCursor(t *testing.T) {
	runner, repos, cleanup := setupTestRunner(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	ch, bucket, _, _ := setupBroadcastChannel(t, repos, now.Add(-30*time.Second), 3)

	runner.tick(ctx, now)
	runner.tick(ctx, now.Add(40*time.Second))

	require.NoError(t, runner.timeline.Reset(ctx, ch.ID))
	runner.tick(ctx, now.Add(50*time.Second))

	_, ok := runner.playing(ch.ID)
	assert.False(t, ok)

	_, err := repos.Progressions.Get(ctx, ch.ID, bucket.ID)
	assert.True(t, db.IsNotFound(err))
}

func TestTick_EmptyPlaylistIsOffAir(t *testing.T) {
	runner, repos, cleanup := setupTestRunner(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	ch := models.NewChannel("Anchored But Empty")
	require.NoError(t, repos.Channels.Create(ctx, ch))
	require.NoError(t, repos.Channels.SetAnchor(ctx, ch.ID, now.Add(-time.Hour)))

	runner.tick(ctx, now)

	_, ok := runner.playing(ch.ID)
	assert.False(t, ok)
}

// Shutdown persists the cursors the runner was still carrying.
func TestRun_FlushesCursorOnShutdown(t *testing.T) {
	runner, repos, cleanup := setupTestRunner(t, 20*time.Millisecond)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	// 90 seconds in: episode two is on air from the first sighting.
	ch, bucket, _, ids := setupBroadcastChannel(t, repos, now.Add(-90*time.Second), 3)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(runCtx)
	}()

	require.Eventually(t, func() bool {
		playing, ok := runner.playing(ch.ID)
		return ok && playing == ids[1]
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	prog, err := repos.Progressions.Get(ctx, ch.ID, bucket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.CurrentPosition)
	assert.Nil(t, prog.LastPlayedMediaID)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	runner, _, cleanup := setupTestRunner(t, time.Second)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after context cancellation")
	}
}
