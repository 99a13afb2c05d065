package timeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/models"
)

// setupTestService creates a service with a test database
func setupTestService(t *testing.T) (*TimelineService, *db.Repositories, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(tmpFile, false)
	require.NoError(t, err)

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)

	migrationsPath := "file://../../migrations"
	err = db.RunMigrations(sqlDB, migrationsPath)
	require.NoError(t, err)

	repos := db.NewRepositories(database)
	service := NewTimelineService(repos)

	cleanup := func() {
		_ = database.Close()
	}

	return service, repos, cleanup
}

func createTestChannel(t *testing.T, repos *db.Repositories, name string) *models.Channel {
	t.Helper()
	ch := models.NewChannel(name)
	require.NoError(t, repos.Channels.Create(context.Background(), ch))
	return ch
}

func TestNewTimelineService(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	assert.NotNil(t, service)
	assert.NotNil(t, service.repos)
}

func TestInitialize_SetsAnchorOnce(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, "Init Channel")

	initialized, err := service.Initialize(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, initialized)

	loaded, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ScheduleStartTime)
	firstAnchor := *loaded.ScheduleStartTime

	// A second initialize must not move the anchor.
	initialized, err = service.Initialize(ctx, ch.ID)
	require.NoError(t, err)
	assert.False(t, initialized)

	loaded, err = repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ScheduleStartTime)
	assert.True(t, firstAnchor.Equal(*loaded.ScheduleStartTime))
}

func TestInitialize_ChannelNotFound(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Initialize(context.Background(), uuid.New())
	assert.ErrorIs(t, err, channel.ErrChannelNotFound)
}

func TestCurrentPosition_NotStarted(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ch := createTestChannel(t, repos, "Unanchored Channel")

	pos, err := service.CurrentPosition(context.Background(), ch.ID, testPlaylist(30), time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Nil(t, pos)
}

func TestCurrentPosition_ChannelNotFound(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	pos, err := service.CurrentPosition(context.Background(), uuid.New(), testPlaylist(30), time.Now().UTC())
	assert.ErrorIs(t, err, channel.ErrChannelNotFound)
	assert.Nil(t, pos)
}

func TestCurrentPosition_UsesStoredAnchor(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, "Anchored Channel")

	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Channels.SetAnchor(ctx, ch.ID, anchor))

	files := testPlaylist(30, 60, 10)
	pos, err := service.CurrentPosition(ctx, ch.ID, files, anchor.Add(45*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, pos.FileIndex)
	assert.Equal(t, int64(15), pos.OffsetSeconds)
}

func TestReset_ClearsAnchorAndProgressions(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, "Reset Channel")

	require.NoError(t, repos.Channels.SetAnchor(ctx, ch.ID, time.Now().UTC()))

	bucket := models.NewMediaBucket("reset-bucket", models.BucketTypeGeneral)
	require.NoError(t, repos.Buckets.Create(ctx, bucket))
	require.NoError(t, service.AdvanceProgression(ctx, ch.ID, bucket.ID, 3, nil))

	require.NoError(t, service.Reset(ctx, ch.ID))

	loaded, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.ScheduleStartTime)

	_, err = repos.Progressions.Get(ctx, ch.ID, bucket.ID)
	assert.True(t, db.IsNotFound(err))
}

func TestSetAnchor_Overwrites(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, "Adjusted Channel")

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, service.SetAnchor(ctx, ch.ID, first))
	require.NoError(t, service.SetAnchor(ctx, ch.ID, second))

	loaded, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ScheduleStartTime)
	assert.True(t, second.Equal(*loaded.ScheduleStartTime))
}

func TestAdvanceProgression_UpsertsAbsolutePosition(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, "Progression Channel")
	bucket := models.NewMediaBucket("progression-bucket", models.BucketTypeSeries)
	require.NoError(t, repos.Buckets.Create(ctx, bucket))

	media := models.NewMediaFile("/media/show-s01e01.mkv", "Episode 1", 1200)
	require.NoError(t, repos.Media.Create(ctx, media))

	require.NoError(t, service.AdvanceProgression(ctx, ch.ID, bucket.ID, 1, &media.ID))

	prog, err := repos.Progressions.Get(ctx, ch.ID, bucket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.CurrentPosition)
	require.NotNil(t, prog.LastPlayedMediaID)
	assert.Equal(t, media.ID, *prog.LastPlayedMediaID)

	// Absolute overwrite, not an increment.
	require.NoError(t, service.AdvanceProgression(ctx, ch.ID, bucket.ID, 4, nil))
	prog, err = repos.Progressions.Get(ctx, ch.ID, bucket.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, prog.CurrentPosition)
}
