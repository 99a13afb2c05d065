package channel

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/models"
)

// setupTestService creates a service with a test database
func setupTestService(t *testing.T) (*ChannelService, *db.Repositories, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(tmpFile, false)
	require.NoError(t, err)

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)

	migrationsPath := "file://../../migrations"
	err = db.RunMigrations(sqlDB, migrationsPath)
	require.NoError(t, err)

	repos := db.NewRepositories(database)
	service := NewChannelService(repos)

	cleanup := func() {
		_ = database.Close()
	}

	return service, repos, cleanup
}

func TestNewChannelService(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	assert.NotNil(t, service)
	assert.NotNil(t, service.repos)
}

func TestCreateChannel_Success(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	number := 7
	ch, err := service.CreateChannel(context.Background(), "Cartoon Channel", &number, nil)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ch.ID)
	assert.Equal(t, "Cartoon Channel", ch.Name)
	require.NotNil(t, ch.Number)
	assert.Equal(t, 7, *ch.Number)
	assert.Nil(t, ch.ScheduleStartTime, "new channels must start unanchored")
}

func TestCreateChannel_EmptyName(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateChannel(context.Background(), "   ", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidChannelName)
}

func TestCreateChannel_DuplicateName(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	_, err := service.CreateChannel(ctx, "Movies", nil, nil)
	require.NoError(t, err)

	_, err = service.CreateChannel(ctx, "movies", nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateChannelName)
}

func TestGetByID_NotFound(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestUpdateChannel_RenameAndConflict(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	first, err := service.CreateChannel(ctx, "First", nil, nil)
	require.NoError(t, err)
	_, err = service.CreateChannel(ctx, "Second", nil, nil)
	require.NoError(t, err)

	first.Name = "Renamed"
	require.NoError(t, service.UpdateChannel(ctx, first))

	loaded, err := service.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)

	loaded.Name = "second"
	err = service.UpdateChannel(ctx, loaded)
	assert.ErrorIs(t, err, ErrDuplicateChannelName)
}

func TestDeleteChannel(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch, err := service.CreateChannel(ctx, "Doomed", nil, nil)
	require.NoError(t, err)

	require.NoError(t, service.DeleteChannel(ctx, ch.ID))

	_, err = service.GetByID(ctx, ch.ID)
	assert.ErrorIs(t, err, ErrChannelNotFound)

	err = service.DeleteChannel(ctx, ch.ID)
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestAttachBucket(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch, err := service.CreateChannel(ctx, "Lineup Channel", nil, nil)
	require.NoError(t, err)

	bucket := models.NewMediaBucket("attached-bucket", models.BucketTypeGeneral)
	require.NoError(t, repos.Buckets.Create(ctx, bucket))

	require.NoError(t, service.AttachBucket(ctx, ch.ID, bucket.ID, 5))

	attachments, err := service.AttachedBuckets(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, bucket.ID, attachments[0].BucketID)
	assert.Equal(t, 5, attachments[0].Priority)

	// Attaching twice is a conflict.
	err = service.AttachBucket(ctx, ch.ID, bucket.ID, 5)
	assert.ErrorIs(t, err, ErrBucketAlreadyAttached)

	// Unknown bucket is reported distinctly.
	err = service.AttachBucket(ctx, ch.ID, uuid.New(), 0)
	assert.ErrorIs(t, err, ErrBucketNotFound)
}

func TestDetachBucket(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch, err := service.CreateChannel(ctx, "Detach Channel", nil, nil)
	require.NoError(t, err)

	bucket := models.NewMediaBucket("detached-bucket", models.BucketTypeGeneral)
	require.NoError(t, repos.Buckets.Create(ctx, bucket))
	require.NoError(t, service.AttachBucket(ctx, ch.ID, bucket.ID, 0))

	require.NoError(t, service.DetachBucket(ctx, ch.ID, bucket.ID))

	err = service.DetachBucket(ctx, ch.ID, bucket.ID)
	assert.ErrorIs(t, err, ErrBucketNotAttached)
}

func TestStartBroadcast_Idempotent(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch, err := service.CreateChannel(ctx, "Broadcast Channel", nil, nil)
	require.NoError(t, err)

	started, err := service.StartBroadcast(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, started)

	loaded, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ScheduleStartTime)
	anchor := *loaded.ScheduleStartTime

	started, err = service.StartBroadcast(ctx, ch.ID)
	require.NoError(t, err)
	assert.False(t, started)

	loaded, err = repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, anchor.Equal(*loaded.ScheduleStartTime))
}

func TestStartBroadcast_ChannelNotFound(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.StartBroadcast(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrChannelNotFound)
}
