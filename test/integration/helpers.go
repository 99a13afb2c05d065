//go:build integration
// +build integration

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/rerun/internal/api"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/config"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/guide"
	"github.com/stwalsh4118/rerun/internal/models"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/schedule"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

// setupTestDB creates a temp-file test database with migrations applied
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories, func()) {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(tmpFile, false)
	require.NoError(t, err, "Failed to create test database")

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err, "Failed to get SQL DB")

	// Resolve the migrations directory relative to this file so tests work
	// regardless of working directory
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	testDir := filepath.Dir(filename)                     // test/integration
	rootDir := filepath.Dir(filepath.Dir(testDir))        // repo root
	migrationsPath := "file://" + filepath.Join(rootDir, "migrations")

	err = db.RunMigrations(sqlDB, migrationsPath)
	require.NoError(t, err, "Failed to run migrations")

	repos := db.NewRepositories(database)

	cleanup := func() {
		database.Close()
	}

	return database, repos, cleanup
}

// testStack bundles the services the scenarios drive directly
type testStack struct {
	repos           *db.Repositories
	resolver        *playlist.CascadeResolver
	channelService  *channel.ChannelService
	timelineService *timeline.TimelineService
	guide           *guide.Guide
}

// setupTestRouter wires the full query surface onto a test Gin router,
// evaluating schedules in UTC
func setupTestRouter(database *db.DB, repos *db.Repositories) (*gin.Engine, *testStack) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	scheduleResolver := schedule.NewBlockResolver(repos, time.UTC)
	resolver := playlist.NewCascadeResolver(repos, scheduleResolver, time.UTC)
	channelService := channel.NewChannelService(repos)
	timelineService := timeline.NewTimelineService(repos)
	guideService := guide.NewGuide(repos, resolver, scheduleResolver)

	guideCfg := config.GuideConfig{
		Horizon:    6 * time.Hour,
		MaxEntries: 200,
	}

	apiGroup := router.Group("/api")
	api.SetupHealthRoutes(apiGroup, database)
	handler := api.NewChannelHandler(channelService, timelineService, resolver, guideService, guideCfg)
	api.SetupChannelRoutes(apiGroup, handler)
	api.SetupFeedRoutes(apiGroup, timelineService, resolver)

	stack := &testStack{
		repos:           repos,
		resolver:        resolver,
		channelService:  channelService,
		timelineService: timelineService,
		guide:           guideService,
	}

	return router, stack
}

// createShowBucket inserts catalogued episodes of one show into a fresh
// bucket and returns the bucket and the media records in position order
func createShowBucket(t *testing.T, repos *db.Repositories, bucketName, showName string, episodes int, duration int64) (*models.MediaBucket, []*models.MediaFile) {
	t.Helper()
	ctx := context.Background()

	bucket := models.NewMediaBucket(bucketName, models.BucketTypeSeries)
	require.NoError(t, repos.Buckets.Create(ctx, bucket))

	files := make([]*models.MediaFile, episodes)
	ids := make([]uuid.UUID, episodes)
	for i := 0; i < episodes; i++ {
		media := models.NewMediaFile(
			fmt.Sprintf("/media/%s/e%02d.mkv", bucketName, i+1),
			fmt.Sprintf("%s E%02d", showName, i+1),
			duration,
		)
		media.ShowName = &showName
		require.NoError(t, repos.Media.Create(ctx, media))
		files[i] = media
		ids[i] = media.ID
	}
	require.NoError(t, repos.Buckets.ReplaceMembers(ctx, bucket.ID, ids))

	return bucket, files
}

// createAllDayBlock inserts an always-active sequential block for the bucket
func createAllDayBlock(t *testing.T, repos *db.Repositories, channelID uuid.UUID, bucketID *uuid.UUID) *models.ScheduleBlock {
	t.Helper()
	block := models.NewScheduleBlock(channelID, "All Day", "00:00:00", "24:00:00", models.PlaybackModeSequential)
	block.BucketID = bucketID
	require.NoError(t, repos.Blocks.Create(context.Background(), block))
	return block
}
