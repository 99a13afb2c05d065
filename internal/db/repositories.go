package db

// Repositories provides access to all database repositories
type Repositories struct {
	Channels     *ChannelRepository
	Blocks       *ScheduleBlockRepository
	Buckets      *BucketRepository
	Progressions *ProgressionRepository
	Media        *MediaFileRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Channels:     NewChannelRepository(db),
		Blocks:       NewScheduleBlockRepository(db),
		Buckets:      NewBucketRepository(db),
		Progressions: NewProgressionRepository(db),
		Media:        NewMediaFileRepository(db),
	}
}
