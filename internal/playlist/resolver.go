// Package playlist materializes the ordered list of media files a channel
// plays at an instant. The active schedule block's bucket is the primary
// source; when it yields nothing the resolver cascades through
// progressively wider fallbacks so a channel with any media configured
// keeps broadcasting.
package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/models"
	"github.com/stwalsh4118/rerun/internal/schedule"
)

// Resolver materializes a channel's playlist for an instant. Resolutions
// are deterministic for a fixed instant and unchanged catalog (random mode
// excepted): sequential rotation is a pure function of saved progression
// and shuffle order is seeded by the calendar day, which is what lets the
// timeline recompute positions statelessly.
type Resolver interface {
	Resolve(ctx context.Context, channelID uuid.UUID, at time.Time) (*Resolution, error)
}

// CascadeResolver resolves playlists against the store through the
// four-tier fallback cascade.
type CascadeResolver struct {
	repos    *db.Repositories
	schedule schedule.Resolver
	loc      *time.Location
}

// NewCascadeResolver creates a playlist resolver. The location scopes the
// shuffle seed's calendar day and must match the schedule resolver's.
func NewCascadeResolver(repos *db.Repositories, scheduleResolver schedule.Resolver, loc *time.Location) *CascadeResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &CascadeResolver{repos: repos, schedule: scheduleResolver, loc: loc}
}

// Resolve returns the ordered playlist for the channel at the given
// instant. An empty playlist is a valid answer, never an error; errors
// only surface for store failures.
func (r *CascadeResolver) Resolve(ctx context.Context, channelID uuid.UUID, at time.Time) (*Resolution, error) {
	active, err := r.schedule.ActiveBlock(ctx, channelID, at)
	if err != nil {
		return nil, err
	}

	// Tier 1: the active block's own bucket.
	if active != nil && active.BucketID != nil {
		members, err := r.repos.Buckets.ListMembers(ctx, *active.BucketID)
		if err != nil {
			return nil, err
		}
		if len(members) > 0 {
			return r.resolveActiveBucket(ctx, channelID, active, members, at)
		}
	}

	if active != nil {
		// Tier 2: the active block is unusable; union the other enabled
		// blocks' buckets.
		res, err := r.resolveBlockUnion(ctx, channelID, active, TierOtherBlocks)
		if err != nil {
			return nil, err
		}
		if len(res.Files) > 0 {
			return res, nil
		}
	} else {
		// Tier 3: nothing is scheduled right now; union every enabled
		// block's bucket.
		res, err := r.resolveBlockUnion(ctx, channelID, nil, TierAllBlocks)
		if err != nil {
			return nil, err
		}
		if len(res.Files) > 0 {
			return res, nil
		}
	}

	// Tier 4: buckets attached directly to the channel.
	res, err := r.resolveChannelBuckets(ctx, channelID)
	if err != nil {
		return nil, err
	}
	res.Block = active
	if len(res.Files) > 0 {
		return res, nil
	}

	logger.Log.Debug().
		Str("channel_id", channelID.String()).
		Time("at", at).
		Msg("Playlist resolution produced no media")
	return &Resolution{Tier: TierNone, Block: active}, nil
}

// resolveActiveBucket applies the block's playback mode to its bucket and
// materializes the result.
func (r *CascadeResolver) resolveActiveBucket(ctx context.Context, channelID uuid.UUID, block *models.ScheduleBlock, members []*models.BucketMember, at time.Time) (*Resolution, error) {
	bucketID := *block.BucketID

	mediaByID, err := r.loadMedia(ctx, members)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Tier:      TierActiveBlock,
		Block:     block,
		BucketID:  &bucketID,
		BucketLen: len(members),
	}

	var ordered []*models.BucketMember
	var positions []int

	switch block.PlaybackMode {
	case models.PlaybackModeSequential:
		ordered, positions, res.ProgressionEligible, err = r.applySequential(ctx, channelID, bucketID, members, mediaByID)
		if err != nil {
			return nil, err
		}
	case models.PlaybackModeShuffle:
		ordered = seededShuffle(members, r.shuffleSeed(block.ID, at))
	case models.PlaybackModeRandom:
		ordered = randomShuffle(members)
	default:
		logger.Log.Warn().
			Str("block_id", block.ID.String()).
			Str("playback_mode", block.PlaybackMode).
			Msg("Unknown playback mode, falling back to bucket order")
		ordered = members
	}

	res.Files, res.Positions = r.materialize(ordered, positions, mediaByID)

	logger.Log.Debug().
		Str("channel_id", channelID.String()).
		Str("block_id", block.ID.String()).
		Str("bucket_id", bucketID.String()).
		Str("playback_mode", block.PlaybackMode).
		Int("file_count", len(res.Files)).
		Msg("Resolved playlist from active block")

	return res, nil
}

// applySequential orders members by saved progression. Buckets holding
// more than one distinct show ignore progression entirely: resuming "where
// we left off" only means something for a single series, and silently
// advancing a mixed bucket would skip content viewers never saw.
func (r *CascadeResolver) applySequential(ctx context.Context, channelID, bucketID uuid.UUID, members []*models.BucketMember, mediaByID map[uuid.UUID]*models.MediaFile) ([]*models.BucketMember, []int, bool, error) {
	positions := make([]int, len(members))
	for i := range members {
		positions[i] = i
	}

	if multiSeries(members, mediaByID) {
		logger.Log.Debug().
			Str("channel_id", channelID.String()).
			Str("bucket_id", bucketID.String()).
			Msg("Bucket spans multiple shows; sequential progression disabled")
		return members, positions, false, nil
	}

	start := 0
	prog, err := r.repos.Progressions.Get(ctx, channelID, bucketID)
	switch {
	case err == nil:
		if prog.CurrentPosition >= 0 && prog.CurrentPosition < len(members) {
			start = prog.CurrentPosition
		} else {
			// Repair the out-of-bounds cursor in place. The write is
			// idempotent, so concurrent resolutions racing here are benign.
			logger.Log.Warn().
				Str("channel_id", channelID.String()).
				Str("bucket_id", bucketID.String()).
				Int("current_position", prog.CurrentPosition).
				Int("bucket_len", len(members)).
				Msg("Progression position out of bounds, resetting to start")
			reset := models.NewBucketProgression(channelID, bucketID)
			if err := r.repos.Progressions.Upsert(ctx, reset); err != nil {
				return nil, nil, false, fmt.Errorf("failed to reset progression: %w", err)
			}
		}
	case db.IsNotFound(err):
		// No progression yet; records are created lazily on first advance.
	default:
		return nil, nil, false, fmt.Errorf("failed to load progression: %w", err)
	}

	if start == 0 {
		return members, positions, true, nil
	}

	n := len(members)
	rotated := make([]*models.BucketMember, 0, n)
	rotatedPos := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ordinal := (start + i) % n
		rotated = append(rotated, members[ordinal])
		rotatedPos = append(rotatedPos, ordinal)
	}
	return rotated, rotatedPos, true, nil
}

// resolveBlockUnion unions the buckets of the channel's enabled blocks,
// skipping the exhausted active block when one exists. Block resolution
// order fixes the bucket order, member position fixes the order within a
// bucket, and duplicate media keep their first occurrence.
func (r *CascadeResolver) resolveBlockUnion(ctx context.Context, channelID uuid.UUID, activeBlock *models.ScheduleBlock, tier Tier) (*Resolution, error) {
	blocks, err := r.repos.Blocks.ListEnabledByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	bucketIDs := make([]uuid.UUID, 0, len(blocks))
	seen := make(map[uuid.UUID]bool, len(blocks))
	for _, block := range blocks {
		if activeBlock != nil && block.ID == activeBlock.ID {
			continue
		}
		if block.BucketID == nil || seen[*block.BucketID] {
			continue
		}
		seen[*block.BucketID] = true
		bucketIDs = append(bucketIDs, *block.BucketID)
	}

	files, err := r.unionBuckets(ctx, bucketIDs)
	if err != nil {
		return nil, err
	}

	if len(files) > 0 {
		logger.Log.Warn().
			Str("channel_id", channelID.String()).
			Str("tier", tier.String()).
			Int("bucket_count", len(bucketIDs)).
			Int("file_count", len(files)).
			Msg("Playlist resolved through fallback tier")
	}

	return &Resolution{Files: files, Tier: tier, Block: activeBlock}, nil
}

// resolveChannelBuckets is the legacy fallback: buckets attached straight
// to the channel, highest priority first.
func (r *CascadeResolver) resolveChannelBuckets(ctx context.Context, channelID uuid.UUID) (*Resolution, error) {
	attachments, err := r.repos.Buckets.ListForChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	bucketIDs := make([]uuid.UUID, 0, len(attachments))
	for _, att := range attachments {
		bucketIDs = append(bucketIDs, att.BucketID)
	}

	files, err := r.unionBuckets(ctx, bucketIDs)
	if err != nil {
		return nil, err
	}

	if len(files) > 0 {
		logger.Log.Warn().
			Str("channel_id", channelID.String()).
			Str("tier", TierChannelAttached.String()).
			Int("bucket_count", len(bucketIDs)).
			Int("file_count", len(files)).
			Msg("Playlist resolved through channel-attached buckets")
	}

	return &Resolution{Files: files, Tier: TierChannelAttached}, nil
}

// unionBuckets concatenates the given buckets' members in bucket order,
// drops duplicate media ids, and materializes the survivors.
func (r *CascadeResolver) unionBuckets(ctx context.Context, bucketIDs []uuid.UUID) ([]*models.MediaFile, error) {
	if len(bucketIDs) == 0 {
		return nil, nil
	}

	grouped, err := r.repos.Buckets.ListMembersForBuckets(ctx, bucketIDs)
	if err != nil {
		return nil, err
	}

	var union []*models.BucketMember
	seenMedia := make(map[uuid.UUID]bool)
	for _, bucketID := range bucketIDs {
		for _, m := range grouped[bucketID] {
			if seenMedia[m.MediaFileID] {
				continue
			}
			seenMedia[m.MediaFileID] = true
			union = append(union, m)
		}
	}

	mediaByID, err := r.loadMedia(ctx, union)
	if err != nil {
		return nil, err
	}
	files, _ := r.materialize(union, nil, mediaByID)
	return files, nil
}

// loadMedia fetches the catalog records behind a member list, keyed by id
func (r *CascadeResolver) loadMedia(ctx context.Context, members []*models.BucketMember) (map[uuid.UUID]*models.MediaFile, error) {
	ids := make([]uuid.UUID, 0, len(members))
	seen := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		if seen[m.MediaFileID] {
			continue
		}
		seen[m.MediaFileID] = true
		ids = append(ids, m.MediaFileID)
	}

	mediaByID, err := r.repos.Media.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize playlist media: %w", err)
	}
	return mediaByID, nil
}

// materialize maps members to catalog records, dropping entries whose
// media is missing from the catalog or marked nonexistent on disk. Order
// is preserved; positions stays parallel to the surviving files.
func (r *CascadeResolver) materialize(members []*models.BucketMember, positions []int, mediaByID map[uuid.UUID]*models.MediaFile) ([]*models.MediaFile, []int) {
	files := make([]*models.MediaFile, 0, len(members))
	var outPositions []int
	if positions != nil {
		outPositions = make([]int, 0, len(members))
	}

	dropped := 0
	for i, m := range members {
		media, ok := mediaByID[m.MediaFileID]
		if !ok || !media.FileExists {
			dropped++
			logger.Log.Warn().
				Str("bucket_id", m.BucketID.String()).
				Str("media_file_id", m.MediaFileID.String()).
				Bool("in_catalog", ok).
				Msg("Dropping bucket member with missing or nonexistent media")
			continue
		}
		files = append(files, media)
		if positions != nil {
			outPositions = append(outPositions, positions[i])
		}
	}

	if dropped > 0 && len(files) == 0 {
		logger.Log.Warn().
			Int("dropped", dropped).
			Msg("Bucket references only missing media; playlist is empty")
	}

	return files, outPositions
}

// multiSeries reports whether the catalogued members span two or more
// distinct named shows. Untitled records (movies, fillers) don't count
// toward distinctness.
func multiSeries(members []*models.BucketMember, mediaByID map[uuid.UUID]*models.MediaFile) bool {
	shows := make(map[string]bool)
	for _, m := range members {
		media, ok := mediaByID[m.MediaFileID]
		if !ok || media.ShowName == nil || *media.ShowName == "" {
			continue
		}
		shows[*media.ShowName] = true
		if len(shows) > 1 {
			return true
		}
	}
	return false
}

// shuffleSeed builds the deterministic shuffle seed: the calendar day in
// the schedule zone concatenated with the block id, so the order holds for
// a whole day, then changes.
func (r *CascadeResolver) shuffleSeed(blockID uuid.UUID, at time.Time) string {
	return at.In(r.loc).Format("2006-01-02") + blockID.String()
}
