// package tasks implements long-running scrobble archive operations.
//
// The core abstraction is ScrobbleEngine, which orchestrates incremental
// history imports from a remote scrobble service into the local library.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lfx/internal/lastfm"
	"github.com/desertthunder/lfx/internal/models"
	"github.com/desertthunder/lfx/internal/shared"
)

// ImportResult contains all counters from an import run.
type ImportResult struct {
	Seen                   int   // History records examined
	Imported               int   // Scrobbles archived this run
	SkippedInvalid         int   // Records dropped for malformed identifiers
	SkippedUnknownDuration int   // Records dropped after duration lookups came up empty
	LastTimestamp          int64 // Resume point after the run
	Aborted                bool  // History stream dropped mid-run; re-running resumes
}

// HistoryCursor iterates a user's listening history oldest first,
// fetching pages lazily.
type HistoryCursor interface {
	// Next advances to the next record, returning false at the end of
	// history or on error.
	Next(ctx context.Context) bool

	// Record returns the record Next advanced to.
	Record() lastfm.RecentTrack

	// Err returns the error that stopped iteration, if any.
	Err() error
}

// Source provides a user's listening data from the remote scrobble service.
// This abstraction allows for easier testing and decoupling from concrete implementation.
type Source interface {
	// UserInfo fetches the user's profile, including their total play count.
	UserInfo(ctx context.Context, user string) (*lastfm.UserInfo, error)

	// History opens a cursor over the user's listening history starting
	// at the given unix timestamp.
	History(user string, from int64) HistoryCursor

	// TrackInfo fetches a track's length by artist and track name.
	TrackInfo(ctx context.Context, artist, track string) (time.Duration, error)
}

// LastFMSource adapts [lastfm.Client] to the [Source] interface.
type LastFMSource struct {
	*lastfm.Client
}

func (s LastFMSource) History(user string, from int64) HistoryCursor {
	return s.RecentTracks(user, from)
}

// Library defines the persistence operations an import run needs.
// Implemented by [repositories.LibraryRepository].
type Library interface {
	UpsertArtist(id models.MBID, name string) error
	UpsertAlbum(id models.MBID, name string, artist models.MBID) error
	UpsertTrack(id models.MBID, name string, artist models.MBID, album *models.MBID, length time.Duration) error
	AddScrobble(user string, timestamp int64, track models.MBID) error
	BumpScore(user string, timestamp int64, entry models.MBID) error
	Cursor(user string) (models.SyncCursor, error)
	SetLastTimestamp(user string, timestamp int64) error
}

// ScrobbleEngine defines operations for archiving listening history.
type ScrobbleEngine interface {
	// Import performs an incremental history sync by fetching records past
	// the user's resume point, validating them, and archiving the valid ones.
	Import(ctx context.Context, user string, progress chan<- ProgressUpdate) (*ImportResult, error)
}

// ImportOpts contains tuning knobs for import runs.
type ImportOpts struct {
	PauseEvery      int           // Records between pacing pauses (default: 200)
	PauseFor        time.Duration // Length of each pacing pause (default: 100ms)
	ResolveAttempts int           // Duration lookup attempts per track (default: 5)
	ResolveBackoff  time.Duration // Pause between duration lookups (default: 1s)
}

// ImportEngine implements ScrobbleEngine against a remote source and the
// local library.
type ImportEngine struct {
	source   Source
	library  Library
	resolver *DurationResolver
	opts     ImportOpts
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewImportEngine creates an ImportEngine with the provided source and library.
func NewImportEngine(source Source, library Library, opts ImportOpts) *ImportEngine {
	if opts.PauseEvery <= 0 {
		opts.PauseEvery = 200
	}
	if opts.PauseFor <= 0 {
		opts.PauseFor = 100 * time.Millisecond
	}

	var lookup DurationLookup
	if source != nil {
		lookup = source.TrackInfo
	}

	return &ImportEngine{
		source:   source,
		library:  library,
		resolver: NewDurationResolver(lookup, opts.ResolveAttempts, opts.ResolveBackoff),
		opts:     opts,
		sleep:    sleepContext,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *ImportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Import performs an incremental history sync for user.
//
// The resume point only ever moves forward, and it is persisted on every
// exit path once fetching has begun, so an aborted run never refetches
// records it already walked past. History is requested strictly after the
// resume point, and records are deduplicated on write besides.
func (e *ImportEngine) Import(ctx context.Context, user string, progress chan<- ProgressUpdate) (result *ImportResult, err error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: scrobble source not initialized", shared.ErrServiceUnavailable)
	}
	if e.library == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}

	cursor, err := e.library.Cursor(user)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, checkAccountUpdate(user))

	info, err := e.source.UserInfo(ctx, user)
	if err != nil {
		var apiErr *lastfm.Error
		if errors.As(err, &apiErr) && apiErr.RateLimited() {
			return nil, fmt.Errorf("%w: %v", shared.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("%w: failed to fetch user info: %v", shared.ErrAPIRequest, err)
	}

	result = &ImportResult{LastTimestamp: cursor.LastTimestamp}

	remaining := info.Playcount - cursor.Imported
	if remaining <= 0 {
		return result, nil
	}

	total := remaining
	highWater := cursor.LastTimestamp
	history := e.source.History(user, cursor.LastTimestamp+1)

	defer func() {
		result.LastTimestamp = highWater
		e.sendProgress(progress, finalizeUpdate(total, result))
		if perr := e.library.SetLastTimestamp(user, highWater); perr != nil && err == nil {
			err = fmt.Errorf("failed to persist resume point: %w", perr)
		}
	}()

	for history.Next(ctx) {
		rec := history.Record()

		// An in-progress listen is not a finalized event yet; it will
		// reappear with a timestamp once it completes.
		if rec.NowPlaying {
			continue
		}

		// The play count was sampled before fetching began, so a user
		// scrobbling mid-run can push history past it. Stop rather than
		// drift past the sampled total.
		remaining--
		if remaining < 0 {
			break
		}

		result.Seen++
		e.sendProgress(progress, fetchRecordUpdate(result.Seen, total, rec.TrackName))

		if rec.Timestamp > highWater {
			highWater = rec.Timestamp
		}

		if err := e.archiveRecord(ctx, user, rec, total, result, progress); err != nil {
			return result, err
		}

		// Courtesy pacing, counted over examined records so a stretch of
		// skipped ones still yields.
		if result.Seen%e.opts.PauseEvery == 0 {
			if err := e.sleep(ctx, e.opts.PauseFor); err != nil {
				return result, err
			}
		}
	}

	if ferr := history.Err(); ferr != nil {
		if errors.Is(ferr, context.Canceled) || errors.Is(ferr, context.DeadlineExceeded) {
			return result, ferr
		}
		// A dropped stream is a resumable condition, not a failure: the
		// persisted resume point covers everything archived so far.
		result.Aborted = true
		return result, nil
	}

	return result, nil
}

// archiveRecord validates one history record and stores whatever parts of it
// pass: the artist alone when the track identifier is bad, artist and album
// but no scrobble when no duration can be determined. Only repository
// failures and cancellation are errors; rejected records just bump the skip
// counters.
func (e *ImportEngine) archiveRecord(ctx context.Context, user string, rec lastfm.RecentTrack, total int, result *ImportResult, progress chan<- ProgressUpdate) error {
	artistID, ok := models.ParseMBID(rec.ArtistMBID)
	if !ok {
		result.SkippedInvalid++
		return nil
	}
	if err := e.library.UpsertArtist(artistID, rec.ArtistName); err != nil {
		return fmt.Errorf("failed to store artist %q: %w", rec.ArtistName, err)
	}
	if err := e.library.BumpScore(user, rec.Timestamp, artistID); err != nil {
		return fmt.Errorf("failed to update artist score: %w", err)
	}

	var albumRef *models.MBID
	if albumID, ok := models.ParseMBID(rec.AlbumMBID); ok {
		if err := e.library.UpsertAlbum(albumID, rec.AlbumName, artistID); err != nil {
			return fmt.Errorf("failed to store album %q: %w", rec.AlbumName, err)
		}
		if err := e.library.BumpScore(user, rec.Timestamp, albumID); err != nil {
			return fmt.Errorf("failed to update album score: %w", err)
		}
		albumRef = &albumID
	}

	trackID, ok := models.ParseMBID(rec.TrackMBID)
	if !ok {
		result.SkippedInvalid++
		return nil
	}

	// The duration riding along on the history record is not trustworthy;
	// the catalog lookup is authoritative even when the record carries one.
	e.sendProgress(progress, resolveDurationUpdate(result.Seen, total, rec.TrackName))
	length, err := e.resolver.Resolve(ctx, rec.ArtistName, rec.TrackName)
	if err != nil {
		return err
	}
	if length == 0 {
		result.SkippedUnknownDuration++
		return nil
	}

	if err := e.library.UpsertTrack(trackID, rec.TrackName, artistID, albumRef, length); err != nil {
		return fmt.Errorf("failed to store track %q: %w", rec.TrackName, err)
	}
	if err := e.library.BumpScore(user, rec.Timestamp, trackID); err != nil {
		return fmt.Errorf("failed to update track score: %w", err)
	}
	if err := e.library.AddScrobble(user, rec.Timestamp, trackID); err != nil {
		return fmt.Errorf("failed to store scrobble: %w", err)
	}
	result.Imported++
	e.sendProgress(progress, storedRecordUpdate(result.Seen, total, result))

	return nil
}
