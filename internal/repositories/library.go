package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/lfx/internal/models"
	"github.com/desertthunder/lfx/internal/shared"
)

// LibraryRepository persists the music entity tree, scrobbles, scores, and
// the per-user sync cursor.
//
// All writes are idempotent on their natural key. Entities are created lazily
// on first sighting during import and never deleted here; scrobbles are
// append-only.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a new LibraryRepository with the given database connection
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// UpsertArtist inserts or refreshes an artist row keyed by its identifier.
func (r *LibraryRepository) UpsertArtist(id models.MBID, name string) error {
	query := `
		INSERT INTO artists (mbid, name) VALUES (?, ?)
		ON CONFLICT(mbid) DO UPDATE SET name = excluded.name
	`

	if _, err := r.db.Exec(query, string(id), name); err != nil {
		return fmt.Errorf("failed to upsert artist %s: %w", id, err)
	}
	return nil
}

// UpsertAlbum inserts or refreshes an album row linked to its artist.
func (r *LibraryRepository) UpsertAlbum(id models.MBID, name string, artist models.MBID) error {
	query := `
		INSERT INTO albums (mbid, name, artist) VALUES (?, ?, ?)
		ON CONFLICT(mbid) DO UPDATE SET name = excluded.name, artist = excluded.artist
	`

	if _, err := r.db.Exec(query, string(id), name, string(artist)); err != nil {
		return fmt.Errorf("failed to upsert album %s: %w", id, err)
	}
	return nil
}

// UpsertTrack inserts or refreshes a track row. album is nil for albumless
// tracks; length is the canonical resolved duration.
func (r *LibraryRepository) UpsertTrack(id models.MBID, name string, artist models.MBID, album *models.MBID, length time.Duration) error {
	var albumVal sql.NullString
	if album != nil {
		albumVal = sql.NullString{String: string(*album), Valid: true}
	}

	query := `
		INSERT INTO tracks (mbid, name, artist, album, length_seconds) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(mbid) DO UPDATE SET
			name = excluded.name,
			artist = excluded.artist,
			album = excluded.album,
			length_seconds = excluded.length_seconds
	`

	if _, err := r.db.Exec(query, string(id), name, string(artist), albumVal, int64(length.Seconds())); err != nil {
		return fmt.Errorf("failed to upsert track %s: %w", id, err)
	}
	return nil
}

// AddScrobble appends one listening event. Idempotent on
// (user, timestamp, track): re-importing the same event is a no-op.
func (r *LibraryRepository) AddScrobble(user string, timestamp int64, track models.MBID) error {
	query := `
		INSERT OR IGNORE INTO scrobbles (user_name, scrobble_time, track) VALUES (?, ?, ?)
	`

	if _, err := r.db.Exec(query, user, timestamp, string(track)); err != nil {
		return fmt.Errorf("failed to add scrobble: %w", err)
	}
	return nil
}

// BumpScore refreshes the rolling recency marker for an entity, keeping the
// newest access time seen so far.
func (r *LibraryRepository) BumpScore(user string, timestamp int64, entry models.MBID) error {
	query := `
		INSERT INTO scores (user_name, entry, last_access) VALUES (?, ?, ?)
		ON CONFLICT(user_name, entry) DO UPDATE SET
			last_access = MAX(last_access, excluded.last_access)
	`

	if _, err := r.db.Exec(query, user, string(entry), timestamp); err != nil {
		return fmt.Errorf("failed to bump score for %s: %w", entry, err)
	}
	return nil
}

// Cursor reads the per-user resume state: the newest imported timestamp and
// the number of scrobbles already archived.
func (r *LibraryRepository) Cursor(user string) (models.SyncCursor, error) {
	var cursor models.SyncCursor

	err := r.db.QueryRow("SELECT user_last_update FROM users WHERE user_name = ?", user).
		Scan(&cursor.LastTimestamp)
	if err == sql.ErrNoRows {
		return cursor, fmt.Errorf("%w: %s", shared.ErrUserNotFound, user)
	}
	if err != nil {
		return cursor, fmt.Errorf("failed to read cursor: %w", err)
	}

	err = r.db.QueryRow("SELECT COUNT(*) FROM scrobbles WHERE user_name = ?", user).
		Scan(&cursor.Imported)
	if err != nil {
		return cursor, fmt.Errorf("failed to count scrobbles: %w", err)
	}

	return cursor, nil
}

// SetLastTimestamp advances the resume cursor. The MAX guard makes the write
// monotonic: a stale or repeated value never moves the cursor backwards, so
// the call is idempotent.
func (r *LibraryRepository) SetLastTimestamp(user string, timestamp int64) error {
	query := `
		UPDATE users
		SET user_last_update = MAX(user_last_update, ?), updated_at = CURRENT_TIMESTAMP
		WHERE user_name = ?
	`

	result, err := r.db.Exec(query, timestamp, user)
	if err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, user)
	}

	return nil
}

// Scrobbles lists a user's archived listening events newest-first, optionally
// filtered by a substring match on track or artist name.
func (r *LibraryRepository) Scrobbles(user, match string, limit int) ([]models.Scrobble, error) {
	query := `
		SELECT s.scrobble_time,
		       t.mbid, t.name, t.length_seconds,
		       ar.mbid, ar.name,
		       al.mbid, al.name
		FROM scrobbles s
		JOIN tracks t ON t.mbid = s.track
		JOIN artists ar ON ar.mbid = t.artist
		LEFT JOIN albums al ON al.mbid = t.album
		WHERE s.user_name = ?
	`

	args := []any{user}

	if match != "" {
		query += " AND (t.name LIKE ? OR ar.name LIKE ?)"
		pattern := "%" + match + "%"
		args = append(args, pattern, pattern)
	}

	query += " ORDER BY s.scrobble_time DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrobbles: %w", err)
	}
	defer rows.Close()

	var scrobbles []models.Scrobble
	for rows.Next() {
		var (
			ts          int64
			trackMBID   string
			trackName   string
			lengthSecs  int64
			artistMBID  string
			artistName  string
			albumMBID   sql.NullString
			albumName   sql.NullString
		)

		if err := rows.Scan(&ts, &trackMBID, &trackName, &lengthSecs, &artistMBID, &artistName, &albumMBID, &albumName); err != nil {
			return nil, fmt.Errorf("failed to scan scrobble: %w", err)
		}

		artist := models.Artist{MBID: models.MBID(artistMBID), Name: artistName}

		track := models.Track{
			MBID:   models.MBID(trackMBID),
			Name:   trackName,
			Artist: artist,
			Length: time.Duration(lengthSecs) * time.Second,
		}
		if albumMBID.Valid {
			track.Album = &models.Album{
				MBID:   models.MBID(albumMBID.String),
				Name:   albumName.String,
				Artist: artist,
			}
		}

		scrobbles = append(scrobbles, models.Scrobble{
			Track: track,
			User:  user,
			Time:  time.Unix(ts, 0),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return scrobbles, nil
}
