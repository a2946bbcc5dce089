package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/lfx/internal/models"
	"github.com/desertthunder/lfx/internal/shared"
)

var (
	artistID = models.MBID("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	albumID  = models.MBID("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
	trackID  = models.MBID("cccccccc-cccc-cccc-cccc-cccccccccccc")
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// seedUser registers an account so foreign keys on scrobbles/scores hold.
func seedUser(t *testing.T, db *sql.DB, name string) {
	t.Helper()

	users := NewUserRepository(db)
	if _, err := users.Create(name, "hunter2", "sess", false); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

// seedTrack creates the artist/track pair a scrobble row depends on.
func seedTrack(t *testing.T, repo *LibraryRepository) {
	t.Helper()

	if err := repo.UpsertArtist(artistID, "Boards of Canada"); err != nil {
		t.Fatalf("failed to seed artist: %v", err)
	}
	if err := repo.UpsertTrack(trackID, "Roygbiv", artistID, nil, 151*time.Second); err != nil {
		t.Fatalf("failed to seed track: %v", err)
	}
}

func TestLibraryRepositoryEntities(t *testing.T) {
	t.Run("UpsertArtist is idempotent and refreshes the name", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)

		if err := repo.UpsertArtist(artistID, "BOC"); err != nil {
			t.Fatalf("first upsert failed: %v", err)
		}
		if err := repo.UpsertArtist(artistID, "Boards of Canada"); err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM artists").Scan(&count); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 artist row, got %d", count)
		}

		var name string
		if err := db.QueryRow("SELECT name FROM artists WHERE mbid = ?", string(artistID)).Scan(&name); err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if name != "Boards of Canada" {
			t.Errorf("expected refreshed name, got %s", name)
		}
	})

	t.Run("UpsertAlbum links to its artist", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)

		if err := repo.UpsertArtist(artistID, "Boards of Canada"); err != nil {
			t.Fatalf("artist upsert failed: %v", err)
		}
		if err := repo.UpsertAlbum(albumID, "Geogaddi", artistID); err != nil {
			t.Fatalf("album upsert failed: %v", err)
		}
		if err := repo.UpsertAlbum(albumID, "Geogaddi", artistID); err != nil {
			t.Fatalf("repeat album upsert failed: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM albums").Scan(&count); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 album row, got %d", count)
		}
	})

	t.Run("UpsertTrack stores albumless tracks with a NULL album", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)

		if err := repo.UpsertArtist(artistID, "Boards of Canada"); err != nil {
			t.Fatalf("artist upsert failed: %v", err)
		}
		if err := repo.UpsertTrack(trackID, "Roygbiv", artistID, nil, 151*time.Second); err != nil {
			t.Fatalf("track upsert failed: %v", err)
		}

		var album sql.NullString
		var length int64
		err := db.QueryRow("SELECT album, length_seconds FROM tracks WHERE mbid = ?", string(trackID)).
			Scan(&album, &length)
		if err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if album.Valid {
			t.Error("expected NULL album")
		}
		if length != 151 {
			t.Errorf("expected 151 seconds, got %d", length)
		}
	})
}

func TestLibraryRepositoryScrobbles(t *testing.T) {
	t.Run("AddScrobble deduplicates on (user, time, track)", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		seedUser(t, db, "rj")
		seedTrack(t, repo)

		for range 3 {
			if err := repo.AddScrobble("rj", 1700000100, trackID); err != nil {
				t.Fatalf("AddScrobble failed: %v", err)
			}
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM scrobbles").Scan(&count); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 scrobble row after re-imports, got %d", count)
		}
	})

	t.Run("BumpScore keeps the newest access time", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		seedUser(t, db, "rj")

		if err := repo.BumpScore("rj", 200, artistID); err != nil {
			t.Fatalf("BumpScore failed: %v", err)
		}
		if err := repo.BumpScore("rj", 100, artistID); err != nil {
			t.Fatalf("BumpScore failed: %v", err)
		}

		var lastAccess int64
		err := db.QueryRow("SELECT last_access FROM scores WHERE user_name = ? AND entry = ?", "rj", string(artistID)).
			Scan(&lastAccess)
		if err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if lastAccess != 200 {
			t.Errorf("expected last_access 200 after stale bump, got %d", lastAccess)
		}
	})

	t.Run("Scrobbles lists newest first with optional match", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		seedUser(t, db, "rj")
		seedTrack(t, repo)

		if err := repo.UpsertAlbum(albumID, "Geogaddi", artistID); err != nil {
			t.Fatalf("album upsert failed: %v", err)
		}
		other := models.MBID("dddddddd-dddd-dddd-dddd-dddddddddddd")
		if err := repo.UpsertTrack(other, "1969", artistID, &albumID, 257*time.Second); err != nil {
			t.Fatalf("track upsert failed: %v", err)
		}

		if err := repo.AddScrobble("rj", 100, trackID); err != nil {
			t.Fatalf("AddScrobble failed: %v", err)
		}
		if err := repo.AddScrobble("rj", 200, other); err != nil {
			t.Fatalf("AddScrobble failed: %v", err)
		}

		all, err := repo.Scrobbles("rj", "", 0)
		if err != nil {
			t.Fatalf("Scrobbles failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 scrobbles, got %d", len(all))
		}
		if all[0].Time.Unix() != 200 || all[1].Time.Unix() != 100 {
			t.Error("expected newest-first ordering")
		}
		if all[0].Track.Album == nil || all[0].Track.Album.Name != "Geogaddi" {
			t.Error("expected album join on the newest scrobble")
		}
		if all[1].Track.Album != nil {
			t.Error("expected nil album for albumless track")
		}

		matched, err := repo.Scrobbles("rj", "Roygbiv", 0)
		if err != nil {
			t.Fatalf("filtered Scrobbles failed: %v", err)
		}
		if len(matched) != 1 || matched[0].Track.Name != "Roygbiv" {
			t.Errorf("expected only the matched track, got %+v", matched)
		}
	})
}

func TestLibraryRepositoryCursor(t *testing.T) {
	t.Run("fresh user starts at zero", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		seedUser(t, db, "rj")

		cursor, err := repo.Cursor("rj")
		if err != nil {
			t.Fatalf("Cursor failed: %v", err)
		}
		if cursor.LastTimestamp != 0 || cursor.Imported != 0 {
			t.Errorf("expected zero cursor, got %+v", cursor)
		}
	})

	t.Run("unknown user is an error", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)

		if _, err := repo.Cursor("ghost"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		if err := repo.SetLastTimestamp("ghost", 100); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("SetLastTimestamp never regresses", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		seedUser(t, db, "rj")

		if err := repo.SetLastTimestamp("rj", 300); err != nil {
			t.Fatalf("SetLastTimestamp failed: %v", err)
		}
		// a stale write from an aborted run must be a no-op
		if err := repo.SetLastTimestamp("rj", 200); err != nil {
			t.Fatalf("stale SetLastTimestamp failed: %v", err)
		}

		cursor, err := repo.Cursor("rj")
		if err != nil {
			t.Fatalf("Cursor failed: %v", err)
		}
		if cursor.LastTimestamp != 300 {
			t.Errorf("cursor regressed: expected 300, got %d", cursor.LastTimestamp)
		}

		if err := repo.SetLastTimestamp("rj", 400); err != nil {
			t.Fatalf("SetLastTimestamp failed: %v", err)
		}
		cursor, _ = repo.Cursor("rj")
		if cursor.LastTimestamp != 400 {
			t.Errorf("expected cursor to advance to 400, got %d", cursor.LastTimestamp)
		}
	})

	t.Run("Imported counts archived scrobbles", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewLibraryRepository(db)
		seedUser(t, db, "rj")
		seedTrack(t, repo)

		if err := repo.AddScrobble("rj", 100, trackID); err != nil {
			t.Fatalf("AddScrobble failed: %v", err)
		}
		if err := repo.AddScrobble("rj", 200, trackID); err != nil {
			t.Fatalf("AddScrobble failed: %v", err)
		}

		cursor, err := repo.Cursor("rj")
		if err != nil {
			t.Fatalf("Cursor failed: %v", err)
		}
		if cursor.Imported != 2 {
			t.Errorf("expected 2 imported, got %d", cursor.Imported)
		}
	})
}
