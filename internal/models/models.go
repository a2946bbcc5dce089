package models

import "time"

// MBIDLength is the canonical length of a MusicBrainz identifier
// (a 36-character UUID in its hyphenated form).
const MBIDLength = 36

// MBID is a MusicBrainz stable identifier for an artist, album or track.
type MBID string

// ParseMBID validates a raw identifier from the external service.
//
// An identifier is usable iff it is exactly [MBIDLength] characters long.
// Anything else (empty, truncated, garbage) marks the entity as unidentified
// and it must not be persisted. Pure function, no side effects.
func ParseMBID(raw string) (MBID, bool) {
	if len(raw) != MBIDLength {
		return "", false
	}
	return MBID(raw), true
}

// String implements fmt.Stringer.
func (m MBID) String() string { return string(m) }

// Artist is a music artist keyed by its MusicBrainz identifier.
type Artist struct {
	MBID MBID   // Stable identifier
	Name string // Display name as reported by the service
}

// Album is a release keyed by its MusicBrainz identifier.
// Every album belongs to exactly one artist.
type Album struct {
	MBID   MBID
	Name   string
	Artist Artist
}

// Track is a song keyed by its MusicBrainz identifier.
//
// Album is nil for albumless tracks; Artist is always set. Length is the
// canonical duration resolved from the service, never the unreliable inline
// value from the history feed.
type Track struct {
	MBID   MBID
	Name   string
	Artist Artist
	Album  *Album
	Length time.Duration
}

// Scrobble is one completed listening event.
type Scrobble struct {
	Track Track
	User  string    // Local user name
	Time  time.Time // Moment the listen finished
}

// SyncCursor is the per-user resume state for incremental imports.
//
// LastTimestamp is monotonically non-decreasing across runs, including runs
// that abort partway. The next import requests only records strictly newer
// than it. Imported is the number of scrobbles already held locally.
type SyncCursor struct {
	LastTimestamp int64 // Unix seconds of the newest imported scrobble
	Imported      int   // Scrobble rows already in the archive
}

// User is a local account bound to a Last.fm session key.
type User struct {
	ID    string // Local row id (uuid)
	Name  string // Last.fm user name, also the local login
	Admin bool
}
