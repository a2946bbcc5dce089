// Package models defines domain entities for the lfx scrobble archive.
//
// The music entities form a tree keyed by MusicBrainz identifiers:
// [Track] → [Album] (optional) → [Artist]. A track always carries its artist,
// denormalized, even when the album is unknown. Entities whose identifier
// fails [ParseMBID] are never persisted as first-class rows.
//
// [Scrobble] is one completed listening event, uniquely identified by
// (user, timestamp, track). [SyncCursor] is the per-user high-water mark that
// makes imports incremental and resumable. [User] is a local account bound to
// a Last.fm session key.
package models
