// Package repositories provides the persistence layer for the scrobble archive.
//
// [LibraryRepository] owns the music entity tree (artists, albums, tracks),
// the append-only scrobbles table, per-user recency scores, and the per-user
// sync cursor. Every write is idempotent on its natural key so import runs
// can be repeated or resumed safely: re-ingesting a record the archive
// already holds changes nothing.
//
// [UserRepository] manages local accounts: bcrypt password hashes and the
// Last.fm session key obtained at signup.
package repositories
