// Package tasks orchestrates scrobble archive operations with real-time progress reporting.
//
// # Core Operations
//
// The [ScrobbleEngine] interface defines the import operation:
//
//   - [ScrobbleEngine.Import] : Incremental history sync
//   - Samples the user's play count and resume point
//   - Streams history records past the resume point, oldest first
//   - Validates identifiers, resolving every duration through the catalog
//   - Archives artists, albums, tracks, and scrobbles idempotently
//   - Advances the persisted resume point on every exit path
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Duration Resolution
//
// History records carry an inline track length that cannot be trusted, so
// every archived track's length comes from a per-track catalog lookup.
// [DurationResolver] retries failed lookups a fixed number of times before
// giving up; records whose duration stays unknown are dropped rather than
// archived with a guessed length.
//
// # Implementation
//
// [ImportEngine] implements [ScrobbleEngine] with dependencies on:
//   - [Source] : Remote scrobble service client (lastfm.Client)
//   - [Library] : Persistence layer (repositories.LibraryRepository)
package tasks
