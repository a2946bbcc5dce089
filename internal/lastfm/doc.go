// Package lastfm implements a minimal Last.fm web service client.
//
// The client covers the surface the archive needs:
//   - [Client.UserInfo] : total play count for a user
//   - [Client.RecentTracks] : lazy, paginated listening history stream
//   - [Client.TrackInfo] : canonical track duration lookup by name pair
//   - [Client.Token] / [Client.Session] : signed desktop auth flow
//
// All requests go through a shared [rate.Limiter] so bulk imports stay under
// the service's request ceiling. API failures surface as [*Error] carrying the
// numeric service code; transport failures are wrapped standard errors.
package lastfm
