package lastfm

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// recentTracksPageSize is the per-page record count requested during history
// streaming; the service caps user.getRecentTracks at 200.
const recentTracksPageSize = 200

// RecentTrack is one record from a user's listening history page.
//
// Identifier fields are raw strings as reported by the service; they have not
// been validated and may be empty or malformed. Duration is the unreliable
// inline value in seconds and should not be trusted; resolve durations via
// [Client.TrackInfo] instead.
type RecentTrack struct {
	NowPlaying bool  // in-progress listen, not a finalized event
	Timestamp  int64 // unix seconds; zero for now-playing records

	ArtistName string
	ArtistMBID string
	AlbumName  string
	AlbumMBID  string
	TrackName  string
	TrackMBID  string

	Duration int64
}

// textRef is the {"#text": ..., "mbid": ...} shape Last.fm uses for
// artist and album references.
type textRef struct {
	Name string `json:"#text"`
	MBID string `json:"mbid"`
}

type recentTrackNode struct {
	Artist   textRef `json:"artist"`
	Album    textRef `json:"album"`
	Name     string  `json:"name"`
	MBID     string  `json:"mbid"`
	Duration string  `json:"duration"`
	Date     struct {
		UTS string `json:"uts"`
	} `json:"date"`
	Attr struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

// trackNodeList absorbs the service's habit of returning a bare object
// instead of a one-element array when a page holds a single track.
type trackNodeList []recentTrackNode

func (l *trackNodeList) UnmarshalJSON(data []byte) error {
	var many []recentTrackNode
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}

	var one recentTrackNode
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = trackNodeList{one}
	return nil
}

type recentTracksEnvelope struct {
	RecentTracks struct {
		Track trackNodeList `json:"track"`
		Attr  struct {
			Page       string `json:"page"`
			TotalPages string `json:"totalPages"`
			Total      string `json:"total"`
		} `json:"@attr"`
	} `json:"recenttracks"`
}

func (n recentTrackNode) record() RecentTrack {
	rec := RecentTrack{
		NowPlaying: n.Attr.NowPlaying == "true",
		ArtistName: n.Artist.Name,
		ArtistMBID: n.Artist.MBID,
		AlbumName:  n.Album.Name,
		AlbumMBID:  n.Album.MBID,
		TrackName:  n.Name,
		TrackMBID:  n.MBID,
	}

	// timestamps arrive as integer text
	if ts, err := strconv.ParseInt(n.Date.UTS, 10, 64); err == nil {
		rec.Timestamp = ts
	}
	if d, err := strconv.ParseInt(n.Duration, 10, 64); err == nil {
		rec.Duration = d
	}

	return rec
}

// RecentTracksCursor streams a user's listening history newest-first, one
// page at a time, in the [database/sql.Rows] idiom:
//
//	it := client.RecentTracks(user, from)
//	for it.Next(ctx) {
//	    rec := it.Record()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
//
// End of stream and failure are explicit cursor states; a cursor never
// panics. Pages are fetched lazily on demand.
type RecentTracksCursor struct {
	client *Client
	user   string
	from   int64

	page       int
	totalPages int
	fetched    bool

	buf []RecentTrack
	idx int
	cur RecentTrack

	done bool
	err  error
}

// RecentTracks returns a cursor over the user's listening history.
//
// from restricts the stream to records with timestamps strictly greater than
// or equal to it; pass the resume cursor plus one for "strictly newer than
// the last import". A from of zero streams the entire history. No overall
// record cap is requested; the cursor walks every remaining page.
func (c *Client) RecentTracks(user string, from int64) *RecentTracksCursor {
	return &RecentTracksCursor{client: c, user: user, from: from}
}

// Next advances the cursor, fetching the next page when the current one is
// exhausted. It returns false at end of stream or on error; check [RecentTracksCursor.Err]
// to tell the two apart.
func (it *RecentTracksCursor) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}

	for it.idx >= len(it.buf) {
		if it.fetched && it.page >= it.totalPages {
			it.done = true
			return false
		}
		if err := it.fetchPage(ctx); err != nil {
			it.err = err
			return false
		}
		if len(it.buf) == 0 && it.page >= it.totalPages {
			it.done = true
			return false
		}
	}

	it.cur = it.buf[it.idx]
	it.idx++
	return true
}

// Record returns the record produced by the last successful call to [RecentTracksCursor.Next].
func (it *RecentTracksCursor) Record() RecentTrack { return it.cur }

// Err returns the error that terminated iteration, or nil after a clean end
// of stream.
func (it *RecentTracksCursor) Err() error { return it.err }

func (it *RecentTracksCursor) fetchPage(ctx context.Context) error {
	params := url.Values{}
	params.Set("user", it.user)
	params.Set("limit", strconv.Itoa(recentTracksPageSize))
	params.Set("page", strconv.Itoa(it.page+1))
	if it.from > 0 {
		params.Set("from", strconv.FormatInt(it.from, 10))
	}

	var envelope recentTracksEnvelope
	if err := it.client.do(ctx, "user.getRecentTracks", params, false, &envelope); err != nil {
		return err
	}

	it.fetched = true
	it.page++
	if tp, err := strconv.Atoi(envelope.RecentTracks.Attr.TotalPages); err == nil {
		it.totalPages = tp
	}

	it.buf = it.buf[:0]
	for _, node := range envelope.RecentTracks.Track {
		it.buf = append(it.buf, node.record())
	}
	it.idx = 0

	return nil
}
