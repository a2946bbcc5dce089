package lastfm

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

type trackInfoEnvelope struct {
	Track struct {
		Name     string `json:"name"`
		MBID     string `json:"mbid"`
		Duration string `json:"duration"`
	} `json:"track"`
}

// TrackInfo looks up the canonical duration for a track by its
// (artist, track) name pair.
//
// The lookup deliberately keys on names: identifier-based track.getInfo
// queries fail against the service for the overwhelming majority of tracks,
// so the identifier from the history feed is not usable here. A zero duration
// means the service does not know the track's length.
func (c *Client) TrackInfo(ctx context.Context, artist, track string) (time.Duration, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("track", track)

	var envelope trackInfoEnvelope
	if err := c.do(ctx, "track.getInfo", params, false, &envelope); err != nil {
		return 0, err
	}

	// duration arrives as millisecond text
	ms, err := strconv.ParseInt(envelope.Track.Duration, 10, 64)
	if err != nil || ms < 0 {
		return 0, nil
	}

	return time.Duration(ms/1000) * time.Second, nil
}
