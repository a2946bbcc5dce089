package lastfm

import (
	"context"
	"net/url"
	"strconv"
)

// UserInfo is the subset of a Last.fm user profile the archive needs.
type UserInfo struct {
	Name      string
	Playcount int
}

type userInfoEnvelope struct {
	User struct {
		Name      string `json:"name"`
		Playcount string `json:"playcount"`
	} `json:"user"`
}

// UserInfo fetches a user's profile, primarily for the total play count that
// bounds an import run.
func (c *Client) UserInfo(ctx context.Context, user string) (*UserInfo, error) {
	params := url.Values{}
	params.Set("user", user)

	var envelope userInfoEnvelope
	if err := c.do(ctx, "user.getInfo", params, false, &envelope); err != nil {
		return nil, err
	}

	info := &UserInfo{Name: envelope.User.Name}
	if n, err := strconv.Atoi(envelope.User.Playcount); err == nil {
		info.Playcount = n
	}

	return info, nil
}
