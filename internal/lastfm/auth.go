package lastfm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// authBaseURL is the page a user visits to grant a request token.
const authBaseURL = "https://www.last.fm/api/auth/"

// Session is an authenticated Last.fm session obtained from auth.getSession.
// The key does not expire and is persisted alongside the local account.
type Session struct {
	Name       string
	Key        string
	Subscriber bool
}

type tokenEnvelope struct {
	Token string `json:"token"`
}

type sessionEnvelope struct {
	Session struct {
		Name       string `json:"name"`
		Key        string `json:"key"`
		Subscriber int    `json:"subscriber"`
	} `json:"session"`
}

// Token requests an unauthorized request token (auth.getToken, signed).
func (c *Client) Token(ctx context.Context) (string, error) {
	var envelope tokenEnvelope
	if err := c.do(ctx, "auth.getToken", url.Values{}, true, &envelope); err != nil {
		return "", err
	}
	if envelope.Token == "" {
		return "", fmt.Errorf("lastfm: empty token in response")
	}
	return envelope.Token, nil
}

// AuthURL returns the authorization page URL for a request token. callback,
// when non-empty, is where the service redirects the browser after the user
// grants access; leave it empty for the polling flow.
func (c *Client) AuthURL(token, callback string) string {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("token", token)
	if callback != "" {
		params.Set("cb", callback)
	}
	return authBaseURL + "?" + params.Encode()
}

// Session exchanges an authorized request token for a session key
// (auth.getSession, signed).
//
// Until the user grants the token in their browser, the service answers with
// a "token not authorized" error; detect that case with [*Error.Pending] and
// retry, or use [Client.WaitForSession].
func (c *Client) Session(ctx context.Context, token string) (*Session, error) {
	params := url.Values{}
	params.Set("token", token)

	var envelope sessionEnvelope
	if err := c.do(ctx, "auth.getSession", params, true, &envelope); err != nil {
		return nil, err
	}

	return &Session{
		Name:       envelope.Session.Name,
		Key:        envelope.Session.Key,
		Subscriber: envelope.Session.Subscriber == 1,
	}, nil
}

// WaitForSession polls [Client.Session] until the user authorizes the token,
// the context is cancelled, or a non-pending error occurs. interval defaults
// to one second.
func (c *Client) WaitForSession(ctx context.Context, token string, interval time.Duration) (*Session, error) {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		session, err := c.Session(ctx, token)
		if err == nil {
			return session, nil
		}

		var apiErr *Error
		if !errors.As(err, &apiErr) || !apiErr.Pending() {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
