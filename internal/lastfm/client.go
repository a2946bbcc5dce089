package lastfm

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Last.fm web service root.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// DefaultRateLimit keeps bulk imports under the service's informal
	// 5 requests per second ceiling.
	DefaultRateLimit = 4.0
)

// Last.fm API error codes the client cares about.
const (
	CodeInvalidSession     = 9
	CodeTokenUnauthorized  = 14
	CodeRateLimitExceeded  = 29
	CodeServiceUnavailable = 16
)

// Error is a Last.fm API-level failure, decoded from the error envelope the
// service returns in place of a result document.
type Error struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: %s (code %d)", e.Message, e.Code)
}

// RateLimited reports whether the failure was the service throttling us.
func (e *Error) RateLimited() bool { return e.Code == CodeRateLimitExceeded }

// Pending reports whether a session lookup failed only because the user has
// not granted the token yet. The signup flow polls until this clears.
func (e *Error) Pending() bool { return e.Code == CodeTokenUnauthorized }

// ClientOpts contains configuration options for creating a [Client].
type ClientOpts struct {
	APIKey     string
	APISecret  string
	BaseURL    string       // defaults to [DefaultBaseURL]
	HTTPClient *http.Client // defaults to [http.DefaultClient]
	RateLimit  float64      // requests per second, defaults to [DefaultRateLimit]
}

// Client is a Last.fm web service client.
//
// A zero-value Client is not usable; construct with [NewClient]. The client is
// safe for concurrent use, though the import pipeline drives it strictly
// sequentially.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Last.fm client with the provided options.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		apiSecret:  opts.APISecret,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}
}

// do performs one API call and decodes the JSON response into result.
//
// signed requests carry an api_sig per the Last.fm signing scheme; format=json is appended
// after signing because the signature excludes it.
func (c *Client) do(ctx context.Context, method string, params url.Values, signed bool, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	if signed {
		params.Set("api_sig", c.sign(params))
	}
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// The service reports failures in-band; the error envelope takes
	// precedence over the HTTP status code.
	var apiErr Error
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return &apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("lastfm: unexpected status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// sign computes the api_sig for a signed request: md5 over the sorted
// key/value concatenation plus the shared secret.
func (c *Client) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "format" || k == "callback" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params.Get(k))
	}
	sb.WriteString(c.apiSecret)

	return fmt.Sprintf("%x", md5.Sum([]byte(sb.String())))
}
