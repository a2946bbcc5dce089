package tasks

import (
	"context"
	"time"
)

const (
	defaultResolveAttempts = 5
	defaultResolveBackoff  = time.Second
)

// DurationLookup fetches a track length by artist and track name.
type DurationLookup func(ctx context.Context, artist, track string) (time.Duration, error)

// DurationResolver retries metadata lookups that fail transiently, with a
// fixed pause between attempts.
//
// A lookup that answers is final, whatever it reports: a zero duration is
// the catalog saying it does not know the track's length, not a fault worth
// retrying. Only failed requests are attempted again.
type DurationResolver struct {
	lookup   DurationLookup
	attempts int
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewDurationResolver creates a resolver around lookup.
// Non-positive attempts or backoff fall back to the defaults (5 tries, 1s apart).
func NewDurationResolver(lookup DurationLookup, attempts int, backoff time.Duration) *DurationResolver {
	if attempts <= 0 {
		attempts = defaultResolveAttempts
	}
	if backoff <= 0 {
		backoff = defaultResolveBackoff
	}
	return &DurationResolver{
		lookup:   lookup,
		attempts: attempts,
		backoff:  backoff,
		sleep:    sleepContext,
	}
}

// Resolve attempts to determine the track's length.
//
// Returns zero with a nil error when the catalog reported no length or every
// attempt failed; the caller decides what an unknown duration means. The
// returned error is non-nil only when ctx is done.
func (r *DurationResolver) Resolve(ctx context.Context, artist, track string) (time.Duration, error) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		length, err := r.lookup(ctx, artist, track)
		if err == nil {
			return length, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if attempt < r.attempts {
			if err := r.sleep(ctx, r.backoff); err != nil {
				return 0, err
			}
		}
	}
	return 0, nil
}

// sleepContext pauses for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
