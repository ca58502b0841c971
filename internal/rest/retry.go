package rest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the 429 backoff.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy waits 1s, 2s, 4s before giving up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	return p
}

// rateLimitBackOff is an exponential backoff without jitter that honors a
// vendor Retry-After hint. Successive delays always grow: when the schedule
// or a capped hint would repeat or shrink, the delay is the previous one
// plus the initial interval.
type rateLimitBackOff struct {
	exp     *backoff.ExponentialBackOff
	initial time.Duration
	max     time.Duration
	last    time.Duration
	hint    time.Duration
}

func newRateLimitBackOff(p RetryPolicy) *rateLimitBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.Multiplier = p.Multiplier
	exp.MaxInterval = p.MaxInterval
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	return &rateLimitBackOff{exp: exp, initial: p.InitialInterval, max: p.MaxInterval}
}

// observe records the Retry-After hint of the response that just failed.
func (b *rateLimitBackOff) observe(hint time.Duration) {
	b.hint = hint
}

func (b *rateLimitBackOff) NextBackOff() time.Duration {
	d := b.exp.NextBackOff()
	if d == backoff.Stop {
		return backoff.Stop
	}
	if b.hint > d {
		d = min(b.hint, b.max)
	}
	b.hint = 0
	if d <= b.last {
		d = b.last + b.initial
	}
	b.last = d
	return d
}

func (b *rateLimitBackOff) Reset() {
	b.exp.Reset()
	b.last = 0
	b.hint = 0
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
