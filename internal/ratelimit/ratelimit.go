// Package ratelimit keeps the most recent quota signals seen per (provider, model).
//
// Entries never expire. A value stays in use until a later response replaces it or the
// process restarts.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultWait is used when no reset time is cached or it cannot be interpreted.
const DefaultWait = 60 * time.Second

// Header names, lower-case. Reset accepts both spellings; the first present wins.
const (
	headerRemainingRequests = "x-ratelimit-remaining-requests"
	headerLimitRequests     = "x-ratelimit-limit-requests"
	headerRemainingTokens   = "x-ratelimit-remaining-tokens"
	headerLimitTokens       = "x-ratelimit-limit-tokens"
	headerResetRequests     = "x-ratelimit-reset-requests"
	headerReset             = "x-ratelimit-reset"
)

// Limit is a cached quota snapshot. Nil fields were absent from the response.
type Limit struct {
	RemainingRequests *int64    `json:"remaining_requests"`
	LimitRequests     *int64    `json:"limit_requests"`
	RemainingTokens   *int64    `json:"remaining_tokens"`
	LimitTokens       *int64    `json:"limit_tokens"`
	Reset             string    `json:"reset,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Exhausted reports whether remaining requests or tokens is known and at or below zero.
func (l Limit) Exhausted() bool {
	return (l.RemainingRequests != nil && *l.RemainingRequests <= 0) ||
		(l.RemainingTokens != nil && *l.RemainingTokens <= 0)
}

// ParseHeaders extracts the recognized quota headers. Unknown or malformed headers are
// ignored; the second return is false when nothing was recognized.
func ParseHeaders(h http.Header) (Limit, bool) {
	lower := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			lower[strings.ToLower(k)] = strings.TrimSpace(v[0])
		}
	}

	var out Limit
	found := false

	readInt := func(key string) *int64 {
		v, ok := lower[key]
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil {
				return nil
			}
			if n, ok = wholeNumber(f); !ok {
				return nil
			}
		}
		found = true
		return &n
	}

	out.RemainingRequests = readInt(headerRemainingRequests)
	out.LimitRequests = readInt(headerLimitRequests)
	out.RemainingTokens = readInt(headerRemainingTokens)
	out.LimitTokens = readInt(headerLimitTokens)

	for _, key := range []string{headerResetRequests, headerReset} {
		if v := lower[key]; v != "" {
			out.Reset = v
			found = true
			break
		}
	}
	return out, found
}

type key struct {
	provider string
	model    string
}

// Cache is the per-process rate-limit cache. It is safe for concurrent use; concurrent
// updates for the same pair are last-writer-wins.
type Cache struct {
	mu          sync.Mutex
	entries     map[key]Limit
	defaultWait time.Duration
	now         func() time.Time
}

// New creates a cache. A non-positive defaultWait falls back to DefaultWait.
func New(defaultWait time.Duration) *Cache {
	if defaultWait <= 0 {
		defaultWait = DefaultWait
	}
	return &Cache{
		entries:     make(map[key]Limit),
		defaultWait: defaultWait,
		now:         time.Now,
	}
}

// Update records the quota headers of a response. Responses without recognized headers
// leave the cached entry untouched. Returns whether an entry was written.
func (c *Cache) Update(provider, model string, headers http.Header) bool {
	limit, ok := ParseHeaders(headers)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	limit.UpdatedAt = c.now()
	c.entries[key{provider, model}] = limit
	return true
}

// Get returns the cached snapshot for the pair.
func (c *Cache) Get(provider, model string) (Limit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.entries[key{provider, model}]
	return l, ok
}

// IsExhausted reports whether the cached snapshot for the pair shows no remaining quota.
// Absent data is not exhausted.
func (c *Cache) IsExhausted(provider, model string) bool {
	l, ok := c.Get(provider, model)
	return ok && l.Exhausted()
}

// WaitSeconds estimates how long until the pair's quota resets, in whole seconds.
func (c *Cache) WaitSeconds(provider, model string) int {
	l, ok := c.Get(provider, model)
	if !ok || l.Reset == "" {
		return seconds(c.defaultWait)
	}
	at, ok := resetTime(l.Reset, l.UpdatedAt)
	if !ok {
		return seconds(c.defaultWait)
	}
	wait := at.Sub(c.now())
	if wait < 0 {
		return 0
	}
	return seconds(wait)
}

// resetTime interprets a reset header: an RFC3339 timestamp, unix epoch seconds, a Go
// duration ("2m59.56s") or a plain number of seconds. Relative forms count from updatedAt.
func resetTime(v string, updatedAt time.Time) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(n) || n < 0 || n >= maxResetSeconds {
			return time.Time{}, false
		}
		if n >= 1e9 {
			sec, frac := math.Modf(n)
			return time.Unix(int64(sec), int64(frac*1e9)), true
		}
		return updatedAt.Add(time.Duration(n * float64(time.Second))), true
	}
	if d, err := time.ParseDuration(v); err == nil {
		return updatedAt.Add(d), true
	}
	return time.Time{}, false
}

// maxResetSeconds bounds numeric reset values; larger epochs are far past any real reset.
const maxResetSeconds = 1e11

// wholeNumber truncates a float header value, rejecting NaN, infinities and values
// outside the int64 range.
func wholeNumber(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
