package upstream

import (
	"time"

	"github.com/vitalsign/go-session-store/expiry"
)

type cachedToken struct {
	token string
}

// Cache holds at most one upstream platform access token per user. It is
// best-effort: malformed input is dropped rather than rejected, since the
// upstream platform remains the source of truth and a cache miss only costs a
// re-fetch.
type Cache struct {
	tokens  *expiry.Map[string, cachedToken]
	nowFunc func() time.Time
}

// Option defines a function type to modify the Cache instance.
type Option func(*Cache)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(c *Cache) {
		c.nowFunc = nowFunc
	}
}

// NewCache creates an empty upstream token cache.
func NewCache(options ...Option) *Cache {
	c := &Cache{nowFunc: time.Now}
	for _, opt := range options {
		opt(c)
	}
	c.tokens = expiry.New(expiry.WithNowFunc[string, cachedToken](c.nowFunc))
	return c
}

// Save caches token for userID until expiresAt, overwriting any previous
// token for the same user. Empty userID or token is silently not cached.
func (c *Cache) Save(userID, token string, expiresAt time.Time) {
	if userID == "" || token == "" {
		return
	}
	c.tokens.Set(userID, cachedToken{token: token}, expiresAt)
}

// Fetch returns the cached token for userID if present and unexpired. Callers
// re-fetch from the upstream platform on a miss and Save the result.
func (c *Cache) Fetch(userID string) (string, bool) {
	ct, ok := c.tokens.Get(userID)
	if !ok {
		return "", false
	}
	return ct.token, true
}

// Invalidate drops the cached token for userID, e.g. on logout or when the
// upstream platform rejects it. Invalidating an absent entry is a no-op.
func (c *Cache) Invalidate(userID string) {
	c.tokens.Delete(userID)
}

// SweepExpired removes every token expired at now and returns the number
// removed. Scheduled independently of the refresh-token sweep; the two caches
// have different lifetimes and call frequencies.
func (c *Cache) SweepExpired(now time.Time) int {
	return c.tokens.Sweep(now)
}

// Len returns the number of cached tokens, including expired entries not yet
// swept.
func (c *Cache) Len() int {
	return c.tokens.Len()
}
