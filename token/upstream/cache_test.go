package upstream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitalsign/go-session-store/token/upstream"
)

const (
	testUserID = "user-1"
	testToken  = "eyJ0b2tlbiI6ICJmaXJzdCJ9"
)

func newTestCache() (*upstream.Cache, *time.Time) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := upstream.NewCache(upstream.WithNowFunc(func() time.Time { return now }))
	return c, &now
}

func TestSaveFetchRoundTrip(t *testing.T) {
	c, now := newTestCache()

	c.Save(testUserID, testToken, now.Add(time.Hour))

	tok, ok := c.Fetch(testUserID)
	require.True(t, ok)
	require.Equal(t, testToken, tok)
}

func TestFetchAfterExpiry(t *testing.T) {
	c, now := newTestCache()
	c.Save(testUserID, testToken, now.Add(time.Hour))

	*now = now.Add(2 * time.Hour)

	_, ok := c.Fetch(testUserID)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestSaveOverwritesPreviousToken(t *testing.T) {
	c, now := newTestCache()

	c.Save(testUserID, "first", now.Add(time.Hour))
	c.Save(testUserID, "second", now.Add(2*time.Hour))

	tok, ok := c.Fetch(testUserID)
	require.True(t, ok)
	require.Equal(t, "second", tok)
	require.Equal(t, 1, c.Len())
}

func TestSaveDropsMalformedInput(t *testing.T) {
	c, now := newTestCache()

	c.Save("", testToken, now.Add(time.Hour))
	c.Save(testUserID, "", now.Add(time.Hour))

	require.Equal(t, 0, c.Len())
}

func TestInvalidateIsIdempotent(t *testing.T) {
	c, now := newTestCache()
	c.Save(testUserID, testToken, now.Add(time.Hour))

	c.Invalidate(testUserID)
	c.Invalidate(testUserID)
	c.Invalidate("never-cached")

	_, ok := c.Fetch(testUserID)
	require.False(t, ok)
}

func TestSweepExpired(t *testing.T) {
	c, now := newTestCache()
	c.Save("user-a", "tok-a", now.Add(time.Hour))
	c.Save("user-b", "tok-b", now.Add(3*time.Hour))

	removed := c.SweepExpired(now.Add(2 * time.Hour))
	require.Equal(t, 1, removed)

	_, ok := c.Fetch("user-b")
	require.True(t, ok)
}
