package expiry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitalsign/go-session-store/expiry"
)

func testClock() (*time.Time, func() time.Time) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	return &now, func() time.Time { return now }
}

func TestSetGetRoundTrip(t *testing.T) {
	now, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, int](nowFunc))

	m.Set("a", 1, now.Add(time.Minute))
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestGetAbsentKey(t *testing.T) {
	_, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, int](nowFunc))

	_, ok := m.Get("missing")
	require.False(t, ok)
}

func TestLazyExpiryDeletesOnRead(t *testing.T) {
	now, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, int](nowFunc))

	m.Set("a", 1, now.Add(time.Minute))
	*now = now.Add(time.Minute) // deadline reached exactly

	_, ok := m.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, m.Len(), "expired entry should be removed by the read")
}

func TestZeroDeadlineNeverExpires(t *testing.T) {
	now, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, int](nowFunc))

	m.Set("a", 1, time.Time{})
	*now = now.Add(1000 * time.Hour)

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	require.Equal(t, 0, m.Sweep(*now))
}

func TestSetOverwrites(t *testing.T) {
	now, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, string](nowFunc))

	m.Set("a", "first", now.Add(time.Minute))
	m.Set("a", "second", now.Add(2*time.Minute))

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, "second", v)
	require.Equal(t, 1, m.Len())
}

func TestDeleteIsIdempotent(t *testing.T) {
	now, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, int](nowFunc))

	m.Set("a", 1, now.Add(time.Minute))
	m.Delete("a")
	m.Delete("a")
	m.Delete("never-existed")

	require.Equal(t, 0, m.Len())
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	now, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, int](nowFunc))

	m.Set("expired-1", 1, now.Add(time.Minute))
	m.Set("expired-2", 2, now.Add(2*time.Minute))
	m.Set("live", 3, now.Add(time.Hour))

	removed := m.Sweep(now.Add(5 * time.Minute))
	require.Equal(t, 2, removed)
	require.Equal(t, 1, m.Len())

	v, ok := m.Get("live")
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestDeleteWhere(t *testing.T) {
	now, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, string](nowFunc))

	m.Set("t1", "alice", now.Add(time.Hour))
	m.Set("t2", "bob", now.Add(time.Hour))
	m.Set("t3", "alice", now.Add(time.Hour))

	removed := m.DeleteWhere(func(_ string, owner string) bool { return owner == "alice" })
	require.Equal(t, 2, removed)

	_, ok := m.Get("t1")
	require.False(t, ok)
	v, ok := m.Get("t2")
	require.True(t, ok)
	require.Equal(t, "bob", v)
}

func TestConcurrentExpiringReads(t *testing.T) {
	now, nowFunc := testClock()
	m := expiry.New(expiry.WithNowFunc[string, int](nowFunc))

	m.Set("a", 1, now.Add(time.Minute))
	*now = now.Add(2 * time.Minute)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, ok := m.Get("a")
			done <- ok
		}()
	}
	for i := 0; i < 10; i++ {
		require.False(t, <-done, "no reader may observe a stale value")
	}
	require.Equal(t, 0, m.Len())
}
