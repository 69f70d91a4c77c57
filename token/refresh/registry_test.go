package refresh_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/vitalsign/go-session-store/internal/errors"
	"github.com/vitalsign/go-session-store/token/refresh"
)

const (
	testTokenID = "token-1"
	testUserID  = "user-1"
)

func newTestRegistry() (*refresh.Registry, *time.Time) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	r := refresh.NewRegistry(refresh.WithNowFunc(func() time.Time { return now }))
	return r, &now
}

func TestIssueAndValidate(t *testing.T) {
	r, now := newTestRegistry()
	expiresAt := now.Add(10 * time.Minute)

	require.NoError(t, r.Issue(testTokenID, testUserID, expiresAt))

	entry, ok := r.Validate(testTokenID)
	require.True(t, ok)
	require.Equal(t, testUserID, entry.UserID)
	require.Equal(t, expiresAt, entry.ExpiresAt)
}

func TestIssueRejectsEmptyIdentifiers(t *testing.T) {
	r, now := newTestRegistry()
	expiresAt := now.Add(10 * time.Minute)

	err := r.Issue("", testUserID, expiresAt)
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	err = r.Issue(testTokenID, "", expiresAt)
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	require.Equal(t, 0, r.Len())
}

func TestValidateAfterExpiryPurges(t *testing.T) {
	r, now := newTestRegistry()
	require.NoError(t, r.Issue(testTokenID, testUserID, now.Add(10*time.Minute)))

	*now = now.Add(11 * time.Minute)

	_, ok := r.Validate(testTokenID)
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
}

func TestSweepExpiredRemovesUnreadEntries(t *testing.T) {
	r, now := newTestRegistry()
	require.NoError(t, r.Issue("abandoned", testUserID, now.Add(10*time.Minute)))
	require.NoError(t, r.Issue("live", testUserID, now.Add(time.Hour)))

	removed := r.SweepExpired(now.Add(30 * time.Minute))
	require.Equal(t, 1, removed)
	require.Equal(t, 1, r.Len())
}

func TestIssueOverwritesSameTokenID(t *testing.T) {
	r, now := newTestRegistry()
	require.NoError(t, r.Issue(testTokenID, "user-a", now.Add(10*time.Minute)))
	require.NoError(t, r.Issue(testTokenID, "user-b", now.Add(20*time.Minute)))

	entry, ok := r.Validate(testTokenID)
	require.True(t, ok)
	require.Equal(t, "user-b", entry.UserID)
	require.Equal(t, 1, r.Len())
}

func TestRevokeIsIdempotent(t *testing.T) {
	r, now := newTestRegistry()
	require.NoError(t, r.Issue(testTokenID, testUserID, now.Add(10*time.Minute)))

	r.Revoke(testTokenID)
	r.Revoke(testTokenID)
	r.Revoke("never-issued")

	_, ok := r.Validate(testTokenID)
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
}

func TestRevokeAllForUser(t *testing.T) {
	r, now := newTestRegistry()
	expiresAt := now.Add(10 * time.Minute)

	require.NoError(t, r.Issue("T1", "user-a", expiresAt))
	require.NoError(t, r.Issue("T2", "user-b", expiresAt))
	require.NoError(t, r.Issue("T3", "user-a", expiresAt))

	revoked := r.RevokeAllForUser("user-a")
	require.Equal(t, 2, revoked)

	_, ok := r.Validate("T1")
	require.False(t, ok)
	_, ok = r.Validate("T3")
	require.False(t, ok)

	entry, ok := r.Validate("T2")
	require.True(t, ok)
	require.Equal(t, "user-b", entry.UserID)
}

func TestConcurrentSessionsForOneUser(t *testing.T) {
	r, now := newTestRegistry()
	expiresAt := now.Add(10 * time.Minute)

	require.NoError(t, r.Issue("phone", testUserID, expiresAt))
	require.NoError(t, r.Issue("laptop", testUserID, expiresAt))
	require.Equal(t, 2, r.Len())

	r.Revoke("phone")

	_, ok := r.Validate("laptop")
	require.True(t, ok)
}
