// Package sessionstore composes the refresh token registry and the upstream
// token cache into the single in-process service consumed by the
// authentication flow. A Store is constructed once at startup and passed by
// reference; there is no package-level instance. State is not persisted across
// restarts — after a restart every client re-authenticates.
package sessionstore

import (
	"time"

	"github.com/vitalsign/go-session-store/token/refresh"
	"github.com/vitalsign/go-session-store/token/upstream"
)

// Store is the process-wide session and token lifecycle store.
type Store struct {
	refreshTokens  *refresh.Registry
	upstreamTokens *upstream.Cache
}

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithNowFunc sets the now time function on both child stores (primarily for
// testing)
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.refreshTokens = refresh.NewRegistry(refresh.WithNowFunc(nowFunc))
		s.upstreamTokens = upstream.NewCache(upstream.WithNowFunc(nowFunc))
	}
}

// New creates an empty session store.
func New(options ...Option) *Store {
	s := &Store{
		refreshTokens:  refresh.NewRegistry(),
		upstreamTokens: upstream.NewCache(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// RefreshTokens returns the refresh token registry.
func (s *Store) RefreshTokens() *refresh.Registry {
	return s.refreshTokens
}

// UpstreamTokens returns the upstream token cache.
func (s *Store) UpstreamTokens() *upstream.Cache {
	return s.upstreamTokens
}

// IssueRefreshToken records a refresh token issued by the authentication flow.
func (s *Store) IssueRefreshToken(tokenID, userID string, expiresAt time.Time) error {
	return s.refreshTokens.Issue(tokenID, userID, expiresAt)
}

// ValidateRefreshToken returns the entry for tokenID if live; absent means
// invalid or expired.
func (s *Store) ValidateRefreshToken(tokenID string) (refresh.Entry, bool) {
	return s.refreshTokens.Validate(tokenID)
}

// RevokeRefreshToken removes one refresh token (logout).
func (s *Store) RevokeRefreshToken(tokenID string) {
	s.refreshTokens.Revoke(tokenID)
}

// RevokeAllForUser removes every refresh token bound to userID and returns
// the number revoked.
func (s *Store) RevokeAllForUser(userID string) int {
	return s.refreshTokens.RevokeAllForUser(userID)
}

// SaveUpstreamToken caches an upstream platform token for userID.
func (s *Store) SaveUpstreamToken(userID, token string, expiresAt time.Time) {
	s.upstreamTokens.Save(userID, token, expiresAt)
}

// FetchUpstreamToken returns the cached upstream token for userID if live.
func (s *Store) FetchUpstreamToken(userID string) (string, bool) {
	return s.upstreamTokens.Fetch(userID)
}

// InvalidateUpstreamToken drops the cached upstream token for userID.
func (s *Store) InvalidateUpstreamToken(userID string) {
	s.upstreamTokens.Invalidate(userID)
}

// SweepExpired removes expired entries from both stores and returns the
// per-store counts. Invoked by an external scheduler.
func (s *Store) SweepExpired(now time.Time) (refreshRemoved, upstreamRemoved int) {
	return s.refreshTokens.SweepExpired(now), s.upstreamTokens.SweepExpired(now)
}
