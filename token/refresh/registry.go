package refresh

import (
	"time"

	"github.com/vitalsign/go-session-store/expiry"
	apperrors "github.com/vitalsign/go-session-store/internal/errors"
)

// Entry is the server-side record bound to an issued refresh token. The token
// identifier itself is generated by the authentication flow (token claims or a
// random id); the registry only stores the association.
type Entry struct {
	UserID    string    // Owning principal
	ExpiresAt time.Time // Absolute deadline after which the token is invalid
}

// Registry tracks issued refresh tokens keyed by token identifier. It is the
// authoritative record for refresh-token exchange: a token that Validate
// reports absent must be treated as invalid or expired by the caller.
type Registry struct {
	tokens  *expiry.Map[string, Entry]
	nowFunc func() time.Time
}

// Option defines a function type to modify the Registry instance.
type Option func(*Registry)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(r *Registry) {
		r.nowFunc = nowFunc
	}
}

// NewRegistry creates an empty refresh token registry.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{nowFunc: time.Now}
	for _, opt := range options {
		opt(r)
	}
	r.tokens = expiry.New(expiry.WithNowFunc[string, Entry](r.nowFunc))
	return r
}

// Issue records a refresh token for userID expiring at expiresAt. An existing
// entry under the same tokenID is silently overwritten; callers are expected
// to generate collision-resistant identifiers.
func (r *Registry) Issue(tokenID, userID string, expiresAt time.Time) error {
	if tokenID == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidArgument, "[Registry.Issue] empty token id")
	}
	if userID == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidArgument, "[Registry.Issue] empty user id")
	}
	r.tokens.Set(tokenID, Entry{UserID: userID, ExpiresAt: expiresAt}, expiresAt)
	return nil
}

// Validate returns the entry for tokenID if it exists and has not expired.
// Expired entries are purged on the way out. Absence is not an error.
func (r *Registry) Validate(tokenID string) (Entry, bool) {
	return r.tokens.Get(tokenID)
}

// Revoke removes one refresh token. Revoking an absent token is a no-op.
func (r *Registry) Revoke(tokenID string) {
	r.tokens.Delete(tokenID)
}

// RevokeAllForUser removes every refresh token bound to userID and returns the
// number revoked. Used for logout-all and forced invalidation (password reset,
// account lock).
func (r *Registry) RevokeAllForUser(userID string) int {
	return r.tokens.DeleteWhere(func(_ string, e Entry) bool {
		return e.UserID == userID
	})
}

// SweepExpired removes every entry expired at now and returns the number
// removed. Invoked by an external scheduler; the registry does not schedule
// its own sweeps.
func (r *Registry) SweepExpired(now time.Time) int {
	return r.tokens.Sweep(now)
}

// Len returns the number of stored entries, including expired entries not yet
// swept.
func (r *Registry) Len() int {
	return r.tokens.Len()
}
