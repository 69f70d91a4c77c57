package config

import "time"

// UpstreamConfig configures the connection to the upstream IoT platform from
// which per-user access tokens are fetched and cached.
type UpstreamConfig interface {
	GetUpstreamBaseURL() string
	GetUpstreamUsername() string
	GetUpstreamPassword() string
	GetUpstreamTokenExpiry() time.Duration
}

type Upstream struct{}

var _ UpstreamConfig = Upstream{}

func (Upstream) GetUpstreamBaseURL() string {
	return GetEnv("UPSTREAM_BASE_URL", "http://localhost:9090")
}

func (Upstream) GetUpstreamUsername() string {
	return GetEnv("UPSTREAM_USERNAME", "")
}

func (Upstream) GetUpstreamPassword() string {
	return GetEnv("UPSTREAM_PASSWORD", "")
}

// GetUpstreamTokenExpiry bounds how long a fetched upstream token is cached;
// the platform's login response does not report one.
func (Upstream) GetUpstreamTokenExpiry() time.Duration {
	return durationEnv("UPSTREAM_TOKEN_EXPIRY", 50*time.Minute)
}
