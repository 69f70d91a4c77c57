package config

import (
	"time"
)

type StoreConfig interface {
	GetSweepInterval() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetSweepInterval() time.Duration {
	return durationEnv("SWEEP_INTERVAL", 10*time.Minute)
}

func (Store) GetDefaultRefreshTokenExpiry() time.Duration {
	return durationEnv("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour) // 7 days
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
