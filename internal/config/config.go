package config

type Config interface {
	EnvConfig
	StoreConfig
	UpstreamConfig
	PersistenceConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Store
	Upstream
	Persistence
}

func New() Config {
	return mainConfig{}
}
