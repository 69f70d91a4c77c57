package config

type PersistenceConfig interface {
	GetPostgresDSN() string
}

type Persistence struct{}

var _ PersistenceConfig = Persistence{}

// GetPostgresDSN returns the DSN of the repository backend. Empty means no
// Postgres-backed repositories are wired.
func (Persistence) GetPostgresDSN() string {
	return GetEnv("POSTGRES_DSN", "")
}
