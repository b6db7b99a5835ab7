package config

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type StorageConfig interface {
	GetDBDriver() string
	GetDatabaseURL() string
	GetDBMaxConns() int32
}

type Storage struct {
	Driver      string `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:actions.db?cache=shared"`
	MaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetDBDriver() string {
	return s.Driver
}

func (s Storage) GetDatabaseURL() string {
	return s.DatabaseURL
}

func (s Storage) GetDBMaxConns() int32 {
	return s.MaxConns
}
