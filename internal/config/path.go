package config

const (
	DefaultConfigFile = "postdeck.yaml"
	EnvFile           = ".env"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendSQLite = "sqlite"
	BackendFS     = "fs"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

var (
	DatabaseDrivers   = []string{DriverSQLite, DriverPostgres}
	SessionBackends   = []string{BackendSQLite, BackendFS, BackendMemory}
	BlobCacheBackends = []string{BackendSQLite, BackendFS, BackendRedis, BackendMemory}
	StorageBackends   = []string{BackendS3, BackendFS, BackendMemory}
	Compressions      = []string{"zstd", "gzip", "none"}
)
