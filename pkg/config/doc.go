// Package config loads typed configuration from environment variables.
//
// It wraps github.com/caarlos0/env/v11 for struct parsing and
// github.com/joho/godotenv for .env files. Each configuration type is parsed
// once and cached for the lifetime of the process; ResetCache and
// ForceReloadConfig exist for tests and reloads.
//
//	type Config struct {
//		DataFile string `env:"DEVICEDETECT_DATA_FILE,required"`
//		PoolSize int    `env:"DEVICEDETECT_POOL_SIZE" envDefault:"4"`
//	}
//
//	if err := config.LoadEnv("./deploy/.env"); err != nil {
//		log.Fatal(err)
//	}
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Errors are sentinels comparable with errors.Is: ErrParsingConfig,
// ErrLoadingEnvFile, ErrConfigNotLoaded and ErrNilPointer.
package config
