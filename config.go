package devicedetect

import (
	"time"

	"github.com/dmitrymomot/devicedetect/pkg/cache"
	"github.com/dmitrymomot/devicedetect/pkg/dataset"
	"github.com/dmitrymomot/devicedetect/pkg/detection"
	"github.com/dmitrymomot/devicedetect/pkg/ratelimiter"
	"github.com/dmitrymomot/devicedetect/pkg/redis"
	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Config holds the settings of a Detector. Load it from the environment
// with config.Load or OpenFromEnv.
type Config struct {
	DataFile string `env:"DEVICEDETECT_DATA_FILE,required"`
	// TempFile removes DataFile once the dataset no longer needs it.
	TempFile bool `env:"DEVICEDETECT_TEMP_FILE"`
	// InMemory loads the whole file instead of reading through a cursor pool.
	InMemory bool `env:"DEVICEDETECT_IN_MEMORY"`
	PoolSize int  `env:"DEVICEDETECT_POOL_SIZE" envDefault:"4"`

	NodesCacheSize      int    `env:"DEVICEDETECT_NODES_CACHE_SIZE" envDefault:"15000"`
	ProfilesCacheSize   int    `env:"DEVICEDETECT_PROFILES_CACHE_SIZE" envDefault:"600"`
	StringsCacheSize    int    `env:"DEVICEDETECT_STRINGS_CACHE_SIZE" envDefault:"5000"`
	ValuesCacheSize     int    `env:"DEVICEDETECT_VALUES_CACHE_SIZE" envDefault:"5000"`
	SignaturesCacheSize int    `env:"DEVICEDETECT_SIGNATURES_CACHE_SIZE" envDefault:"500"`
	CachePolicy         string `env:"DEVICEDETECT_CACHE_POLICY" envDefault:"lru"`
	ResultCacheSize     int    `env:"DEVICEDETECT_RESULT_CACHE_SIZE" envDefault:"1000"`

	// ExactOnly disables every strategy except Exact. It wins over Methods.
	ExactOnly bool     `env:"DEVICEDETECT_EXACT_ONLY"`
	Methods   []string `env:"DEVICEDETECT_METHODS" envSeparator:","`

	// LastModified overrides the file's modification time (RFC 3339).
	LastModified time.Time `env:"DEVICEDETECT_LAST_MODIFIED"`

	// Redis, when its URL is set, replaces the in-process result cache so
	// several instances share match results.
	Redis redis.Config `envPrefix:"DEVICEDETECT_"`

	// RateLimit limits the HTTP API per client address. A batch costs one
	// token per header set. Buckets live in Redis when it is enabled.
	RateLimit ratelimiter.Config `envPrefix:"DEVICEDETECT_"`
	// TrustedIPHeaders name the proxy headers the client address is read
	// from, in order. Empty means RemoteAddr only.
	TrustedIPHeaders []string `env:"DEVICEDETECT_TRUSTED_IP_HEADERS" envSeparator:","`

	LogEnv   string `env:"DEVICEDETECT_LOG_ENV"`
	LogLevel string `env:"DEVICEDETECT_LOG_LEVEL"`
}

// DefaultConfig returns the configuration used for unset variables.
func DefaultConfig(dataFile string) Config {
	return Config{
		DataFile:            dataFile,
		PoolSize:            source.DefaultPoolSize,
		NodesCacheSize:      dataset.DefaultCacheSizes[dataset.KindNodes],
		ProfilesCacheSize:   dataset.DefaultCacheSizes[dataset.KindProfiles],
		StringsCacheSize:    dataset.DefaultCacheSizes[dataset.KindStrings],
		ValuesCacheSize:     dataset.DefaultCacheSizes[dataset.KindValues],
		SignaturesCacheSize: dataset.DefaultCacheSizes[dataset.KindSignatures],
		CachePolicy:         string(cache.PolicyLRU),
		ResultCacheSize:     detection.DefaultResultCacheSize,
		Redis: redis.Config{
			TTL:            time.Hour,
			RetryAttempts:  3,
			RetryInterval:  5 * time.Second,
			ConnectTimeout: 30 * time.Second,
		},
		RateLimit: ratelimiter.Config{
			RefillRate:     10,
			RefillInterval: time.Second,
		},
	}
}
