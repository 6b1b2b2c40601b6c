package redis

import "time"

// Config describes how to reach the Redis server holding shared match
// results. An empty URL disables Redis.
type Config struct {
	URL            string        `env:"REDIS_URL"`                              // redis://:password@localhost:6379/0
	TTL            time.Duration `env:"REDIS_TTL" envDefault:"1h"`              // lifetime of a cached entry, 0 keeps entries forever
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`    // ping attempts before giving up
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`   // pause between attempts
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // overall deadline for Connect
}

// Enabled reports whether a Redis URL is configured.
func (c Config) Enabled() bool { return c.URL != "" }
