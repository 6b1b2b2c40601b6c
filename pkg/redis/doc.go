// Package redis connects to the Redis server that backs the shared match
// result cache.
//
// Connect retries the initial ping according to Config, and Healthcheck
// plugs the connection into readiness probes. Config fields carry env tags
// so the struct can be embedded in a larger configuration with a prefix:
//
//	type Config struct {
//		Redis redis.Config `envPrefix:"DEVICEDETECT_"`
//	}
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Errors wrap the go-redis cause with errors.Join, so both the sentinel
// (ErrRedisNotReady and friends) and the cause match errors.Is.
package redis
