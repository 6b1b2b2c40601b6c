package devicedetect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/devicedetect/pkg/cache"
	"github.com/dmitrymomot/devicedetect/pkg/config"
	"github.com/dmitrymomot/devicedetect/pkg/dataset"
	"github.com/dmitrymomot/devicedetect/pkg/detection"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
	"github.com/dmitrymomot/devicedetect/pkg/ratelimiter"
	"github.com/dmitrymomot/devicedetect/pkg/redis"
)

// Detector bundles an open dataset, its matching provider and the result
// cache into a single handle configured from Config.
type Detector struct {
	ds       *dataset.Dataset
	provider *detection.Provider
	results  cache.Statistics
	log      *slog.Logger

	redis     goredis.UniversalClient
	ownsRedis bool

	limiter   *ratelimiter.Bucket
	limits    *ratelimiter.MemoryStore
	ipHeaders []string

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	log         *slog.Logger
	redis       goredis.UniversalClient
	datasetOpts []dataset.Option
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger, overriding Config.LogEnv.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRedisClient uses client for the shared result cache instead of
// connecting to Config.Redis.URL. The Detector does not close it.
func WithRedisClient(client goredis.UniversalClient) Option {
	return func(o *options) { o.redis = client }
}

// WithDatasetOptions passes extra options to dataset.OpenFile. They are
// applied after the ones derived from Config.
func WithDatasetOptions(opts ...dataset.Option) Option {
	return func(o *options) { o.datasetOpts = append(o.datasetOpts, opts...) }
}

const dataFileEnv = "DEVICEDETECT_DATA_FILE"

// OpenFromEnv loads Config from the environment and opens a Detector.
func OpenFromEnv(ctx context.Context, opts ...Option) (*Detector, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		if v, ok := os.LookupEnv(dataFileEnv); !ok || v == "" {
			return nil, errors.Join(ErrMissingDataFile, err)
		}
		return nil, err
	}
	return Open(ctx, cfg, opts...)
}

// Open opens the dataset described by cfg and prepares a provider for it.
// When cfg.Redis is enabled the connection is established before Open
// returns, and failure closes the dataset again.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Detector, error) {
	if cfg.DataFile == "" {
		return nil, ErrMissingDataFile
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = slog.Default()
		if cfg.LogEnv != "" {
			o.log = logger.New(
				logger.WithEnvironment(cfg.LogEnv, "devicedetect"),
				logger.WithLevelName(cfg.LogLevel),
			)
		}
	}

	policy, err := cache.ParsePolicy(cfg.CachePolicy)
	if err != nil {
		return nil, err
	}
	methods, err := methodsFor(cfg)
	if err != nil {
		return nil, err
	}

	dsOpts := []dataset.Option{
		dataset.WithLogger(o.log),
		dataset.WithPoolSize(cfg.PoolSize),
		dataset.WithTempFile(cfg.TempFile),
		dataset.WithInMemory(cfg.InMemory),
		dataset.WithCache(dataset.KindNodes, policy, cfg.NodesCacheSize),
		dataset.WithCache(dataset.KindProfiles, policy, cfg.ProfilesCacheSize),
		dataset.WithCache(dataset.KindStrings, policy, cfg.StringsCacheSize),
		dataset.WithCache(dataset.KindValues, policy, cfg.ValuesCacheSize),
		dataset.WithCache(dataset.KindSignatures, policy, cfg.SignaturesCacheSize),
	}
	if !cfg.LastModified.IsZero() {
		dsOpts = append(dsOpts, dataset.WithLastModified(cfg.LastModified))
	}
	ds, err := dataset.OpenFile(cfg.DataFile, append(dsOpts, o.datasetOpts...)...)
	if err != nil {
		return nil, err
	}

	d := &Detector{ds: ds, log: o.log, redis: o.redis, ipHeaders: cfg.TrustedIPHeaders}
	results, err := d.resultCache(ctx, cfg, policy, methods)
	if err != nil {
		_ = ds.Close()
		return nil, err
	}
	d.results = results

	if cfg.RateLimit.Enabled() {
		if err := d.rateLimiter(cfg.RateLimit); err != nil {
			_ = d.Close()
			return nil, err
		}
	}

	d.provider, err = detection.NewProvider(ds,
		detection.WithLogger(o.log),
		detection.WithMethods(methods...),
		detection.WithResultCache(results),
	)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func methodsFor(cfg Config) ([]detection.Method, error) {
	if cfg.ExactOnly {
		return []detection.Method{detection.MethodExact}, nil
	}
	if len(cfg.Methods) == 0 {
		return detection.Methods, nil
	}
	methods := make([]detection.Method, 0, len(cfg.Methods))
	for _, name := range cfg.Methods {
		m, err := detection.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		if m == detection.MethodNone {
			return nil, fmt.Errorf("%w: %s", detection.ErrUnknownMethod, name)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// resultCache builds the per-header result cache: Redis when a client or
// URL is available, an in-process cache otherwise.
func (d *Detector) resultCache(ctx context.Context, cfg Config, policy cache.Policy, methods []detection.Method) (cache.LoadingCache[string, detection.Result], error) {
	if d.redis == nil && cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, errors.Join(ErrRedisNotReady, err)
		}
		d.redis, d.ownsRedis = client, true
	}
	if d.redis == nil {
		return cache.New[string, detection.Result](policy, cfg.ResultCacheSize)
	}

	prefix, err := ResultKeyPrefix(d.ds, methods)
	if err != nil {
		return nil, err
	}
	d.log.Info("sharing match results through redis", slog.String("prefix", prefix))
	return cache.NewRedis(d.redis, prefix,
		cache.WithTTL[detection.Result](cfg.Redis.TTL),
		cache.WithRedisLogger[detection.Result](d.log),
	), nil
}

// rateLimiter builds the API limiter, sharing buckets through Redis when
// the result cache does.
func (d *Detector) rateLimiter(cfg ratelimiter.Config) error {
	var store ratelimiter.Store
	if d.redis != nil {
		store = ratelimiter.NewRedisStore(d.redis, rateLimitKeyPrefix, time.Hour)
	} else {
		d.limits = ratelimiter.NewMemoryStore()
		store = d.limits
	}
	b, err := ratelimiter.NewBucket(store, cfg)
	if err != nil {
		return err
	}
	d.limiter = b
	return nil
}

const rateLimitKeyPrefix = "devicedetect:ratelimit:"

// ResultKeyPrefix is the Redis key namespace of a dataset's results.
// Results hold offsets into one dataset file and depend on the methods that
// produced them, so the namespace is derived from the file content and the
// enabled methods. Instances serving the same file with the same methods
// share results.
func ResultKeyPrefix(ds *dataset.Dataset, methods []detection.Method) (string, error) {
	sum, err := ds.Checksum()
	if err != nil {
		return "", err
	}
	methods = slices.Clone(methods)
	slices.Sort(methods)
	methods = slices.Compact(methods)
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = strings.ToLower(m.String())
	}
	return fmt.Sprintf("devicedetect:%s:%016x:%s:", ds.Version(), sum, strings.Join(names, "+")), nil
}

// Dataset returns the open dataset.
func (d *Detector) Dataset() *dataset.Dataset { return d.ds }

// Provider returns the matching provider.
func (d *Detector) Provider() *detection.Provider { return d.provider }

// Detect matches a set of HTTP header values.
func (d *Detector) Detect(headers map[string]string) (*detection.Match, error) {
	return d.provider.Match(headers)
}

// DetectUserAgent matches a single User-Agent value.
func (d *Detector) DetectUserAgent(ua string) (*detection.Match, error) {
	return d.provider.MatchUserAgent(ua)
}

// DetectRequest matches the headers of r.
func (d *Detector) DetectRequest(r *http.Request) (*detection.Match, error) {
	return d.provider.MatchRequest(r)
}

// DetectAll matches several header sets with at most limit running at once.
func (d *Detector) DetectAll(ctx context.Context, headerSets []map[string]string, limit int) ([]*detection.Match, error) {
	return d.provider.MatchAll(ctx, headerSets, limit)
}

// Middleware stores the match of every request in its context.
func (d *Detector) Middleware() func(http.Handler) http.Handler {
	return detection.Middleware(d.provider)
}

// Ready reports whether the Detector can serve matches.
func (d *Detector) Ready(ctx context.Context) error {
	if d.ds.Closed() {
		return dataset.ErrClosed
	}
	if d.redis != nil {
		return redis.Healthcheck(d.redis)(ctx)
	}
	return nil
}

// Close closes the dataset and, when the Detector opened it, the Redis
// connection. It is safe to call more than once.
func (d *Detector) Close() error {
	d.closeOnce.Do(func() {
		start := time.Now()
		errs := []error{d.ds.Close()}
		if d.limits != nil {
			errs = append(errs, d.limits.Close())
		}
		if d.ownsRedis {
			errs = append(errs, d.redis.Close())
		}
		d.closeErr = errors.Join(errs...)
		d.log.Info("detector closed", logger.Duration(time.Since(start)), logger.Error(d.closeErr))
	})
	return d.closeErr
}
