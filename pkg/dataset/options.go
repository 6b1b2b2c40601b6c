package dataset

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/devicedetect/pkg/cache"
	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// DefaultCacheSizes are the LRU capacities used for collections without an
// explicit cache configuration.
var DefaultCacheSizes = map[Kind]int{
	KindStrings:    5000,
	KindValues:     5000,
	KindProfiles:   600,
	KindSignatures: 500,
	KindNodes:      15000,
}

type cacheConfig struct {
	policy   cache.Policy
	capacity int
}

type options struct {
	lastModified time.Time
	log          *slog.Logger
	caches       map[Kind]cacheConfig
	poolSize     int
	temp         bool
	inMemory     bool

	stringCache    cache.LoadingCache[int32, string]
	valueCache     cache.LoadingCache[int32, *Value]
	profileCache   cache.LoadingCache[int32, *Profile]
	signatureCache cache.LoadingCache[int32, *Signature]
	nodeCache      cache.LoadingCache[int32, *Node]
}

// Option configures how a dataset is opened.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		log:      slog.Default(),
		caches:   make(map[Kind]cacheConfig, len(DefaultCacheSizes)),
		poolSize: source.DefaultPoolSize,
	}
	for kind, size := range DefaultCacheSizes {
		o.caches[kind] = cacheConfig{policy: cache.PolicyLRU, capacity: size}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLastModified sets the timestamp reported by LastModified.
func WithLastModified(t time.Time) Option {
	return func(o *options) { o.lastModified = t }
}

// WithLogger sets the logger. Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithCache selects the cache policy and capacity of one on-demand
// collection. A capacity of zero or less disables caching for it.
func WithCache(kind Kind, policy cache.Policy, capacity int) Option {
	return func(o *options) {
		o.caches[kind] = cacheConfig{policy: policy, capacity: capacity}
	}
}

// WithCachePolicy applies policy to every on-demand collection, keeping the
// configured capacities.
func WithCachePolicy(policy cache.Policy) Option {
	return func(o *options) {
		for kind, cfg := range o.caches {
			cfg.policy = policy
			o.caches[kind] = cfg
		}
	}
}

// WithStringCache installs a caller supplied cache for strings.
func WithStringCache(c cache.LoadingCache[int32, string]) Option {
	return func(o *options) { o.stringCache = c }
}

// WithValueCache installs a caller supplied cache for values.
func WithValueCache(c cache.LoadingCache[int32, *Value]) Option {
	return func(o *options) { o.valueCache = c }
}

// WithProfileCache installs a caller supplied cache for profiles.
func WithProfileCache(c cache.LoadingCache[int32, *Profile]) Option {
	return func(o *options) { o.profileCache = c }
}

// WithSignatureCache installs a caller supplied cache for signatures.
func WithSignatureCache(c cache.LoadingCache[int32, *Signature]) Option {
	return func(o *options) { o.signatureCache = c }
}

// WithNodeCache installs a caller supplied cache for nodes.
func WithNodeCache(c cache.LoadingCache[int32, *Node]) Option {
	return func(o *options) { o.nodeCache = c }
}

// WithPoolSize sets the number of file cursors used by OpenFile.
func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithTempFile makes OpenFile remove the file once it is no longer needed.
func WithTempFile(temp bool) Option {
	return func(o *options) { o.temp = temp }
}

// WithInMemory makes OpenFile read the whole file into memory instead of
// reading through pooled cursors.
func WithInMemory(inMemory bool) Option {
	return func(o *options) { o.inMemory = inMemory }
}

func buildCache[T any](o *options, kind Kind, override cache.LoadingCache[int32, T]) (cache.LoadingCache[int32, T], error) {
	if override != nil {
		return override, nil
	}
	cfg := o.caches[kind]
	return cache.New[int32, T](cfg.policy, cfg.capacity)
}
