package detection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/devicedetect/pkg/cache"
	"github.com/dmitrymomot/devicedetect/pkg/dataset"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
)

// DefaultResultCacheSize is the capacity of the in-process result cache used
// when none is configured.
const DefaultResultCacheSize = 1000

// Provider matches header values against a dataset. It is safe for
// concurrent use; the Match values it fills are not.
type Provider struct {
	ds        *dataset.Dataset
	methods   []Method
	results   cache.LoadingCache[string, Result]
	cacheSize int
	log       *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithMethods restricts the strategies attempted. They always run in the
// order of Methods regardless of the order given.
func WithMethods(methods ...Method) Option {
	return func(p *Provider) { p.methods = methods }
}

// WithExactOnly disables every strategy except exact matching.
func WithExactOnly() Option {
	return WithMethods(MethodExact)
}

// WithResultCache sets the cache of per-value results.
func WithResultCache(c cache.LoadingCache[string, Result]) Option {
	return func(p *Provider) { p.results = c }
}

// WithResultCacheSize sizes the default in-process result cache. Zero
// disables result caching.
func WithResultCacheSize(n int) Option {
	return func(p *Provider) { p.cacheSize = n }
}

// WithLogger sets the logger. Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProvider creates a Provider bound to ds.
func NewProvider(ds *dataset.Dataset, opts ...Option) (*Provider, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	p := &Provider{
		ds:        ds,
		methods:   Methods,
		cacheSize: DefaultResultCacheSize,
		log:       ds.Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, m := range p.methods {
		if !slices.Contains(Methods, m) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, m)
		}
	}
	p.methods = slices.Clone(p.methods)
	slices.Sort(p.methods)
	p.methods = slices.Compact(p.methods)

	if p.results == nil {
		c, err := cache.New[string, Result](cache.PolicyLRU, p.cacheSize)
		if err != nil {
			return nil, err
		}
		p.results = c
	}
	return p, nil
}

// Dataset returns the dataset the provider matches against.
func (p *Provider) Dataset() *dataset.Dataset { return p.ds }

// EnabledMethods returns the strategies the provider attempts, in order.
func (p *Provider) EnabledMethods() []Method { return slices.Clone(p.methods) }

// ResultCache returns the statistics of the result cache.
func (p *Provider) ResultCache() cache.Statistics { return p.results }

// CreateMatch returns an empty Match that can be filled by MatchInto.
func (p *Provider) CreateMatch() *Match {
	return &Match{ds: p.ds}
}

// Match matches a set of header values. Header names are compared without
// regard to case; headers the dataset does not list are ignored.
func (p *Provider) Match(headers map[string]string) (*Match, error) {
	m := p.CreateMatch()
	if err := p.MatchInto(headers, m); err != nil {
		return nil, err
	}
	return m, nil
}

// MatchUserAgent matches a single User-Agent value.
func (p *Provider) MatchUserAgent(userAgent string) (*Match, error) {
	return p.Match(map[string]string{"User-Agent": userAgent})
}

// MatchRequest matches the dataset headers present on r.
func (p *Provider) MatchRequest(r *http.Request) (*Match, error) {
	headers := make(map[string]string)
	for _, h := range p.ds.HTTPHeaders() {
		if v := r.Header.Get(h); v != "" {
			headers[h] = v
		}
	}
	return p.Match(headers)
}

// MatchInto resets m and fills it with the result for headers.
//
// Every listed header is matched on its own. Each component then takes its
// profile from the first header, in dataset order, that identifies it and
// produced a signature; components no header identifies get their default
// profile. When more than one header contributed, the match has no single
// signature, its method is the weakest used and its difference the sum.
func (p *Provider) MatchInto(headers map[string]string, m *Match) error {
	if m == nil {
		return ErrNilMatch
	}
	if p.ds.Closed() {
		return dataset.ErrClosed
	}
	start := time.Now()
	m.reset(p.ds)

	names := p.ds.HTTPHeaders()
	results := make([]Result, len(names))
	for i, h := range names {
		results[i] = noResult
		v, ok := lookupHeader(headers, h)
		if !ok || v == "" {
			continue
		}
		r, err := p.results.GetOrLoad(v, func(v string) (Result, error) {
			return p.matchValue(v, m)
		})
		if err != nil {
			return err
		}
		results[i] = r
		m.results[h] = r
	}

	if err := p.combine(names, results, m); err != nil {
		return err
	}
	m.elapsed = time.Since(start)

	p.log.Debug("headers matched",
		logger.Method(m.method.String()),
		logger.Difference(m.difference),
		logger.Duration(m.elapsed),
		slog.String("state", m.state.String()),
	)
	return nil
}

// MatchAll matches every header set concurrently, running at most limit
// matches at a time. A limit of zero or less means no limit. The matches are
// returned in input order; the first error cancels the batch.
func (p *Provider) MatchAll(ctx context.Context, headerSets []map[string]string, limit int) ([]*Match, error) {
	out := make([]*Match, len(headerSets))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, headers := range headerSets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := p.Match(headers)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// matchValue runs the enabled strategies against one header value.
func (p *Provider) matchValue(value string, m *Match) (Result, error) {
	a, err := collect(p.ds, value)
	if err != nil {
		return noResult, err
	}
	m.state = StateClosestNodesCollected

	strategies := map[Method]func() (*dataset.Signature, int, error){
		MethodExact:   a.exact,
		MethodNumeric: a.numeric,
		MethodNearest: a.nearest,
		MethodClosest: a.closest,
	}
	for _, method := range p.methods {
		sig, diff, err := strategies[method]()
		m.state = StateMethodAttempted
		if err != nil {
			return noResult, err
		}
		if sig == nil {
			p.log.Debug("strategy found no signature", logger.Method(method.String()))
			continue
		}
		return Result{
			Signature:  sig.Offset(),
			Method:     method,
			Difference: diff,
			Profiles:   sig.ProfileOffsets(),
		}, nil
	}
	return noResult, nil
}

// combine resolves per-header results into the component profiles of m.
func (p *Provider) combine(names []string, results []Result, m *Match) error {
	found := slices.ContainsFunc(results, Result.Found)
	if !found {
		m.state = StateNoMatch
		return nil
	}

	components, err := p.ds.Components()
	if err != nil {
		return err
	}
	contributed := make([]bool, len(results))
	for _, c := range components {
		profile, from, err := p.profileFor(c, results)
		if err != nil {
			return err
		}
		if profile == nil {
			if profile, err = c.DefaultProfile(); err != nil {
				return err
			}
		} else {
			contributed[from] = true
		}
		if profile != nil {
			m.profiles = append(m.profiles, profile)
		}
	}
	if !slices.Contains(contributed, true) {
		for i, r := range results {
			contributed[i] = r.Found()
		}
	}

	var used []int
	for i, ok := range contributed {
		if ok {
			used = append(used, i)
			m.method = max(m.method, results[i].Method)
			m.difference += results[i].Difference
		}
	}
	if len(used) == 1 {
		sig, err := p.ds.Signatures().Get(results[used[0]].Signature)
		if err != nil {
			return err
		}
		m.signature = sig
	} else {
		p.log.Debug("match combined from several headers", slog.Int("headers", len(used)))
	}
	m.state = StateResultFound
	return nil
}

// profileFor returns the profile of c from the first relevant header with a
// signature, and that header's index.
func (p *Provider) profileFor(c *dataset.Component, results []Result) (*dataset.Profile, int, error) {
	for i, r := range results {
		if !r.Found() || !c.RelevantHeader(i) {
			continue
		}
		for _, off := range r.Profiles {
			profile, err := p.ds.Profiles().Get(off)
			if err != nil {
				return nil, 0, err
			}
			if profile.Component() == c {
				return profile, i, nil
			}
		}
	}
	return nil, -1, nil
}
