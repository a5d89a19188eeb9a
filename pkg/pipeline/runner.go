package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"iter"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/gasket/pkg/cache"
	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/observability"
	"github.com/matzehuels/gasket/pkg/seed"
	"github.com/matzehuels/gasket/pkg/store"
)

// Runner executes gasket requests against the cache, the store and the
// generator. Both the CLI and the API use it.
//
// Concurrent identical requests are collapsed into one generation. A
// caller that gives up returns at once; the shared run is cancelled only
// when no caller is left waiting. A nil Store keeps results in the cache
// tier only.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store
	Logger *log.Logger

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is one shared execution. Its context outlives any single caller
// and is cancelled when the last waiting caller leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewRunner creates a runner. A nil keyer uses the DefaultKeyer, a nil
// cache disables caching and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, st store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Store:  st,
		Logger: logger,
	}
}

// payload is the cached form of a result.
type payload struct {
	Gasket  store.Gasket  `json:"gasket"`
	Circles []gasket.View `json:"circles"`
}

// Execute answers a request from the cache, the store or a fresh batch
// generation, in that order.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	hash := GasketHash(opts.Seeds())
	key := r.Keyer.GasketKey(hash, opts.MaxDepth)

	fk := key + "|" + strconv.FormatBool(opts.Refresh)
	for attempt := 0; ; attempt++ {
		f := r.join(ctx, fk)
		ch := r.group.DoChan(fk, func() (any, error) {
			return r.execute(f.ctx, opts, hash, key)
		})

		select {
		case <-ctx.Done():
			r.leave(fk, f)
			return nil, ctx.Err()
		case out := <-ch:
			r.leave(fk, f)
			if out.Err != nil {
				// The joined run was abandoned by all of its callers.
				if attempt == 0 && ctx.Err() == nil && stderrors.Is(out.Err, context.Canceled) {
					continue
				}
				return nil, out.Err
			}
			if out.Shared {
				opts.Logger.Debug("joined in-flight request", "hash", hash[:12])
			}
			res := *out.Val.(*Result)
			return &res, nil
		}
	}
}

// join registers the caller on the flight for key, starting one if needed.
func (r *Runner) join(ctx context.Context, key string) *flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		if r.flights == nil {
			r.flights = make(map[string]*flight)
		}
		r.flights[key] = f
	}
	f.waiters++
	return f
}

func (r *Runner) leave(key string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if r.flights[key] == f {
		delete(r.flights, key)
	}
}

func (r *Runner) execute(ctx context.Context, opts Options, hash, key string) (*Result, error) {
	start := time.Now()

	if !opts.Refresh {
		if res, ok := r.fromCache(ctx, key); ok {
			r.touch(ctx, res.Gasket)
			res.Duration = time.Since(start)
			opts.Logger.Info("gasket from cache", "hash", hash[:12], "circles", len(res.Circles))
			return res, nil
		}

		res, err := r.fromStore(ctx, hash, opts.MaxDepth)
		if err != nil {
			return nil, err
		}
		if res != nil {
			r.fill(ctx, key, res)
			res.Duration = time.Since(start)
			opts.Logger.Info("gasket from store",
				"id", res.Gasket.ID,
				"circles", len(res.Circles),
				"cached_depth", res.Gasket.MaxDepthCached)
			return res, nil
		}
	}

	res, err := r.generate(ctx, opts, hash)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, key, res)
	res.Duration = time.Since(start)
	return res, nil
}

func (r *Runner) fromCache(ctx context.Context, key string) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "gasket")
		return nil, false
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		r.Logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	circles := make([]*gasket.Circle, len(p.Circles))
	for i, v := range p.Circles {
		c, err := gasket.FromView(v)
		if err != nil {
			r.Logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
			return nil, false
		}
		circles[i] = c
	}
	store.Relink(circles)

	observability.Cache().OnCacheHit(ctx, "gasket")
	return &Result{Gasket: &p.Gasket, Circles: circles, CacheHit: true}, true
}

// fromStore returns nil, nil when the store has no gasket deep enough.
func (r *Runner) fromStore(ctx context.Context, hash string, maxDepth int) (*Result, error) {
	if r.Store == nil {
		return nil, nil
	}
	g, err := r.Store.GasketByHash(ctx, hash)
	if errors.Is(err, errors.ErrCodeNotFound) {
		observability.Generation().OnStoreLookup(ctx, hash, false)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if g.MaxDepthCached < maxDepth {
		observability.Generation().OnStoreLookup(ctx, hash, false)
		r.Logger.Debug("stored gasket too shallow",
			"id", g.ID, "cached_depth", g.MaxDepthCached, "requested", maxDepth)
		return nil, nil
	}
	observability.Generation().OnStoreLookup(ctx, hash, true)

	if err := r.Store.Touch(ctx, g.ID); err != nil {
		return nil, err
	}
	g.AccessCount++
	now := time.Now()
	g.LastAccessed = &now

	circles, err := r.Store.Circles(ctx, g.ID, maxDepth)
	if err != nil {
		return nil, err
	}
	return &Result{Gasket: g, Circles: circles, StoreHit: true}, nil
}

func (r *Runner) generate(ctx context.Context, opts Options, hash string) (*Result, error) {
	hooks := observability.Generation()
	hooks.OnGenerateStart(ctx, hash, opts.MaxDepth, gasket.Batch.String())
	start := time.Now()

	var stats gasket.Stats
	seq, err := gasket.Generate(opts.Seeds(), uint32(opts.MaxDepth), gasket.Batch, r.generateOptions(ctx, opts, &stats)...)
	if err != nil {
		hooks.OnGenerateComplete(ctx, hash, 0, time.Since(start), err)
		return nil, err
	}
	circles := gasket.Collect(seq)
	hooks.OnGenerateComplete(ctx, hash, len(circles), time.Since(start), nil)

	opts.Logger.Info("generated gasket",
		"hash", hash[:12],
		"depth", opts.MaxDepth,
		"circles", len(circles),
		"duplicates", stats.Duplicates,
		"duration", time.Since(start))

	g, err := r.persist(ctx, opts, hash, circles)
	if err != nil {
		return nil, err
	}
	return &Result{Gasket: g, Circles: circles, Stats: stats}, nil
}

func (r *Runner) generateOptions(ctx context.Context, opts Options, stats *gasket.Stats) []gasket.Option {
	out := []gasket.Option{gasket.WithContext(ctx), gasket.WithStats(stats)}
	if opts.Tolerance > 0 {
		out = append(out, gasket.WithTolerance(opts.Tolerance))
	}
	return out
}

// persist saves circles to the store, or numbers them locally without one.
func (r *Runner) persist(ctx context.Context, opts Options, hash string, circles []*gasket.Circle) (*store.Gasket, error) {
	g := &store.Gasket{
		Hash:           hash,
		Curvatures:     opts.CanonicalCurvatures(),
		MaxDepthCached: opts.MaxDepth,
	}
	if r.Store == nil {
		store.AssignIDs(circles, 1)
		now := time.Now()
		g.NumCircles = len(circles)
		g.AccessCount = 1
		g.CreatedAt = now
		g.LastAccessed = &now
		return g, nil
	}
	if err := r.Store.Save(ctx, g, circles); err != nil {
		return nil, err
	}
	opts.Logger.Debug("stored gasket", "id", g.ID, "circles", g.NumCircles)
	return g, nil
}

// fill writes res to the cache tier. Failures only cost a future miss.
func (r *Runner) fill(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(payload{Gasket: *res.Gasket, Circles: gasket.Views(res.Circles)})
	if err != nil {
		r.Logger.Warn("encode cache entry", "error", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLGasket); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "gasket", len(data))
}

// touch records an access for a cache hit that has a stored counterpart.
func (r *Runner) touch(ctx context.Context, g *store.Gasket) {
	if r.Store == nil || g.ID == 0 {
		return
	}
	if err := r.Store.Touch(ctx, g.ID); err != nil {
		r.Logger.Debug("touch after cache hit", "id", g.ID, "error", err)
	}
}

// =============================================================================
// Streaming
// =============================================================================

// Stream runs a request and hands circles to emit in batches of BatchSize,
// flushing early whenever the generation changes. A gasket already stored
// deep enough is replayed from the store; otherwise it is generated lazily
// and persisted once the run completes. An error from emit stops the run.
func (r *Runner) Stream(ctx context.Context, opts Options, emit func(Progress) error) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	hash := GasketHash(opts.Seeds())
	start := time.Now()

	if !opts.Refresh {
		res, err := r.fromStore(ctx, hash, opts.MaxDepth)
		if err != nil {
			return nil, err
		}
		if res != nil {
			if err := batches(slices.Values(res.Circles), emit); err != nil {
				return nil, err
			}
			res.Duration = time.Since(start)
			return res, nil
		}
	}

	hooks := observability.Generation()
	hooks.OnGenerateStart(ctx, hash, opts.MaxDepth, gasket.Streaming.String())

	var stats gasket.Stats
	seq, err := gasket.Generate(opts.Seeds(), uint32(opts.MaxDepth), gasket.Streaming, r.generateOptions(ctx, opts, &stats)...)
	if err != nil {
		hooks.OnGenerateComplete(ctx, hash, 0, time.Since(start), err)
		return nil, err
	}

	var circles []*gasket.Circle
	collect := func(yield func(*gasket.Circle) bool) {
		for c := range seq {
			circles = append(circles, c)
			if !yield(c) {
				return
			}
		}
	}
	err = batches(collect, emit)
	if err == nil {
		err = ctx.Err()
	}
	hooks.OnGenerateComplete(ctx, hash, len(circles), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("streamed gasket",
		"hash", hash[:12],
		"depth", opts.MaxDepth,
		"circles", len(circles),
		"duration", time.Since(start))

	g, err := r.persist(ctx, opts, hash, circles)
	if err != nil {
		return nil, err
	}
	res := &Result{Gasket: g, Circles: circles, Stats: stats}
	r.fill(ctx, r.Keyer.GasketKey(hash, opts.MaxDepth), res)
	res.Duration = time.Since(start)
	return res, nil
}

func batches(seq iter.Seq[*gasket.Circle], emit func(Progress) error) error {
	var (
		pending []*gasket.Circle
		gen     uint32
		total   int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := emit(Progress{Generation: gen, Total: total, Circles: pending})
		pending = nil
		return err
	}

	for c := range seq {
		if len(pending) > 0 && c.Generation != gen {
			if err := flush(); err != nil {
				return err
			}
		}
		gen = c.Generation
		total++
		pending = append(pending, c)
		if len(pending) >= BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// =============================================================================
// Stored Gaskets
// =============================================================================

// Get loads a stored gasket. maxDepth <= 0 loads every cached generation.
func (r *Runner) Get(ctx context.Context, id int64, maxDepth int) (*Result, error) {
	if err := r.requireStore(); err != nil {
		return nil, err
	}
	start := time.Now()
	g, err := r.Store.GasketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 || maxDepth > g.MaxDepthCached {
		maxDepth = g.MaxDepthCached
	}
	if err := r.Store.Touch(ctx, id); err != nil {
		return nil, err
	}
	circles, err := r.Store.Circles(ctx, id, maxDepth)
	if err != nil {
		return nil, err
	}
	return &Result{Gasket: g, Circles: circles, StoreHit: true, Duration: time.Since(start)}, nil
}

// List returns up to limit stored gaskets, most recently accessed first.
func (r *Runner) List(ctx context.Context, limit int) ([]*store.Gasket, error) {
	if err := r.requireStore(); err != nil {
		return nil, err
	}
	return r.Store.List(ctx, limit)
}

// Delete removes a stored gasket and its cache entries.
func (r *Runner) Delete(ctx context.Context, id int64) error {
	if err := r.requireStore(); err != nil {
		return err
	}
	g, err := r.Store.GasketByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.Store.Delete(ctx, id); err != nil {
		return err
	}
	for depth := 0; depth <= MaxDepthLimit; depth++ {
		if err := r.Cache.Delete(ctx, r.Keyer.GasketKey(g.Hash, depth)); err != nil {
			r.Logger.Warn("cache delete failed", "id", id, "error", err)
			break
		}
	}
	r.Logger.Info("deleted gasket", "id", id, "hash", g.Hash[:12])
	return nil
}

func (r *Runner) requireStore() error {
	if r.Store == nil {
		return errors.New(errors.ErrCodeInvalidConfiguration, "no gasket store configured")
	}
	return nil
}

// =============================================================================
// Integral Seeds
// =============================================================================

// Seeds enumerates the integral root quintets with enclosing bend up to
// maxB. hit reports whether the list came from the cache.
func (r *Runner) Seeds(ctx context.Context, maxB int64) (quintets []seed.Quintet, hit bool, err error) {
	if maxB == 0 {
		maxB = DefaultSeedBound
	}
	if maxB < 1 || maxB > MaxSeedBound {
		return nil, false, errors.New(errors.ErrCodeInvalidInput,
			"seed bound must be between 1 and %d, got %d", MaxSeedBound, maxB)
	}

	key := r.Keyer.SeedsKey(maxB)
	if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
		if err := json.Unmarshal(data, &quintets); err == nil {
			observability.Cache().OnCacheHit(ctx, "seeds")
			return quintets, true, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "seeds")

	quintets = slices.Collect(seed.Integral(maxB))
	if data, err := json.Marshal(quintets); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLSeeds); err == nil {
			observability.Cache().OnCacheSet(ctx, "seeds", len(data))
		}
	}
	return quintets, false, nil
}

// Close releases the cache and the store.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Store != nil {
		if serr := r.Store.Close(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
