package gasket

import (
	"context"
	"iter"
	"slices"

	"github.com/matzehuels/gasket/pkg/descartes"
	"github.com/matzehuels/gasket/pkg/exact"
	"github.com/matzehuels/gasket/pkg/seed"
)

// DefaultTolerance is the numeric tolerance of the duplicate fallback.
const DefaultTolerance = 1e-10

// Mode selects how [Generate] delivers circles.
type Mode int

const (
	// Batch runs the expansion to completion before returning.
	Batch Mode = iota
	// Streaming returns a lazy sequence that expands as it is consumed.
	Streaming
)

func (m Mode) String() string {
	if m == Streaming {
		return "streaming"
	}
	return "batch"
}

// Stats counts what happened during a run.
type Stats struct {
	Accepted      int // circles emitted, seeds included
	Triples       int // triples run through the solver
	Skipped       int // triples dropped because the solver failed
	Degenerate    int // branches dropped for zero curvature
	Parents       int // solutions recognised as the quadruple's fourth member
	Duplicates    int // solutions already seen
	ToleranceHits int // duplicates caught only by the tolerance fallback
}

// Option configures [Generate].
type Option func(*config)

type config struct {
	tolerance float64
	ctx       context.Context
	stats     *Stats
}

// WithTolerance sets the numeric tolerance of the duplicate fallback.
func WithTolerance(tol float64) Option {
	return func(c *config) {
		if tol > 0 {
			c.tolerance = tol
		}
	}
}

// WithContext stops the expansion once ctx is done. A batch run then
// returns ctx.Err(); a stream just ends.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

// WithStats makes the run record its counters in s.
func WithStats(s *Stats) Option {
	return func(c *config) { c.stats = s }
}

// Generate builds the gasket seeded by three or four curvatures, expanding
// breadth-first up to maxDepth generations.
//
// Seed errors are returned immediately. In [Batch] mode the returned
// sequence ranges over the finished circle set. In [Streaming] mode each
// circle, seeds first, is yielded as soon as it is accepted; the sequence
// is one-shot and breaking out of it early is safe.
func Generate(seeds []exact.Number, maxDepth uint32, mode Mode, opts ...Option) (iter.Seq[*Circle], error) {
	cfg := config{tolerance: DefaultTolerance, ctx: context.Background(), stats: &Stats{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	placed, err := seed.Place(seeds)
	if err != nil {
		return nil, err
	}
	r := newRun(placed, maxDepth, cfg)

	if mode == Streaming {
		return r.stream(), nil
	}
	var circles []*Circle
	if err := r.expand(func(c *Circle) bool {
		circles = append(circles, c)
		return true
	}); err != nil {
		return nil, err
	}
	return slices.Values(circles), nil
}

// Collect gathers a sequence into a slice.
func Collect(seq iter.Seq[*Circle]) []*Circle {
	return slices.Collect(seq)
}

// triple is a frontier entry. opposite is the fourth circle of the
// quadruple the triple was cut from; Descartes returns it as one of the
// two solutions, so it must be discarded. It is nil for a three-circle seed.
type triple struct {
	a, b, c  *Circle
	opposite *Circle
	depth    uint32
}

// run owns all state of one generation.
type run struct {
	config
	maxDepth uint32
	seeds    []*Circle
	queue    []triple
	visited  map[CanonicalKey]*Circle
	index    *index
	used     bool
}

func newRun(placed []descartes.Circle, maxDepth uint32, cfg config) *run {
	r := &run{
		config:   cfg,
		maxDepth: maxDepth,
		visited:  make(map[CanonicalKey]*Circle),
		index:    newIndex(cfg.tolerance),
	}
	for _, p := range placed {
		c := NewCircle(p.Curvature, p.Center, 0)
		r.seeds = append(r.seeds, c)
		r.visited[c.Key] = c
		r.index.add(c)
	}
	for i, c := range r.seeds {
		for j, o := range r.seeds {
			if i != j {
				c.TangentKeys = append(c.TangentKeys, o.Key)
			}
		}
	}

	s := r.seeds
	if len(s) == 3 {
		r.queue = append(r.queue, triple{a: s[0], b: s[1], c: s[2]})
	} else {
		r.queue = append(r.queue,
			triple{a: s[0], b: s[1], c: s[2], opposite: s[3]},
			triple{a: s[0], b: s[1], c: s[3], opposite: s[2]},
			triple{a: s[0], b: s[2], c: s[3], opposite: s[1]},
			triple{a: s[1], b: s[2], c: s[3], opposite: s[0]},
		)
	}
	return r
}

func (r *run) stream() iter.Seq[*Circle] {
	return func(yield func(*Circle) bool) {
		if r.used {
			return
		}
		r.used = true
		_ = r.expand(yield)
	}
}

// expand yields the seeds, then drains the frontier. Triples come off the
// queue in non-decreasing depth, so the first one at maxDepth ends the run.
func (r *run) expand(yield func(*Circle) bool) error {
	for _, c := range r.seeds {
		r.stats.Accepted++
		if !yield(c) {
			return nil
		}
	}

	for len(r.queue) > 0 {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		t := r.queue[0]
		r.queue[0] = triple{}
		r.queue = r.queue[1:]
		if t.depth >= r.maxDepth {
			r.queue = nil
			break
		}

		r.stats.Triples++
		res, err := descartes.Solve(t.a.descartes(), t.b.descartes(), t.c.descartes())
		if err != nil {
			r.stats.Skipped++
			continue
		}
		for _, sol := range res.Branches() {
			if !sol.Valid() {
				r.stats.Degenerate++
				continue
			}
			c := r.accept(sol, t)
			if c == nil {
				continue
			}
			r.stats.Accepted++
			if !yield(c) {
				return nil
			}
		}
	}
	return nil
}

// accept returns the new circle for sol, or nil when sol is the triple's
// parent or a circle already seen. An accepted circle is recorded and its
// three child triples are queued.
func (r *run) accept(sol descartes.Solution, t triple) *Circle {
	key := CanonicalKeyOf(sol.Curvature, sol.Center)
	k, z := sol.Curvature.Float64(), sol.Center.Complex128()

	for _, p := range []*Circle{t.opposite, t.a, t.b, t.c} {
		if p == nil {
			continue
		}
		pk, pz := p.Float()
		if p.Key == key || near(pk, pz, k, z, r.tolerance) {
			r.stats.Parents++
			return nil
		}
	}

	if _, seen := r.visited[key]; seen {
		r.stats.Duplicates++
		return nil
	}
	if r.index.find(k, z) != nil {
		r.stats.Duplicates++
		r.stats.ToleranceHits++
		return nil
	}

	c := NewCircle(sol.Curvature, sol.Center, t.depth+1)
	c.ParentKeys = []CanonicalKey{t.a.Key, t.b.Key, t.c.Key}
	c.TangentKeys = slices.Clone(c.ParentKeys)
	for _, p := range []*Circle{t.a, t.b, t.c} {
		p.TangentKeys = append(p.TangentKeys, key)
	}
	r.visited[key] = c
	r.index.add(c)

	d := t.depth + 1
	r.queue = append(r.queue,
		triple{a: t.a, b: t.b, c: c, opposite: t.c, depth: d},
		triple{a: t.b, b: t.c, c: c, opposite: t.a, depth: d},
		triple{a: t.c, b: t.a, c: c, opposite: t.b, depth: d},
	)
	return c
}
