// Package pipeline provides the gasket service shared by the CLI and the
// API.
//
// A request names three or four seed curvatures and a depth. The runner
// answers it from the fastest tier that can:
//
//  1. Cache: a serialized payload under the gasket's content hash and depth
//  2. Store: a persisted gasket generated at least as deep as requested
//  3. Generate: run the engine, persist the result and fill the cache
//
// A request deeper than what the store holds regenerates the gasket from
// scratch and replaces the stored circles.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, st, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Curvatures: []string{"-1", "2", "2", "3"},
//	    MaxDepth:   5,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(result.Circles))
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/store"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMaxDepth is the generation depth used when none is given.
	DefaultMaxDepth = 5

	// MaxDepthLimit caps the requested depth. The circle count grows as
	// 3^depth, so depth 15 already means tens of millions of circles.
	MaxDepthLimit = 15

	// BatchSize is the number of circles per streamed progress batch.
	BatchSize = 10

	// DefaultSeedBound is the default enclosing bend for integral seeds.
	DefaultSeedBound = 20

	// MaxSeedBound caps the integral seed enumeration.
	MaxSeedBound = 1000
)

// =============================================================================
// Options - Request Configuration
// =============================================================================

// Options describes one gasket request. It supports JSON for API requests.
type Options struct {
	// Curvatures are the seed curvatures. Each may be a tagged exact
	// string ("int:3", "frac:1/2", "sym:...") or a plain expression
	// ("3", "1/2", "2*sqrt(3)").
	Curvatures []string `json:"curvatures"`
	MaxDepth   int      `json:"max_depth,omitempty"`

	// Refresh bypasses the cache and store and regenerates.
	Refresh bool `json:"refresh,omitempty"`

	// DepthLimit overrides MaxDepthLimit, e.g. from server configuration.
	DepthLimit int `json:"-"`

	// Tolerance overrides gasket.DefaultTolerance.
	Tolerance float64 `json:"-"`

	Logger *log.Logger `json:"-"`

	seeds     []exact.Number
	validated bool
}

// Result contains the outcome of a request.
type Result struct {
	Gasket  *store.Gasket
	Circles []*gasket.Circle

	// CacheHit is set when the payload came from the cache tier,
	// StoreHit when it was loaded from the store.
	CacheHit bool
	StoreHit bool

	// Stats is only filled when the gasket was generated.
	Stats    gasket.Stats
	Duration time.Duration
}

// Progress is one streamed batch.
type Progress struct {
	Generation uint32
	Total      int
	Circles    []*gasket.Circle
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults parses the curvatures and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := errors.ValidateSeedCount(len(o.Curvatures)); err != nil {
		return err
	}

	seeds := make([]exact.Number, len(o.Curvatures))
	for i, s := range o.Curvatures {
		if err := errors.ValidateNumberString(s); err != nil {
			return err
		}
		n, err := exact.ParseLoose(s)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "curvature %d (%q)", i+1, s)
		}
		if n.IsZero() {
			return errors.New(errors.ErrCodeInvalidInput, "curvature %d is zero; lines are not supported", i+1)
		}
		seeds[i] = n
	}

	// Seed order only changes the orientation of the placement, so
	// requests are canonicalized to ascending curvature.
	slices.SortStableFunc(seeds, exact.Number.Cmp)
	o.seeds = seeds

	if o.DepthLimit == 0 {
		o.DepthLimit = MaxDepthLimit
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = min(DefaultMaxDepth, o.DepthLimit)
	}
	if err := errors.ValidateMaxDepth(o.MaxDepth, o.DepthLimit); err != nil {
		return err
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Seeds returns the parsed seed curvatures in canonical order. It is nil
// before ValidateAndSetDefaults succeeds.
func (o *Options) Seeds() []exact.Number { return o.seeds }

// CanonicalCurvatures returns the seeds as tagged exact strings in
// canonical order.
func (o *Options) CanonicalCurvatures() []string {
	out := make([]string, len(o.seeds))
	for i, n := range o.seeds {
		out[i] = exact.Format(n)
	}
	return out
}

// GasketHash identifies a gasket by its seeds: the SHA-256 of the sorted
// tagged exact strings joined by "|". Equal values spelled differently
// hash equally, and so do permutations.
func GasketHash(seeds []exact.Number) string {
	parts := make([]string, len(seeds))
	for i, n := range seeds {
		parts[i] = exact.Format(n)
	}
	slices.Sort(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
