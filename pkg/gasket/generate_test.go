package gasket

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"
	"testing"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
)

func ints(ks ...int64) []exact.Number {
	out := make([]exact.Number, len(ks))
	for i, k := range ks {
		out[i] = exact.Int(k)
	}
	return out
}

func generate(t *testing.T, seeds []exact.Number, depth uint32, mode Mode, opts ...Option) []*Circle {
	t.Helper()
	seq, err := Generate(seeds, depth, mode, opts...)
	if err != nil {
		t.Fatalf("Generate(%v, %d): %v", seeds, depth, err)
	}
	return Collect(seq)
}

func TestGenerateCounts(t *testing.T) {
	tests := []struct {
		name  string
		seeds []exact.Number
		depth uint32
		want  int
	}{
		{"unit triple depth 0", ints(1, 1, 1), 0, 3},
		{"unit triple depth 1", ints(1, 1, 1), 1, 5},
		{"unit triple depth 2", ints(1, 1, 1), 2, 11},
		{"integral depth 0", ints(-1, 2, 2, 3), 0, 4},
		{"integral depth 1", ints(-1, 2, 2, 3), 1, 8},
		{"integral depth 2", ints(-1, 2, 2, 3), 2, 20},
		{"integral depth 3", ints(-1, 2, 2, 3), 3, 56},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			circles := generate(t, tt.seeds, tt.depth, Batch)
			if len(circles) != tt.want {
				t.Errorf("got %d circles, want %d", len(circles), tt.want)
			}
			for _, c := range circles {
				if c.Generation > tt.depth {
					t.Errorf("circle %s has generation %d > %d", c.Key.Short(), c.Generation, tt.depth)
				}
			}
		})
	}
}

func TestGenerateDepthZeroSeedsOnly(t *testing.T) {
	for _, c := range generate(t, ints(1, 1, 1), 0, Batch) {
		if c.Generation != 0 {
			t.Errorf("seed %s has generation %d", c.Key.Short(), c.Generation)
		}
		if len(c.ParentKeys) != 0 {
			t.Errorf("seed %s has parents", c.Key.Short())
		}
	}
}

func TestGenerateFirstGeneration(t *testing.T) {
	circles := generate(t, ints(-1, 2, 2, 3), 1, Batch)

	var got []int64
	for _, c := range circles {
		if c.Generation != 1 {
			continue
		}
		i, ok := c.Curvature.BigInt()
		if !ok {
			t.Errorf("curvature %s should be an integer", c.Curvature)
			continue
		}
		got = append(got, i.Int64())
		if len(c.ParentKeys) != 3 {
			t.Errorf("circle %s has %d parents, want 3", c.Key.Short(), len(c.ParentKeys))
		}
	}
	slices.Sort(got)
	if want := []int64{3, 6, 6, 15}; !slices.Equal(got, want) {
		t.Errorf("generation 1 curvatures = %v, want %v", got, want)
	}
}

func TestGenerateNoDuplicates(t *testing.T) {
	for _, seeds := range [][]exact.Number{ints(1, 1, 1), ints(-1, 2, 2, 3), ints(-6, 11, 14, 15)} {
		circles := generate(t, seeds, 3, Batch)
		keys := make(map[CanonicalKey]bool, len(circles))
		for _, c := range circles {
			if keys[c.Key] {
				t.Errorf("duplicate key %s", c.Key.Short())
			}
			keys[c.Key] = true
		}
		for i, a := range circles {
			ka, za := a.Float()
			for _, b := range circles[i+1:] {
				kb, zb := b.Float()
				if near(ka, za, kb, zb, DefaultTolerance) {
					t.Errorf("circles %s and %s coincide numerically", a.Key.Short(), b.Key.Short())
				}
			}
		}
	}
}

func TestGenerateTangency(t *testing.T) {
	for _, seeds := range [][]exact.Number{ints(1, 1, 1), ints(-1, 2, 2, 3)} {
		circles := generate(t, seeds, 3, Batch)
		byKey := make(map[CanonicalKey]*Circle, len(circles))
		for _, c := range circles {
			byKey[c.Key] = c
		}
		for _, c := range circles {
			if c.Generation > 0 && len(c.TangentKeys) < 3 {
				t.Errorf("circle %s records %d tangencies", c.Key.Short(), len(c.TangentKeys))
			}
			for _, k := range c.TangentKeys {
				o, ok := byKey[k]
				if !ok {
					t.Fatalf("tangent key %s not emitted", k.Short())
				}
				if !VerifyTangency(c, o, 1e-9) {
					t.Errorf("circles %s@%s and %s@%s are not tangent",
						c.Curvature, c.Center, o.Curvature, o.Center)
				}
			}
		}
	}
}

func TestGenerateMonotonicGrowth(t *testing.T) {
	prev := 0
	for depth := uint32(0); depth <= 4; depth++ {
		n := len(generate(t, ints(1, 1, 1), depth, Batch))
		if n <= prev {
			t.Errorf("depth %d: %d circles, not more than %d", depth, n, prev)
		}
		prev = n
	}
}

func TestGenerateIrrationalPreserved(t *testing.T) {
	circles := generate(t, ints(1, 1, 1), 1, Batch)
	found := false
	for _, c := range circles {
		if c.Curvature.Kind() == exact.KindAlgebraic && c.Curvature.HasRadical(3) {
			found = true
		}
	}
	if !found {
		t.Error("no derived curvature involves sqrt(3)")
	}
}

func TestStreamingMatchesBatch(t *testing.T) {
	seeds := ints(-1, 2, 2, 3)
	keys := func(circles []*Circle) []string {
		out := make([]string, len(circles))
		for i, c := range circles {
			out[i] = string(c.Key)
		}
		sort.Strings(out)
		return out
	}

	batch := keys(generate(t, seeds, 3, Batch))
	stream := keys(generate(t, seeds, 3, Streaming))
	if !slices.Equal(batch, stream) {
		t.Errorf("streaming produced %d circles, batch %d; sets differ", len(stream), len(batch))
	}
}

func TestStreamingOrder(t *testing.T) {
	circles := generate(t, ints(1, 1, 1), 3, Streaming)
	for i := 1; i < len(circles); i++ {
		if circles[i].Generation < circles[i-1].Generation {
			t.Fatalf("generation decreased at %d: %d after %d", i, circles[i].Generation, circles[i-1].Generation)
		}
	}
}

func TestStreamingEarlyStop(t *testing.T) {
	var stats Stats
	seq, err := Generate(ints(1, 1, 1), 10, Streaming, WithStats(&stats))
	if err != nil {
		t.Fatal(err)
	}

	n := 0
	for range seq {
		n++
		if n == 4 {
			break
		}
	}
	if n != 4 {
		t.Fatalf("consumed %d circles, want 4", n)
	}
	if stats.Accepted != 4 {
		t.Errorf("engine accepted %d circles after early stop, want 4", stats.Accepted)
	}

	for range seq {
		t.Fatal("second iteration of a stream should yield nothing")
	}
}

func TestGenerateStats(t *testing.T) {
	var stats Stats
	generate(t, ints(-1, 2, 2, 3), 1, Batch, WithStats(&stats))

	if stats.Accepted != 8 {
		t.Errorf("Accepted = %d, want 8", stats.Accepted)
	}
	if stats.Triples != 4 {
		t.Errorf("Triples = %d, want 4", stats.Triples)
	}
	if stats.Parents != 4 {
		t.Errorf("Parents = %d, want 4", stats.Parents)
	}
	if stats.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", stats.Skipped)
	}
}

// (1, 1, 4) has a straight line as its outer Descartes solution. That
// branch is dropped and expansion carries on inside the seeds.
func TestGenerateDropsDegenerateBranch(t *testing.T) {
	tests := []struct {
		depth uint32
		mode  Mode
		want  int
	}{
		{1, Batch, 4},
		{2, Batch, 7},
		{3, Batch, 16},
		{3, Streaming, 16},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s depth %d", tt.mode, tt.depth), func(t *testing.T) {
			var stats Stats
			circles := generate(t, ints(1, 1, 4), tt.depth, tt.mode, WithStats(&stats))

			if len(circles) != tt.want {
				t.Errorf("got %d circles, want %d", len(circles), tt.want)
			}
			if stats.Degenerate != 1 {
				t.Errorf("Degenerate = %d, want 1", stats.Degenerate)
			}
			if stats.Accepted != tt.want {
				t.Errorf("Accepted = %d, want %d", stats.Accepted, tt.want)
			}

			byKey := make(map[CanonicalKey]*Circle, len(circles))
			for _, c := range circles {
				if c.Curvature.IsZero() {
					t.Fatalf("circle %s has zero curvature", c.Key.Short())
				}
				byKey[c.Key] = c
			}
			for _, c := range circles {
				for _, k := range c.TangentKeys {
					o, ok := byKey[k]
					if !ok {
						t.Fatalf("tangent key %s not emitted", k.Short())
					}
					if !VerifyTangency(c, o, 1e-9) {
						t.Errorf("circles %s@%s and %s@%s are not tangent",
							c.Curvature, c.Center, o.Curvature, o.Center)
					}
				}
			}
		})
	}

	circles := generate(t, ints(1, 1, 4), 1, Batch)
	for i, a := range circles {
		for _, b := range circles[i+1:] {
			if !VerifyTangency(a, b, 1e-9) {
				t.Errorf("depth 1 circles %s and %s are not tangent", a.Curvature, b.Curvature)
			}
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name  string
		seeds []exact.Number
		code  errors.Code
	}{
		{"two seeds", ints(1, 1), errors.ErrCodeInvalidConfiguration},
		{"five seeds", ints(-1, 2, 2, 3, 3), errors.ErrCodeInvalidConfiguration},
		{"zero curvature", ints(0, 1, 1), errors.ErrCodeDivisionByZero},
		{"inconsistent fourth", ints(-1, 2, 2, 5), errors.ErrCodeInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mode := range []Mode{Batch, Streaming} {
				_, err := Generate(tt.seeds, 2, mode)
				if !errors.Is(err, tt.code) {
					t.Errorf("%s: error = %v, want %s", mode, err, tt.code)
				}
			}
		})
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ints(1, 1, 1), 5, Batch, WithContext(ctx))
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGenerateIndependentRuns(t *testing.T) {
	a, err := Generate(ints(1, 1, 1), 2, Streaming)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(ints(1, 1, 1), 2, Streaming)
	if err != nil {
		t.Fatal(err)
	}

	next, stop := iter.Pull(a)
	defer stop()
	count := 0
	for range b {
		if _, ok := next(); !ok {
			t.Fatal("interleaved run ended early")
		}
		count++
	}
	if count != 11 {
		t.Errorf("got %d circles, want 11", count)
	}
}
