package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gasket.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func generate(t *testing.T, depth uint32, ks ...int64) []*gasket.Circle {
	t.Helper()
	seeds := make([]exact.Number, len(ks))
	for i, k := range ks {
		seeds[i] = exact.Int(k)
	}
	seq, err := gasket.Generate(seeds, depth, gasket.Batch)
	require.NoError(t, err)
	return gasket.Collect(seq)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	circles := generate(t, 2, -1, 2, 2, 3)
	g := &store.Gasket{Hash: "abc", Curvatures: []string{"int:-1", "int:2", "int:2", "int:3"}, MaxDepthCached: 2}
	require.NoError(t, s.Save(ctx, g, circles))

	assert.NotZero(t, g.ID)
	assert.Equal(t, 20, g.NumCircles)
	for _, c := range circles {
		require.NotNil(t, c.ID)
	}

	byHash, err := s.GasketByHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, g.ID, byHash.ID)
	assert.Equal(t, g.Curvatures, byHash.Curvatures)
	assert.Equal(t, 2, byHash.MaxDepthCached)

	loaded, err := s.Circles(ctx, g.ID, 2)
	require.NoError(t, err)
	require.Len(t, loaded, len(circles))
	for i, c := range loaded {
		assert.Equal(t, circles[i].Key, c.Key)
		assert.True(t, circles[i].Curvature.Equal(c.Curvature))
		assert.Equal(t, circles[i].ParentIDs, c.ParentIDs)
		assert.ElementsMatch(t, circles[i].TangentKeys, c.TangentKeys)
	}
}

func TestCirclesDepthFilter(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	g := &store.Gasket{Hash: "h", Curvatures: []string{}, MaxDepthCached: 3}
	require.NoError(t, s.Save(ctx, g, generate(t, 3, -1, 2, 2, 3)))

	for depth, want := range []int{4, 8, 20, 56} {
		got, err := s.Circles(ctx, g.ID, depth)
		require.NoError(t, err)
		assert.Len(t, got, want, "depth %d", depth)
	}
}

func TestSaveReplacesByHash(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	first := &store.Gasket{Hash: "h", Curvatures: []string{}, MaxDepthCached: 1}
	require.NoError(t, s.Save(ctx, first, generate(t, 1, 1, 1, 1)))

	second := &store.Gasket{Hash: "h", Curvatures: []string{}, MaxDepthCached: 2}
	require.NoError(t, s.Save(ctx, second, generate(t, 2, 1, 1, 1)))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.AccessCount)

	loaded, err := s.Circles(ctx, second.ID, 10)
	require.NoError(t, err)
	assert.Len(t, loaded, 11)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.GasketByHash(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = s.GasketByID(ctx, 42)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	assert.True(t, errors.Is(s.Touch(ctx, 42), errors.ErrCodeNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, 42), errors.ErrCodeNotFound))
}

func TestTouchAndList(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	a := &store.Gasket{Hash: "a", Curvatures: []string{}}
	b := &store.Gasket{Hash: "b", Curvatures: []string{}}
	require.NoError(t, s.Save(ctx, a, generate(t, 0, 1, 1, 1)))
	require.NoError(t, s.Save(ctx, b, generate(t, 0, -1, 2, 2, 3)))

	require.NoError(t, s.Touch(ctx, a.ID))
	got, err := s.GasketByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	assert.NotNil(t, got.LastAccessed)

	list, err := s.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	g := &store.Gasket{Hash: "h", Curvatures: []string{}}
	require.NoError(t, s.Save(ctx, g, generate(t, 1, 1, 1, 1)))
	require.NoError(t, s.Delete(ctx, g.ID))

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM circles`).Scan(&n))
	assert.Zero(t, n)
}

func TestIDsAreUniqueAcrossGaskets(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	a := generate(t, 1, 1, 1, 1)
	b := generate(t, 1, -1, 2, 2, 3)
	require.NoError(t, s.Save(ctx, &store.Gasket{Hash: "a", Curvatures: []string{}}, a))
	require.NoError(t, s.Save(ctx, &store.Gasket{Hash: "b", Curvatures: []string{}}, b))

	seen := make(map[int64]bool)
	for _, c := range append(a, b...) {
		assert.False(t, seen[*c.ID], "id %d reused", *c.ID)
		seen[*c.ID] = true
	}
}

func TestIrrationalRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	circles := generate(t, 2, 1, 1, 1)
	g := &store.Gasket{Hash: "h", Curvatures: []string{}}
	require.NoError(t, s.Save(ctx, g, circles))

	var centerY string
	var num any
	require.NoError(t, s.DB().QueryRow(
		`SELECT center_y_exact, center_y_num FROM circles WHERE id = ?`, *circles[2].ID,
	).Scan(&centerY, &num))
	assert.Contains(t, centerY, "sym:")
	assert.NotNil(t, num)

	loaded, err := s.Circles(ctx, g.ID, 2)
	require.NoError(t, err)
	for i := range loaded {
		assert.True(t, loaded[i].Center.Equal(circles[i].Center))
	}
}
