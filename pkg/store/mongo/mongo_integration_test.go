//go:build integration

package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("GASKET_MONGO_URI")
	if uri == "" {
		t.Skip("GASKET_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, Config{URI: uri, Database: "gasket_test_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Database().Drop(context.Background())
		s.Close()
	})
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

func TestMongoSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	circles := generate(t, 3, -1, 2, 2, 3)
	g := &store.Gasket{Hash: "h", Curvatures: []string{"int:-1", "int:2", "int:2", "int:3"}, MaxDepthCached: 3}
	require.NoError(t, s.Save(ctx, g, circles))

	got, err := s.GasketByHash(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, 56, got.NumCircles)

	loaded, err := s.Circles(ctx, g.ID, 2)
	require.NoError(t, err)
	require.Len(t, loaded, 20)
	for i, c := range loaded {
		assert.Equal(t, circles[i].Key, c.Key)
	}
}

func TestMongoReplaceTouchDelete(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	first := &store.Gasket{Hash: "h", Curvatures: []string{}}
	require.NoError(t, s.Save(ctx, first, generate(t, 1, 1, 1, 1)))
	second := &store.Gasket{Hash: "h", Curvatures: []string{}}
	require.NoError(t, s.Save(ctx, second, generate(t, 2, 1, 1, 1)))
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, s.Touch(ctx, second.ID))
	got, err := s.GasketByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AccessCount)

	list, err := s.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, second.ID))
	_, err = s.GasketByID(ctx, second.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	n, err := s.circles.CountDocuments(ctx, map[string]any{"gasket_id": second.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}
