// Package store persists generated gaskets.
//
// A gasket row records its seed hash and how deep it has been generated;
// circle rows carry every coordinate twice:
//   - integer numerator/denominator columns from the lossy projection,
//     which are indexable and NULL when a value does not fit in int64
//   - exact tagged-string columns ("int:", "frac:", "sym:"), which are the
//     source of truth when circles are loaded back
//
// Backends live in the sqlite and mongo subpackages.
package store

import (
	"context"
	"time"

	"github.com/matzehuels/gasket/pkg/gasket"
)

// Gasket is the stored summary of one generated gasket.
type Gasket struct {
	ID             int64      `json:"id"`
	Hash           string     `json:"hash"`
	Curvatures     []string   `json:"initial_curvatures"`
	MaxDepthCached int        `json:"max_depth_cached"`
	NumCircles     int        `json:"num_circles"`
	AccessCount    int        `json:"access_count"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessed   *time.Time `json:"last_accessed_at,omitempty"`
}

// Store is implemented by persistence backends. Lookups of missing
// gaskets fail with NOT_FOUND; other failures carry STORAGE.
type Store interface {
	// Save inserts g, or replaces the gasket with the same hash, together
	// with its circles. It assigns g.ID and the ID, ParentIDs and
	// TangentIDs of every circle.
	Save(ctx context.Context, g *Gasket, circles []*gasket.Circle) error

	// GasketByHash returns the gasket with the given seed hash.
	GasketByHash(ctx context.Context, hash string) (*Gasket, error)

	// GasketByID returns the gasket with the given id.
	GasketByID(ctx context.Context, id int64) (*Gasket, error)

	// List returns up to limit gaskets, most recently accessed first.
	List(ctx context.Context, limit int) ([]*Gasket, error)

	// Circles loads the circles of a gasket with generation <= maxDepth,
	// ordered by id.
	Circles(ctx context.Context, gasketID int64, maxDepth int) ([]*gasket.Circle, error)

	// Touch records an access: access_count+1 and last_accessed_at = now.
	Touch(ctx context.Context, id int64) error

	// Delete removes a gasket and its circles.
	Delete(ctx context.Context, id int64) error

	Close() error
}
