// Package pkg provides the libraries behind gasket, an Apollonian gasket
// generator with exact arithmetic.
//
// # Overview
//
// Starting from three or four mutually tangent circles, gasket repeatedly
// solves the Descartes circle theorem to fill every curvilinear triangle
// with the circle tangent to its three sides. Curvatures and centers are
// exact: integers, rationals and sums of rational multiples of square
// roots. The pkg directory is organized into three areas:
//
//  1. Core: [exact], [descartes], [seed] and [gasket]
//  2. Service: [pipeline], [cache] and [store]
//  3. Boundary: [api], [config], [observability] and [errors]
//
// # Architecture
//
// The data flow through a request:
//
//	Seed curvatures ("-1", "2", "2", "3")
//	         ↓
//	    [seed] package (exact tangent placement)
//	         ↓
//	    [gasket] package (breadth-first generation, deduplication)
//	         ↓
//	    [pipeline] package (cache tier, store tier, persistence)
//	         ↓
//	    JSON / WebSocket / terminal output
//
// # Quick Start
//
// Generate a gasket directly:
//
//	import (
//	    "github.com/matzehuels/gasket/pkg/exact"
//	    "github.com/matzehuels/gasket/pkg/gasket"
//	)
//
//	seeds := []exact.Number{exact.Int(-1), exact.Int(2), exact.Int(2), exact.Int(3)}
//	seq, err := gasket.Generate(seeds, 3, gasket.Batch)
//	if err != nil {
//	    return err
//	}
//	for c := range seq {
//	    fmt.Println(exact.Format(c.Curvature), c.Center)
//	}
//
// # Main Packages
//
// ## Core
//
// [exact] - The exact-number tower. Integer, Rational and Algebraic values
// (r + Σ cᵢ·√mᵢ with square-free mᵢ), complex pairs, square roots, and the
// tagged "int:", "frac:" and "sym:" serialization.
//
// [descartes] - Solves the Descartes theorem for the two circles tangent to
// a given triple, both curvature and center.
//
// [seed] - Places three or four seed curvatures as exactly tangent circles
// and enumerates integral root quadruples.
//
// [gasket] - The generation engine: batch or streaming, canonical keys,
// tolerance fallback for duplicates, tangency verification.
//
// ## Service
//
// [pipeline] - Validation, content hashing and the cache → store → generate
// tiers used by both the CLI and the API.
//
// [cache] - Byte cache with file, memory, Redis and null implementations.
//
// [store] - Persistence of gaskets and circles with exact and
// numerator/denominator columns. Backends live in [store/sqlite] and
// [store/mongo].
//
// ## Boundary
//
// [api] - chi HTTP routes and the WebSocket generation stream.
//
// [config] - TOML configuration with environment overrides.
//
// [observability] - Hook interfaces with no-op defaults and a Prometheus
// implementation.
//
// [errors] - Coded errors shared by every layer.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/gasket/...             # Specific package
//	go test -tags integration ./pkg/...  # Include Redis and MongoDB tests
//
// [exact]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/exact
// [descartes]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/descartes
// [seed]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/seed
// [gasket]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/gasket
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/store
// [store/sqlite]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/store/sqlite
// [store/mongo]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/store/mongo
// [api]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/api
// [config]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/gasket/pkg/errors
package pkg
