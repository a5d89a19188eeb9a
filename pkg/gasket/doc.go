// Package gasket generates Apollonian gaskets with exact arithmetic.
//
// A gasket starts from three or four mutually tangent seed circles, placed
// by package seed. Every frontier triple of mutually tangent circles is run
// through the Descartes solver; one of the two solutions is the fourth
// circle of the quadruple the triple came from, the other is new. New
// circles are recorded and contribute three new triples, so the frontier
// is expanded breadth-first one generation at a time.
//
// # Identity
//
// Each circle carries a [CanonicalKey] derived from its exact curvature and
// center. Exact values have a unique normal form, so equal circles share a
// key. A tolerance check on the floating-point values backs the key up.
//
// # Output
//
//	seq, err := gasket.Generate(curvatures, 3, gasket.Batch)
//	if err != nil {
//	    return err
//	}
//	for c := range seq {
//	    fmt.Println(c.Generation, c.Curvature, c.Center)
//	}
//
// With [Streaming] the same sequence is produced lazily: the engine does
// no work until the consumer asks for the next circle. The package
// performs no I/O and holds no global state; each call owns its frontier.
package gasket
