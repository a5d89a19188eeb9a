package store

import (
	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
	"github.com/matzehuels/gasket/pkg/gasket"
)

// Fraction is a lossy numerator/denominator pair. Both are nil when the
// projection does not fit in int64.
type Fraction struct {
	Num *int64 `json:"num" bson:"num"`
	Den *int64 `json:"den" bson:"den"`
}

// CircleRecord is the row form of a circle.
type CircleRecord struct {
	ID         int64   `bson:"_id"`
	GasketID   int64   `bson:"gasket_id"`
	Generation uint32  `bson:"generation"`
	Key        string  `bson:"key"`
	ParentIDs  []int64 `bson:"parent_ids"`
	TangentIDs []int64 `bson:"tangent_ids"`

	Curvature Fraction `bson:"curvature"`
	CenterX   Fraction `bson:"center_x"`
	CenterY   Fraction `bson:"center_y"`
	Radius    Fraction `bson:"radius"`

	CurvatureExact string `bson:"curvature_exact"`
	CenterXExact   string `bson:"center_x_exact"`
	CenterYExact   string `bson:"center_y_exact"`
	RadiusExact    string `bson:"radius_exact"`
}

// Project converts a circle to its row form. The radius is unsigned.
// ID, ParentIDs and TangentIDs are copied from the circle.
func Project(c *gasket.Circle, gasketID int64) CircleRecord {
	r := c.Radius().Abs()
	rec := CircleRecord{
		GasketID:       gasketID,
		Generation:     c.Generation,
		Key:            string(c.Key),
		ParentIDs:      c.ParentIDs,
		TangentIDs:     c.TangentIDs,
		Curvature:      project(c.Curvature),
		CenterX:        project(c.Center.Re),
		CenterY:        project(c.Center.Im),
		Radius:         project(r),
		CurvatureExact: exact.Format(c.Curvature),
		CenterXExact:   exact.Format(c.Center.Re),
		CenterYExact:   exact.Format(c.Center.Im),
		RadiusExact:    exact.Format(r),
	}
	if c.ID != nil {
		rec.ID = *c.ID
	}
	if rec.ParentIDs == nil {
		rec.ParentIDs = []int64{}
	}
	if rec.TangentIDs == nil {
		rec.TangentIDs = []int64{}
	}
	return rec
}

func project(n exact.Number) Fraction {
	num, den := exact.ToNumeratorDenominator(n, exact.DefaultDenominatorCap())
	if !num.IsInt64() || !den.IsInt64() {
		return Fraction{}
	}
	p, q := num.Int64(), den.Int64()
	return Fraction{Num: &p, Den: &q}
}

// Restore rebuilds a circle from the exact columns of rec and checks that
// the stored key matches the recomputed one.
func Restore(rec CircleRecord) (*gasket.Circle, error) {
	k, err := exact.Parse(rec.CurvatureExact)
	if err != nil {
		return nil, err
	}
	re, err := exact.Parse(rec.CenterXExact)
	if err != nil {
		return nil, err
	}
	im, err := exact.Parse(rec.CenterYExact)
	if err != nil {
		return nil, err
	}

	c := gasket.NewCircle(k, exact.C(re, im), rec.Generation)
	if rec.Key != "" && string(c.Key) != rec.Key {
		return nil, errors.New(errors.ErrCodeSerialization,
			"circle %d: stored key %s does not match its exact columns", rec.ID, rec.Key)
	}
	id := rec.ID
	c.ID = &id
	c.ParentIDs = rec.ParentIDs
	c.TangentIDs = rec.TangentIDs
	return c, nil
}

// AssignIDs numbers circles consecutively from first and resolves their
// parent and tangent keys to ids. Keys without a circle in the set are
// dropped.
func AssignIDs(circles []*gasket.Circle, first int64) {
	ids := make(map[gasket.CanonicalKey]int64, len(circles))
	for i, c := range circles {
		id := first + int64(i)
		c.ID = &id
		ids[c.Key] = id
	}
	resolve := func(keys []gasket.CanonicalKey) []int64 {
		out := make([]int64, 0, len(keys))
		for _, k := range keys {
			if id, ok := ids[k]; ok {
				out = append(out, id)
			}
		}
		return out
	}
	for _, c := range circles {
		c.ParentIDs = resolve(c.ParentKeys)
		c.TangentIDs = resolve(c.TangentKeys)
	}
}

// Relink fills ParentKeys and TangentKeys of loaded circles from their ids.
func Relink(circles []*gasket.Circle) {
	keys := make(map[int64]gasket.CanonicalKey, len(circles))
	for _, c := range circles {
		if c.ID != nil {
			keys[*c.ID] = c.Key
		}
	}
	resolve := func(ids []int64) []gasket.CanonicalKey {
		out := make([]gasket.CanonicalKey, 0, len(ids))
		for _, id := range ids {
			if k, ok := keys[id]; ok {
				out = append(out, k)
			}
		}
		return out
	}
	for _, c := range circles {
		c.ParentKeys = resolve(c.ParentIDs)
		c.TangentKeys = resolve(c.TangentIDs)
	}
}
