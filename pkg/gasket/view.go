package gasket

import (
	"encoding/json"

	"github.com/matzehuels/gasket/pkg/exact"
)

// Point is a center in one of the string encodings of [View].
type Point struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// View is the serialized form of a circle shared by the HTTP API, the
// WebSocket stream and the CLI.
//
// Curvature, Center and Radius (unsigned) are "num/den" strings from the lossy
// projection (denominator capped at [exact.DefaultMaxDenominator]); the
// Exact fields are lossless tagged strings.
type View struct {
	ID             *int64  `json:"id,omitempty"`
	Key            string  `json:"key"`
	Generation     uint32  `json:"generation"`
	Curvature      string  `json:"curvature"`
	Center         Point   `json:"center"`
	Radius         string  `json:"radius"`
	CurvatureExact string  `json:"curvature_exact"`
	CenterExact    Point   `json:"center_exact"`
	RadiusFloat    float64 `json:"radius_float"`
	ParentIDs      []int64 `json:"parent_ids"`
	TangentIDs     []int64 `json:"tangent_ids"`
}

// View returns the serialized form of c.
func (c *Circle) View() View {
	r := c.Radius().Abs()
	v := View{
		ID:             c.ID,
		Key:            string(c.Key),
		Generation:     c.Generation,
		Curvature:      ratString(c.Curvature),
		Center:         Point{X: ratString(c.Center.Re), Y: ratString(c.Center.Im)},
		Radius:         ratString(r),
		CurvatureExact: exact.Format(c.Curvature),
		CenterExact:    Point{X: exact.Format(c.Center.Re), Y: exact.Format(c.Center.Im)},
		RadiusFloat:    r.Float64(),
		ParentIDs:      c.ParentIDs,
		TangentIDs:     c.TangentIDs,
	}
	if v.ParentIDs == nil {
		v.ParentIDs = []int64{}
	}
	if v.TangentIDs == nil {
		v.TangentIDs = []int64{}
	}
	return v
}

// MarshalJSON encodes the circle as its [View].
func (c *Circle) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.View())
}

// Views converts circles for serialization.
func Views(circles []*Circle) []View {
	out := make([]View, len(circles))
	for i, c := range circles {
		out[i] = c.View()
	}
	return out
}

func ratString(n exact.Number) string {
	return exact.ToFractionLossy(n, nil).RatString()
}

// FromView rebuilds a circle from the exact fields of v.
func FromView(v View) (*Circle, error) {
	k, err := exact.Parse(v.CurvatureExact)
	if err != nil {
		return nil, err
	}
	re, err := exact.Parse(v.CenterExact.X)
	if err != nil {
		return nil, err
	}
	im, err := exact.Parse(v.CenterExact.Y)
	if err != nil {
		return nil, err
	}
	c := NewCircle(k, exact.C(re, im), v.Generation)
	c.ID = v.ID
	c.ParentIDs = v.ParentIDs
	c.TangentIDs = v.TangentIDs
	return c, nil
}
