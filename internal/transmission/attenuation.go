package transmission

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gopkg.in/yaml.v3"
)

//go:embed data/attenuation.yaml
var attenuationYAML []byte

// elementCurve interpolates log(mu/rho) against log(E). Absorption edges
// split the table into segments, each fitted independently so the jump at
// the edge is kept.
type elementCurve struct {
	segments []segment
}

type segment struct {
	lo, hi float64 // log energy bounds
	fit    interp.PiecewiseLinear
	xs, ys []float64
}

type attenuationFile struct {
	Elements map[string][][2]float64 `yaml:"elements"`
}

// loadAttenuation parses the embedded element tables.
func loadAttenuation(raw []byte) (map[string]*elementCurve, error) {
	var f attenuationFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse attenuation table: %w", err)
	}
	curves := make(map[string]*elementCurve, len(f.Elements))
	for symbol, points := range f.Elements {
		c, err := newElementCurve(points)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", symbol, err)
		}
		curves[symbol] = c
	}
	return curves, nil
}

func newElementCurve(points [][2]float64) (*elementCurve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least two points, got %d", len(points))
	}
	c := &elementCurve{}
	var xs, ys []float64
	flush := func() error {
		if len(xs) < 2 {
			return fmt.Errorf("segment %d has fewer than two points", len(c.segments))
		}
		s := segment{lo: xs[0], hi: xs[len(xs)-1], xs: xs, ys: ys}
		if err := s.fit.Fit(xs, ys); err != nil {
			return err
		}
		c.segments = append(c.segments, s)
		return nil
	}
	for i, p := range points {
		if p[0] <= 0 || p[1] <= 0 {
			return nil, fmt.Errorf("non-positive entry %v", p)
		}
		x, y := math.Log(p[0]), math.Log(p[1])
		if i > 0 && p[0] == points[i-1][0] {
			// absorption edge: close the segment below, start the one above
			if err := flush(); err != nil {
				return nil, err
			}
			xs, ys = nil, nil
		} else if i > 0 && p[0] < points[i-1][0] {
			return nil, fmt.Errorf("energies not increasing at %g keV", p[0])
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return c, nil
}

// At returns mu/rho in cm^2/g at energy e keV. Outside the table the first
// or last segment is extended along its end slope in log-log space.
func (c *elementCurve) At(e float64) float64 {
	x := math.Log(e)
	first := &c.segments[0]
	last := &c.segments[len(c.segments)-1]
	switch {
	case x < first.lo:
		return math.Exp(extrapolate(first.xs[0], first.ys[0], first.xs[1], first.ys[1], x))
	case x > last.hi:
		n := len(last.xs)
		return math.Exp(extrapolate(last.xs[n-2], last.ys[n-2], last.xs[n-1], last.ys[n-1], x))
	}
	// at an edge energy the segment above the edge wins
	i := sort.Search(len(c.segments), func(i int) bool { return c.segments[i].hi > x })
	if i == len(c.segments) {
		i = len(c.segments) - 1
	}
	return math.Exp(c.segments[i].fit.Predict(x))
}

func extrapolate(x0, y0, x1, y1, x float64) float64 {
	return y0 + (y1-y0)/(x1-x0)*(x-x0)
}
