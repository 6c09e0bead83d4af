package sim

import "sort"

// AFGen is a sorted (x,y) lookup table with linear inter-/extrapolation.
// Values beyond either end of the table are extrapolated from the two
// nearest pairs. A table needs at least two pairs.
type AFGen struct {
	xs, ys []float64
}

// NewAFGen builds the table from an (x,y) map, sorting by x.
func NewAFGen(xy map[float64]float64) *AFGen {
	xs := make([]float64, 0, len(xy))
	for x := range xy {
		xs = append(xs, x)
	}
	sort.Float64s(xs)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = xy[x]
	}
	return &AFGen{xs: xs, ys: ys}
}

// Val returns y for a given x, interpolating or extrapolating as needed.
func (a *AFGen) Val(x float64) float64 {
	var x1, x2, y1, y2 float64
	idx := sort.SearchFloat64s(a.xs, x)
	switch {
	case idx >= len(a.xs): // past max value, extrapolate
		x1, x2 = a.xs[idx-2], a.xs[idx-1]
		y1, y2 = a.ys[idx-2], a.ys[idx-1]
	case idx == 0: // possibly below min value, extrapolate
		x1, x2 = a.xs[0], a.xs[1]
		y1, y2 = a.ys[0], a.ys[1]
	default:
		x1, x2 = a.xs[idx-1], a.xs[idx]
		y1, y2 = a.ys[idx-1], a.ys[idx]
	}
	return y1 + (y2-y1)/(x2-x1)*(x-x1)
}
