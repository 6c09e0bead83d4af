package sim

// Gauss-Legendre abscissas and weights on [-1,1], keyed by the number of
// integration points. Unsupported n falls back to the 1-point rule.
var glRules = map[int]struct{ t, w []float64 }{
	1: {[]float64{0.0}, []float64{2.0}},
	2: {[]float64{-0.57735027, 0.57735027}, []float64{1.0, 1.0}},
	3: {[]float64{-0.77459667, 0.0, 0.77459667},
		[]float64{0.55555556, 0.88888889, 0.55555556}},
	4: {[]float64{-0.86113631, -0.33998104, 0.33998104, 0.86113631},
		[]float64{0.34785485, 0.65214515, 0.65214515, 0.34785485}},
	5: {[]float64{-0.90617985, -0.53846931, 0.0, 0.53846931, 0.90617985},
		[]float64{0.23692689, 0.47862867, 0.56888888, 0.47862867, 0.23692689}},
	6: {[]float64{-0.93246951, -0.66120939, -0.23861919, 0.23861919, 0.66120939, 0.93246951},
		[]float64{0.17132449, 0.36076157, 0.46791393, 0.46791393, 0.36076157, 0.17132449}},
	7: {[]float64{-0.94910791, -0.74153119, -0.40584515, 0.0, 0.40584515, 0.74153119, 0.94910791},
		[]float64{0.12948497, 0.27970539, 0.38183005, 0.41795918, 0.38183005, 0.27970539, 0.12948497}},
	8: {[]float64{-0.96028986, -0.79666648, -0.52553241, -0.18343464, 0.18343464, 0.52553241, 0.79666648, 0.96028986},
		[]float64{0.10122854, 0.22238103, 0.31370665, 0.36268378, 0.36268378, 0.31370665, 0.22238103, 0.10122854}},
	9: {[]float64{-0.96816024, -0.83603111, -0.61337143, -0.32425342, 0.0, 0.32425342, 0.61337143, 0.83603111, 0.96816024},
		[]float64{0.08127439, 0.18064816, 0.2606107, 0.31234708, 0.33023936, 0.31234708, 0.2606107, 0.18064816, 0.08127439}},
}

// Integrate performs n-point Gaussian quadrature of a vector-valued rate
// function over the solar-hour interval [lower,upper]. Before each sample
// the weather clock is moved to the abscissa, so f always evaluates at the
// current instantaneous weather; the clock is left at the last sample.
// The first error from f aborts the integration.
func (m *Met) Integrate(n int, lower, upper float64, f func() ([]float64, error)) ([]float64, error) {
	r, ok := glRules[n]
	if !ok {
		r = glRules[1] // expect inaccurate results
	}
	mid := (upper + lower) / 2
	half := (upper - lower) / 2
	var total []float64
	for i, t := range r.t {
		m.SetHour(mid + half*t)
		vals, err := f()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			total = make([]float64, len(vals))
		}
		for j, v := range vals {
			total[j] += v * r.w[i] * half
		}
	}
	return total, nil
}
