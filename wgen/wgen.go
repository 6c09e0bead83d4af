// Package wgen simulates daily weather: minimum and maximum air
// temperature, wind speed, and rainfall, one year at a time.
//
// Rain occurrence follows a first-order Markov chain with monthly wet/wet
// and wet/dry transition probabilities; rain amounts come from a fitted
// gamma distribution. Temperatures follow an annual sine curve with a
// trivariate lag-one residual model, and wind speed comes from a fitted
// Weibull distribution.
package wgen

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// cumulative number of days in a month
var cumulativeDays = [12]int{31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}

// lag-one serial and cross correlation matrices for the residual model
var (
	matA = [3][3]float64{
		{0.567, 0.086, -0.002},
		{0.253, 0.504, -0.050},
		{-0.006, -0.039, 0.244},
	}
	matB = [3][3]float64{
		{0.781, 0.000, 0.000},
		{0.328, 0.637, 0.000},
		{0.238, -0.341, 0.873},
	}
)

// RainParams drive rain generation. Each slice holds monthly values; short
// slices are recycled to twelve months.
type RainParams struct {
	PWW   []float64 // probability of a wet day following a wet day
	PWD   []float64 // probability of a wet day following a dry day
	Shape []float64 // gamma shape
	Scale []float64 // gamma scale
}

// TempParams drive air temperature generation for one series (tmin or
// tmax).
type TempParams struct {
	Mean    float64 // annual mean (deg. C)
	Amp     float64 // amplitude of the annual cycle
	CV      float64 // coefficient of variation
	AmpCV   float64 // amplitude of the cv cycle
	MeanWet float64 // mean on days that rained
}

// WindParams drive wind speed generation. Monthly values, recycled to
// twelve months.
type WindParams struct {
	Shape []float64 // Weibull shape
	Scale []float64 // Weibull scale
}

// Params collects every generation parameter.
type Params struct {
	Rain RainParams
	Tmin TempParams
	Tmax TempParams
	Wind WindParams
}

// Generator simulates one year of daily weather at a time. It satisfies the
// simulation core's WeatherSource.
type Generator struct {
	rng   *rand.Rand
	prain RainParams
	ptmin TempParams
	ptmax TempParams
	pwind WindParams

	tmin, tmax, wind, rain [365]float64

	txm, txs   float64 // tmax mean and sd, dry days
	txm1, txs1 float64 // tmax mean and sd, wet days
	tnm, tns   float64 // tmin mean and sd
	xim1       [3]float64
	isRain     bool
}

// fillIn recycles a monthly parameter list to exactly twelve entries.
func fillIn(lst []float64) []float64 {
	if len(lst) == 0 {
		return make([]float64, 12)
	}
	for len(lst) < 12 {
		lst = append(lst, lst...)
	}
	return lst[:12]
}

// New builds a generator. The rng is shared with the simulation so a single
// seed fixes the whole run. The first annual series is produced by the
// first Update call.
func New(p Params, rng *rand.Rand) *Generator {
	g := &Generator{
		rng: rng,
		prain: RainParams{
			PWW:   fillIn(p.Rain.PWW),
			PWD:   fillIn(p.Rain.PWD),
			Shape: fillIn(p.Rain.Shape),
			Scale: fillIn(p.Rain.Scale),
		},
		ptmin: p.Tmin,
		ptmax: p.Tmax,
		pwind: WindParams{
			Shape: fillIn(p.Wind.Shape),
			Scale: fillIn(p.Wind.Scale),
		},
	}
	g.isRain = rng.Float64() < 0.5
	return g
}

// Days returns the length of the annual series.
func (g *Generator) Days() int { return 365 }

// Get returns the value of a weather field ("tmin", "tmax", "wind" or
// "rain") for a day of year in [1,365].
func (g *Generator) Get(field string, doy int) float64 {
	switch field {
	case "tmin":
		return g.tmin[doy-1]
	case "tmax":
		return g.tmax[doy-1]
	case "wind":
		return g.wind[doy-1]
	case "rain":
		return g.rain[doy-1]
	}
	return 0
}

// quantile guards the open upper bound of the inverse CDFs.
func quantile(x float64) float64 {
	if x >= 1 {
		x = 1 - 1e-12
	}
	return x
}

// generateRain draws the day's rainfall amount (mm/day) off the inverse
// gamma CDF for the month.
func (g *Generator) generateRain(day, mth int) {
	x := quantile(1 - g.rng.Float64())
	gam := distuv.Gamma{Alpha: g.prain.Shape[mth], Beta: 1 / g.prain.Scale[mth]}
	g.rain[day] = gam.Quantile(x)
	g.isRain = g.rain[day] > 0.0
}

// normalResidual draws a standard normal deviate, rejecting beyond 2.5
// standard deviations.
func (g *Generator) normalResidual() float64 {
	v := 3.0
	for math.Abs(v) > 2.5 {
		rn1 := g.rng.Float64()
		rn2 := g.rng.Float64()
		v = math.Sqrt(-2*math.Log(rn1)) * math.Cos(2*math.Pi*rn2)
	}
	return v
}

// generateTemperature draws the day's min and max air temperatures (deg. C)
// from the residual model, swapping them if they come out inverted.
func (g *Generator) generateTemperature(day int) {
	txxm, txxs := g.txm, g.txs
	if g.isRain {
		txxm, txxs = g.txm1, g.txs1
	}
	var e [3]float64
	for k := range e {
		e[k] = g.normalResidual()
	}
	var x [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			x[i] += matB[i][j]*e[j] + matA[i][j]*g.xim1[j]
		}
	}
	g.xim1 = x
	g.tmax[day] = x[0]*txxs + txxm
	g.tmin[day] = x[1]*g.tns + g.tnm
	if g.tmin[day] > g.tmax[day] {
		g.tmin[day], g.tmax[day] = g.tmax[day], g.tmin[day]
	}
}

// generateWind draws the mean daily wind speed (m/s) off the inverse
// Weibull CDF for the month. Resamples below 0.2 m/s, the lowest daily mean
// on record for the region.
func (g *Generator) generateWind(day, mth int) {
	wb := distuv.Weibull{K: g.pwind.Shape[mth], Lambda: g.pwind.Scale[mth]}
	windspd := -1.0
	for windspd < 0.2 {
		windspd = wb.Quantile(quantile(1 - g.rng.Float64()))
	}
	g.wind[day] = windspd
}

// Update generates a new year of daily weather.
func (g *Generator) Update() {
	d1 := g.ptmax.Mean - g.ptmax.MeanWet
	mth := 0
	for day := 0; day < 365; day++ {
		dt := math.Cos(0.0172 * float64(day+1-200))
		g.txm = g.ptmax.Mean + g.ptmax.Amp*dt
		xcr1 := g.ptmax.CV + g.ptmax.AmpCV*dt
		if xcr1 < 0.0 {
			xcr1 = 0.06
		}
		g.txs = g.txm * xcr1
		g.txm1 = g.txm - d1
		g.txs1 = g.txm1 * xcr1
		g.tnm = g.ptmin.Mean + g.ptmin.Amp*dt
		xcr2 := g.ptmin.CV + g.ptmin.AmpCV*dt
		if xcr2 < 0.0 {
			xcr2 = 0.06
		}
		g.tns = g.tnm * xcr2

		if day+1 > cumulativeDays[mth] {
			mth++
		}
		pw := g.prain.PWD[mth]
		if g.isRain {
			pw = g.prain.PWW[mth]
		}
		if g.rng.Float64()-pw <= 0.0 {
			g.generateRain(day, mth)
		} else {
			g.isRain = false
			g.rain[day] = 0.0
		}
		g.generateTemperature(day)
		g.generateWind(day, mth)
	}
}
