package sim

import "math"

// TempQuery resolves the canopy/foliage temperature (deg. C) at the current
// instant. Implementations may run the full energy balance, so each
// quadrature sample must call it exactly once.
type TempQuery func() (float64, error)

// Reflect holds the canopy PAR reflection coefficients.
type Reflect struct {
	Pdr float64 // direct irradiance
	Pdf float64 // diffuse irradiance
}

// Extinction holds the canopy extinction coefficients.
type Extinction struct {
	Kdr float64 // direct irradiance
	Kdf float64 // diffuse irradiance
}

// PARComp are the photosynthetically active radiation components, outside
// and within the canopies (umol photons/m2/s).
type PARComp struct {
	OutDr       float64 // direct, outside the canopies
	OutDf       float64 // diffuse, outside the canopies
	InDrScatter float64 // direct plus scatter, within the canopies
	InDr        float64 // direct, within the canopies
	InScatter   float64 // scatter, within the canopies
	InDf        float64 // diffuse, within the canopies
	AbsSunlit   float64 // absorbed by the sunlit leaves
	AbsShaded   float64 // absorbed by the shaded leaves
}

// LAIComp splits the leaf area index between sunlit and shaded leaves
// (m2 leaf/m2 ground).
type LAIComp struct {
	Total  float64
	Sunlit float64
	Shaded float64
}

// AssimCoef are the temperature-corrected photosynthesis coefficients.
type AssimCoef struct {
	MMCO2       float64 // Michaelis-Menten constant for CO2 (umol/mol)
	MMO2        float64 // Michaelis-Menten constant for O2 (umol/mol)
	Specificity float64 // CO2/O2 specificity factor
	Vcmax       float64 // Rubisco maximum capacity rate (umol CO2/m2 leaf/s)
	CO2Pt       float64 // CO2 compensation point (umol CO2/mol)
}

// LeafAssim are the leaf CO2 assimilation rates (umol CO2/m2 leaf/s).
type LeafAssim struct {
	Vc     float64 // Rubisco-limited
	Vqsl   float64 // light-limited, sunlit leaves
	Vqsh   float64 // light-limited, shaded leaves
	Vs     float64 // sink-limited
	Sunlit float64
	Shaded float64
}

// Photosyn models leaf and canopy CO2 assimilation.
type Photosyn struct {
	met  *Met
	crop *Crop

	CO2Ambient   float64 // ambient CO2 (umol CO2/mol air)
	CO2Change    float64 // annual change in ambient CO2 (umol CO2/mol air/year)
	parScatter   float64
	parAbsorb    float64
	parSoil      float64 // PAR reflection off the soil surface
	quantumYield float64 // umol CO2/umol photons
	CO2Internal  float64 // intercellular CO2 (umol CO2/mol air)
	O2Ambient    float64 // ambient O2 (umol O2/mol air)

	Gap         float64 // canopy gap fraction, viewed from zenith
	ExtCoef     Extinction
	Clump       float64 // canopy clump factor
	RefCoef     Reflect
	LAIComp     LAIComp
	PAR         PARComp
	AssimCoef   AssimCoef
	LeafAssim   LeafAssim
	CanopyAssim float64 // instantaneous canopy assimilation (umol CO2/m2 leaf/s)
	DayAssim    float64 // daily canopy assimilation (kg CH2O/palm/day)
}

// AmbientCO2 estimates the mean annual ambient CO2 concentration
// (umol CO2/mol air) for a given calendar year.
func AmbientCO2(year float64) float64 {
	const a, b, c = 39413600.0, -40620.1096, 10.49094
	return math.Sqrt(a + b*year + c*year*year)
}

// NewPhotosyn builds the photosynthesis state from the run configuration.
func NewPhotosyn(cfg *Config, met *Met, crop *Crop) *Photosyn {
	co2 := cfg.CO2Ambient
	if co2 <= 0 {
		co2 = AmbientCO2(-co2) // a negated year rather than a concentration
	}
	return &Photosyn{
		met:          met,
		crop:         crop,
		CO2Ambient:   co2,
		CO2Change:    cfg.CO2Change,
		parScatter:   0.8,
		parAbsorb:    0.8,
		parSoil:      0.15,
		quantumYield: 0.051,
		CO2Internal:  0.7 * co2,
		O2Ambient:    210000.0,
		Gap:          1.0, // open canopies
		Clump:        1.0,
		ExtCoef:      Extinction{0.5, 0.5},
		RefCoef:      Reflect{0.04, 0.04},
	}
}

// DayChanged applies the day's share of the annual CO2 trend.
func (p *Photosyn) DayChanged() {
	p.CO2Ambient += p.CO2Change / 365
}

// canopyExtinction caps the direct coefficient, which blows up for hours
// before sunrise and after sunset.
func (p *Photosyn) canopyExtinction() Extinction {
	kdr := math.Min(10.0, 0.5/math.Cos(p.met.SolarPos.Inc))
	kdf := math.Exp(0.038042 - 0.38845*math.Sqrt(p.crop.LAI))
	return Extinction{kdr, kdf}
}

// gapFraction is the canopy opening viewed from zenith (0 = closed,
// 1 = fully open).
func (p *Photosyn) gapFraction() float64 {
	return 1 / (1 + 1.33*math.Sqrt(p.crop.LAI))
}

func (p *Photosyn) canopyClump() float64 {
	kdrlai := p.ExtCoef.Kdr * p.crop.LAI
	gap := p.Gap
	w0 := -math.Log(gap+(1-gap)*math.Exp(-kdrlai/(1-gap))) / kdrlai
	return w0 + 6.6557*(1-w0)*math.Exp(-math.Exp(-p.met.SolarPos.Inc+2.2103))
}

func (p *Photosyn) reflectionCoef() Reflect {
	a := math.Sqrt(p.parScatter) * p.crop.LAI
	pdr := math.Max(0.04, p.parSoil*math.Exp(-2*p.ExtCoef.Kdr*p.Clump*a))
	pdf := math.Max(0.04, p.parSoil*math.Exp(-2*p.ExtCoef.Kdf*a))
	return Reflect{pdr, pdf}
}

func (p *Photosyn) laiComponents() LAIComp {
	total := p.crop.LAI
	a := p.ExtCoef.Kdr * p.Clump
	lsl := (1 - math.Exp(-a*total)) / a
	return LAIComp{total, lsl, total - lsl}
}

// parComponents resolves the PAR regime outside and within the canopies.
// Half of the solar irradiance is PAR, and 1 W/m2 is 4.55 umol photons/m2/s.
func (p *Photosyn) parComponents() PARComp {
	qdr := p.met.Rad.Direct * 0.5 * 4.55
	qdf := p.met.Rad.Diffuse * 0.5 * 4.55
	a := p.ExtCoef.Kdr * p.Clump * p.crop.LAI
	b := math.Sqrt(p.parScatter)
	qpDrScatter := (1 - p.RefCoef.Pdr) * qdr * math.Exp(-a*b)
	qpDr := (1 - p.RefCoef.Pdr) * qdr * math.Exp(-a)
	qpScatter := 0.5 * (qpDrScatter - qpDr)
	a = p.ExtCoef.Kdf * b * p.crop.LAI
	qpDf := (1 - p.RefCoef.Pdf) * qdf * (1 - math.Exp(-a)) / a
	qsl := p.parAbsorb * (p.ExtCoef.Kdr*p.Clump*qdr + qpDf + qpScatter)
	qsh := p.parAbsorb * (qpDf + qpScatter)
	return PARComp{qdr, qdf, qpDrScatter, qpDr, qpScatter, qpDf, qsl, qsh}
}

// setAssimCoefs corrects the 25 deg. C photosynthesis coefficients to the
// foliage temperature (Q10 scaling, plus a high-temperature Vcmax penalty
// and the age decline of Vcmax).
func (p *Photosyn) setAssimCoefs(canopytemp float64) AssimCoef {
	vcmax25 := 87.935 - 0.0026*float64(p.crop.TreeAge)
	q10 := func(val25, q float64) float64 {
		return val25 * math.Pow(q, (canopytemp-25)/10)
	}
	mmco2 := q10(270.0, 2.786)
	mmo2 := q10(165000.0, 1.355)
	spec := q10(2800.0, 0.703)
	vcmax := q10(vcmax25, 2.573) / (1 + math.Exp(0.29*(canopytemp-40)))
	return AssimCoef{mmco2, mmo2, spec, vcmax, 0.5 * p.O2Ambient / spec}
}

// co2Internal relates the intercellular CO2 to the leaf vapor pressure
// deficit; oil palm stomata close fully past 65 mbar.
func (p *Photosyn) co2Internal(canopytemp float64) float64 {
	vpdleaf := math.Min(65.0, SVPAt(canopytemp)-p.met.VP)
	const a, b = 0.0615, 0.0213
	ca := p.CO2Ambient
	return ca * (1 - (1-p.AssimCoef.CO2Pt/ca)*(a+b*vpdleaf))
}

// leafAssimilation takes the most limiting of the Rubisco-, light- and
// sink-limited rates (umol CO2/m2 leaf/s).
func (p *Photosyn) leafAssimilation() LeafAssim {
	co2diff := math.Max(0.0, p.CO2Internal-p.AssimCoef.CO2Pt)
	vc := p.AssimCoef.Vcmax * co2diff
	vc /= p.AssimCoef.MMCO2*(1+p.O2Ambient/p.AssimCoef.MMO2) + p.CO2Internal
	a := co2diff / (p.CO2Internal + 2*p.AssimCoef.CO2Pt)
	a *= p.quantumYield * p.parAbsorb
	vqsl, vqsh := p.PAR.AbsSunlit*a, p.PAR.AbsShaded*a
	vs := p.AssimCoef.Vcmax * 0.5
	return LeafAssim{vc, vqsl, vqsh, vs,
		math.Min(vc, math.Min(vqsl, vs)), math.Min(vc, math.Min(vqsh, vs))}
}

// CanopyAssimilation sets the instantaneous canopy assimilation for the
// current weather, resolving the foliage temperature through tq.
func (p *Photosyn) CanopyAssimilation(tq TempQuery) error {
	p.Gap = p.gapFraction()
	p.ExtCoef = p.canopyExtinction()
	p.Clump = p.canopyClump()
	p.RefCoef = p.reflectionCoef()
	p.LAIComp = p.laiComponents()
	p.PAR = p.parComponents()
	tf, err := tq()
	if err != nil {
		return err
	}
	p.AssimCoef = p.setAssimCoefs(tf)
	p.CO2Internal = p.co2Internal(tf)
	p.LeafAssim = p.leafAssimilation()
	p.CanopyAssim = p.LeafAssim.Sunlit*p.LAIComp.Sunlit + p.LeafAssim.Shaded*p.LAIComp.Shaded
	return nil
}

// DailyCanopyAssim integrates the canopy assimilation from sunrise to
// sunset and converts it to kg CH2O/palm/day.
func (p *Photosyn) DailyCanopyAssim(tq TempQuery) error {
	ans, err := p.met.Integrate(5, p.met.SunRise, p.met.SunSet, func() ([]float64, error) {
		if err := p.CanopyAssimilation(tq); err != nil {
			return nil, err
		}
		return []float64{p.CanopyAssim}, nil
	})
	if err != nil {
		return err
	}
	p.DayAssim = ans[0] * 1.08 / p.crop.PlantDens
	return nil
}
