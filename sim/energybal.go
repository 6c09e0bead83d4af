package sim

import (
	"errors"
	"math"
)

// ErrRefHeight is returned when the trees have grown past the reference
// height, which invalidates the aerodynamic flux profiles.
var ErrRefHeight = errors.New("tree height has exceeded reference height")

const (
	psycho       = 0.658   // psychometric constant (mbar/K)
	pcp          = 1221.09 // volumetric heat capacity (J/m3/K)
	soilRoughLen = 0.004   // soil roughness length for flat, tilled land (m)
	vonk         = 0.4     // von Karman constant
)

// LeafDim is the mean dimension of a single leaflet (m).
type LeafDim struct {
	Length float64
	Width  float64
}

// StomatalStresses are the multipliers (0-1) reducing stomatal conductance.
type StomatalStresses struct {
	Water float64
	VPD   float64
	PAR   float64
}

// AvailEnergy is the net radiation partitioned between crop and soil (W/m2).
type AvailEnergy struct {
	Total float64 // available to crop and soil together
	Crop  float64
	Soil  float64
	Net   float64 // net radiation
	G     float64 // soil heat flux
}

// Resistances to the heat fluxes (s/m). mcf is the mean canopy flow.
type Resistances struct {
	Rsa float64 // aerodynamic, soil to mcf
	Raa float64 // aerodynamic, mcf to reference height
	Rca float64 // boundary layer
	Rst float64 // leaf stomatal
	Rcs float64 // canopy
	Rss float64 // soil
}

// HeatFluxes splits a heat flux between its crop and soil sources.
type HeatFluxes struct {
	Total float64
	Crop  float64
	Soil  float64
}

// EnergyBal models the energy fluxes of the soil-plant-atmosphere system as
// a network of resistances, and yields the canopy temperature consumed by
// the photosynthesis model.
type EnergyBal struct {
	met  *Met
	crop *Crop
	soil *SoilWater
	ps   *Photosyn

	RefHgt float64 // reference height (m)

	// constants within a day, set by SetDailyImmutables
	d       float64 // zero plane displacement (m)
	z0      float64 // crop roughness length (m)
	windExt float64 // wind speed extinction coefficient
	eddyExt float64 // eddy diffusivity extinction coefficient
	LeafDim LeafDim

	StressFn   StomatalStresses
	AvailEgy   AvailEnergy
	Ustar      float64 // friction velocity (m/s)
	UCropHgt   float64 // wind speed at tree height (m/s)
	Res        Resistances
	ET         HeatFluxes // latent heat (W/m2)
	H          HeatFluxes // sensible heat (W/m2)
	CanopyTemp float64    // foliage temperature (deg. C)
	DayET      HeatFluxes // daily latent heat (mm water/day)
	DayH       HeatFluxes // daily sensible heat (MJ/m2/day)
}

// NewEnergyBal builds the energy balance stage from the run configuration.
func NewEnergyBal(cfg *Config, met *Met, crop *Crop, soil *SoilWater, ps *Photosyn) *EnergyBal {
	return &EnergyBal{
		met:        met,
		crop:       crop,
		soil:       soil,
		ps:         ps,
		RefHgt:     cfg.RefHgt,
		StressFn:   StomatalStresses{1.0, 1.0, 1.0},
		CanopyTemp: 25.0,
	}
}

// windProfileParams derives the zero plane displacement, crop roughness
// length and the extinction coefficients for wind speed and eddy
// diffusivity from tree height and LAI.
func (e *EnergyBal) windProfileParams() (d, z0, windext, eddyext float64) {
	const ustar2uh = 0.32 // related to foliage drag
	h := e.crop.TreeHgt
	windext = 3 * (1 - math.Exp(-e.crop.LAI))
	n := 2 * windext
	dhd := math.Min(0.95, math.Max(0.3, 1-math.Exp(-n)/n*(math.Exp(n)-1)))
	d = dhd * h
	z0 = (1 - dhd) * math.Exp(-vonk/ustar2uh) * h
	return d, z0, windext, windext // eddy assumed equal to wind extinction
}

// leafDimension estimates the mean leaflet length and width (m) from tree
// age.
func (e *EnergyBal) leafDimension() LeafDim {
	age := float64(e.crop.TreeAge) / 365
	return LeafDim{
		Length: 0.2191*math.Log(age) + 0.475,
		Width:  0.0152*math.Log(age) + 0.0165,
	}
}

// SetDailyImmutables fixes the parameters that do not change within a day.
func (e *EnergyBal) SetDailyImmutables() {
	e.LeafDim = e.leafDimension()
	e.d, e.z0, e.windExt, e.eddyExt = e.windProfileParams()
}

// stomatalCondStresses collects the conductance reductions from soil water,
// VPD and PAR.
func (e *EnergyBal) stomatalCondStresses() StomatalStresses {
	// conductance declines with VPD; 10 and 65 mbar bound the response
	gstVpd := func(vpd float64) float64 {
		return -0.007516*math.Log(vpd) + 0.031970
	}
	gstmin, gstmax := gstVpd(65.0), gstVpd(10.0)
	vpd := math.Min(gstmax, math.Max(gstmin, gstVpd(math.Max(10.0, e.met.VPD)))) / gstmax

	// conductance rises with PAR; 0.1 avoids a divide by zero
	gstPar := func(par float64) float64 {
		return 0.014614 * (1 - math.Exp(-0.008740*par))
	}
	gstmin, gstmax = gstPar(0.1), gstPar(330.0)
	partotal := e.met.Rad.Total * 0.5
	par := math.Min(gstmax, math.Max(gstmin, gstPar(partotal))) / gstmax

	return StomatalStresses{Water: e.soil.Stresses.Crop, VPD: vpd, PAR: par}
}

// availableEnergy partitions the net radiation between crop and soil.
func (e *EnergyBal) availableEnergy() AvailEnergy {
	const tc = 0.05  // Rn portion as soil heat flux under full canopy
	const ts = 0.315 // Rn portion as soil heat flux for bare soil
	pfn := math.Exp(-e.ps.ExtCoef.Kdr * e.ps.Clump * math.Sqrt(0.5) * e.crop.LAI)
	gap := math.Max(e.ps.Gap, pfn) // Rn penetration into the canopies
	rn := e.met.NetRad
	acrp := (1 - gap) * (1 - tc) * rn
	asol := gap * (1 - ts) * rn
	g := (tc + gap*(ts-tc)) * rn
	return AvailEnergy{acrp + asol, acrp, asol, rn, g}
}

// resRss is the soil resistance, from vapor diffusion out of the topsoil.
func (e *EnergyBal) resRss() float64 {
	top := e.soil.Layers[0]
	tau := math.Sqrt(top.SWC.Porosity + 3.79*(1-top.SWC.Porosity)) // tortuosity
	const dmv = 24.7e-6                                            // vapor diffusion coefficient (m2/s)
	rssmax := tau * top.Thick / (top.SWC.Porosity * dmv)
	return rssmax * math.Exp(-top.Vwc/(top.SWC.PSD*top.SWC.Sat))
}

// windspdAtRefHgt extrapolates the weather station wind speed to the
// reference height by the log law.
func (e *EnergyBal) windspdAtRefHgt() float64 {
	const z0 = 0.03 // roughness length for open agricultural fields (m)
	return e.met.WindSpd * math.Log(e.RefHgt/z0) / math.Log(e.met.MetHgt/z0)
}

// frictionVelocity fails with ErrRefHeight once the trees outgrow the
// reference height.
func (e *EnergyBal) frictionVelocity() (float64, error) {
	if e.RefHgt < e.crop.TreeHgt {
		return 0, ErrRefHeight
	}
	return vonk * e.windspdAtRefHgt() / math.Log((e.RefHgt-e.d)/e.z0), nil
}

func (e *EnergyBal) windspdAtCropHgt() float64 {
	return e.Ustar / vonk * math.Log((e.crop.TreeHgt-e.d)/e.z0)
}

// resRsa is the aerodynamic resistance between the soil and the mean
// canopy flow.
func (e *EnergyBal) resRsa() float64 {
	n := e.eddyExt
	a := math.Exp(n) / (n * vonk * e.Ustar)
	b := math.Exp(-n * soilRoughLen / e.crop.TreeHgt)
	c := math.Exp(-n * (e.z0 + e.d) / e.crop.TreeHgt)
	return a * (b - c)
}

// resRaa is the aerodynamic resistance between the mean canopy flow and the
// reference height.
func (e *EnergyBal) resRaa() float64 {
	n := e.eddyExt
	a := vonk * e.Ustar
	b := math.Log((e.RefHgt-e.d)/(e.crop.TreeHgt-e.d)) / a
	c := 1 - (e.z0+e.d)/e.crop.TreeHgt
	return b + (math.Exp(n*c)-1)/(n*a)
}

func (e *EnergyBal) effectiveLAI() float64 {
	return math.Min(e.crop.LAI, 0.5*e.crop.LaiMax)
}

// resRca is the leaf boundary layer resistance.
func (e *EnergyBal) resRca() float64 {
	n := e.windExt
	a := (1 - math.Exp(-n/2)) * math.Sqrt(e.UCropHgt/e.LeafDim.Width)
	return n / (0.01 * e.effectiveLAI() * a)
}

// resRcsSt returns the stomatal and canopy resistances under the current
// stresses.
func (e *EnergyBal) resRcsSt() (rst, rcs float64) {
	const gstmax = 0.0125 // max stomatal conductance (m/s), about 500 mmol/m2/s
	gst := gstmax * e.StressFn.Water * e.StressFn.VPD * e.StressFn.PAR
	return 1 / gst, 1 / (gst * e.effectiveLAI())
}

func (e *EnergyBal) resistances() Resistances {
	rst, rcs := e.resRcsSt()
	return Resistances{
		Rsa: e.resRsa(),
		Raa: e.resRaa(),
		Rca: e.resRca(),
		Rst: rst,
		Rcs: rcs,
		Rss: e.resRss(),
	}
}

// calcAllFluxes solves the dual-source Penman-Monteith closed form for the
// latent and sensible heat fluxes (W/m2).
func (e *EnergyBal) calcAllFluxes() (et, h HeatFluxes) {
	slope := e.met.SlopeSVP
	vpd := e.met.VPD
	raa, rca, rsa := e.Res.Raa, e.Res.Rca, e.Res.Rsa
	rcs, rss := e.Res.Rcs, e.Res.Rss
	atotal, acrop, asoil := e.AvailEgy.Total, e.AvailEgy.Crop, e.AvailEgy.Soil

	ra := (slope + psycho) * raa
	rc := (slope+psycho)*rca + psycho*rcs
	rs := (slope+psycho)*rsa + psycho*rss
	cc := 1 / (1 + rc*ra/(rs*(rc+ra)))
	cs := 1 / (1 + rs*ra/(rc*(rs+ra)))
	pmc := slope*atotal + (pcp*vpd-slope*rca*asoil)/(raa+rca)
	pmc /= slope + psycho*(1+rcs/(raa+rca))
	pms := slope*atotal + (pcp*vpd-slope*rsa*acrop)/(raa+rsa)
	pms /= slope + psycho*(1+rss/(raa+rsa))
	ettotal := cc*pmc + cs*pms
	vpd0 := vpd + (raa/pcp)*(slope*atotal-(slope+psycho)*ettotal)
	etc := (slope*acrop + pcp*vpd0/rca) / (slope + psycho*(rcs+rca)/rca)
	ets := (slope*asoil + pcp*vpd0/rsa) / (slope + psycho*(rss+rsa)/rsa)
	hc := (psycho*acrop*(rcs+rca) - pcp*vpd0) / (slope*rca + psycho*(rcs+rca))
	hs := (psycho*asoil*(rss+rsa) - pcp*vpd0) / (slope*rsa + psycho*(rss+rsa))
	return HeatFluxes{ettotal, etc, ets}, HeatFluxes{hc + hs, hc, hs}
}

// canopyTemperature recovers the foliage temperature from the sensible heat
// flowing through the boundary layer and aerodynamic resistances.
func (e *EnergyBal) canopyTemperature() float64 {
	delta := e.H.Crop*e.Res.Rca + (e.H.Soil+e.H.Crop)*e.Res.Raa
	return delta/pcp + e.met.AirTemp
}

// SetHeatFluxes resolves the instantaneous fluxes and the foliage
// temperature for the current weather.
func (e *EnergyBal) SetHeatFluxes() error {
	e.StressFn = e.stomatalCondStresses()
	e.AvailEgy = e.availableEnergy()
	ustar, err := e.frictionVelocity()
	if err != nil {
		return err
	}
	e.Ustar = ustar
	e.UCropHgt = e.windspdAtCropHgt()
	e.Res = e.resistances()
	e.ET, e.H = e.calcAllFluxes()
	e.CanopyTemp = e.canopyTemperature()
	return nil
}

// TempQuery runs the energy balance once and returns the foliage
// temperature. It is handed to the photosynthesis stage, which resolves it
// exactly once per quadrature sample.
func (e *EnergyBal) TempQuery() (float64, error) {
	if err := e.SetHeatFluxes(); err != nil {
		return 0, err
	}
	return e.CanopyTemp, nil
}

// HourlyFluxes resolves the instantaneous coupled state: the canopy
// assimilation (which pulls the heat fluxes through TempQuery) plus the
// latent and sensible flux components.
func (e *EnergyBal) HourlyFluxes() ([]float64, error) {
	if err := e.ps.CanopyAssimilation(e.TempQuery); err != nil {
		return nil, err
	}
	return []float64{e.ps.CanopyAssim,
		e.ET.Total, e.ET.Crop, e.ET.Soil,
		e.H.Total, e.H.Crop, e.H.Soil}, nil
}

// DailyHeatBalance integrates the instantaneous fluxes over the whole day,
// leaving the daily latent heat in mm water/day and the daily sensible heat
// in MJ/m2/day.
func (e *EnergyBal) DailyHeatBalance() error {
	e.SetDailyImmutables()
	ans, err := e.met.Integrate(5, 0, 24, e.HourlyFluxes)
	if err != nil {
		return err
	}
	// drop the assimilation result; it is integrated separately over daylight
	const toMM = 3600. / 2454000.
	const toMJ = 3600. / 1e6
	e.DayET = HeatFluxes{ans[1] * toMM, ans[2] * toMM, ans[3] * toMM}
	e.DayH = HeatFluxes{ans[4] * toMJ, ans[5] * toMJ, ans[6] * toMJ}
	return nil
}
