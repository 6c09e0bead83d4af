package sim

import "math"

// AET is actual evapotranspiration, or the stress reduction applied to it.
type AET struct {
	Crop float64 // transpiration (or its reduction factor)
	Soil float64 // evaporation (or its reduction factor)
}

// RootWater summarizes the soil water held within the rooting zone.
type RootWater struct {
	Wc       float64 // water content (mm)
	Vwc      float64 // water content (m3/m3)
	Critical float64 // content below which plant water stress sets in (m3/m3)
	Sat      float64 // saturation point (m3/m3)
	FC       float64 // field capacity (m3/m3)
	PWP      float64 // permanent wilting point (m3/m3)
}

// SoilWater models one-dimensional water movement through the soil column
// and the daily water balance, including a constant-depth water table when
// present.
type SoilWater struct {
	met  *Met
	crop *Crop

	NumIntervals  int     // sub-steps per day
	RootDepth     float64 // rooting depth (m)
	HasWaterTable bool
	Layers        []*SoilLayer

	RootZone RootWater
	pf       []Fluxes // working fluxes within a sub-step
	cf       []Fluxes // cumulative fluxes over the day
	Stresses AET      // reduction to E and T from water stress (0-1, 1 = none)
	NetRain  float64  // net rainfall (mm/day)
	ActET    AET      // actual water loss (mm/day)
}

// NewSoilWater builds the soil column from the run configuration and
// initializes every layer top down.
func NewSoilWater(cfg *Config, met *Met, crop *Crop) *SoilWater {
	sw := &SoilWater{
		met:           met,
		crop:          crop,
		NumIntervals:  cfg.NumIntervals,
		RootDepth:     cfg.RootDepth,
		HasWaterTable: cfg.HasWaterTable,
		Layers:        make([]*SoilLayer, len(cfg.Layers)),
		pf:            make([]Fluxes, len(cfg.Layers)),
		cf:            make([]Fluxes, len(cfg.Layers)),
	}
	accdepth := 0.0
	for i, lc := range cfg.Layers {
		sl := &SoilLayer{
			Thick:   lc.Thick,
			Vwc:     lc.Vwc,
			Texture: Texture{Clay: lc.Clay, Sand: lc.Sand, OM: lc.OM},
		}
		var prev *SoilLayer
		if i > 0 {
			prev = sw.Layers[i-1]
		}
		sl.initialize(prev, &accdepth)
		sw.Layers[i] = sl
	}
	sw.updateRootWater()
	sw.Stresses = sw.reduceET()
	return sw
}

// netRainfall is the rain reaching the soil after canopy interception
// (mm/day).
func (sw *SoilWater) netRainfall() float64 {
	fraction := math.Max(0.7295, 1-0.0541*sw.crop.LAI)
	return fraction * sw.met.DayRain
}

// rootingDepth grows the roots at 2 mm/day, limited by water stress and the
// total soil depth (m).
func (sw *SoilWater) rootingDepth() float64 {
	newdepth := sw.RootDepth + (2.0/1000)*sw.Stresses.Crop
	return math.Min(newdepth, sw.Layers[len(sw.Layers)-1].AccThick)
}

// updateRootWater recomputes the water content and characteristics of the
// rooting zone. The critical content sits at 60% of the span between
// saturation and wilting point.
func (sw *SoilWater) updateRootWater() {
	var wc, wcsat, wcfc, wcpwp float64
	for _, sl := range sw.Layers {
		diff := sl.Thick - math.Max(0.0, sl.AccThick-sw.RootDepth)
		if diff <= 0 {
			break // found every layer holding roots
		}
		wc += sl.Vwc * diff
		wcsat += sl.SWC.Sat * diff
		wcfc += sl.SWC.FC * diff
		wcpwp += sl.SWC.PWP * diff
	}
	vwcsat := wcsat / sw.RootDepth
	vwcpwp := wcpwp / sw.RootDepth
	sw.RootZone = RootWater{
		Wc:       wc * 1000,
		Vwc:      wc / sw.RootDepth,
		Critical: vwcpwp + 0.6*(vwcsat-vwcpwp),
		Sat:      vwcsat,
		FC:       wcfc / sw.RootDepth,
		PWP:      vwcpwp,
	}
}

// reduceET returns the stress reductions to transpiration and evaporation
// (0 = max stress, 1 = none). Evaporation follows a logistic curve of the
// topsoil wetness; transpiration ramps linearly between wilting point and
// the critical content.
func (sw *SoilWater) reduceET() AET {
	top := sw.Layers[0]
	rde := 1 / (1 + math.Pow(3.6073*(top.Vwc/top.SWC.Sat), -9.3172))
	vwc := sw.RootZone.Vwc
	var rdt float64
	switch {
	case vwc >= sw.RootZone.Critical:
		rdt = 1.0
	case vwc > sw.RootZone.PWP:
		rdt = (vwc - sw.RootZone.PWP) / (sw.RootZone.Critical - sw.RootZone.PWP)
	default:
		rdt = 0.01
	}
	return AET{Crop: rdt, Soil: rde}
}

// actualET scales the potential losses by the current stresses (mm/day).
func (sw *SoilWater) actualET(petcrop, petsoil float64) AET {
	return AET{Crop: sw.Stresses.Crop * petcrop, Soil: sw.Stresses.Soil * petsoil}
}

// influxFromWaterTable is the water table exchange with the deepest layer
// (m/day), the table assumed to sit just beneath it.
func (sw *SoilWater) influxFromWaterTable() float64 {
	last := sw.Layers[len(sw.Layers)-1]
	k := (last.Ksat - last.K) / (math.Log(last.Ksat) - math.Log(last.K))
	hm := (33 - (33 - last.SWC.AirEntry)) / 10.0 // saturated at the table
	tothead := hm + last.AccThick
	return k * (tothead - last.TotHead()) / (last.Thick * 0.5)
}

// calcWaterFluxes runs one sub-step: per-layer extraction, Darcy influx
// between layers, the bottom boundary, dry and saturation clipping, then
// the water content update and the flux accumulation. firstrun resets the
// cumulative fluxes instead of accumulating.
func (sw *SoilWater) calcWaterFluxes(petcrop, petsoil float64, firstrun bool) {
	sw.updateRootWater()
	sw.Stresses = sw.reduceET()
	sw.ActET = sw.actualET(petcrop, petsoil)

	// influx into every layer
	prvpsi := 0.0
	for idx, cur := range sw.Layers {
		cur.updateHeadsK()

		// evaporation only leaves the top layer; transpiration is
		// root-distribution weighted
		ei := 0.0
		if idx == 0 {
			ei = sw.ActET.Soil / 1000
		}
		cj := math.Min(1.0, cur.AccThick/sw.RootDepth)
		curpsi := 1.8*cj - 0.8*cj*cj
		ti := sw.ActET.Crop * (curpsi - prvpsi) / 1000
		prvpsi = curpsi

		var curinflux float64
		if idx > 0 {
			// Darcy's law with a logarithmic mean conductivity
			prv := sw.Layers[idx-1]
			n := math.Log(cur.K) - math.Log(prv.K)
			k := cur.K
			if n != 0.0 {
				k = (cur.K - prv.K) / n
			}
			curinflux = k*(cur.TotHead()-prv.TotHead())/(cur.Depth-prv.Depth) - ti
		} else {
			// top layer influx is net rainfall less E and T
			netrain := sw.NetRain / 1000
			curinflux = math.Min(netrain, cur.Ksat) - ei - ti
		}

		sw.pf[idx].T = ti
		sw.pf[idx].E = ei
		sw.pf[idx].Influx = curinflux
	}

	// net flux, then water content
	for idx, cur := range sw.Layers {
		wc := cur.Vwc * cur.Thick
		influx := sw.pf[idx].Influx
		var outflux float64
		switch {
		case idx < len(sw.Layers)-1:
			outflux = sw.pf[idx+1].Influx
		case !sw.HasWaterTable:
			outflux = cur.K // gravity drainage only
		default:
			outflux = sw.influxFromWaterTable()
		}

		// a layer can neither dry below 0.005 m3/m3 nor exceed saturation
		nextwc := influx + wc - outflux
		drylmt := cur.Thick * 0.005
		satlmt := cur.Thick * cur.SWC.Sat
		if nextwc < drylmt {
			outflux = influx + wc - drylmt
		} else if nextwc > satlmt {
			outflux = influx + wc - satlmt
		}
		if idx < len(sw.Layers)-1 {
			sw.pf[idx+1].Influx = outflux
		}

		sw.pf[idx].Outflux = outflux
		sw.pf[idx].Netflux = sw.pf[idx].Influx - outflux

		wc += sw.pf[idx].Netflux / float64(sw.NumIntervals)
		cur.Vwc = math.Max(0.005, math.Min(cur.SWC.Sat, wc/cur.Thick))
		cur.Wc = cur.Vwc * cur.Thick * 1000

		frac := 1 / float64(sw.NumIntervals)
		if firstrun {
			sw.cf[idx] = sw.pf[idx].scale(frac)
		} else {
			sw.cf[idx].add(sw.pf[idx], frac)
		}
	}
}

// DailyWaterBalance solves the day's water balance for the whole column,
// given the potential transpiration and evaporation (mm/day).
func (sw *SoilWater) DailyWaterBalance(petcrop, petsoil float64) {
	sw.NetRain = sw.netRainfall()
	sw.RootDepth = sw.rootingDepth()
	for i := 0; i < sw.NumIntervals; i++ {
		sw.calcWaterFluxes(petcrop, petsoil, i == 0)
	}
	for i, sl := range sw.Layers {
		sl.Fluxes = sw.cf[i]
	}
}
