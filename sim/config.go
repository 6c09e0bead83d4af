package sim

import "github.com/maseology/mmaths"

// Config holds the immutable inputs to a model run. Build one by hand or
// decode it from file with the cfg package.
type Config struct {
	Seed      int64   // random seed (<=0 means seed from the clock)
	Latitude  float64 // site latitude (deg.)
	Slope     float64 // terrain slope (radians), 0 for flat sites
	Aspect    float64 // terrain aspect, clockwise from North (radians)
	MetHgt    float64 // weather station height (m)
	RefHgt    float64 // reference height for flux profiles (m)
	Doy       int     // day of year at start of run (1-365)
	SolarHour float64 // local solar hour at start of run
	DewTemp   float64 // dew temperature (deg. C)
	Lag       float64 // hours after sunrise when air temp and wind are minimum

	// Ambient CO2 concentration (umol CO2/mol air) if positive, or the
	// negated calendar year, from which the concentration is estimated.
	CO2Ambient float64
	CO2Change  float64 // annual change in ambient CO2 (umol CO2/mol air/year)

	TreeAge    int     // age of the palms at start (days)
	PlantDens  float64 // planting density (palms/ha)
	TrunkHgt   float64 // trunk height (m); non-positive to estimate from age
	FemaleProb float64 // probability a new flower is female
	Thinning   *Thinning

	SLATable map[float64]float64 // tree age (days) vs specific leaf area (m2/kg)
	Parts    PartsConfig

	NumIntervals  int     // soil water sub-steps per day
	RootDepth     float64 // initial rooting depth (m)
	HasWaterTable bool    // water table just beneath the deepest layer
	Layers        []LayerConfig
}

// Thinning is a one-time drop in planting density.
type Thinning struct {
	Age       int     // tree age (days) on which thinning occurs
	PlantDens float64 // density after thinning (palms/ha)
}

// OrganConfig holds the initial dry weight of one plant part and, for the
// vegetative parts, its tissue composition lookup tables (tree age in days
// vs content as a fraction of dry matter). The tables drive maintenance
// respiration.
type OrganConfig struct {
	Weight   float64             // initial dry weight (kg DM/palm)
	TableN   map[float64]float64 // nitrogen content by tree age
	TableMin map[float64]float64 // mineral (ash) content by tree age
}

// PartsConfig holds the initial state of every plant part.
type PartsConfig struct {
	Pinnae    OrganConfig
	Rachis    OrganConfig
	Trunk     OrganConfig
	Roots     OrganConfig
	MaleFlo   OrganConfig
	FemaleFlo OrganConfig
	Bunches   OrganConfig
}

// LayerConfig describes one soil layer, top down.
type LayerConfig struct {
	Thick float64 // layer thickness (m)
	Vwc   float64 // initial water content (m3/m3), or a negative code (see decodeVWC)
	Clay  float64 // clay content (%)
	Sand  float64 // sand content (%)
	OM    float64 // organic matter content (% weight)
}

// decodeVWC resolves an initial volumetric water content. Non-negative
// values pass through. Negative values are codes on a -1 to -3 scale:
// -1 saturation, -2 field capacity, -3 permanent wilting point, with
// fractional codes interpolating linearly between the two nearest points
// (e.g. -1.5 is halfway between saturation and field capacity). Codes
// outside the scale fall back to field capacity.
func decodeVWC(vwc, sat, fc, pwp float64) float64 {
	if vwc >= 0 {
		return vwc
	}
	c := -vwc
	switch {
	case 1 <= c && c <= 2:
		return mmaths.LinearTransform(sat, fc, c-1)
	case 2 < c && c <= 3:
		return mmaths.LinearTransform(fc, pwp, c-2)
	default:
		return fc
	}
}
