// Package cfg loads a model run configuration from a JSON file, keeping
// file decoding out of the simulation core.
package cfg

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/im7mortal/UTM"

	"github.com/cbsteh/PySawit/sim"
	"github.com/cbsteh/PySawit/wgen"
)

// ageTable is a lookup table keyed by tree age in days. JSON object keys
// are strings, so ages arrive as strings and are parsed on load.
type ageTable map[string]float64

func (t ageTable) toMap() (map[float64]float64, error) {
	m := make(map[float64]float64, len(t))
	for k, v := range t {
		age, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return nil, fmt.Errorf("bad age key %q: %w", k, err)
		}
		m[age] = v
	}
	return m, nil
}

type organ struct {
	Wgt float64  `json:"wgt"`
	N   ageTable `json:"n,omitempty"`
	M   ageTable `json:"m,omitempty"`
}

type layer struct {
	Thick float64 `json:"thick"`
	Vwc   float64 `json:"vwc"`
	Clay  float64 `json:"clay"`
	Sand  float64 `json:"sand"`
	OM    float64 `json:"om"`
}

type rainParams struct {
	PWW   []float64 `json:"pww"`
	PWD   []float64 `json:"pwd"`
	Shape []float64 `json:"shape"`
	Scale []float64 `json:"scale"`
}

type tempParams struct {
	Mean    float64 `json:"mean"`
	Amp     float64 `json:"amp"`
	CV      float64 `json:"cv"`
	AmpCV   float64 `json:"ampcv"`
	MeanWet float64 `json:"meanwet"`
}

type windParams struct {
	Shape []float64 `json:"shape"`
	Scale []float64 `json:"scale"`
}

// file mirrors the JSON run configuration.
type file struct {
	Seed int64 `json:"seed"`

	// site location: latitude directly, or UTM coordinates to convert
	Lat      float64 `json:"lat"`
	Easting  float64 `json:"easting"`
	Northing float64 `json:"northing"`
	UTMZone  int     `json:"utmzone"`
	Slope    float64 `json:"slope"`
	Aspect   float64 `json:"aspect"`

	MetHgt    float64 `json:"methgt"`
	RefHgt    float64 `json:"refhgt"`
	Doy       int     `json:"doy"`
	SolarHour float64 `json:"solarhour"`
	DewTemp   float64 `json:"dewtemp"`
	Lag       float64 `json:"lag"`

	CO2Ambient float64 `json:"co2ambient"`
	CO2Change  float64 `json:"co2change"`

	TreeAge       int     `json:"treeage"`
	PlantDens     float64 `json:"plantdens"`
	ThinPlantDens float64 `json:"thinplantdens"`
	ThinAge       int     `json:"thinage"`
	TrunkHgt      float64 `json:"trunkhgt"`
	FemaleProb    float64 `json:"femaleprob"`

	SLA ageTable `json:"sla"`

	Pinnae    organ `json:"pinnae"`
	Rachis    organ `json:"rachis"`
	Trunk     organ `json:"trunk"`
	Roots     organ `json:"roots"`
	MaleFlo   organ `json:"maleflo"`
	FemaleFlo organ `json:"femaflo"`
	Bunches   organ `json:"bunches"`

	NumIntervals  int     `json:"numintervals"`
	RootDepth     float64 `json:"rootdepth"`
	HasWaterTable bool    `json:"has_watertable"`
	Layers        []layer `json:"layers"`

	Rain rainParams `json:"rain"`
	Tmin tempParams `json:"tmin"`
	Tmax tempParams `json:"tmax"`
	Wind windParams `json:"wind"`
}

// Load reads a JSON run configuration and returns the simulation
// configuration plus the weather generation parameters.
func Load(fp string) (*sim.Config, wgen.Params, error) {
	var wp wgen.Params
	b, err := os.ReadFile(fp)
	if err != nil {
		return nil, wp, fmt.Errorf("cfg.Load: %w", err)
	}
	var f file
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, wp, fmt.Errorf("cfg.Load %s: %w", fp, err)
	}

	lat := f.Lat
	if lat == 0 && f.UTMZone > 0 {
		lat, _, err = UTM.ToLatLon(f.Easting, f.Northing, f.UTMZone, "", true)
		if err != nil {
			return nil, wp, fmt.Errorf("cfg.Load %s: utm conversion: %w", fp, err)
		}
	}

	c := &sim.Config{
		Seed:          f.Seed,
		Latitude:      lat,
		Slope:         f.Slope,
		Aspect:        f.Aspect,
		MetHgt:        f.MetHgt,
		RefHgt:        f.RefHgt,
		Doy:           f.Doy,
		SolarHour:     f.SolarHour,
		DewTemp:       f.DewTemp,
		Lag:           f.Lag,
		CO2Ambient:    f.CO2Ambient,
		CO2Change:     f.CO2Change,
		TreeAge:       f.TreeAge,
		PlantDens:     f.PlantDens,
		TrunkHgt:      f.TrunkHgt,
		FemaleProb:    f.FemaleProb,
		NumIntervals:  f.NumIntervals,
		RootDepth:     f.RootDepth,
		HasWaterTable: f.HasWaterTable,
	}
	if f.ThinPlantDens > 0 && f.ThinAge > 0 {
		c.Thinning = &sim.Thinning{Age: f.ThinAge, PlantDens: f.ThinPlantDens}
	}
	if c.SLATable, err = f.SLA.toMap(); err != nil {
		return nil, wp, fmt.Errorf("cfg.Load %s: sla: %w", fp, err)
	}

	type dst struct {
		oc  *sim.OrganConfig
		src organ
		veg bool
	}
	for _, d := range []dst{
		{&c.Parts.Pinnae, f.Pinnae, true},
		{&c.Parts.Rachis, f.Rachis, true},
		{&c.Parts.Trunk, f.Trunk, true},
		{&c.Parts.Roots, f.Roots, true},
		{&c.Parts.MaleFlo, f.MaleFlo, false},
		{&c.Parts.FemaleFlo, f.FemaleFlo, false},
		{&c.Parts.Bunches, f.Bunches, false},
	} {
		d.oc.Weight = d.src.Wgt
		if !d.veg {
			continue
		}
		if d.oc.TableN, err = d.src.N.toMap(); err != nil {
			return nil, wp, fmt.Errorf("cfg.Load %s: organ n table: %w", fp, err)
		}
		if d.oc.TableMin, err = d.src.M.toMap(); err != nil {
			return nil, wp, fmt.Errorf("cfg.Load %s: organ m table: %w", fp, err)
		}
	}

	c.Layers = make([]sim.LayerConfig, len(f.Layers))
	for i, l := range f.Layers {
		c.Layers[i] = sim.LayerConfig{Thick: l.Thick, Vwc: l.Vwc, Clay: l.Clay, Sand: l.Sand, OM: l.OM}
	}

	wp = wgen.Params{
		Rain: wgen.RainParams{PWW: f.Rain.PWW, PWD: f.Rain.PWD, Shape: f.Rain.Shape, Scale: f.Rain.Scale},
		Tmin: wgen.TempParams(f.Tmin),
		Tmax: wgen.TempParams(f.Tmax),
		Wind: wgen.WindParams{Shape: f.Wind.Shape, Scale: f.Wind.Scale},
	}
	return c, wp, nil
}
