package sim

import (
	"testing"

	"github.com/maseology/objfunc"
)

// constWeather supplies the same daily weather all year round.
type constWeather struct {
	tmin, tmax, wind, rain float64
	updates                int
}

func (w *constWeather) Update()   { w.updates++ }
func (w *constWeather) Days() int { return 365 }
func (w *constWeather) Get(field string, doy int) float64 {
	switch field {
	case "tmin":
		return w.tmin
	case "tmax":
		return w.tmax
	case "wind":
		return w.wind
	case "rain":
		return w.rain
	}
	return 0
}

func tropicalWeather() *constWeather {
	return &constWeather{tmin: 22, tmax: 32, wind: 2, rain: 5}
}

// testConfig describes a 10 year old stand on a flat lowland site.
func testConfig() *Config {
	organ := func(wgt float64) OrganConfig {
		return OrganConfig{
			Weight:   wgt,
			TableN:   map[float64]float64{0: 0.025, 8000: 0.015},
			TableMin: map[float64]float64{0: 0.012, 8000: 0.008},
		}
	}
	return &Config{
		Seed:       12345,
		Latitude:   3.0,
		MetHgt:     2.0,
		RefHgt:     15.0,
		Doy:        1,
		SolarHour:  0,
		DewTemp:    22.0,
		Lag:        2.0,
		CO2Ambient: 400,
		TreeAge:    3650,
		PlantDens:  148,
		FemaleProb: 0.5,
		SLATable:   map[float64]float64{0: 14.0, 3000: 13.0, 8000: 12.0},
		Parts: PartsConfig{
			Pinnae:    organ(20),
			Rachis:    organ(60),
			Trunk:     organ(200),
			Roots:     organ(40),
			MaleFlo:   OrganConfig{Weight: 1},
			FemaleFlo: OrganConfig{Weight: 5},
			Bunches:   OrganConfig{Weight: 15},
		},
		NumIntervals: 10,
		RootDepth:    1.0,
		Layers: []LayerConfig{
			{Thick: 0.2, Vwc: -2, Clay: 30, Sand: 40, OM: 2},
			{Thick: 0.3, Vwc: -2, Clay: 35, Sand: 35, OM: 1},
			{Thick: 0.5, Vwc: -2, Clay: 35, Sand: 35, OM: 1},
			{Thick: 1.0, Vwc: -1.5, Clay: 40, Sand: 30, OM: 0.5},
		},
	}
}

func newTestSim(t *testing.T, seed int64) *Sim {
	t.Helper()
	cfg := testConfig()
	cfg.Seed = seed
	rng := NewRng(cfg.Seed)
	return New(cfg, rng, tropicalWeather())
}

// Equal seeds must reproduce a run bit for bit.
func TestRunDeterminism(t *testing.T) {
	const days = 100
	run := func() (assim, et, yld []float64) {
		s := newTestSim(t, 42)
		for i := 0; i < days; i++ {
			if err := s.NextDay(); err != nil {
				t.Fatalf("day %d: %v", i, err)
			}
			assim = append(assim, s.Photo.DayAssim)
			et = append(et, s.Egy.DayET.Crop)
			yld = append(yld, s.Crop.BunchYield)
		}
		return
	}
	a1, e1, y1 := run()
	a2, e2, y2 := run()
	for i := 0; i < days; i++ {
		if a1[i] != a2[i] || e1[i] != e2[i] || y1[i] != y2[i] {
			t.Fatalf("runs diverge on day %d: assim %v vs %v, et %v vs %v, yield %v vs %v",
				i, a1[i], a2[i], e1[i], e2[i], y1[i], y2[i])
		}
	}
	if r := objfunc.RMSE(a1, a2); r != 0 {
		t.Fatalf("assimilate series RMSE = %v, want 0", r)
	}
	if r := objfunc.RMSE(e1, e2); r != 0 {
		t.Fatalf("transpiration series RMSE = %v, want 0", r)
	}
	if r := objfunc.RMSE(y1, y2); r != 0 {
		t.Fatalf("yield series RMSE = %v, want 0", r)
	}
}

// The first daily step solves the starting day without advancing it.
func TestFirstDayDoesNotAdvance(t *testing.T) {
	s := newTestSim(t, 7)
	doy0 := s.Met.Doy
	age0 := s.Crop.TreeAge
	if err := s.NextDay(); err != nil {
		t.Fatal(err)
	}
	if s.Met.Doy != doy0 || s.Crop.TreeAge != age0 {
		t.Fatalf("first step advanced: doy %d->%d, age %d->%d", doy0, s.Met.Doy, age0, s.Crop.TreeAge)
	}
	if err := s.NextDay(); err != nil {
		t.Fatal(err)
	}
	if s.Met.Doy != doy0+1 || s.Crop.TreeAge != age0+1 {
		t.Fatalf("second step did not advance: doy %d, age %d", s.Met.Doy, s.Crop.TreeAge)
	}
}

func TestDailyOutputsSane(t *testing.T) {
	s := newTestSim(t, 99)
	for i := 0; i < 30; i++ {
		if err := s.NextDay(); err != nil {
			t.Fatalf("day %d: %v", i, err)
		}
		if s.Photo.DayAssim <= 0 {
			t.Fatalf("day %d: non-positive assimilation %v", i, s.Photo.DayAssim)
		}
		if s.Egy.DayET.Total < -0.2 {
			t.Fatalf("day %d: negative evapotranspiration %v", i, s.Egy.DayET.Total)
		}
		if s.Crop.LAI <= 0 || s.Crop.LAI > s.Crop.LaiMax*2 {
			t.Fatalf("day %d: implausible LAI %v (max %v)", i, s.Crop.LAI, s.Crop.LaiMax)
		}
		if s.Crop.BunchYield < 0 {
			t.Fatalf("day %d: negative yield %v", i, s.Crop.BunchYield)
		}
	}
}
