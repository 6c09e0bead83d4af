package sim

import (
	"math"
	"testing"

	"github.com/maseology/montecarlo/smpln"
)

func newTestSoil(t *testing.T) (*SoilWater, *constWeather, *Met) {
	t.Helper()
	cfg := testConfig()
	w := tropicalWeather()
	met := NewMet(cfg, w)
	crop := NewCrop(cfg, met, NewRng(1))
	return NewSoilWater(cfg, met, crop), w, met
}

func TestLayerInitialization(t *testing.T) {
	sw, _, _ := newTestSoil(t)
	accthick, depth := 0.0, 0.0
	for i, sl := range sw.Layers {
		if !(sl.SWC.Sat > sl.SWC.FC && sl.SWC.FC > sl.SWC.PWP && sl.SWC.PWP > 0) {
			t.Errorf("layer %d: sat %v > fc %v > pwp %v > 0 violated",
				i, sl.SWC.Sat, sl.SWC.FC, sl.SWC.PWP)
		}
		if sl.Ksat <= 0 || sl.K <= 0 || sl.K > sl.Ksat+1e-12 {
			t.Errorf("layer %d: k %v outside (0, ksat=%v]", i, sl.K, sl.Ksat)
		}
		if sl.AccThick <= accthick || sl.Depth <= depth {
			t.Errorf("layer %d: accthick %v and depth %v must increase down the column",
				i, sl.AccThick, sl.Depth)
		}
		accthick, depth = sl.AccThick, sl.Depth
		if sl.Vwc < 0.005 || sl.Vwc > sl.SWC.Sat {
			t.Errorf("layer %d: initial vwc %v outside [0.005, %v]", i, sl.Vwc, sl.SWC.Sat)
		}
		if math.Abs(sl.Wc-sl.Vwc*sl.Thick*1000) > 1e-9 {
			t.Errorf("layer %d: wc %v mm inconsistent with vwc %v", i, sl.Wc, sl.Vwc)
		}
	}
	// coded initial contents resolve against the layer's own characteristics
	sat, fc, pwp := 0.4, 0.3, 0.15
	cases := []struct{ code, want float64 }{
		{-1, sat},
		{-2, fc},
		{-3, pwp},
		{-1.5, (sat + fc) / 2},
		{-2.5, (fc + pwp) / 2},
		{-9, fc}, // out of scale falls back to field capacity
		{0.25, 0.25},
	}
	for _, c := range cases {
		if got := decodeVWC(c.code, sat, fc, pwp); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("decodeVWC(%v) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestStressesWithinBounds(t *testing.T) {
	sw, _, _ := newTestSoil(t)
	if sw.Stresses.Crop < 0.01 || sw.Stresses.Crop > 1 {
		t.Errorf("transpiration stress %v outside [0.01,1]", sw.Stresses.Crop)
	}
	if sw.Stresses.Soil <= 0 || sw.Stresses.Soil > 1 {
		t.Errorf("evaporation stress %v outside (0,1]", sw.Stresses.Soil)
	}
	if rz := sw.RootZone; !(rz.PWP < rz.Critical && rz.Critical < rz.Sat) {
		t.Errorf("root zone pwp %v < critical %v < sat %v violated",
			rz.PWP, rz.Critical, rz.Sat)
	}
}

// Water contents must hold between the dry limit and saturation through an
// extended run of randomized rainfall, from drought to downpour.
func TestWaterBalanceBounds(t *testing.T) {
	sw, w, met := newTestSoil(t)
	const ndays = 200
	rng := NewRng(13)
	sp := smpln.NewLHC(rng, ndays, 1, false)
	for k := 0; k < ndays; k++ {
		w.rain = 150 * sp.U[0][k]
		met.SetDay(met.Doy + 1)
		sw.DailyWaterBalance(4.5, 2.0)
		for i, sl := range sw.Layers {
			if sl.Vwc < 0.005-1e-12 || sl.Vwc > sl.SWC.Sat+1e-12 {
				t.Fatalf("day %d layer %d: vwc %v outside [0.005, %v] (rain %v mm)",
					k, i, sl.Vwc, sl.SWC.Sat, w.rain)
			}
			if math.Abs(sl.Wc-sl.Vwc*sl.Thick*1000) > 1e-9 {
				t.Fatalf("day %d layer %d: wc %v mm inconsistent with vwc %v",
					k, i, sl.Wc, sl.Vwc)
			}
		}
		if sw.NetRain < 0 || sw.NetRain > w.rain {
			t.Fatalf("day %d: net rain %v outside [0, %v]", k, sw.NetRain, w.rain)
		}
		if sw.ActET.Crop < 0 || sw.ActET.Crop > 4.5 || sw.ActET.Soil < 0 || sw.ActET.Soil > 2.0 {
			t.Fatalf("day %d: actual ET %+v exceeds potential", k, sw.ActET)
		}
	}
}

// Roots grow a little every day, never past the bottom of the column.
func TestRootingDepthGrowth(t *testing.T) {
	sw, _, met := newTestSoil(t)
	column := sw.Layers[len(sw.Layers)-1].AccThick
	prev := sw.RootDepth
	for k := 0; k < 50; k++ {
		met.SetDay(met.Doy + 1)
		sw.DailyWaterBalance(4.5, 2.0)
		if sw.RootDepth < prev || sw.RootDepth > column {
			t.Fatalf("day %d: rooting depth %v left [%v, %v]", k, sw.RootDepth, prev, column)
		}
		prev = sw.RootDepth
	}
}
