package sim

import (
	"errors"
	"math"
	"testing"
)

// Trees taller than the reference height invalidate the flux profiles; the
// step must fail without advancing the clock.
func TestRefHeightExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.RefHgt = 5.0 // well below a 10 year old stand
	s := New(cfg, NewRng(1), tropicalWeather())
	if s.Crop.TreeHgt <= cfg.RefHgt {
		t.Fatalf("stand height %v not above the reference height %v", s.Crop.TreeHgt, cfg.RefHgt)
	}
	err := s.NextHour()
	if !errors.Is(err, ErrRefHeight) {
		t.Fatalf("got %v, want ErrRefHeight", err)
	}
	if s.Hour() != 0 {
		t.Errorf("hour advanced to %d on a failed step", s.Hour())
	}
	if err := s.NextDay(); !errors.Is(err, ErrRefHeight) {
		t.Errorf("daily step got %v, want ErrRefHeight", err)
	}
	if s.Day() != 0 {
		t.Errorf("day advanced to %d on a failed step", s.Day())
	}
}

// The energy balance resolves the canopy temperature in a single pass: for
// fixed weather a second pass lands on the same temperature.
func TestCanopyTemperatureFixedPoint(t *testing.T) {
	s := newTestSim(t, 21)
	s.Egy.SetDailyImmutables()
	s.Met.SetHour(12)
	t1, err := s.Egy.TempQuery()
	if err != nil {
		t.Fatal(err)
	}
	t2, err := s.Egy.TempQuery()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(t1-t2) > 1e-9 {
		t.Errorf("canopy temperature drifted between passes: %v then %v", t1, t2)
	}
	if math.Abs(t1-s.Met.AirTemp) > 15 {
		t.Errorf("canopy temperature %v too far from air temperature %v", t1, s.Met.AirTemp)
	}
}

// The flux components must add up to their totals, and the canopy
// temperature follow from the sensible heat and resistances.
func TestHeatFluxConsistency(t *testing.T) {
	s := newTestSim(t, 21)
	s.Egy.SetDailyImmutables()
	for _, hour := range []float64{3, 9, 12, 15, 21} {
		s.Met.SetHour(hour)
		if err := s.Egy.SetHeatFluxes(); err != nil {
			t.Fatalf("hour %v: %v", hour, err)
		}
		e := s.Egy
		if math.Abs(e.ET.Crop+e.ET.Soil-e.ET.Total) > 1e-6 {
			t.Errorf("hour %v: latent components %v + %v != total %v",
				hour, e.ET.Crop, e.ET.Soil, e.ET.Total)
		}
		if math.Abs(e.H.Crop+e.H.Soil-e.H.Total) > 1e-6 {
			t.Errorf("hour %v: sensible components %v + %v != total %v",
				hour, e.H.Crop, e.H.Soil, e.H.Total)
		}
		want := (e.H.Crop*e.Res.Rca+e.H.Total*e.Res.Raa)/pcp + s.Met.AirTemp
		if math.Abs(e.CanopyTemp-want) > 1e-9 {
			t.Errorf("hour %v: canopy temperature %v, want %v", hour, e.CanopyTemp, want)
		}
		for _, r := range []float64{e.Res.Rsa, e.Res.Raa, e.Res.Rca, e.Res.Rst, e.Res.Rcs, e.Res.Rss} {
			if r <= 0 {
				t.Fatalf("hour %v: non-positive resistance in %+v", hour, e.Res)
			}
		}
	}
}

func TestStomatalStressesWithinBounds(t *testing.T) {
	s := newTestSim(t, 21)
	s.Egy.SetDailyImmutables()
	for _, hour := range []float64{0, 6, 12, 18} {
		s.Met.SetHour(hour)
		if err := s.Egy.SetHeatFluxes(); err != nil {
			t.Fatal(err)
		}
		f := s.Egy.StressFn
		for _, v := range []float64{f.Water, f.VPD, f.PAR} {
			if v <= 0 || v > 1+1e-9 {
				t.Errorf("hour %v: stress %+v outside (0,1]", hour, f)
			}
		}
	}
	// midday light opens the stomata wider than midnight
	s.Met.SetHour(0)
	_ = s.Egy.SetHeatFluxes()
	night := s.Egy.StressFn.PAR
	s.Met.SetHour(12)
	_ = s.Egy.SetHeatFluxes()
	if day := s.Egy.StressFn.PAR; day <= night {
		t.Errorf("PAR stress %v at noon not above %v at midnight", day, night)
	}
}

// A full day of hourly steps wraps the clock back to midnight.
func TestHourlySteps(t *testing.T) {
	s := newTestSim(t, 33)
	for i := 0; i < 24; i++ {
		if s.Hour() != i {
			t.Fatalf("step %d starts at hour %d", i, s.Hour())
		}
		if err := s.NextHour(); err != nil {
			t.Fatalf("hour %d: %v", i, err)
		}
		if s.Photo.CanopyAssim < 0 {
			t.Errorf("hour %d: negative assimilation %v", i, s.Photo.CanopyAssim)
		}
	}
	if s.Hour() != 0 {
		t.Errorf("clock at %d after a full day, want 0", s.Hour())
	}
}
