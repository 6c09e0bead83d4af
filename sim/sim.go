package sim

import (
	"math/rand"
	"time"

	mrg63k3a "github.com/maseology/goRNG/MRG63k3a"
)

// Sim owns the model stages and drives them in their fixed daily order:
// weather, CO2 and tree age roll forward; the energy balance integrates the
// day's fluxes; photosynthesis integrates the day's assimilation; the soil
// water balance consumes the day's latent heat; crop growth consumes the
// day's assimilates and water stress.
type Sim struct {
	Cfg   *Config
	Rng   *rand.Rand
	Met   *Met
	Crop  *Crop
	Soil  *SoilWater
	Photo *Photosyn
	Egy   *EnergyBal

	day  int
	hour int
}

// NewRng builds the deterministic random source used for every stochastic
// decision in a run. A non-positive seed draws one from the clock.
func NewRng(seed int64) *rand.Rand {
	rng := rand.New(mrg63k3a.New())
	if seed <= 0 {
		seed = time.Now().UnixNano()
	}
	rng.Seed(seed)
	return rng
}

// New wires the model stages together. The rng must be the same one handed
// to a generated WeatherSource, so a seed fixes the whole run.
func New(cfg *Config, rng *rand.Rand, src WeatherSource) *Sim {
	met := NewMet(cfg, src)
	crop := NewCrop(cfg, met, rng)
	soil := NewSoilWater(cfg, met, crop)
	ps := NewPhotosyn(cfg, met, crop)
	egy := NewEnergyBal(cfg, met, crop, soil, ps)
	return &Sim{Cfg: cfg, Rng: rng, Met: met, Crop: crop, Soil: soil, Photo: ps, Egy: egy}
}

// Day returns the number of completed daily steps.
func (s *Sim) Day() int { return s.day }

// Hour returns the hour the next hourly step will run at.
func (s *Sim) Hour() int { return s.hour }

// NextDay runs one daily step. The first call solves the model for the
// starting day without advancing it; every later call moves the day of year
// forward first.
func (s *Sim) NextDay() error {
	if s.day > 0 {
		s.Met.SetDay(s.Met.Doy + 1)
		s.Photo.DayChanged()
		s.Crop.DayChanged()
	}
	if err := s.Egy.DailyHeatBalance(); err != nil {
		return err
	}
	if err := s.Photo.DailyCanopyAssim(s.Egy.TempQuery); err != nil {
		return err
	}
	s.Soil.DailyWaterBalance(s.Egy.DayET.Crop, s.Egy.DayET.Soil)
	s.Crop.DailyGrowth(s.Photo.DayAssim, s.Soil.Stresses.Crop)
	s.day++
	return nil
}

// NextHour runs one hourly step within the current day, recomputing the
// instantaneous coupled state at the next whole hour. The hour does not
// advance when the step fails.
func (s *Sim) NextHour() error {
	if s.hour == 0 {
		s.Egy.SetDailyImmutables()
	}
	s.Met.SetHour(float64(s.hour))
	if _, err := s.Egy.HourlyFluxes(); err != nil {
		return err
	}
	s.hour = (s.hour + 1) % 24
	return nil
}
