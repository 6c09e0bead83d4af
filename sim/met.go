package sim

import (
	"math"

	"github.com/maseology/goHydro/pet"
	"github.com/maseology/goHydro/solirrad"
)

// WeatherSource supplies one year of daily weather at a time.
type WeatherSource interface {
	Update()                            // regenerate or advance to a new annual series
	Get(field string, doy int) float64  // "tmin", "tmax", "wind" or "rain"; doy in [1,365]
	Days() int                          // length of the annual series
}

// SolarRad holds total solar irradiance and its components. Daily values are
// in MJ/m2/day, instantaneous values in W/m2.
type SolarRad struct {
	Total   float64
	Direct  float64
	Diffuse float64
}

// SolarPos is the position of the sun: inclination (from vertical), height
// (from horizontal) and azimuth (clockwise from North), all in radians.
type SolarPos struct {
	Inc float64
	Hgt float64
	Azi float64
}

// Met tracks daily and instantaneous (hourly) meteorological state. Time is
// local solar hour. The day of year only moves forward, via SetDay; SetHour
// recomputes every instantaneous property for the new hour.
type Met struct {
	src     WeatherSource
	Lat     float64 // site latitude (radians)
	MetHgt  float64 // weather station height (m)
	DewTemp float64 // dew temperature (deg. C)
	Lag     float64 // hours after sunrise when air temp and wind are minimum
	sif     [366]float64

	a, b float64

	// daily
	Nyears     int
	Doy        int
	Decl       float64 // solar declination (radians)
	SunRise    float64
	SunSet     float64
	DayLen     float64
	SolarConst float64  // eccentricity-corrected solar constant (W/m2)
	DayETRad   float64  // daily extra-terrestrial irradiance (MJ/m2)
	DayRad     SolarRad // daily solar radiation (MJ/m2)
	DayTmin    float64
	DayTmax    float64
	DayTmean   float64
	DayWind    float64 // daily mean wind speed (m/s)
	DayRain    float64 // rainfall (mm/day)
	RefET      float64 // Makkink reference evapotranspiration (mm/day)

	// instantaneous
	SolarHour float64
	SolarPos  SolarPos
	ETRad     float64  // extra-terrestrial irradiance (W/m2)
	Rad       SolarRad // solar radiation (W/m2)
	AirTemp   float64  // air temperature (deg. C)
	SlopeSVP  float64  // slope of the SVP curve (mbar/K)
	SVP       float64  // saturated vapor pressure (mbar)
	VP        float64  // vapor pressure (mbar)
	VPD       float64  // vapor pressure deficit (mbar)
	RH        float64  // relative humidity (%)
	NetRad    float64  // net radiation (W/m2)
	WindSpd   float64  // wind speed (m/s)
}

// Doy365 keeps a day of year within [1,365].
func Doy365(doy int) int {
	return ((doy-1)%365+365)%365 + 1
}

// SVPAt returns the saturated vapor pressure (mbar) at an air temperature
// (deg. C).
func SVPAt(temp float64) float64 {
	return 6.1078 * math.Exp(17.269*temp/(temp+237.3))
}

// NewMet builds the weather state for the site described by cfg, pulls the
// first annual series from src, and resolves the daily and instantaneous
// state for the starting day and hour.
func NewMet(cfg *Config, src WeatherSource) *Met {
	si := solirrad.New(cfg.Latitude, math.Tan(cfg.Slope), math.Pi/2.-cfg.Aspect)
	m := &Met{
		src:     src,
		Lat:     cfg.Latitude * math.Pi / 180,
		MetHgt:  cfg.MetHgt,
		DewTemp: cfg.DewTemp,
		Lag:     cfg.Lag,
		sif:     si.PSIfactor,
	}
	m.Doy = Doy365(cfg.Doy) + 1 // force the annual series to load on the first SetDay
	m.SetDay(cfg.Doy)
	m.SetHour(cfg.SolarHour)
	return m
}

// SetDay moves the model to a given day of year and recomputes all daily
// properties. Passing a day earlier than the current one means a new year
// has begun: the annual weather series is refreshed and the year count
// incremented. Instantaneous state is stale until the next SetHour.
func (m *Met) SetDay(doy int) {
	doy = Doy365(doy)
	if doy < m.Doy {
		m.src.Update()
		m.Nyears++
	}
	m.Doy = doy
	m.Decl = -0.4093 * math.Cos(0.0172*float64(m.Doy+10))
	m.a = math.Sin(m.Lat) * math.Sin(m.Decl)
	m.b = math.Cos(m.Lat) * math.Cos(m.Decl)
	m.SunSet = 12 + (12/math.Pi)*math.Acos(-m.a/m.b)
	m.SunRise = 24 - m.SunSet
	m.DayLen = m.SunSet - m.SunRise
	m.SolarConst = 1370 * (1 + 0.033*math.Cos(0.0172*float64(m.Doy-10)))
	aob := m.a / m.b
	m.DayETRad = 0.027501974 * m.SolarConst * (m.a*math.Acos(-aob) + m.b*math.Sqrt(1-aob*aob))
	m.DayTmin = m.src.Get("tmin", m.Doy)
	m.DayTmax = m.src.Get("tmax", m.Doy)
	m.DayWind = m.src.Get("wind", m.Doy)
	m.DayRain = m.src.Get("rain", m.Doy)
	m.DayTmean = (m.DayTmin + m.DayTmax) / 2
	m.DayRad = m.dayRadiation()
	m.RefET = pet.Makkink(m.DayRad.Total, m.DayTmean, 101300., 0.61, -1.2e-4)
}

// SetHour moves the clock to a local solar hour (wrapped to [0,24)) and
// recomputes every instantaneous property.
func (m *Met) SetHour(hour float64) {
	m.SolarHour = math.Mod(math.Mod(hour, 24)+24, 24)
	m.SolarPos = m.solarPosition()
	m.AirTemp = m.airTemperature()
	m.SlopeSVP = m.slopeSVP()
	m.SVP = SVPAt(m.AirTemp)
	m.VP = SVPAt(math.Min(m.AirTemp, m.DewTemp))
	m.VPD = m.SVP - m.VP
	m.RH = 100 * m.VP / m.SVP
	m.ETRad = math.Max(0, m.SolarConst*math.Cos(m.SolarPos.Inc))
	m.Rad = m.radiation()
	m.NetRad = m.netRadiation()
	m.WindSpd = m.windSpeed()
}

// dayRadiation integrates the instantaneous irradiance from sunrise to
// sunset, then restores the clock, returning daily totals in MJ/m2/day.
func (m *Met) dayRadiation() SolarRad {
	hour := m.SolarHour
	ret, _ := m.Integrate(5, m.SunRise, m.SunSet, func() ([]float64, error) {
		r := m.radiation()
		return []float64{r.Total, r.Direct, r.Diffuse}, nil
	})
	m.SetHour(hour)
	const toMJ = 3600. / 1e6
	return SolarRad{ret[0] * toMJ, ret[1] * toMJ, ret[2] * toMJ}
}

func (m *Met) solarPosition() SolarPos {
	ha := (math.Pi / 12) * (m.SolarHour - 12) // hour angle
	inc := math.Min(math.Pi*0.5, math.Acos(m.a+m.b*math.Cos(ha)))
	hgt := math.Pi/2 - inc
	a := (math.Sin(m.Lat)*math.Sin(hgt) - math.Sin(m.Decl)) / (math.Cos(m.Lat) * math.Cos(hgt))
	acosa := math.Acos(math.Max(-1, math.Min(1, a)))
	azi := math.Pi + acosa
	if m.SolarHour <= 12 {
		azi = math.Pi - acosa
	}
	return SolarPos{inc, hgt, azi}
}

// radiation splits the instantaneous extra-terrestrial irradiance into
// direct and diffuse components (W/m2) via atmospheric transmittance, then
// corrects for terrain slope and aspect.
func (m *Met) radiation() SolarRad {
	tau := -0.0112*m.RH + 1.1857 // atmospheric transmittance
	am := 101 / (101.3 * math.Cos(m.SolarPos.Inc))
	kt := math.Pow(tau, am)
	f := m.sif[m.Doy-1]
	idr := m.ETRad * kt * f
	idf := 0.3 * (1 - kt) * m.ETRad * f
	return SolarRad{idr + idf, idr, idf}
}

// airTemperature follows a sine curve between sunrise+lag and sunset, and
// linear decay toward the minimum outside it.
func (m *Met) airTemperature() float64 {
	tmin, tmax := m.DayTmin, m.DayTmax
	tsr, tss := m.SunRise, m.SunSet
	tset := tmin + (tmax-tmin)*math.Sin(math.Pi*(tss-tsr-m.Lag)/m.DayLen)
	switch {
	case m.SolarHour < tsr+m.Lag:
		return tset + (tmin-tset)*(m.SolarHour+tsr)/((tsr+m.Lag)+tsr)
	case m.SolarHour <= tss:
		return tmin + (tmax-tmin)*math.Sin(math.Pi*(m.SolarHour-tsr-m.Lag)/m.DayLen)
	default:
		return tset + (tmin-tset)*(m.SolarHour-tss)/((tsr+m.Lag)+tsr)
	}
}

func (m *Met) slopeSVP() float64 {
	n1 := math.Exp(17.269 * m.AirTemp / (m.AirTemp + 237.3))
	n2 := (m.AirTemp + 237.3) * (m.AirTemp + 237.3)
	return 25029.4 * n1 / n2
}

// netRadiation is shortwave balance (15% reflection) plus net longwave from
// the Brunt-type emissivity of a humid sky.
func (m *Met) netRadiation() float64 {
	const p = 0.15
	const stefanBoltzmann = 5.67e-8
	tak := m.AirTemp + 273.15
	rnl := 0.98 * stefanBoltzmann * math.Pow(tak, 4) * (1.31*math.Pow(m.VP/tak, 1./7.)-1)
	return (1-p)*m.Rad.Total + rnl
}

// windSpeed follows a sine curve between sunrise+lag and sunset+lag, and
// holds the daily minimum outside it.
func (m *Met) windSpeed() float64 {
	uday := m.DayWind
	umin := 0.559134814 * math.Pow(uday, 1.25)
	umax := 1.797613613 * math.Pow(uday, 0.75)
	if m.SolarHour < m.SunRise+m.Lag || m.SolarHour > m.SunSet+m.Lag {
		return umin
	}
	return umin + (umax-umin)*math.Sin(math.Pi*(m.SolarHour-m.SunRise-m.Lag)/m.DayLen)
}
