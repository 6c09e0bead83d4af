package sim

import (
	"math"
	"math/rand"
)

// vdmExp shapes the maximum vegetative demand and LAI for a given planting
// density.
const vdmExp = 0.935

// Contents are the nutrient lookup tables of a plant part (tree age in days
// vs content as a fraction of dry matter).
type Contents struct {
	N   *AFGen // nitrogen
	Min *AFGen // minerals (ash)
}

// Part is one plant organ. Weights and rates are per palm.
type Part struct {
	Content Contents
	Maint   float64 // assimilates used for maintenance (kg DM/palm/day)
	Frac    float64 // dry matter partitioning (fraction)
	Growth  float64 // growth rate (kg DM/palm/day)
	Death   float64 // death rate (kg DM/palm/day)
	Weight  float64 // dry weight (kg DM/palm)
}

// Parts are the organs of the palm. The first four are vegetative; the
// flowers and bunches grow through the phenology conveyors.
type Parts struct {
	Pinnae  Part
	Rachis  Part
	Trunk   Part
	Roots   Part
	MaleFlo Part
	FemaFlo Part
	Bunches Part
}

// all returns the organs in canonical order.
func (p *Parts) all() []*Part {
	return []*Part{&p.Pinnae, &p.Rachis, &p.Trunk, &p.Roots, &p.MaleFlo, &p.FemaFlo, &p.Bunches}
}

// veg returns the vegetative organs in partitioning order.
func (p *Parts) veg() []*Part {
	return []*Part{&p.Pinnae, &p.Rachis, &p.Trunk, &p.Roots}
}

// Crop models oil palm growth and yield. Assimilates are partitioned to
// maintenance first, then vegetative growth up to a density-limited demand,
// and the remainder to the generative organs.
type Crop struct {
	met *Met
	rng *rand.Rand

	TreeAge    int     // tree age (days)
	PlantDens  float64 // planting density (palms/ha)
	FemaleProb float64 // probability a new flower is female
	thinning   *Thinning

	slaTable *AFGen
	Parts    Parts

	TrunkHgt float64 // trunk height (m)
	TreeHgt  float64 // trunk + canopy height (m)
	VdmWgt   float64 // vegetative dry weight (kg DM/palm)
	TdmWgt   float64 // total dry weight (kg DM/palm)
	VdmMax   float64 // max vegetative demand for the planting density (kg DM/palm/year)
	LaiMax   float64 // max LAI for the planting density (m2 leaf/m2 ground)
	SLA      float64 // specific leaf area (m2 leaf/kg leaf)
	LAI      float64 // leaf area index (m2 leaf/m2 ground)
	VdmReq   float64 // vegetative demand for growth (kg DM/palm/day)

	Assim4Maint  float64 // assimilates used for maintenance (kg CH2O/palm/day)
	Assim4Growth float64 // assimilates for vegetative growth (kg CH2O/palm/day)
	Assim4Gen    float64 // assimilates for generative growth (kg CH2O/palm/day)

	// conveyors for the generative organ weights (kg DM/palm)
	BoxMaleFlo []float64
	BoxFemaFlo []float64
	BoxBunches []float64

	BunchYield   float64 // yield (kg DM/palm/day)
	FlowerSex    int     // sex at the start of the bunch phase (0 = male/abort, 1 = female)
	NewFlowerSex int     // sex of the newest flower
}

// NewCrop builds the crop state from the run configuration.
func NewCrop(cfg *Config, met *Met, rng *rand.Rand) *Crop {
	c := &Crop{
		met:        met,
		rng:        rng,
		TreeAge:    cfg.TreeAge,
		PlantDens:  cfg.PlantDens,
		FemaleProb: cfg.FemaleProb,
		thinning:   cfg.Thinning,
		slaTable:   NewAFGen(cfg.SLATable),
		BoxMaleFlo: make([]float64, 210),
		BoxFemaFlo: make([]float64, 210),
		BoxBunches: make([]float64, 150),
	}
	for i, oc := range []OrganConfig{
		cfg.Parts.Pinnae, cfg.Parts.Rachis, cfg.Parts.Trunk, cfg.Parts.Roots,
		cfg.Parts.MaleFlo, cfg.Parts.FemaleFlo, cfg.Parts.Bunches,
	} {
		p := c.Parts.all()[i]
		p.Weight = oc.Weight
		if i < 4 {
			p.Content = Contents{NewAFGen(oc.TableN), NewAFGen(oc.TableMin)}
		}
	}
	c.TrunkHgt = cfg.TrunkHgt
	if c.TrunkHgt <= 0 {
		c.TrunkHgt = -1 // estimate the initial trunk height from tree age
	}
	c.TrunkHgt, c.TreeHgt = c.treeHeight(1.0) // no stress assumed initially
	c.VdmWgt, c.TdmWgt = c.dmWgts()
	c.Parts.MaleFlo.Frac, c.Parts.FemaFlo.Frac, c.Parts.Bunches.Frac = 0.159, 0.159, 0.682
	c.VdmMax = c.vdmMaximum()
	c.LaiMax = c.laiMaximum()
	c.SLA, c.LAI = c.lookupSlaLai()
	return c
}

// treeHeight returns the trunk and total tree height (m). Trunk growth is
// slowed by water stress (0 = max stress, 1 = none).
func (c *Crop) treeHeight(cropstress float64) (trunk, tree float64) {
	const a, b, d = 2.845586, -1980.88805, -5166.36569
	age := float64(c.TreeAge)
	hgt0 := math.Exp(a + b/(c.PlantDens*c.PlantDens) + d/age)
	if c.TrunkHgt > 0 {
		rate := -d / (0.7 * age * age) * hgt0 * (0.21*cropstress + 0.553)
		trunk = c.TrunkHgt + rate
	} else {
		trunk = hgt0
	}
	canopyhgt := (0.1382*age + 150.91) / 100
	return trunk, trunk + canopyhgt
}

// dmWgts sums the vegetative and total dry weights (kg DM/palm).
func (c *Crop) dmWgts() (vdm, tdm float64) {
	for i, p := range c.Parts.all() {
		tdm += p.Weight
		if i < 4 {
			vdm += p.Weight
		}
	}
	return
}

func (c *Crop) vdmMaximum() float64 {
	return 231 * math.Pow(c.PlantDens, vdmExp-1/vdmExp)
}

func (c *Crop) laiMaximum() float64 {
	return 0.0274 * math.Pow(c.PlantDens, 1/vdmExp)
}

// lookupSlaLai reads the current specific leaf area off the age table and
// derives the leaf area index from the pinnae weight.
func (c *Crop) lookupSlaLai() (sla, lai float64) {
	sla = c.slaTable.Val(float64(c.TreeAge))
	lai = c.Parts.Pinnae.Weight * sla * c.PlantDens / 10000
	return
}

// maintenanceRespiration returns each organ's maintenance demand and the
// total (kg CH2O/palm/day). Outside the 15-45 deg. C band all assimilates
// are diverted to maintenance.
func (c *Crop) maintenanceRespiration(assimilates float64) (m [7]float64, total float64) {
	tmean := c.met.DayTmean
	const q10 = 2.0
	tempCorr := func(val25 float64) float64 {
		return val25 * math.Pow(q10, (tmean-25)/25)
	}
	age := float64(c.TreeAge)
	maintCoef := func(cnt Contents) float64 {
		return tempCorr(cnt.N.Val(age)*0.036*6.25 + cnt.Min.Val(age)*0.072*2)
	}

	parts := &c.Parts
	mcRachis := maintCoef(parts.Rachis.Content)
	m[0] = parts.Pinnae.Weight * maintCoef(parts.Pinnae.Content) * (24 - c.met.DayLen) / 24
	m[1] = parts.Rachis.Weight * mcRachis
	topTrunk := math.Min(45, parts.Trunk.Weight)
	mcTrunk := maintCoef(parts.Trunk.Content)
	m[2] = topTrunk*mcTrunk + (parts.Trunk.Weight-topTrunk)*mcTrunk*0.06
	m[3] = parts.Roots.Weight * maintCoef(parts.Roots.Content)
	m[4] = parts.MaleFlo.Weight * mcRachis
	m[5] = parts.FemaFlo.Weight * mcRachis
	m[6] = parts.Bunches.Weight * tempCorr(0.0027)

	if 15 < tmean && tmean < 45 {
		total = tempCorr(0.16 * assimilates / c.TdmWgt) // metabolic
		for _, v := range m {
			total += v
		}
	} else {
		total = assimilates
	}
	return
}

// vdmRequirement is the vegetative demand for growth (kg DM/palm/day),
// derived from the annual demand for the current density and LAI.
func (c *Crop) vdmRequirement() float64 {
	idelta := 1 / vdmExp
	a := vdmExp / c.VdmMax
	b := 0.1 * (idelta - 1) * math.Pow(c.PlantDens/100, idelta)
	vdm := math.Max(20.0, 1/(a+b/math.Pow(c.LAI, 1.5)))
	return vdm / 365
}

// vegPartitioning is the fixed dry matter split between the vegetative
// organs.
func (c *Crop) vegPartitioning() [4]float64 {
	return [4]float64{0.24, 0.46, 0.14, 1 - 0.24 - 0.46 - 0.14}
}

// cvf converts glucose weight to dry matter weight (kg DM/kg CH2O).
func (c *Crop) cvf() float64 {
	p := &c.Parts
	leaves := p.Pinnae.Frac + p.Rachis.Frac
	return 0.7*leaves + 0.66*p.Trunk.Frac + 0.65*p.Roots.Frac
}

// vegGrowthRates splits the vegetative assimilates between the organs
// (kg DM/palm/day).
func (c *Crop) vegGrowthRates() [4]float64 {
	availvdm := c.Assim4Growth * c.cvf()
	var g [4]float64
	for i, p := range c.Parts.veg() {
		g[i] = p.Frac * availvdm
	}
	return g
}

// vegDeathRates returns the age-ramped death rates (kg DM/palm/day). The
// trunk does not die back.
func (c *Crop) vegDeathRates() [4]float64 {
	age := c.TreeAge
	var dleaves float64
	switch {
	case age <= 600:
		dleaves = 0.0
	case age <= 2500:
		dleaves = 0.0016 * float64(age-600) / (2500 - 600)
	default:
		dleaves = 0.0016
	}
	var droots float64
	switch {
	case age <= 1200:
		droots = 0.0
	case age <= 3285:
		droots = (9.592e-5*float64(age) - 0.11510791) / 365
	default:
		droots = 0.2 / 365
	}
	return [4]float64{
		dleaves * c.Parts.Pinnae.Weight,
		dleaves * c.Parts.Rachis.Weight,
		0.0,
		droots * c.Parts.Roots.Weight,
	}
}

// updateVegWeights partitions the day's assimilates between maintenance,
// vegetative and generative growth, then increments the vegetative organs.
func (c *Crop) updateVegWeights(assimilates float64) {
	veg := c.Parts.veg()
	for i, f := range c.vegPartitioning() {
		veg[i].Frac = f
	}
	cvf := c.cvf()
	m, mtotal := c.maintenanceRespiration(assimilates)
	for i, p := range c.Parts.all() {
		p.Maint = m[i] * cvf
	}
	c.Assim4Maint = math.Min(assimilates, mtotal)
	maxassim := assimilates - c.Assim4Maint
	c.VdmReq = c.vdmRequirement()
	c.Assim4Growth = math.Min(c.VdmReq/cvf, maxassim)
	for i, g := range c.vegGrowthRates() {
		veg[i].Growth = g
	}
	for i, d := range c.vegDeathRates() {
		veg[i].Death = d
	}
	c.Assim4Gen = maxassim - c.Assim4Growth
	c.VdmWgt = 0.0
	for _, p := range veg {
		p.Weight += p.Growth - p.Death
		c.VdmWgt += p.Weight
	}
	c.SLA, c.LAI = c.lookupSlaLai() // pinnae weight changed
}

// DailyGrowth advances the crop by one day, given the day's assimilates
// (kg CH2O/palm/day) and the water stress level (0 = max stress, 1 = none).
func (c *Crop) DailyGrowth(assimilates, cropstress float64) {
	c.TrunkHgt, c.TreeHgt = c.treeHeight(cropstress)
	c.updateVegWeights(assimilates)
	c.updateGenWeights(cropstress)
}

// DayChanged ages the palms by one day and applies the one-time thinning
// once the thinning age is reached.
func (c *Crop) DayChanged() {
	c.TreeAge++
	if t := c.thinning; t != nil && t.PlantDens > 0 &&
		t.PlantDens != c.PlantDens && c.TreeAge >= t.Age {
		c.PlantDens = t.PlantDens
		c.VdmMax = c.vdmMaximum()
		c.LaiMax = c.laiMaximum()
	}
}
