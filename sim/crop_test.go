package sim

import (
	"math"
	"testing"
)

func newTestCrop(t *testing.T, seed int64) *Crop {
	t.Helper()
	cfg := testConfig()
	met := NewMet(cfg, tropicalWeather())
	return NewCrop(cfg, met, NewRng(seed))
}

func sumBox(boxes []float64) (s float64) {
	for _, x := range boxes {
		s += x
	}
	return
}

// With no generative assimilates the conveyors only shift: the bunch tail
// leaves as yield, the female tail seeds a new bunch, and no mass appears
// from nowhere.
func TestConveyorMassContinuity(t *testing.T) {
	c := newTestCrop(t, 3)
	for i := range c.BoxMaleFlo {
		c.BoxMaleFlo[i] = 0.01 * float64(i%7)
		c.BoxFemaFlo[i] = 0.02 * float64(i%5)
	}
	for i := range c.BoxBunches {
		c.BoxBunches[i] = 0.05 * float64(i%3)
	}
	maleSum := sumBox(c.BoxMaleFlo)
	femaSum := sumBox(c.BoxFemaFlo)
	bunchSum := sumBox(c.BoxBunches)
	maleTail := c.BoxMaleFlo[len(c.BoxMaleFlo)-1]
	femaTail := c.BoxFemaFlo[len(c.BoxFemaFlo)-1]
	bunchTail := c.BoxBunches[len(c.BoxBunches)-1]

	c.Assim4Gen = 0.0
	c.updateGenWeights(1.0) // no water stress, so no abortion either

	if c.BunchYield != bunchTail {
		t.Errorf("yield %v, want the old bunch tail %v", c.BunchYield, bunchTail)
	}
	if c.BoxBunches[0] != femaTail {
		t.Errorf("new bunch %v, want the old female tail %v", c.BoxBunches[0], femaTail)
	}
	if c.BoxMaleFlo[0] != 0 || c.BoxFemaFlo[0] != 0 {
		t.Errorf("new flowers grew without assimilates: male %v, female %v",
			c.BoxMaleFlo[0], c.BoxFemaFlo[0])
	}
	const tol = 1e-12
	if got, want := sumBox(c.BoxMaleFlo), maleSum-maleTail; math.Abs(got-want) > tol {
		t.Errorf("male flower mass %v, want %v", got, want)
	}
	if got, want := sumBox(c.BoxFemaFlo), femaSum-femaTail; math.Abs(got-want) > tol {
		t.Errorf("female flower mass %v, want %v", got, want)
	}
	if got, want := sumBox(c.BoxBunches), bunchSum-bunchTail+femaTail; math.Abs(got-want) > tol {
		t.Errorf("bunch mass %v, want %v", got, want)
	}
	if got := c.Parts.Bunches.Weight; got != sumBox(c.BoxBunches) {
		t.Errorf("bunch weight %v out of step with its conveyor sum", got)
	}
}

// Full water stress aborts the flowers sitting at the abortion slot.
func TestStressAbortsFlowers(t *testing.T) {
	c := newTestCrop(t, 3)
	c.BoxMaleFlo[abortNode] = 0.5
	c.BoxFemaFlo[abortNode] = 0.7
	c.Assim4Gen = 0.0
	c.updateGenWeights(0.0)
	// after the shift the aborted cohorts sit one slot later
	if c.BoxMaleFlo[abortNode+1] != 0 || c.BoxFemaFlo[abortNode+1] != 0 {
		t.Errorf("aborted cohorts kept weight: male %v, female %v",
			c.BoxMaleFlo[abortNode+1], c.BoxFemaFlo[abortNode+1])
	}
}

// Generative assimilates must be conserved across the three organ growth
// rates: total growth equals the converted assimilate supply.
func TestGenGrowthConservesAssimilates(t *testing.T) {
	c := newTestCrop(t, 5)
	c.BoxMaleFlo[20] = 0.1
	c.BoxFemaFlo[30] = 0.2
	c.BoxBunches[40] = 0.3
	c.Assim4Gen = 1.5
	g1, g2, g3 := c.genGrowthRates()
	if g1 < 0 || g2 < 0 || g3 < 0 {
		t.Fatalf("negative growth rates: %v %v %v", g1, g2, g3)
	}
	countActive := func(boxes []float64, fromSecond bool) float64 {
		n := 0.0
		start := 0
		if fromSecond {
			start = 1
		}
		for _, x := range boxes[start:] {
			if x > 0 {
				n++
			}
		}
		return n
	}
	n1 := countActive(c.BoxMaleFlo, true) + float64(1-c.NewFlowerSex)
	n2 := countActive(c.BoxFemaFlo, true) + float64(c.NewFlowerSex)
	n3 := countActive(c.BoxBunches, false)
	total := g1*n1 + g2*n2 + g3*n3
	// the conversion factor is a blend of the organ factors, so the DM total
	// sits between the extremes
	if total < 0.44*c.Assim4Gen-1e-9 || total > 0.7*c.Assim4Gen+1e-9 {
		t.Errorf("total generative growth %v outside [%v,%v]",
			total, 0.44*c.Assim4Gen, 0.7*c.Assim4Gen)
	}
}

// Outside the 15-45 deg. C band every assimilate goes to maintenance.
func TestMaintenanceDivertsAllWhenTooHot(t *testing.T) {
	c := newTestCrop(t, 3)
	c.met.DayTmean = 48.0
	const assimilates = 2.5
	_, total := c.maintenanceRespiration(assimilates)
	if total != assimilates {
		t.Errorf("maintenance %v, want every assimilate (%v)", total, assimilates)
	}
	c.met.DayTmean = 27.0
	_, total = c.maintenanceRespiration(assimilates)
	if total <= 0 || total >= assimilates {
		t.Errorf("maintenance %v outside (0,%v) at 27 deg. C", total, assimilates)
	}
}

// A day's growth splits the assimilates exactly between maintenance,
// vegetative and generative growth.
func TestDailyGrowthPartitioning(t *testing.T) {
	c := newTestCrop(t, 11)
	const assimilates = 3.0
	c.DailyGrowth(assimilates, 1.0)
	got := c.Assim4Maint + c.Assim4Growth + c.Assim4Gen
	if math.Abs(got-assimilates) > 1e-12 {
		t.Errorf("partitioned %v, want %v", got, assimilates)
	}
	if c.Assim4Maint < 0 || c.Assim4Growth < 0 || c.Assim4Gen < 0 {
		t.Errorf("negative partition: maint %v, growth %v, gen %v",
			c.Assim4Maint, c.Assim4Growth, c.Assim4Gen)
	}
	if c.VdmWgt <= 0 || c.TdmWgt < c.VdmWgt {
		t.Errorf("dry weights vdm %v, tdm %v inconsistent", c.VdmWgt, c.TdmWgt)
	}
	if c.LAI <= 0 {
		t.Errorf("LAI %v after growth", c.LAI)
	}
}

func TestTreeHeightGrowsWithAge(t *testing.T) {
	c := newTestCrop(t, 3)
	trunk0, tree0 := c.TrunkHgt, c.TreeHgt
	if trunk0 <= 0 || tree0 <= trunk0 {
		t.Fatalf("initial heights trunk %v, tree %v", trunk0, tree0)
	}
	trunk, tree := c.treeHeight(1.0)
	if trunk <= trunk0 || tree <= trunk {
		t.Errorf("heights did not grow: trunk %v -> %v, tree %v", trunk0, trunk, tree)
	}
	// stress slows trunk growth
	stressed, _ := c.treeHeight(0.0)
	if stressed >= trunk {
		t.Errorf("stressed trunk %v not below unstressed %v", stressed, trunk)
	}
}

// Thinning fires once at the thinning age and rescales the density-derived
// ceilings.
func TestThinning(t *testing.T) {
	cfg := testConfig()
	cfg.Thinning = &Thinning{Age: cfg.TreeAge + 2, PlantDens: 120}
	met := NewMet(cfg, tropicalWeather())
	c := NewCrop(cfg, met, NewRng(3))
	vdmmax0, laimax0 := c.VdmMax, c.LaiMax

	c.DayChanged()
	if c.PlantDens != 148 {
		t.Fatalf("thinned a day early")
	}
	c.DayChanged()
	if c.PlantDens != 120 {
		t.Fatalf("density %v after thinning age, want 120", c.PlantDens)
	}
	if c.VdmMax <= vdmmax0 {
		t.Errorf("vegetative ceiling %v did not rise from %v at the lower density",
			c.VdmMax, vdmmax0)
	}
	if c.LaiMax >= laimax0 {
		t.Errorf("LAI ceiling %v did not fall from %v at the lower density",
			c.LaiMax, laimax0)
	}
	vdmmax1, laimax1 := c.VdmMax, c.LaiMax
	c.DayChanged()
	if c.VdmMax != vdmmax1 || c.LaiMax != laimax1 {
		t.Errorf("thinning applied twice")
	}
}

func TestFlowerSexFollowsProbability(t *testing.T) {
	c := newTestCrop(t, 17)
	c.FemaleProb = 1.0
	for i := 0; i < 20; i++ {
		if c.newFlowerSex() != 1 {
			t.Fatal("male flower at female probability 1")
		}
	}
	c.FemaleProb = 0.0
	females := 0
	for i := 0; i < 1000; i++ {
		females += c.newFlowerSex()
	}
	// rng.Float64() <= 0 almost never happens
	if females > 1 {
		t.Fatalf("%d female flowers at female probability 0", females)
	}
}
