package sim

// Generative phenology. Flower and bunch cohorts ride three fixed-length
// conveyors (one slot per day): male flowers and female flowers each take
// 210 days, mature bunches another 150. A female flower leaving its
// conveyor seeds the bunch conveyor; a bunch leaving its conveyor is the
// day's harvest.

// abortNode is the conveyor slot at which water stress aborts flowers.
const abortNode = 90

// newFlowerSex draws the sex of the newest flower (0 = male/abort,
// 1 = female).
func (c *Crop) newFlowerSex() int {
	if c.rng.Float64() <= c.FemaleProb {
		return 1
	}
	return 0
}

// genGrowthRates splits the generative assimilates between male flowers,
// female flowers and bunches (kg DM/palm/day). The split weighs each
// organ's partitioning fraction by its count of active cohorts.
func (c *Crop) genGrowthRates() (g1, g2, g3 float64) {
	c.NewFlowerSex = c.newFlowerSex()
	countActive := func(boxes []float64) int {
		n := 0
		for _, x := range boxes {
			if x > 0 {
				n++
			}
		}
		return n
	}
	n1 := countActive(c.BoxMaleFlo[1:]) + (1 - c.NewFlowerSex)
	f1 := c.Parts.MaleFlo.Frac * float64(n1) / float64(len(c.BoxMaleFlo))
	n2 := countActive(c.BoxFemaFlo[1:]) + c.NewFlowerSex
	f2 := c.Parts.FemaFlo.Frac * float64(n2) / float64(len(c.BoxFemaFlo))
	n3 := countActive(c.BoxBunches) // can have no bunches at all
	f3 := c.Parts.Bunches.Frac * float64(n3) / float64(len(c.BoxBunches))
	ftotal := f1 + f2 + f3 // nonzero: there is at least one male or female flower
	f1 /= ftotal
	f2 /= ftotal
	f3 /= ftotal
	cvf2 := 0.7*f1 + 0.7*f2 + 0.44*f3
	if n1 > 0 {
		g1 = f1 * cvf2 * c.Assim4Gen / float64(n1)
	}
	if n2 > 0 {
		g2 = f2 * cvf2 * c.Assim4Gen / float64(n2)
	}
	if n3 > 0 {
		g3 = f3 * cvf2 * c.Assim4Gen / float64(n3)
	}
	return
}

// shift moves every cohort one slot toward the tail; the vacated head slot
// holds the old tail value until the caller overwrites it.
func shift(boxes []float64) {
	tail := boxes[len(boxes)-1]
	copy(boxes[1:], boxes[:len(boxes)-1])
	boxes[0] = tail
}

// incrementBoxWgts adds the day's growth to every active cohort.
func incrementBoxWgts(boxes []float64, wgt float64) {
	if wgt <= 0 {
		return
	}
	for i, x := range boxes {
		if x > 0 {
			boxes[i] += wgt
		}
	}
}

// updateGenWeights advances the generative conveyors by one day: stress
// abortion, cohort growth, harvest off the bunch tail, then the shift and
// the new flower at the head.
func (c *Crop) updateGenWeights(cropstress float64) {
	if c.rng.Float64() > cropstress {
		c.BoxMaleFlo[abortNode] = 0.0
		c.BoxFemaFlo[abortNode] = 0.0
	}
	parts := &c.Parts
	parts.MaleFlo.Growth, parts.FemaFlo.Growth, parts.Bunches.Growth = c.genGrowthRates()
	incrementBoxWgts(c.BoxMaleFlo, parts.MaleFlo.Growth)
	incrementBoxWgts(c.BoxFemaFlo, parts.FemaFlo.Growth)
	incrementBoxWgts(c.BoxBunches, parts.Bunches.Growth)
	// yield is the cohort about to leave the bunch conveyor
	c.BunchYield = c.BoxBunches[len(c.BoxBunches)-1]
	shift(c.BoxMaleFlo)
	shift(c.BoxFemaFlo)
	shift(c.BoxBunches)
	// the female flower leaving its conveyor becomes the newest bunch
	c.BoxMaleFlo[0] = parts.MaleFlo.Growth * float64(1-c.NewFlowerSex)
	c.BoxBunches[0] = c.BoxFemaFlo[0]
	c.BoxFemaFlo[0] = parts.FemaFlo.Growth * float64(c.NewFlowerSex)
	c.FlowerSex = 0
	if c.BoxBunches[0] > 0 {
		c.FlowerSex = 1
	}
	sum := func(boxes []float64) (s float64) {
		for _, x := range boxes {
			s += x
		}
		return
	}
	parts.MaleFlo.Weight = sum(c.BoxMaleFlo)
	parts.FemaFlo.Weight = sum(c.BoxFemaFlo)
	parts.Bunches.Weight = sum(c.BoxBunches)
	c.TdmWgt = c.VdmWgt + parts.MaleFlo.Weight + parts.FemaFlo.Weight + parts.Bunches.Weight
}
