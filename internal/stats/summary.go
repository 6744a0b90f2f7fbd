package stats

import "orasp/internal/orasp"

// Summary describes the difficulty profile of one instance.
type Summary struct {
	TotalTime IntStats
	Setup     IntStats

	CompatDensity  float64
	CapableDensity float64

	// Load is the total operation time over the combined room horizon.
	Load float64
	// WindowShare is the mean surgeon window length over Tmax.
	WindowShare float64

	Repairs int
}

func Summarize(inst *orasp.Instance) Summary {
	offDiag := make([]int, 0, inst.Operations*(inst.Operations-1))
	for o1 := 0; o1 < inst.Operations; o1++ {
		for o2 := 0; o2 < inst.Operations; o2++ {
			if o1 != o2 {
				offDiag = append(offDiag, inst.TD(o1, o2))
			}
		}
	}

	shares := make([]float64, inst.Surgeons)
	for c := range shares {
		shares[c] = float64(inst.End[c]-inst.Start[c]) / float64(inst.Tmax)
	}

	return Summary{
		TotalTime:      CalcIntStats(inst.TT),
		Setup:          CalcIntStats(offDiag),
		CompatDensity:  Density(inst.Compat),
		CapableDensity: Density(inst.Capable),
		Load:           float64(inst.TotalTime()) / float64(inst.Rooms*inst.Tmax),
		WindowShare:    CalcFloatStats(shares).Mean,
		Repairs:        inst.Repairs.Rooms + inst.Repairs.Operations + inst.Repairs.Surgeons,
	}
}
