package runlog

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"heatsim/internal/heat"
)

// Summary describes the temperature distribution of a world.
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	// MutableMean averages only cells that are neither fixed nor insulating.
	// It is zero when the world has no such cells.
	MutableMean float64
	Mutable     int
}

// Summarize computes Summary over world.State.
func Summarize(world *heat.World) Summary {
	all := make([]float64, len(world.State))
	mutable := make([]float64, 0, len(world.State))
	for i, v := range world.State {
		all[i] = float64(v)
		if world.Properties[i]&(heat.CellFixed|heat.CellInsulator) == 0 {
			mutable = append(mutable, float64(v))
		}
	}
	if len(all) == 0 {
		return Summary{}
	}
	s := Summary{
		Min:     floats.Min(all),
		Max:     floats.Max(all),
		Mutable: len(mutable),
	}
	s.Mean, s.StdDev = stat.MeanStdDev(all, nil)
	if len(all) == 1 {
		s.StdDev = 0
	}
	if len(mutable) > 0 {
		s.MutableMean = stat.Mean(mutable, nil)
	}
	return s
}
