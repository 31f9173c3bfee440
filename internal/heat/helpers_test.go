package heat

import (
	"math/rand"
	"testing"
)

// borderedWorld returns a w x h world whose outer ring is fixed at edge and
// whose interior is filled with inner.
func borderedWorld(w, h int, edge, inner float32) *World {
	world := NewWorld(w, h, 1.0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := world.Index(x, y)
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				world.Properties[i] = CellFixed
				world.State[i] = edge
			} else {
				world.State[i] = inner
			}
		}
	}
	return world
}

// randomWorld scatters fixed and insulated cells over a bordered grid.
func randomWorld(seed int64, w, h int) *World {
	rng := rand.New(rand.NewSource(seed))
	world := NewWorld(w, h, 0.8)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := world.Index(x, y)
			world.State[i] = rng.Float32()
			switch {
			case x == 0 || y == 0 || x == w-1 || y == h-1:
				world.Properties[i] = CellInsulator
			case rng.Intn(10) == 0:
				world.Properties[i] = CellInsulator
			case rng.Intn(15) == 0:
				world.Properties[i] = CellFixed
			}
		}
	}
	return world
}

func newTestPipeline(t *testing.T, workers int) *Pipeline {
	t.Helper()
	dev := NewHostDevice(workers, nil)
	t.Cleanup(func() {
		if err := dev.Close(); err != nil {
			t.Errorf("closing device: %v", err)
		}
	})
	return NewPipeline(dev, nil)
}

func maxAbsDiff(a, b []float32) float64 {
	var worst float64
	for i := range a {
		d := float64(a[i] - b[i])
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}
