package heat

import "fmt"

// Cell property flags. A cell with either bit set never changes value.
const (
	CellFixed     uint32 = 0x1
	CellInsulator uint32 = 0x2

	// cellImmutable is the union of flags that make a cell hold its value.
	cellImmutable = CellFixed | CellInsulator
)

// World stores the grid state for a diffusion run. State and Properties are
// laid out row-major with index y*Width+x.
type World struct {
	Width      int
	Height     int
	State      []float32
	Properties []uint32
	Alpha      float32
	T          float32
}

// NewWorld allocates a zeroed world of the given size.
func NewWorld(width, height int, alpha float32) *World {
	return &World{
		Width:      width,
		Height:     height,
		State:      make([]float32, width*height),
		Properties: make([]uint32, width*height),
		Alpha:      alpha,
	}
}

// Index returns the linear index of the cell at (x, y).
func (w *World) Index(x, y int) int {
	return y*w.Width + x
}

// Cells reports the number of cells in the grid.
func (w *World) Cells() int {
	return w.Width * w.Height
}

// Clone returns a deep copy of the world.
func (w *World) Clone() *World {
	c := *w
	c.State = append([]float32(nil), w.State...)
	c.Properties = append([]uint32(nil), w.Properties...)
	return &c
}

// Validate checks the shape invariants and that no property word uses the
// bits reserved for packed neighbour descriptors.
func (w *World) Validate() error {
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("%w: grid size %dx%d must be positive", ErrConfiguration, w.Width, w.Height)
	}
	size := w.Width * w.Height
	if len(w.State) != size {
		return fmt.Errorf("%w: state has %d cells, want %d (w=%d h=%d)", ErrConfiguration, len(w.State), size, w.Width, w.Height)
	}
	if len(w.Properties) != size {
		return fmt.Errorf("%w: properties has %d cells, want %d (w=%d h=%d)", ErrConfiguration, len(w.Properties), size, w.Width, w.Height)
	}
	for i, p := range w.Properties {
		if p&ActiveMask != 0 {
			return fmt.Errorf("%w: cell %d property 0x%x overlaps descriptor bits 0x%x", ErrConfiguration, i, p, ActiveMask)
		}
	}
	return nil
}
