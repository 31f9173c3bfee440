// Package render turns heat worlds into pixels.
package render

import (
	"image/color"

	"github.com/crazy3lf/colorconv"

	"heatsim/internal/heat"
)

// DefaultPaletteSize is the number of entries in the default ramp.
const DefaultPaletteSize = 256

var (
	// InsulatorColor marks insulating cells.
	InsulatorColor = color.RGBA{30, 40, 80, 255}
	// FixedOutline tints fixed cells so sources stand out from the field.
	FixedOutline = color.RGBA{255, 255, 255, 255}
)

// Palette maps a temperature in [0,1] to a colour on a blue-to-red ramp.
type Palette struct {
	table []color.RGBA
}

// NewPalette precomputes size entries. size below 2 is raised to 2.
func NewPalette(size int) *Palette {
	if size < 2 {
		size = 2
	}
	p := &Palette{table: make([]color.RGBA, size)}
	for i := range p.table {
		v := float64(i) / float64(size-1)
		hue := 240 * (1 - v)
		r, g, b, _ := colorconv.HSVToRGB(hue, 1, 0.35+0.65*v)
		p.table[i] = color.RGBA{r, g, b, 255}
	}
	return p
}

// Color returns the ramp colour for v, clamping out-of-range values.
func (p *Palette) Color(v float32) color.RGBA {
	if !(v > 0) {
		return p.table[0]
	}
	if v >= 1 {
		return p.table[len(p.table)-1]
	}
	return p.table[int(v*float32(len(p.table)-1)+0.5)]
}

// CellColor colours a cell by its flags and state.
func (p *Palette) CellColor(state float32, flags uint32) color.RGBA {
	if flags&heat.CellInsulator != 0 {
		return InsulatorColor
	}
	c := p.Color(state)
	if flags&heat.CellFixed != 0 {
		c.R = uint8((uint16(c.R) + uint16(FixedOutline.R)) / 2)
		c.G = uint8((uint16(c.G) + uint16(FixedOutline.G)) / 2)
		c.B = uint8((uint16(c.B) + uint16(FixedOutline.B)) / 2)
	}
	return c
}

// Fill writes one RGBA quadruple per cell into pixels, which must hold at
// least 4*world.Cells() bytes.
func (p *Palette) Fill(pixels []byte, world *heat.World) {
	for i, v := range world.State {
		c := p.CellColor(v, world.Properties[i])
		base := i * 4
		pixels[base] = c.R
		pixels[base+1] = c.G
		pixels[base+2] = c.B
		pixels[base+3] = c.A
	}
}
