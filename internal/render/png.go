package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"heatsim/internal/heat"
)

// Image renders world at scale pixels per cell.
func Image(world *heat.World, p *Palette, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, world.Width*scale, world.Height*scale))
	if scale == 1 {
		p.Fill(img.Pix, world)
		return img
	}
	for y := 0; y < world.Height; y++ {
		for x := 0; x < world.Width; x++ {
			i := world.Index(x, y)
			c := p.CellColor(world.State[i], world.Properties[i])
			for sy := 0; sy < scale; sy++ {
				for sx := 0; sx < scale; sx++ {
					img.SetRGBA(x*scale+sx, y*scale+sy, c)
				}
			}
		}
	}
	return img
}

// WritePNG encodes world as a PNG.
func WritePNG(w io.Writer, world *heat.World, scale int) error {
	return png.Encode(w, Image(world, NewPalette(DefaultPaletteSize), scale))
}

// SavePNG writes world to a PNG file at path.
func SavePNG(path string, world *heat.World, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePNG(f, world, scale); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
