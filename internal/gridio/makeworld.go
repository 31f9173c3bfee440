package gridio

import (
	"math/rand"

	"heatsim/internal/heat"
)

// WorldOptions shapes the layout MakeWorld produces.
type WorldOptions struct {
	// Seed drives the random wall segments. Equal seeds give equal worlds.
	Seed int64
	// Slalom adds evenly spaced insulating walls with alternating gaps.
	Slalom bool

	WallSegments          int
	WallMinLen            int
	WallMaxLen            int
	WallThicknessVariance int

	// SourceRadius is the radius of the fixed hot and cold discs.
	SourceRadius int
	// SourceClearance keeps walls at least this far from either disc.
	SourceClearance int
}

// DefaultWorldOptions returns a slalom track with no random walls.
func DefaultWorldOptions() WorldOptions {
	return WorldOptions{
		Slalom:                true,
		WallMinLen:            4,
		WallMaxLen:            24,
		WallThicknessVariance: 1,
		SourceRadius:          2,
		SourceClearance:       2,
	}
}

type gridOffset struct {
	dx, dy int
}

// discFootprint lists the offsets inside a circle of the given radius.
func discFootprint(radius int) []gridOffset {
	if radius < 0 {
		radius = 0
	}
	out := make([]gridOffset, 0, (2*radius+1)*(2*radius+1))
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				out = append(out, gridOffset{dx: x, dy: y})
			}
		}
	}
	return out
}

type builder struct {
	world   *heat.World
	n       int
	sources [][2]int
	clear   int
}

// MakeWorld builds an n by n world: an insulating border, a fixed hot disc on
// the left, a fixed cold disc on the right, and walls between them. Mutable
// cells start at 0.5. n below 8 yields just the border and the discs.
func MakeWorld(n int, alpha float32, opts WorldOptions) *heat.World {
	b := &builder{
		world: heat.NewWorld(n, n, alpha),
		n:     n,
		clear: opts.SourceRadius + opts.SourceClearance,
	}
	for i := range b.world.State {
		b.world.State[i] = 0.5
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if x == 0 || y == 0 || x == n-1 || y == n-1 {
				b.set(x, y, heat.CellInsulator, 0)
			}
		}
	}
	if n < 3 {
		return b.world
	}

	hot := [2]int{max(1, n/8), n / 2}
	cold := [2]int{min(n-2, n-1-n/8), n / 2}
	b.sources = [][2]int{hot, cold}

	if opts.Slalom && n >= 8 {
		b.slalom()
	}
	if opts.WallSegments > 0 && n >= 8 {
		b.randomWalls(opts)
	}

	// Sources last so no wall can cover them.
	Stamp(b.world, hot[0], hot[1], opts.SourceRadius, heat.CellFixed, 1)
	Stamp(b.world, cold[0], cold[1], opts.SourceRadius, heat.CellFixed, 0)
	return b.world
}

// Stamp sets every interior cell within radius of (x, y) to flags and v.
// Cells on the outer ring of the grid are left alone so the border stays
// intact. It reports how many cells changed.
func Stamp(world *heat.World, x, y, radius int, flags uint32, v float32) int {
	changed := 0
	for _, off := range discFootprint(radius) {
		cx, cy := x+off.dx, y+off.dy
		if cx <= 0 || cy <= 0 || cx >= world.Width-1 || cy >= world.Height-1 {
			continue
		}
		i := world.Index(cx, cy)
		if world.Properties[i] == flags && world.State[i] == v {
			continue
		}
		world.Properties[i] = flags
		world.State[i] = v
		changed++
	}
	return changed
}

func (b *builder) set(x, y int, flags uint32, v float32) {
	i := b.world.Index(x, y)
	b.world.Properties[i] = flags
	b.world.State[i] = v
}

// trySetWall places an insulator unless it lands on the border or too close
// to a source.
func (b *builder) trySetWall(x, y int) {
	if x <= 0 || y <= 0 || x >= b.n-1 || y >= b.n-1 {
		return
	}
	for _, s := range b.sources {
		dx, dy := x-s[0], y-s[1]
		if dx*dx+dy*dy <= b.clear*b.clear {
			return
		}
	}
	b.set(x, y, heat.CellInsulator, 0)
}

// slalom drops vertical walls at every quarter of the width, leaving a gap
// at the bottom of odd walls and at the top of even ones.
func (b *builder) slalom() {
	gap := max(2, b.n/8)
	for k := 1; k <= 3; k++ {
		x := k * b.n / 4
		for y := 1; y < b.n-1; y++ {
			if k%2 == 1 && y >= b.n-1-gap {
				continue
			}
			if k%2 == 0 && y <= gap {
				continue
			}
			b.trySetWall(x, y)
		}
	}
}

func (b *builder) randomWalls(opts WorldOptions) {
	rng := rand.New(rand.NewSource(opts.Seed))
	for s := 0; s < opts.WallSegments; s++ {
		lengthRange := opts.WallMaxLen - opts.WallMinLen + 1
		if lengthRange <= 0 {
			lengthRange = 1
		}
		length := opts.WallMinLen + rng.Intn(lengthRange)
		thickness := 0
		if opts.WallThicknessVariance > 0 {
			thickness = rng.Intn(opts.WallThicknessVariance + 1)
		}
		horizontal := rng.Intn(2) == 0
		x := rng.Intn(b.n-4) + 2
		y := rng.Intn(b.n-4) + 2
		dx, dy := 0, 1
		if horizontal {
			dx, dy = 1, 0
		}
		perpX, perpY := dy, dx
		for l := 0; l < length; l++ {
			if x <= 0 || x >= b.n-1 || y <= 0 || y >= b.n-1 {
				break
			}
			for t := -thickness; t <= thickness; t++ {
				b.trySetWall(x+perpX*t, y+perpY*t)
			}
			x += dx
			y += dy
		}
	}
}
