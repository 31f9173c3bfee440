package main

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"heatsim/internal/gridio"
	"heatsim/internal/heat"
)

// handleControls processes mouse painting and hotkeys.
//
//	left mouse    hot fixed source
//	right mouse   cold fixed source
//	shift+left    insulating wall
//	shift+right   erase back to a mutable cell
//	space         pause
//	+/-           steps per frame
//	[ ]           brush radius
//	S             save a snapshot
func (g *Game) handleControls() {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		g.adjustStepsPerFrame(-stepsPerFrameStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		g.adjustStepsPerFrame(stepsPerFrameStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyLeftBracket) && g.brushRadius > 0 {
		g.brushRadius--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRightBracket) && g.brushRadius < maxBrushRadius {
		g.brushRadius++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		if err := gridio.SaveFile(*snapshotFlag, g.world, gridio.Binary); err != nil {
			log.Printf("snapshot: %v", err)
		} else {
			log.Printf("Saved snapshot to %s (t=%g)", *snapshotFlag, g.world.T)
		}
	}

	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if !left && !right {
		return
	}
	x, y := ebiten.CursorPosition()
	if x < 0 || y < 0 || x >= g.world.Width || y >= g.world.Height {
		return
	}
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	switch {
	case left && shift:
		gridio.Stamp(g.world, x, y, g.brushRadius, heat.CellInsulator, 0)
	case right && shift:
		gridio.Stamp(g.world, x, y, g.brushRadius, 0, g.world.State[g.world.Index(x, y)])
	case left:
		gridio.Stamp(g.world, x, y, g.brushRadius, heat.CellFixed, 1)
	case right:
		gridio.Stamp(g.world, x, y, g.brushRadius, heat.CellFixed, 0)
	}
}

// adjustStepsPerFrame clamps the batch size delta within bounds.
func (g *Game) adjustStepsPerFrame(delta int) {
	g.stepsPerFrame = min(max(g.stepsPerFrame+delta, minStepsPerFrame), maxStepsPerFrame)
}

// simStepsPerSecond returns the nominal simulation steps executed each second.
func (g *Game) simStepsPerSecond() float64 {
	if g.paused {
		return 0
	}
	return defaultTPS * float64(g.stepsPerFrame)
}
