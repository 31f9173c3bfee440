package main

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Draw renders the current temperature field and the optional overlay.
func (g *Game) Draw(screen *ebiten.Image) {
	g.palette.Fill(g.pixels, g.world)
	screen.WritePixels(g.pixels)

	if *debugFlag {
		fps := ebiten.ActualFPS()
		tps := ebiten.ActualTPS()
		if tps < 0 {
			tps = 0
		}
		simMS := g.lastSimDuration.Seconds() * 1000
		state := "running"
		if g.paused {
			state = "paused"
		}
		msg := fmt.Sprintf("FPS: %.1f (%.1f TPS)\nt = %.3f (%s)\nSteps: %d/frame, %.0f/s (+/-)\nSim: %.2f ms on %s\nBrush: %d ([ ])",
			fps, tps, g.world.T, state, g.stepsPerFrame, g.simStepsPerSecond(), simMS, g.device.Name(), g.brushRadius)
		ebitenutil.DebugPrint(screen, msg)
	}
}

// Layout reports the logical screen size used by Ebiten: one pixel per cell.
func (g *Game) Layout(_, _ int) (int, int) { return g.world.Width, g.world.Height }
