package main

import (
	"log"
	"time"

	"heatsim/internal/heat"
	"heatsim/internal/render"
)

// Game owns the world being viewed and the pipeline that steps it.
type Game struct {
	world    *heat.World
	pipeline *heat.Pipeline
	device   heat.Device
	palette  *render.Palette
	pixels   []byte

	dt            float32
	stepsPerFrame int
	paused        bool
	brushRadius   int

	lastSimDuration time.Duration
	lastErr         error
}

func newGame(world *heat.World, p *heat.Pipeline, dev heat.Device, dt float32) *Game {
	return &Game{
		world:         world,
		pipeline:      p,
		device:        dev,
		palette:       render.NewPalette(render.DefaultPaletteSize),
		pixels:        make([]byte, world.Cells()*4),
		dt:            dt,
		stepsPerFrame: defaultStepsPerFrame,
		brushRadius:   defaultBrushRadius,
	}
}

// Update applies input, then advances the world by one batch of steps.
func (g *Game) Update() error {
	g.handleControls()
	if g.paused {
		return nil
	}
	simStart := time.Now()
	if err := g.pipeline.Step(g.world, g.dt, uint(g.stepsPerFrame)); err != nil {
		return err
	}
	g.lastSimDuration = time.Since(simStart)
	return nil
}

func (g *Game) close() {
	g.pipeline.Release()
	if err := g.device.Close(); err != nil {
		log.Printf("closing %s: %v", g.device.Name(), err)
	}
}
