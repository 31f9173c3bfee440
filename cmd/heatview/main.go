// Command heatview steps a heat world on screen. Sources and walls can be
// painted with the mouse while the simulation runs.
package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"heatsim/internal/config"
	"heatsim/internal/gridio"
	"heatsim/internal/heat"
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			log.Fatalf("heatview: %v", err)
		}
	}
	if *backendFlag != "" {
		cfg.Device.Backend = *backendFlag
	}
	if *strategyFlag != "" {
		cfg.Pipeline.Strategy = *strategyFlag
	}
	if *schemeFlag != "" {
		cfg.Pipeline.Scheme = *schemeFlag
	}
	if *dtFlag > 0 {
		cfg.Run.DT = float32(*dtFlag)
	}
	if *sizeFlag > 0 {
		cfg.World.Size = *sizeFlag
	}

	var world *heat.World
	if *worldFlag != "" {
		var err error
		if world, err = gridio.LoadFile(*worldFlag); err != nil {
			log.Fatalf("heatview: %v", err)
		}
	} else {
		world = gridio.MakeWorld(cfg.World.Size, cfg.World.Alpha, cfg.WorldOptions())
	}

	p, dev, err := cfg.NewPipeline(nil)
	if err != nil {
		log.Fatalf("heatview: %v", err)
	}
	log.Printf("Viewing %dx%d world on %s (%s, %s)", world.Width, world.Height, dev.Name(), p.Strategy.Name(), p.Scheme.Name())

	g := newGame(world, p, dev, cfg.Run.DT)
	defer g.close()

	ebiten.SetWindowSize(world.Width*windowScale, world.Height*windowScale)
	ebiten.SetWindowTitle("heatview")
	ebiten.SetTPS(int(defaultTPS))
	if err := ebiten.RunGame(g); err != nil {
		log.Printf("heatview: %v", err)
	}
}
