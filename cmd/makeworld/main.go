// Command makeworld writes a generated heat world: a square grid with an
// insulating border, a hot and a cold source and a slalom of walls between
// them.
package main

import (
	"flag"
	"log"
	"os"

	"heatsim/internal/config"
	"heatsim/internal/gridio"
)

var (
	configFlag = flag.String("config", "", "YAML run configuration; its world section sets the defaults")
	sizeFlag   = flag.Int("n", 0, "grid width and height (0 keeps the configured size)")
	alphaFlag  = flag.Float64("alpha", 0, "diffusion constant (0 keeps the configured value)")
	seedFlag   = flag.Int64("seed", 0, "random wall seed")
	wallsFlag  = flag.Int("walls", -1, "number of random wall segments (-1 keeps the configured count)")
	noSlalom   = flag.Bool("no-slalom", false, "omit the slalom walls")
	formatFlag = flag.String("format", "text", "output format: text, binary or half")
	outFlag    = flag.String("out", "", "write to this file instead of stdout (.zst files are compressed)")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			log.Fatalf("makeworld: %v", err)
		}
	}
	if *sizeFlag > 0 {
		cfg.World.Size = *sizeFlag
	}
	if *alphaFlag > 0 {
		cfg.World.Alpha = float32(*alphaFlag)
	}
	if *seedFlag != 0 {
		cfg.World.Seed = *seedFlag
	}
	if *wallsFlag >= 0 {
		cfg.World.WallSegments = *wallsFlag
	}
	if *noSlalom {
		cfg.World.Slalom = false
	}
	format, err := gridio.ParseFormat(*formatFlag)
	if err != nil {
		log.Fatalf("makeworld: %v", err)
	}

	world := gridio.MakeWorld(cfg.World.Size, cfg.World.Alpha, cfg.WorldOptions())
	if *outFlag != "" {
		err = gridio.SaveFile(*outFlag, world, format)
	} else {
		err = gridio.Save(os.Stdout, world, format)
	}
	if err != nil {
		log.Fatalf("makeworld: %v", err)
	}
	log.Printf("Wrote %dx%d world (alpha=%g, %d wall segments)", world.Width, world.Height, world.Alpha, cfg.World.WallSegments)
}
