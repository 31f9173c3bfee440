package main

import "flag"

var (
	// configFlag names an optional YAML run configuration.
	configFlag = flag.String("config", "", "YAML run configuration file")

	// worldFlag loads a world file instead of generating one.
	worldFlag = flag.String("world", "", "world file to view (.zst files are decompressed)")
	sizeFlag  = flag.Int("n", 0, "generated world size (0 keeps the configured size)")

	backendFlag  = flag.String("backend", "", "compute backend: host or opencl (empty keeps the configured backend)")
	strategyFlag = flag.String("strategy", "", "buffer strategy: double-buffered or readback")
	schemeFlag   = flag.String("scheme", "", "neighbour descriptor scheme: packed or inspect")

	dtFlag = flag.Float64("dt", 0, "time step (0 keeps the configured step)")

	// debugFlag enables the FPS and simulation overlay.
	debugFlag = flag.Bool("debug", false, "show FPS and simulation speed overlay")

	// snapshotFlag is where the S key saves the current world.
	snapshotFlag = flag.String("snapshot", "heatview.world.zst", "file the S key writes the current world to")
)
