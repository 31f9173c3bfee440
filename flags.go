package main

import "flag"

// Command-line flags. Flags that are set explicitly override the matching
// value from -config; the rest keep the configured value.
var (
	// configFlag names an optional YAML run configuration.
	configFlag = flag.String("config", "", "YAML run configuration file")

	// backendFlag selects the compute device.
	backendFlag  = flag.String("backend", "host", "compute backend: host or opencl")
	platformFlag = flag.Int("platform", 0, "OpenCL platform index")
	deviceFlag   = flag.Int("device", 0, "OpenCL device index on the chosen platform")

	// kernelFlag replaces the built-in OpenCL kernel source.
	kernelFlag  = flag.String("kernel", "", "load kernel source from this file instead of the built-in copy")
	workersFlag = flag.Int("workers", 0, "host backend worker goroutines (0 uses every CPU)")

	strategyFlag = flag.String("strategy", "double-buffered", "buffer strategy: double-buffered or readback")
	schemeFlag   = flag.String("scheme", "packed", "neighbour descriptor scheme: packed or inspect")

	// verifyFlag re-runs every call on the host and fails on any difference.
	verifyFlag = flag.Bool("verify", false, "recompute on the host after stepping and compare results")

	inFlag     = flag.String("in", "", "read the world from this file instead of stdin (.zst files are decompressed)")
	outFlag    = flag.String("out", "", "write the world to this file instead of stdout (.zst files are compressed)")
	formatFlag = flag.String("format", "", "output format: text, binary or half (overrides the binary argument)")

	pngFlag      = flag.String("png", "", "also write the stepped world as a PNG image")
	pngScaleFlag = flag.Int("png-scale", 1, "pixels per cell in the PNG image")

	// runLogFlag appends a summary of the run to a SQLite ledger.
	runLogFlag = flag.String("runlog", "", "record the run in this SQLite ledger")

	cpuProfileFlag = flag.String("cpuprofile", "", "write a CPU profile to this file")
	memProfileFlag = flag.String("memprofile", "", "write a heap profile to this file on exit")
)
