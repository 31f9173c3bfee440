package main

import "time"

// Defaults for the positional arguments, matching the historical stepping
// program: one step of 0.1, text output.
const (
	defaultDT     = 0.1
	defaultSteps  = 1
	defaultBinary = 0

	ledgerTimeout = 5 * time.Second
	pngMaxScale   = 16
)
