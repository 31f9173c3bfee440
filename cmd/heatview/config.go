package main

// Viewer tuning.
const (
	windowScale          = 3
	defaultTPS           = 60.0
	defaultStepsPerFrame = 20
	stepsPerFrameStep    = 5
	minStepsPerFrame     = 1
	maxStepsPerFrame     = 2000
	defaultBrushRadius   = 2
	maxBrushRadius       = 12
)
