package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"heatsim/internal/gridio"
	"heatsim/internal/heat"
)

type countingPublisher struct {
	frames []float32
	limit  int
	cancel context.CancelFunc
	err    error
}

func (c *countingPublisher) Publish(w *heat.World) error {
	c.frames = append(c.frames, w.T)
	if len(c.frames) >= c.limit {
		c.cancel()
	}
	return c.err
}

func TestStepLoopPublishesEachFrame(t *testing.T) {
	dev := heat.NewHostDevice(2, nil)
	defer dev.Close()
	p := heat.NewPipeline(dev, nil)
	defer p.Release()

	world := gridio.MakeWorld(16, 0.1, gridio.DefaultWorldOptions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := &countingPublisher{limit: 4, cancel: cancel}

	if err := stepLoop(ctx, p, world, pub, 0.5, 2, time.Millisecond); err != nil {
		t.Fatalf("stepLoop: %v", err)
	}
	if len(pub.frames) < 4 {
		t.Fatalf("published %d frames, want at least 4", len(pub.frames))
	}
	// Frame 0 is the initial world; each later frame is two steps further on.
	for i := 1; i < 4; i++ {
		want := float32(i) * 1.0
		if d := pub.frames[i] - want; d > 1e-5 || d < -1e-5 {
			t.Errorf("frame %d t = %v, want %v", i, pub.frames[i], want)
		}
	}
}

func TestStepLoopStopsOnPublishError(t *testing.T) {
	dev := heat.NewHostDevice(1, nil)
	defer dev.Close()
	p := heat.NewPipeline(dev, nil)
	defer p.Release()

	boom := errors.New("boom")
	pub := &countingPublisher{limit: 100, cancel: func() {}, err: boom}
	err := stepLoop(context.Background(), p, gridio.MakeWorld(8, 0.1, gridio.DefaultWorldOptions()), pub, 0.1, 1, time.Millisecond)
	if !errors.Is(err, boom) {
		t.Fatalf("stepLoop = %v, want boom", err)
	}
}
