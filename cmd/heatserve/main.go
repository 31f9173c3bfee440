// Command heatserve steps a heat world continuously and streams frames to
// WebSocket observers at /ws. /info returns the latest frame header.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heatsim/internal/config"
	"heatsim/internal/gridio"
	"heatsim/internal/heat"
	"heatsim/internal/observer"
)

var (
	configFlag = flag.String("config", "", "YAML run configuration file")
	worldFlag  = flag.String("world", "", "world file to step (.zst files are decompressed); generated when empty")
	addrFlag   = flag.String("addr", "", "listen address (empty keeps the configured address)")
)

func main() {
	flag.Parse()
	logger := log.New(os.Stderr, "heatserve: ", log.LstdFlags)

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			logger.Fatalf("%v", err)
		}
	}
	if *addrFlag != "" {
		cfg.Observer.Addr = *addrFlag
	}

	var world *heat.World
	if *worldFlag != "" {
		var err error
		if world, err = gridio.LoadFile(*worldFlag); err != nil {
			logger.Fatalf("%v", err)
		}
	} else {
		world = gridio.MakeWorld(cfg.World.Size, cfg.World.Alpha, cfg.WorldOptions())
	}

	p, dev, err := cfg.NewPipeline(logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer dev.Close()
	defer p.Release()
	// One line per frame is too noisy for a long-running server.
	p.Logger = nil

	srv := observer.NewServer(logger)
	httpSrv := &http.Server{
		Addr:              cfg.Observer.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("listening on %s (%dx%d world on %s)", cfg.Observer.Addr, world.Width, world.Height, dev.Name())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("http: %v", err)
			stop()
		}
	}()

	if err := stepLoop(ctx, p, world, srv, cfg.Run.DT, cfg.Observer.StepsPerFrame, cfg.FrameInterval()); err != nil {
		logger.Printf("%v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

type publisher interface {
	Publish(*heat.World) error
}

// stepLoop advances world by steps every interval and publishes each frame
// until ctx is done or a step fails.
func stepLoop(ctx context.Context, p *heat.Pipeline, world *heat.World, pub publisher, dt float32, steps uint, interval time.Duration) error {
	if err := pub.Publish(world); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := p.Step(world, dt, steps); err != nil {
			return err
		}
		if err := pub.Publish(world); err != nil {
			return err
		}
	}
}
