// Command heatsim reads a heat world, steps it and writes the result.
//
//	heatsim [flags] [dt [n [binary]]]
//
// The world is read from stdin and written to stdout unless -in or -out name
// a file. Progress goes to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/tebeka/atexit"

	"heatsim/internal/config"
	"heatsim/internal/gridio"
	"heatsim/internal/heat"
	"heatsim/internal/render"
	"heatsim/internal/runlog"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: heatsim [flags] [dt [n [binary]]]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "defaults: dt=%g n=%d binary=%d\n\n", defaultDT, defaultSteps, defaultBinary)
		flag.PrintDefaults()
	}
	flag.Parse()
	logger := log.New(os.Stderr, "", 0)

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			fatalf(logger, "heatsim: %v", err)
		}
	}
	if err := applyArgs(&cfg, flag.Args()); err != nil {
		fatalf(logger, "heatsim: %v", err)
	}
	applyFlags(&cfg)

	prof, err := startProfiles(*cpuProfileFlag, *memProfileFlag)
	if err != nil {
		fatalf(logger, "heatsim: %v", err)
	}
	atexit.Register(func() {
		if err := prof.stop(); err != nil {
			logger.Printf("heatsim: %v", err)
		}
	})

	if err := run(cfg, os.Stdin, os.Stdout, logger); err != nil {
		fatalf(logger, "heatsim: %v", err)
	}
	atexit.Exit(0)
}

// fatalf logs and exits through atexit so registered handlers still run.
func fatalf(logger *log.Logger, format string, args ...any) {
	logger.Printf(format, args...)
	atexit.Exit(1)
}

// applyArgs reads the positional dt, n and binary arguments.
func applyArgs(cfg *config.Config, args []string) error {
	if len(args) > 3 {
		return fmt.Errorf("%w: too many arguments (%d)", heat.ErrConfiguration, len(args))
	}
	if len(args) > 0 {
		dt, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return fmt.Errorf("%w: dt: %w", heat.ErrConfiguration, err)
		}
		cfg.Run.DT = float32(dt)
	}
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 0)
		if err != nil {
			return fmt.Errorf("%w: n: %w", heat.ErrConfiguration, err)
		}
		cfg.Run.Steps = uint(n)
	}
	if len(args) > 2 {
		binary, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: binary: %w", heat.ErrConfiguration, err)
		}
		cfg.Run.Format = "text"
		if binary != 0 {
			cfg.Run.Format = "binary"
		}
	}
	return nil
}

func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Device.Backend = *backendFlag
		case "platform":
			cfg.Device.Platform = *platformFlag
		case "device":
			cfg.Device.Device = *deviceFlag
		case "kernel":
			cfg.Device.KernelSource = *kernelFlag
		case "workers":
			cfg.Device.Workers = *workersFlag
		case "strategy":
			cfg.Pipeline.Strategy = *strategyFlag
		case "scheme":
			cfg.Pipeline.Scheme = *schemeFlag
		case "verify":
			cfg.Pipeline.Verify = *verifyFlag
		case "in":
			cfg.Run.In = *inFlag
		case "out":
			cfg.Run.Out = *outFlag
		case "format":
			cfg.Run.Format = *formatFlag
		case "png":
			cfg.Run.PNG = *pngFlag
		case "png-scale":
			cfg.Run.PNGScale = *pngScaleFlag
		case "runlog":
			cfg.Run.RunLog = *runLogFlag
		}
	})
}

func run(cfg config.Config, stdin io.Reader, stdout io.Writer, logger *log.Logger) error {
	format, err := gridio.ParseFormat(cfg.Run.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", heat.ErrConfiguration, err)
	}

	var world *heat.World
	if cfg.Run.In != "" {
		world, err = gridio.LoadFile(cfg.Run.In)
	} else {
		world, err = gridio.Load(stdin)
	}
	if err != nil {
		return err
	}
	logger.Printf("Loaded world with w=%d, h=%d", world.Width, world.Height)

	p, dev, err := cfg.NewPipeline(logger)
	if err != nil {
		return err
	}
	defer dev.Close()
	defer p.Release()

	logger.Printf("Stepping by dt=%g for n=%d", cfg.Run.DT, cfg.Run.Steps)
	started := time.Now()
	if err := p.Step(world, cfg.Run.DT, cfg.Run.Steps); err != nil {
		return err
	}
	elapsed := time.Since(started)

	if cfg.Run.Out != "" {
		err = gridio.SaveFile(cfg.Run.Out, world, format)
	} else {
		err = gridio.Save(stdout, world, format)
	}
	if err != nil {
		return err
	}

	if cfg.Run.PNG != "" {
		scale := min(max(cfg.Run.PNGScale, 1), pngMaxScale)
		if err := render.SavePNG(cfg.Run.PNG, world, scale); err != nil {
			return err
		}
	}
	if cfg.Run.RunLog != "" {
		r := runlog.Run{
			StartedAt: started,
			Elapsed:   elapsed,
			Device:    dev.Name(),
			Strategy:  p.Strategy.Name(),
			Scheme:    p.Scheme.Name(),
			Width:     world.Width,
			Height:    world.Height,
			DT:        cfg.Run.DT,
			Steps:     cfg.Run.Steps,
			T:         world.T,
			Stats:     p.Stats(),
			Summary:   runlog.Summarize(world),
		}
		if err := recordRun(cfg.Run.RunLog, r); err != nil {
			return err
		}
	}
	return nil
}

func recordRun(path string, r runlog.Run) error {
	ledger, err := runlog.Open(path)
	if err != nil {
		return err
	}
	defer ledger.Close()
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	_, err = ledger.Record(ctx, r)
	return err
}
