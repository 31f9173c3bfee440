// Package config loads heatsim run configuration from YAML.
//
// A file only needs the keys it wants to change; everything else keeps the
// value from Default. Files are checked against an embedded JSON schema
// before they are decoded.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"heatsim/internal/gridio"
	"heatsim/internal/heat"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

type Config struct {
	Device   Device   `yaml:"device"`
	Pipeline Pipeline `yaml:"pipeline"`
	Run      Run      `yaml:"run"`
	World    World    `yaml:"world"`
	Observer Observer `yaml:"observer"`
}

type Device struct {
	Backend      string `yaml:"backend"`
	Platform     int    `yaml:"platform"`
	Device       int    `yaml:"device"`
	KernelSource string `yaml:"kernel_source"`
	Workers      int    `yaml:"workers"`
}

type Pipeline struct {
	Strategy string `yaml:"strategy"`
	Scheme   string `yaml:"scheme"`
	Verify   bool   `yaml:"verify"`
}

type Run struct {
	DT     float32 `yaml:"dt"`
	Steps  uint    `yaml:"steps"`
	Format string  `yaml:"format"`
	// In and Out name world files; empty means stdin and stdout.
	In       string `yaml:"in"`
	Out      string `yaml:"out"`
	PNG      string `yaml:"png"`
	PNGScale int    `yaml:"png_scale"`
	RunLog   string `yaml:"runlog"`
}

type World struct {
	Size                  int     `yaml:"size"`
	Alpha                 float32 `yaml:"alpha"`
	Seed                  int64   `yaml:"seed"`
	Slalom                bool    `yaml:"slalom"`
	WallSegments          int     `yaml:"wall_segments"`
	WallMinLen            int     `yaml:"wall_min_len"`
	WallMaxLen            int     `yaml:"wall_max_len"`
	WallThicknessVariance int     `yaml:"wall_thickness_variance"`
	SourceRadius          int     `yaml:"source_radius"`
	SourceClearance       int     `yaml:"source_clearance"`
}

type Observer struct {
	Addr            string `yaml:"addr"`
	StepsPerFrame   uint   `yaml:"steps_per_frame"`
	FrameIntervalMs int    `yaml:"frame_interval_ms"`
}

// Default matches the stepping program's historical defaults: dt=0.1, one
// step, text output, host backend.
func Default() Config {
	wo := gridio.DefaultWorldOptions()
	return Config{
		Device: Device{Backend: "host"},
		Pipeline: Pipeline{
			Strategy: heat.DoubleBuffered{}.Name(),
			Scheme:   heat.PackedScheme{}.Name(),
		},
		Run: Run{DT: 0.1, Steps: 1, Format: "text", PNGScale: 1},
		World: World{
			Size:                  64,
			Alpha:                 0.1,
			Seed:                  wo.Seed,
			Slalom:                wo.Slalom,
			WallSegments:          wo.WallSegments,
			WallMinLen:            wo.WallMinLen,
			WallMaxLen:            wo.WallMaxLen,
			WallThicknessVariance: wo.WallThicknessVariance,
			SourceRadius:          wo.SourceRadius,
			SourceClearance:       wo.SourceClearance,
		},
		Observer: Observer{Addr: "127.0.0.1:8090", StepsPerFrame: 4, FrameIntervalMs: 50},
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := Decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode validates raw YAML and merges it into cfg.
func Decode(raw []byte, cfg *Config) error {
	if err := Validate(raw); err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("%w: %w", heat.ErrConfiguration, err)
	}
	return nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Validate checks raw YAML against the configuration schema. An empty
// document is valid.
func Validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %w", heat.ErrConfiguration, err)
	}
	if doc == nil {
		return nil
	}
	// The validator expects encoding/json values, not yaml's int/map types.
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", heat.ErrConfiguration, err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("%w: %w", heat.ErrConfiguration, err)
	}
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", heat.ErrConfiguration, err)
	}
	return nil
}

func (c Config) DeviceConfig() heat.DeviceConfig {
	return heat.DeviceConfig{
		Backend:          c.Device.Backend,
		PlatformIndex:    c.Device.Platform,
		DeviceIndex:      c.Device.Device,
		KernelSourcePath: c.Device.KernelSource,
		Workers:          c.Device.Workers,
	}
}

func (c Config) WorldOptions() gridio.WorldOptions {
	return gridio.WorldOptions{
		Seed:                  c.World.Seed,
		Slalom:                c.World.Slalom,
		WallSegments:          c.World.WallSegments,
		WallMinLen:            c.World.WallMinLen,
		WallMaxLen:            c.World.WallMaxLen,
		WallThicknessVariance: c.World.WallThicknessVariance,
		SourceRadius:          c.World.SourceRadius,
		SourceClearance:       c.World.SourceClearance,
	}
}

func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.Observer.FrameIntervalMs) * time.Millisecond
}

// NewPipeline opens the configured device and returns a pipeline using the
// configured strategy and scheme. The caller closes the device.
func (c Config) NewPipeline(logger *log.Logger) (*heat.Pipeline, heat.Device, error) {
	strategy, err := heat.StrategyByName(c.Pipeline.Strategy)
	if err != nil {
		return nil, nil, err
	}
	scheme, err := heat.SchemeByName(c.Pipeline.Scheme)
	if err != nil {
		return nil, nil, err
	}
	dev, err := heat.OpenDevice(c.DeviceConfig(), logger)
	if err != nil {
		return nil, nil, err
	}
	p := heat.NewPipeline(dev, logger)
	p.Strategy = strategy
	p.Scheme = scheme
	p.Verify = c.Pipeline.Verify
	return p, dev, nil
}
