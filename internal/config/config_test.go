package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"heatsim/internal/heat"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
device:
  backend: host
  workers: 3
pipeline:
  strategy: readback
  scheme: inspect
  verify: true
run:
  dt: 0.05
  steps: 20
world:
  size: 48
  seed: 11
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Workers != 3 || cfg.Pipeline.Strategy != "readback" || cfg.Pipeline.Scheme != "inspect" || !cfg.Pipeline.Verify {
		t.Errorf("device/pipeline = %+v %+v", cfg.Device, cfg.Pipeline)
	}
	if cfg.Run.DT != 0.05 || cfg.Run.Steps != 20 {
		t.Errorf("run = %+v", cfg.Run)
	}
	if cfg.Run.Format != "text" {
		t.Errorf("format default lost: %q", cfg.Run.Format)
	}
	if cfg.World.Size != 48 || cfg.World.Seed != 11 || !cfg.World.Slalom {
		t.Errorf("world = %+v", cfg.World)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "colour: red\n",
		"backend":          "device:\n  backend: cuda\n",
		"negative workers": "device:\n  workers: -1\n",
		"zero dt":          "run:\n  dt: 0\n",
		"strategy":         "pipeline:\n  strategy: triple\n",
		"bad yaml":         "run: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate([]byte(doc))
			if !errors.Is(err, heat.ErrConfiguration) {
				t.Fatalf("Validate = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestValidateEmpty(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Fatalf("Validate(empty) = %v", err)
	}
}

func TestDefaultBuildsPipeline(t *testing.T) {
	cfg := Default()
	cfg.Device.Workers = 2
	p, dev, err := cfg.NewPipeline(nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer dev.Close()
	defer p.Release()

	w := heat.NewWorld(3, 3, 0.1)
	if err := p.Step(w, cfg.Run.DT, cfg.Run.Steps); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if w.T != cfg.Run.DT {
		t.Errorf("T = %v, want %v", w.T, cfg.Run.DT)
	}
}

func TestDeviceConfig(t *testing.T) {
	cfg := Default()
	cfg.Device = Device{Backend: "opencl", Platform: 1, Device: 2, KernelSource: "k.cl", Workers: 4}
	dc := cfg.DeviceConfig()
	want := heat.DeviceConfig{Backend: "opencl", PlatformIndex: 1, DeviceIndex: 2, KernelSourcePath: "k.cl", Workers: 4}
	if dc != want {
		t.Errorf("DeviceConfig = %+v, want %+v", dc, want)
	}
}
