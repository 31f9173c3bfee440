package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"heatsim/internal/config"
	"heatsim/internal/gridio"
	"heatsim/internal/heat"
	"heatsim/internal/runlog"
)

const smallWorld = `HPCEHeatWorld v0
4 4 1 0
Text
0 0 0 0
0 1 1 0
0 1 1 0
0 0 0 0
1 1 1 1
1 0 0 1
1 0 0 1
1 1 1 1
`

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestApplyArgs(t *testing.T) {
	cfg := config.Default()
	if err := applyArgs(&cfg, []string{"0.05", "7", "1"}); err != nil {
		t.Fatalf("applyArgs: %v", err)
	}
	if cfg.Run.DT != 0.05 || cfg.Run.Steps != 7 || cfg.Run.Format != "binary" {
		t.Errorf("run = %+v", cfg.Run)
	}

	cfg = config.Default()
	if err := applyArgs(&cfg, nil); err != nil {
		t.Fatal(err)
	}
	if cfg.Run.DT != defaultDT || cfg.Run.Steps != defaultSteps {
		t.Errorf("defaults = %+v", cfg.Run)
	}
}

func TestApplyArgsRejects(t *testing.T) {
	for _, args := range [][]string{
		{"fast"},
		{"0.1", "-3"},
		{"0.1", "1", "yes"},
		{"0.1", "1", "0", "extra"},
	} {
		cfg := config.Default()
		if err := applyArgs(&cfg, args); !errors.Is(err, heat.ErrConfiguration) {
			t.Errorf("applyArgs(%q) = %v, want ErrConfiguration", args, err)
		}
	}
}

func TestRunStdinToStdout(t *testing.T) {
	cfg := config.Default()
	cfg.Device.Workers = 2
	cfg.Run.Steps = 3
	var out bytes.Buffer
	if err := run(cfg, strings.NewReader(smallWorld), &out, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	w, err := gridio.Load(&out)
	if err != nil {
		t.Fatalf("Load output: %v", err)
	}
	want := 3 * float32(defaultDT)
	if d := w.T - want; d > 1e-6 || d < -1e-6 {
		t.Errorf("T = %v, want %v", w.T, want)
	}
	for _, i := range []int{5, 6, 9, 10} {
		if w.State[i] >= 1 || w.State[i] <= 0 {
			t.Errorf("cell %d = %v, want strictly between the sources", i, w.State[i])
		}
	}
	if w.State[0] != 0 || w.Properties[0] != heat.CellFixed {
		t.Errorf("fixed corner changed: %v %#x", w.State[0], w.Properties[0])
	}
}

func TestRunFilesPNGAndLedger(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(in, []byte(smallWorld), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Pipeline.Strategy = "readback"
	cfg.Pipeline.Scheme = "inspect"
	cfg.Pipeline.Verify = true
	cfg.Run.In = in
	cfg.Run.Out = filepath.Join(dir, "out.bin.zst")
	cfg.Run.Format = "half"
	cfg.Run.PNG = filepath.Join(dir, "out.png")
	cfg.Run.PNGScale = 4
	cfg.Run.RunLog = filepath.Join(dir, "runs.db")

	if err := run(cfg, nil, nil, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := gridio.LoadFile(cfg.Run.Out); err != nil {
		t.Errorf("LoadFile: %v", err)
	}
	if fi, err := os.Stat(cfg.Run.PNG); err != nil || fi.Size() == 0 {
		t.Errorf("png: %v", err)
	}

	ledger, err := runlog.Open(cfg.Run.RunLog)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	runs, err := ledger.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Strategy != "readback" || runs[0].Scheme != "inspect" || runs[0].Steps != 1 {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestRunRejectsMalformedInput(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer
	err := run(cfg, strings.NewReader("HPCEHeatWorld v0\n2 2 1 0\nText\n0 0\n"), &out, quietLogger())
	if err == nil {
		t.Fatal("run accepted a truncated world")
	}
	if out.Len() != 0 {
		t.Error("nothing should be written on failure")
	}
}

func TestProfilesWriteFiles(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	heap := filepath.Join(dir, "heap.pprof")
	p, err := startProfiles(cpu, heap)
	if err != nil {
		t.Fatalf("startProfiles: %v", err)
	}
	if err := p.stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := p.stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	for _, path := range []string{cpu, heap} {
		if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
			t.Errorf("%s: %v", path, err)
		}
	}
}
