package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
)

// profiler captures an optional CPU profile for the whole run and an
// optional heap profile taken when it stops.
type profiler struct {
	cpu      *os.File
	heapPath string
	once     sync.Once
	err      error
}

func startProfiles(cpuPath, heapPath string) (*profiler, error) {
	p := &profiler{heapPath: heapPath}
	if cpuPath == "" {
		return p, nil
	}
	f, err := os.Create(cpuPath)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("cpu profile: %w", err)
	}
	p.cpu = f
	return p, nil
}

// stop flushes both profiles. Only the first call does any work.
func (p *profiler) stop() error {
	p.once.Do(func() {
		if p.cpu != nil {
			pprof.StopCPUProfile()
			p.err = p.cpu.Close()
		}
		if p.heapPath != "" {
			p.err = errors.Join(p.err, writeHeapProfile(p.heapPath))
		}
	})
	return p.err
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("heap profile: %w", err)
	}
	return f.Close()
}
