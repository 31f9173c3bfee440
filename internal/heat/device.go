package heat

import (
	"fmt"
	"io"
	"log"
)

// Event is a pending device operation. Wait blocks until it has completed
// and returns its error.
type Event interface {
	Wait() error
}

// Buffer is an opaque handle to device memory.
type Buffer int

// BufferKind describes the element type and access pattern of a buffer.
type BufferKind int

const (
	// StateBuffer holds float32 cell values and is read and written by kernels.
	StateBuffer BufferKind = iota + 1
	// TableBuffer holds uint32 descriptors or properties and is read-only.
	TableBuffer
)

func (k BufferKind) String() string {
	switch k {
	case StateBuffer:
		return "state"
	case TableBuffer:
		return "table"
	}
	return fmt.Sprintf("BufferKind(%d)", int(k))
}

// Launch describes one stencil dispatch over the full width x height range.
type Launch struct {
	Kernel string
	Src    Buffer
	Dst    Buffer
	Table  Buffer
	Width  int
	Height int
	Coeffs Coefficients
}

// Device is the transfer and scheduling capability the pipeline drives.
// Operations declaring dependencies run strictly after them; independent
// operations may run in any order or concurrently.
type Device interface {
	Name() string
	// Build prepares the named kernel for dispatch.
	Build(kernel string) error
	NewBuffer(kind BufferKind, cells int) (Buffer, error)
	ReleaseBuffer(buf Buffer)
	WriteState(dst Buffer, src []float32, deps ...Event) (Event, error)
	WriteTable(dst Buffer, src []uint32, deps ...Event) (Event, error)
	ReadState(src Buffer, dst []float32, deps ...Event) (Event, error)
	Dispatch(l Launch, deps ...Event) (Event, error)
	// Barrier blocks until every issued operation has completed.
	Barrier() error
	Close() error
}

// DeviceConfig selects and configures the execution context. It replaces the
// environment variables the selection used to be driven by.
type DeviceConfig struct {
	// Backend is "host" or "opencl".
	Backend string
	// PlatformIndex selects the enumerated OpenCL platform.
	PlatformIndex int
	// DeviceIndex selects the enumerated device on that platform.
	DeviceIndex int
	// KernelSourcePath overrides the embedded kernel source when set.
	KernelSourcePath string
	// Workers is the host worker count; 0 uses runtime.NumCPU.
	Workers int
}

// OpenDevice acquires the execution context described by cfg.
func OpenDevice(cfg DeviceConfig, logger *log.Logger) (Device, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	switch cfg.Backend {
	case "", "host":
		return NewHostDevice(cfg.Workers, logger), nil
	case "opencl":
		dev, err := NewOpenCLDevice(cfg, logger)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
	return nil, &BackendError{
		Op:      "selecting backend",
		Options: []string{"host", "opencl"},
		Err:     fmt.Errorf("unknown backend %q", cfg.Backend),
	}
}

// waitAll waits for every event and returns the first error.
func waitAll(events []Event) error {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := ev.Wait(); err != nil {
			return err
		}
	}
	return nil
}
