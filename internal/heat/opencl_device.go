//go:build opencl

package heat

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

// clEvent wraps an OpenCL event. Once a barrier has drained the queue the
// event is released and Wait returns immediately.
type clEvent struct {
	dev      *OpenCLDevice
	ev       *cl.Event
	released bool
}

func (e *clEvent) Wait() error {
	e.dev.mu.Lock()
	released := e.released
	e.dev.mu.Unlock()
	if released {
		return nil
	}
	if err := cl.WaitForEvents([]*cl.Event{e.ev}); err != nil {
		return opError(ErrTransfer, "waiting for event", err)
	}
	return nil
}

type clBuffer struct {
	mem   *cl.MemObject
	kind  BufferKind
	cells int
}

// clKernel remembers which arguments are currently bound so a swap only
// rebinds the buffers whose identity changed.
type clKernel struct {
	kernel     *cl.Kernel
	bound      bool
	width      int
	height     int
	coeffs     Coefficients
	boundSrc   Buffer
	boundTable Buffer
	boundDst   Buffer
}

// OpenCLDevice runs the stencil kernels on one OpenCL device.
type OpenCLDevice struct {
	logger     *log.Logger
	context    *cl.Context
	queue      *cl.CommandQueue
	program    *cl.Program
	device     *cl.Device
	devices    []*cl.Device
	deviceName string

	mu          sync.Mutex
	kernels     map[string]*clKernel
	buffers     map[Buffer]*clBuffer
	nextID      Buffer
	outstanding []*clEvent
}

// NewOpenCLDevice selects the configured platform and device, creates a
// context and queue, and compiles the kernel source for every device of the
// platform.
func NewOpenCLDevice(cfg DeviceConfig, logger *log.Logger) (*OpenCLDevice, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, &BackendError{Op: msg, Err: err}
	}
	if len(platforms) == 0 {
		return nil, &BackendError{Op: "querying OpenCL platforms", Err: errors.New("no OpenCL platforms found")}
	}
	platformNames := make([]string, len(platforms))
	logger.Printf("Found %d platforms", len(platforms))
	for i, p := range platforms {
		platformNames[i] = fmt.Sprintf("platform %d: %s (%s)", i, p.Name(), p.Vendor())
		logger.Printf("  Platform %d : %s", i, p.Vendor())
	}
	if cfg.PlatformIndex < 0 || cfg.PlatformIndex >= len(platforms) {
		return nil, &BackendError{
			Op:      "selecting OpenCL platform",
			Options: platformNames,
			Err:     fmt.Errorf("platform index %d out of range", cfg.PlatformIndex),
		}
	}
	logger.Printf("Choosing platform %d", cfg.PlatformIndex)
	platform := platforms[cfg.PlatformIndex]

	devices, err := platform.GetDevices(cl.DeviceTypeAll)
	if err != nil && err != cl.ErrDeviceNotFound {
		return nil, &BackendError{Op: "querying OpenCL devices", Options: platformNames, Err: err}
	}
	if len(devices) == 0 {
		return nil, &BackendError{Op: "querying OpenCL devices", Options: platformNames, Err: errors.New("no OpenCL devices found")}
	}
	deviceNames := make([]string, len(devices))
	logger.Printf("Found %d devices", len(devices))
	for i, d := range devices {
		deviceNames[i] = fmt.Sprintf("device %d: %s", i, d.Name())
		logger.Printf("  Device %d : %s", i, d.Name())
	}
	if cfg.DeviceIndex < 0 || cfg.DeviceIndex >= len(devices) {
		return nil, &BackendError{
			Op:      "selecting OpenCL device",
			Options: deviceNames,
			Err:     fmt.Errorf("device index %d out of range", cfg.DeviceIndex),
		}
	}
	logger.Printf("Choosing device %d", cfg.DeviceIndex)
	device := devices[cfg.DeviceIndex]

	source, err := KernelSource(cfg.KernelSourcePath)
	if err != nil {
		return nil, err
	}

	context, err := cl.CreateContext(devices)
	if err != nil {
		return nil, &BackendError{Op: "creating OpenCL context", Options: deviceNames, Err: err}
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, &BackendError{Op: "creating OpenCL command queue", Options: deviceNames, Err: err}
	}
	program, err := context.CreateProgramWithSource([]string{source})
	if err != nil {
		queue.Release()
		context.Release()
		return nil, &CompileError{Kernel: "program", Err: err}
	}
	if err := program.BuildProgram(devices, ""); err != nil {
		logs := collectBuildLogs(context, source, devices)
		program.Release()
		queue.Release()
		context.Release()
		return nil, &CompileError{Kernel: "program", Logs: logs, Err: err}
	}

	d := &OpenCLDevice{
		logger:     logger,
		context:    context,
		queue:      queue,
		program:    program,
		device:     device,
		devices:    devices,
		deviceName: device.Name(),
		kernels:    make(map[string]*clKernel),
		buffers:    make(map[Buffer]*clBuffer),
	}
	logger.Printf("OpenCL device enabled (device: %s)", d.deviceName)
	return d, nil
}

// collectBuildLogs rebuilds the source for each device on its own so every
// candidate's log can be reported.
func collectBuildLogs(context *cl.Context, source string, devices []*cl.Device) []BuildLog {
	logs := make([]BuildLog, 0, len(devices))
	for _, dev := range devices {
		program, err := context.CreateProgramWithSource([]string{source})
		if err != nil {
			logs = append(logs, BuildLog{Device: dev.Name(), Log: err.Error()})
			continue
		}
		err = program.BuildProgram([]*cl.Device{dev}, "")
		program.Release()
		switch e := err.(type) {
		case nil:
			logs = append(logs, BuildLog{Device: dev.Name(), Log: "(built)"})
		case cl.BuildError:
			logs = append(logs, BuildLog{Device: dev.Name(), Log: string(e)})
		default:
			logs = append(logs, BuildLog{Device: dev.Name(), Log: e.Error()})
		}
	}
	return logs
}

func (d *OpenCLDevice) Name() string { return d.deviceName }

func (d *OpenCLDevice) Build(kernel string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.kernels[kernel]; ok {
		return nil
	}
	k, err := d.program.CreateKernel(kernel)
	if err != nil {
		return &CompileError{Kernel: kernel, Err: err}
	}
	d.kernels[kernel] = &clKernel{kernel: k}
	return nil
}

func (d *OpenCLDevice) NewBuffer(kind BufferKind, cells int) (Buffer, error) {
	if cells <= 0 {
		return 0, opError(ErrTransfer, "allocating buffer", fmt.Errorf("invalid size %d", cells))
	}
	var flags cl.MemFlag
	switch kind {
	case StateBuffer:
		flags = cl.MemReadWrite
	case TableBuffer:
		flags = cl.MemReadOnly
	default:
		return 0, opError(ErrTransfer, "allocating buffer", fmt.Errorf("unknown kind %v", kind))
	}
	// float32 and uint32 elements are both four bytes wide.
	mem, err := d.context.CreateEmptyBuffer(flags, cells*int(unsafe.Sizeof(float32(0))))
	if err != nil {
		return 0, opError(ErrTransfer, fmt.Sprintf("allocating %v buffer", kind), err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.buffers[d.nextID] = &clBuffer{mem: mem, kind: kind, cells: cells}
	return d.nextID, nil
}

func (d *OpenCLDevice) ReleaseBuffer(buf Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[buf]; ok {
		b.mem.Release()
		delete(d.buffers, buf)
	}
}

func (d *OpenCLDevice) lookup(buf Buffer, kind BufferKind) (*clBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[buf]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %d", buf)
	}
	if b.kind != kind {
		return nil, fmt.Errorf("buffer %d is a %v buffer, want %v", buf, b.kind, kind)
	}
	return b, nil
}

// waitList converts dependencies into an OpenCL wait list. Events from other
// devices are waited on synchronously.
func (d *OpenCLDevice) waitList(deps []Event) ([]*cl.Event, error) {
	var list []*cl.Event
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		ce, ok := dep.(*clEvent)
		if !ok || ce.dev != d {
			if err := dep.Wait(); err != nil {
				return nil, err
			}
			continue
		}
		d.mu.Lock()
		if !ce.released {
			list = append(list, ce.ev)
		}
		d.mu.Unlock()
	}
	return list, nil
}

func (d *OpenCLDevice) track(ev *cl.Event) Event {
	ce := &clEvent{dev: d, ev: ev}
	d.mu.Lock()
	d.outstanding = append(d.outstanding, ce)
	d.mu.Unlock()
	return ce
}

func (d *OpenCLDevice) WriteState(dst Buffer, src []float32, deps ...Event) (Event, error) {
	b, err := d.lookup(dst, StateBuffer)
	if err != nil {
		return nil, opError(ErrTransfer, "writing state buffer", err)
	}
	if len(src) != b.cells {
		return nil, opError(ErrTransfer, "writing state buffer", fmt.Errorf("size %d, want %d", len(src), b.cells))
	}
	wait, err := d.waitList(deps)
	if err != nil {
		return nil, opError(ErrTransfer, "writing state buffer", err)
	}
	ev, err := d.queue.EnqueueWriteBufferFloat32(b.mem, false, 0, src, wait)
	if err != nil {
		return nil, opError(ErrTransfer, "writing state buffer", err)
	}
	return d.track(ev), nil
}

func (d *OpenCLDevice) WriteTable(dst Buffer, src []uint32, deps ...Event) (Event, error) {
	b, err := d.lookup(dst, TableBuffer)
	if err != nil {
		return nil, opError(ErrTransfer, "writing table buffer", err)
	}
	if len(src) != b.cells {
		return nil, opError(ErrTransfer, "writing table buffer", fmt.Errorf("size %d, want %d", len(src), b.cells))
	}
	wait, err := d.waitList(deps)
	if err != nil {
		return nil, opError(ErrTransfer, "writing table buffer", err)
	}
	ptr := unsafe.Pointer(&src[0])
	byteLen := len(src) * int(unsafe.Sizeof(uint32(0)))
	ev, err := d.queue.EnqueueWriteBuffer(b.mem, false, 0, byteLen, ptr, wait)
	if err != nil {
		return nil, opError(ErrTransfer, "writing table buffer", err)
	}
	return d.track(ev), nil
}

func (d *OpenCLDevice) ReadState(src Buffer, dst []float32, deps ...Event) (Event, error) {
	b, err := d.lookup(src, StateBuffer)
	if err != nil {
		return nil, opError(ErrTransfer, "reading state buffer", err)
	}
	if len(dst) != b.cells {
		return nil, opError(ErrTransfer, "reading state buffer", fmt.Errorf("size %d, want %d", len(dst), b.cells))
	}
	wait, err := d.waitList(deps)
	if err != nil {
		return nil, opError(ErrTransfer, "reading state buffer", err)
	}
	ev, err := d.queue.EnqueueReadBufferFloat32(b.mem, false, 0, dst, wait)
	if err != nil {
		return nil, opError(ErrTransfer, "reading state buffer", err)
	}
	return d.track(ev), nil
}

// bind sets the kernel arguments that differ from what is already bound.
func (d *OpenCLDevice) bind(k *clKernel, l Launch, src, table, dst *clBuffer) error {
	if !k.bound || k.width != l.Width || k.height != l.Height {
		if err := k.kernel.SetArgUint32(0, uint32(l.Width)); err != nil {
			return err
		}
		if err := k.kernel.SetArgUint32(1, uint32(l.Height)); err != nil {
			return err
		}
		k.width, k.height = l.Width, l.Height
	}
	if !k.bound || k.coeffs != l.Coeffs {
		if err := k.kernel.SetArgFloat32(2, l.Coeffs.Inner); err != nil {
			return err
		}
		if err := k.kernel.SetArgFloat32(3, l.Coeffs.Outer); err != nil {
			return err
		}
		k.coeffs = l.Coeffs
	}
	if !k.bound || k.boundSrc != l.Src {
		if err := k.kernel.SetArgBuffer(4, src.mem); err != nil {
			return err
		}
		k.boundSrc = l.Src
	}
	if !k.bound || k.boundTable != l.Table {
		if err := k.kernel.SetArgBuffer(5, table.mem); err != nil {
			return err
		}
		k.boundTable = l.Table
	}
	if !k.bound || k.boundDst != l.Dst {
		if err := k.kernel.SetArgBuffer(6, dst.mem); err != nil {
			return err
		}
		k.boundDst = l.Dst
	}
	k.bound = true
	return nil
}

func (d *OpenCLDevice) Dispatch(l Launch, deps ...Event) (Event, error) {
	d.mu.Lock()
	k, ok := d.kernels[l.Kernel]
	d.mu.Unlock()
	if !ok {
		return nil, opError(ErrDispatch, "enqueueing kernel", fmt.Errorf("kernel %q not built", l.Kernel))
	}
	src, err := d.lookup(l.Src, StateBuffer)
	if err != nil {
		return nil, opError(ErrDispatch, "binding source", err)
	}
	table, err := d.lookup(l.Table, TableBuffer)
	if err != nil {
		return nil, opError(ErrDispatch, "binding table", err)
	}
	dst, err := d.lookup(l.Dst, StateBuffer)
	if err != nil {
		return nil, opError(ErrDispatch, "binding destination", err)
	}
	if l.Src == l.Dst {
		return nil, opError(ErrDispatch, "enqueueing kernel", errors.New("source and destination alias"))
	}
	if err := d.bind(k, l, src, table, dst); err != nil {
		return nil, opError(ErrDispatch, "binding buffers", err)
	}
	wait, err := d.waitList(deps)
	if err != nil {
		return nil, opError(ErrDispatch, "enqueueing kernel", err)
	}
	global := []int{l.Width, l.Height}
	ev, err := d.queue.EnqueueNDRangeKernel(k.kernel, nil, global, nil, wait)
	if err != nil {
		return nil, opError(ErrDispatch, "enqueueing kernel", err)
	}
	return d.track(ev), nil
}

// Barrier drains the queue and releases the events issued since the last
// barrier.
func (d *OpenCLDevice) Barrier() error {
	err := d.queue.Finish()
	d.mu.Lock()
	for _, ce := range d.outstanding {
		if !ce.released {
			ce.ev.Release()
			ce.released = true
		}
	}
	d.outstanding = d.outstanding[:0]
	d.mu.Unlock()
	if err != nil {
		return opError(ErrTransfer, "finishing queue", err)
	}
	return nil
}

func (d *OpenCLDevice) Close() error {
	var err error
	if d.queue != nil {
		err = d.Barrier()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, b := range d.buffers {
		b.mem.Release()
		delete(d.buffers, id)
	}
	for name, k := range d.kernels {
		k.kernel.Release()
		delete(d.kernels, name)
	}
	if d.program != nil {
		d.program.Release()
		d.program = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.context != nil {
		d.context.Release()
		d.context = nil
	}
	return err
}
