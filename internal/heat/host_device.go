package heat

import (
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"
)

// hostEvent completes once its operation has run.
type hostEvent struct {
	done chan struct{}
	err  error
}

func newHostEvent() *hostEvent {
	return &hostEvent{done: make(chan struct{})}
}

func (e *hostEvent) finish(err error) {
	e.err = err
	close(e.done)
}

func (e *hostEvent) Wait() error {
	<-e.done
	return e.err
}

// hostBuffer is host memory standing in for device memory.
type hostBuffer struct {
	kind  BufferKind
	state []float32
	table []uint32
	// generation changes whenever the table contents are rewritten.
	generation int
}

// HostDevice executes kernels on a pool of worker goroutines. Every
// operation runs asynchronously once its dependencies have completed.
type HostDevice struct {
	logger *log.Logger
	pool   *workerPool

	mu      sync.Mutex
	buffers map[Buffer]*hostBuffer
	nextID  Buffer
	kernels map[string]DescriptorScheme
	errs    []error
	closed  bool

	// dispatchMu serialises access to the worker pool.
	dispatchMu sync.Mutex
	maskTable  Buffer
	maskGen    int
	masks      []workerMask

	inflight sync.WaitGroup
}

// NewHostDevice starts a host device with the given number of workers.
func NewHostDevice(workers int, logger *log.Logger) *HostDevice {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	d := &HostDevice{
		logger:  logger,
		pool:    newWorkerPool(workers),
		buffers: make(map[Buffer]*hostBuffer),
		kernels: make(map[string]DescriptorScheme),
	}
	d.pool.start()
	logger.Printf("Host device ready (%d workers)", workers)
	return d
}

func (d *HostDevice) Name() string {
	return fmt.Sprintf("host (%d workers)", d.pool.count)
}

// Build registers a kernel by name. Host kernels are the Go stencil bound to
// the descriptor scheme the kernel name belongs to.
func (d *HostDevice) Build(kernel string) error {
	var scheme DescriptorScheme
	for _, s := range []DescriptorScheme{PackedScheme{}, InspectScheme{}} {
		if s.Kernel() == kernel {
			scheme = s
		}
	}
	if scheme == nil {
		return &CompileError{Kernel: kernel, Err: errors.New("no such host kernel")}
	}
	d.mu.Lock()
	d.kernels[kernel] = scheme
	d.mu.Unlock()
	return nil
}

func (d *HostDevice) NewBuffer(kind BufferKind, cells int) (Buffer, error) {
	if cells <= 0 {
		return 0, opError(ErrTransfer, "allocating buffer", fmt.Errorf("invalid size %d", cells))
	}
	b := &hostBuffer{kind: kind}
	switch kind {
	case StateBuffer:
		b.state = make([]float32, cells)
	case TableBuffer:
		b.table = make([]uint32, cells)
	default:
		return 0, opError(ErrTransfer, "allocating buffer", fmt.Errorf("unknown kind %v", kind))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, opError(ErrTransfer, "allocating buffer", errors.New("device closed"))
	}
	d.nextID++
	d.buffers[d.nextID] = b
	return d.nextID, nil
}

func (d *HostDevice) ReleaseBuffer(buf Buffer) {
	d.mu.Lock()
	delete(d.buffers, buf)
	d.mu.Unlock()
}

func (d *HostDevice) lookup(buf Buffer, kind BufferKind) (*hostBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("device closed")
	}
	b, ok := d.buffers[buf]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %d", buf)
	}
	if b.kind != kind {
		return nil, fmt.Errorf("buffer %d is a %v buffer, want %v", buf, b.kind, kind)
	}
	return b, nil
}

// schedule runs fn on its own goroutine after deps complete.
func (d *HostDevice) schedule(op string, class error, deps []Event, fn func() error) Event {
	ev := newHostEvent()
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		if err := waitAll(deps); err != nil {
			err = opError(class, op, fmt.Errorf("dependency failed: %w", err))
			d.recordErr(err)
			ev.finish(err)
			return
		}
		if err := fn(); err != nil {
			err = opError(class, op, err)
			d.recordErr(err)
			ev.finish(err)
			return
		}
		ev.finish(nil)
	}()
	return ev
}

func (d *HostDevice) recordErr(err error) {
	d.mu.Lock()
	d.errs = append(d.errs, err)
	d.mu.Unlock()
}

func (d *HostDevice) WriteState(dst Buffer, src []float32, deps ...Event) (Event, error) {
	b, err := d.lookup(dst, StateBuffer)
	if err != nil {
		return nil, opError(ErrTransfer, "writing state buffer", err)
	}
	if len(src) != len(b.state) {
		return nil, opError(ErrTransfer, "writing state buffer", fmt.Errorf("size %d, want %d", len(src), len(b.state)))
	}
	return d.schedule("writing state buffer", ErrTransfer, deps, func() error {
		copy(b.state, src)
		return nil
	}), nil
}

func (d *HostDevice) WriteTable(dst Buffer, src []uint32, deps ...Event) (Event, error) {
	b, err := d.lookup(dst, TableBuffer)
	if err != nil {
		return nil, opError(ErrTransfer, "writing table buffer", err)
	}
	if len(src) != len(b.table) {
		return nil, opError(ErrTransfer, "writing table buffer", fmt.Errorf("size %d, want %d", len(src), len(b.table)))
	}
	return d.schedule("writing table buffer", ErrTransfer, deps, func() error {
		copy(b.table, src)
		d.mu.Lock()
		b.generation++
		d.mu.Unlock()
		return nil
	}), nil
}

func (d *HostDevice) ReadState(src Buffer, dst []float32, deps ...Event) (Event, error) {
	b, err := d.lookup(src, StateBuffer)
	if err != nil {
		return nil, opError(ErrTransfer, "reading state buffer", err)
	}
	if len(dst) != len(b.state) {
		return nil, opError(ErrTransfer, "reading state buffer", fmt.Errorf("size %d, want %d", len(dst), len(b.state)))
	}
	return d.schedule("reading state buffer", ErrTransfer, deps, func() error {
		copy(dst, b.state)
		return nil
	}), nil
}

func (d *HostDevice) Dispatch(l Launch, deps ...Event) (Event, error) {
	d.mu.Lock()
	scheme, ok := d.kernels[l.Kernel]
	d.mu.Unlock()
	if !ok {
		return nil, opError(ErrDispatch, "enqueueing kernel", fmt.Errorf("kernel %q not built", l.Kernel))
	}
	src, err := d.lookup(l.Src, StateBuffer)
	if err != nil {
		return nil, opError(ErrDispatch, "binding source", err)
	}
	dst, err := d.lookup(l.Dst, StateBuffer)
	if err != nil {
		return nil, opError(ErrDispatch, "binding destination", err)
	}
	table, err := d.lookup(l.Table, TableBuffer)
	if err != nil {
		return nil, opError(ErrDispatch, "binding table", err)
	}
	size := l.Width * l.Height
	if size <= 0 || len(src.state) != size || len(dst.state) != size || len(table.table) != size {
		return nil, opError(ErrDispatch, "enqueueing kernel", fmt.Errorf("range %dx%d does not match buffers", l.Width, l.Height))
	}
	if l.Src == l.Dst {
		return nil, opError(ErrDispatch, "enqueueing kernel", errors.New("source and destination alias"))
	}
	return d.schedule("running kernel "+l.Kernel, ErrDispatch, deps, func() error {
		d.dispatchMu.Lock()
		defer d.dispatchMu.Unlock()
		d.mu.Lock()
		gen := table.generation
		d.mu.Unlock()
		if d.masks == nil || d.maskTable != l.Table || d.maskGen != gen {
			d.masks = assignRowMasks(d.pool.count, buildRowMasks(table.table, l.Width, l.Height))
			d.maskTable, d.maskGen = l.Table, gen
		}
		d.pool.run(stepJob{
			dst:    dst.state,
			src:    src.state,
			table:  table.table,
			width:  l.Width,
			height: l.Height,
			scheme: scheme,
			coeffs: l.Coeffs,
		}, d.masks)
		return nil
	}), nil
}

// Barrier waits for all issued operations and reports any that failed since
// the previous barrier.
func (d *HostDevice) Barrier() error {
	d.inflight.Wait()
	d.mu.Lock()
	errs := d.errs
	d.errs = nil
	d.mu.Unlock()
	return errors.Join(errs...)
}

func (d *HostDevice) Close() error {
	err := d.Barrier()
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return err
	}
	d.closed = true
	d.buffers = nil
	d.mu.Unlock()
	d.pool.stop()
	return err
}
