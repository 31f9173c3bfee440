package heat

import (
	"fmt"
	"log"
	"math"
)

// verifyTolerance bounds the per-cell difference accepted by Verify.
const verifyTolerance = 1e-4

// PipelineState is the position of a stepping call in its lifecycle.
type PipelineState int

const (
	Idle PipelineState = iota
	Staged
	Stepping
	Drained
)

func (s PipelineState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Staged:
		return "staged"
	case Stepping:
		return "stepping"
	case Drained:
		return "drained"
	}
	return fmt.Sprintf("PipelineState(%d)", int(s))
}

// Stats counts the device operations issued by the last stepping call.
type Stats struct {
	TableWrites int
	StateWrites int
	StateReads  int
	Dispatches  int
	Barriers    int
}

// Pipeline drives repeated stencil steps on a device. Buffers are allocated
// on first use and reused while the grid size stays the same.
type Pipeline struct {
	Device   Device
	Strategy Strategy
	Scheme   DescriptorScheme
	// Verify recomputes every run on the host and fails on mismatch.
	Verify bool
	Logger *log.Logger

	built    map[string]bool
	cells    int
	table    Buffer
	buffers  [2]Buffer
	state    PipelineState
	step     int
	stats    Stats
	hostNext []float32
}

// NewPipeline returns a pipeline using double buffering and packed
// descriptors.
func NewPipeline(dev Device, logger *log.Logger) *Pipeline {
	return &Pipeline{
		Device:   dev,
		Strategy: DoubleBuffered{},
		Scheme:   PackedScheme{},
		Logger:   logger,
	}
}

// State reports where the last stepping call got to.
func (p *Pipeline) State() PipelineState { return p.state }

// Stats reports the operation counts of the last stepping call.
func (p *Pipeline) Stats() Stats { return p.stats }

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// Step advances world by n steps of dt. On success State holds the result
// and T has grown by dt per step; on failure world is left untouched.
func (p *Pipeline) Step(world *World, dt float32, n uint) error {
	if err := world.Validate(); err != nil {
		return err
	}
	if p.Device == nil {
		return fmt.Errorf("%w: pipeline has no device", ErrBackendAcquisition)
	}
	if p.Strategy == nil {
		p.Strategy = DoubleBuffered{}
	}
	if p.Scheme == nil {
		p.Scheme = PackedScheme{}
	}
	p.state = Idle
	p.step = 0
	p.stats = Stats{}

	if err := p.prepare(world.Cells()); err != nil {
		return err
	}
	table := p.Scheme.Encode(world.Properties, world.Width, world.Height)
	out := make([]float32, len(world.State))
	run := &run{
		p:      p,
		world:  world,
		table:  table,
		coeffs: NewCoefficients(world.Alpha, dt),
		out:    out,
	}
	if err := p.Strategy.Run(run, n); err != nil {
		// Leave queued work to finish before the buffers get reused.
		_ = p.Device.Barrier()
		return err
	}
	p.stats.Barriers++
	if err := p.Device.Barrier(); err != nil {
		return err
	}
	if p.Verify {
		if err := verifyAgainstHost(world, table, p.Scheme, run.coeffs, n, out); err != nil {
			return err
		}
	}

	copy(world.State, out)
	t := world.T
	for k := uint(0); k < n; k++ {
		t += dt
	}
	world.T = t
	p.state = Drained
	p.logf("Stepped %dx%d world by dt=%g for n=%d on %s (%s, %s)",
		world.Width, world.Height, dt, n, p.Device.Name(), p.Strategy.Name(), p.Scheme.Name())
	return nil
}

// prepare builds the kernel and (re)allocates buffers for the grid size.
func (p *Pipeline) prepare(cells int) error {
	if p.built == nil {
		p.built = make(map[string]bool)
	}
	kernel := p.Scheme.Kernel()
	if !p.built[kernel] {
		if err := p.Device.Build(kernel); err != nil {
			return err
		}
		p.built[kernel] = true
	}
	if p.cells == cells {
		return nil
	}
	p.Release()
	table, err := p.Device.NewBuffer(TableBuffer, cells)
	if err != nil {
		return err
	}
	a, err := p.Device.NewBuffer(StateBuffer, cells)
	if err != nil {
		p.Device.ReleaseBuffer(table)
		return err
	}
	b, err := p.Device.NewBuffer(StateBuffer, cells)
	if err != nil {
		p.Device.ReleaseBuffer(a)
		p.Device.ReleaseBuffer(table)
		return err
	}
	p.table, p.buffers, p.cells = table, [2]Buffer{a, b}, cells
	p.hostNext = nil
	return nil
}

// Release frees the device buffers held by the pipeline.
func (p *Pipeline) Release() {
	if p.cells == 0 {
		return
	}
	p.Device.ReleaseBuffer(p.buffers[1])
	p.Device.ReleaseBuffer(p.buffers[0])
	p.Device.ReleaseBuffer(p.table)
	p.cells = 0
}

// run carries the per-call data a strategy works on.
type run struct {
	p      *Pipeline
	world  *World
	table  []uint32
	coeffs Coefficients
	out    []float32
}

func (r *run) launch(src, dst Buffer) Launch {
	return Launch{
		Kernel: r.p.Scheme.Kernel(),
		Src:    src,
		Dst:    dst,
		Table:  r.p.table,
		Width:  r.world.Width,
		Height: r.world.Height,
		Coeffs: r.coeffs,
	}
}

func (r *run) writeTable() (Event, error) {
	r.p.stats.TableWrites++
	return r.p.Device.WriteTable(r.p.table, r.table)
}

func (r *run) writeState(dst Buffer, src []float32, deps ...Event) (Event, error) {
	r.p.stats.StateWrites++
	return r.p.Device.WriteState(dst, src, deps...)
}

func (r *run) readState(src Buffer, dst []float32, deps ...Event) (Event, error) {
	r.p.stats.StateReads++
	return r.p.Device.ReadState(src, dst, deps...)
}

func (r *run) dispatch(src, dst Buffer, deps ...Event) (Event, error) {
	r.p.stats.Dispatches++
	r.p.step++
	r.p.state = Stepping
	return r.p.Device.Dispatch(r.launch(src, dst), deps...)
}

// verifyAgainstHost replays the run with the host reference and compares.
func verifyAgainstHost(world *World, table []uint32, scheme DescriptorScheme, c Coefficients, n uint, got []float32) error {
	curr := append([]float32(nil), world.State...)
	next := make([]float32, len(curr))
	for k := uint(0); k < n; k++ {
		StepReference(next, curr, table, world.Width, world.Height, scheme, c)
		curr, next = next, curr
	}
	for i, want := range curr {
		if diff := math.Abs(float64(got[i] - want)); diff > verifyTolerance {
			return fmt.Errorf("verification mismatch at index %d: device=%f host=%f diff=%f", i, got[i], want, diff)
		}
	}
	return nil
}
