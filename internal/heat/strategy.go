package heat

import "fmt"

// Strategy decides how state moves between host and device across steps.
// It is the only axis along which stepping variants differ.
type Strategy interface {
	Name() string
	// Run stages the run, issues n steps and leaves the result in r.out.
	Run(r *run, n uint) error
}

// StrategyByName resolves a buffer strategy from its configured name.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", "double-buffered":
		return DoubleBuffered{}, nil
	case "readback":
		return ReadBackEachStep{}, nil
	}
	return nil, fmt.Errorf("%w: unknown buffer strategy %q", ErrConfiguration, name)
}

// DoubleBuffered keeps state resident on the device for the whole run. Two
// device buffers swap roles after every step and the host only sees the
// final result.
type DoubleBuffered struct{}

func (DoubleBuffered) Name() string { return "double-buffered" }

func (DoubleBuffered) Run(r *run, n uint) error {
	tableEv, err := r.writeTable()
	if err != nil {
		return err
	}
	curr, next := r.p.buffers[0], r.p.buffers[1]
	stateEv, err := r.writeState(curr, r.world.State)
	if err != nil {
		return err
	}
	r.p.state = Staged

	// Each dispatch reads the buffer the previous one wrote and overwrites
	// the buffer it read, so one dependency edge orders both hazards.
	last := []Event{tableEv, stateEv}
	for k := uint(0); k < n; k++ {
		ev, err := r.dispatch(curr, next, last...)
		if err != nil {
			return err
		}
		last = []Event{ev}
		curr, next = next, curr
	}
	readEv, err := r.readState(curr, r.out, last...)
	if err != nil {
		return err
	}
	return readEv.Wait()
}

// ReadBackEachStep round-trips state through the host on every step. It is
// kept as the baseline the double-buffered strategy is measured against.
type ReadBackEachStep struct{}

func (ReadBackEachStep) Name() string { return "readback" }

func (ReadBackEachStep) Run(r *run, n uint) error {
	tableEv, err := r.writeTable()
	if err != nil {
		return err
	}
	src, dst := r.p.buffers[0], r.p.buffers[1]
	if r.p.hostNext == nil || len(r.p.hostNext) != len(r.out) {
		r.p.hostNext = make([]float32, len(r.out))
	}
	host := append([]float32(nil), r.world.State...)
	scratch := r.p.hostNext
	r.p.state = Staged

	if n == 0 {
		stateEv, err := r.writeState(src, host)
		if err != nil {
			return err
		}
		readEv, err := r.readState(src, r.out, stateEv, tableEv)
		if err != nil {
			return err
		}
		return readEv.Wait()
	}
	for k := uint(0); k < n; k++ {
		stateEv, err := r.writeState(src, host)
		if err != nil {
			return err
		}
		ev, err := r.dispatch(src, dst, stateEv, tableEv)
		if err != nil {
			return err
		}
		readEv, err := r.readState(dst, scratch, ev)
		if err != nil {
			return err
		}
		if err := readEv.Wait(); err != nil {
			return err
		}
		host, scratch = scratch, host
	}
	copy(r.out, host)
	r.p.hostNext = scratch
	return nil
}
