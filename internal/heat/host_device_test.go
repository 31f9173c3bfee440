package heat

import (
	"errors"
	"testing"
)

func TestHostDeviceOrdersDependentOperations(t *testing.T) {
	dev := NewHostDevice(2, nil)
	defer dev.Close()

	buf, err := dev.NewBuffer(StateBuffer, 4)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	first := []float32{1, 2, 3, 4}
	second := []float32{5, 6, 7, 8}
	w1, err := dev.WriteState(buf, first)
	if err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	w2, err := dev.WriteState(buf, second, w1)
	if err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	out := make([]float32, 4)
	rd, err := dev.ReadState(buf, out, w2)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if err := rd.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	for i := range out {
		if out[i] != second[i] {
			t.Fatalf("out = %v, want %v", out, second)
		}
	}
	if err := dev.Barrier(); err != nil {
		t.Fatalf("Barrier: %v", err)
	}
}

func TestHostDeviceDispatchNeedsBuiltKernel(t *testing.T) {
	dev := NewHostDevice(1, nil)
	defer dev.Close()
	src, _ := dev.NewBuffer(StateBuffer, 4)
	dst, _ := dev.NewBuffer(StateBuffer, 4)
	table, _ := dev.NewBuffer(TableBuffer, 4)
	l := Launch{Kernel: PackedScheme{}.Kernel(), Src: src, Dst: dst, Table: table, Width: 2, Height: 2}
	if _, err := dev.Dispatch(l); !errors.Is(err, ErrDispatch) {
		t.Fatalf("Dispatch before Build = %v, want ErrDispatch", err)
	}
	if err := dev.Build(l.Kernel); err != nil {
		t.Fatalf("Build: %v", err)
	}
	ev, err := dev.Dispatch(l)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := ev.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	l.Dst = l.Src
	if _, err := dev.Dispatch(l); !errors.Is(err, ErrDispatch) {
		t.Fatalf("aliased dispatch = %v, want ErrDispatch", err)
	}
}

func TestHostDeviceBuildUnknownKernel(t *testing.T) {
	dev := NewHostDevice(1, nil)
	defer dev.Close()
	err := dev.Build("step_magic")
	var ce *CompileError
	if !errors.As(err, &ce) || !errors.Is(err, ErrCompile) {
		t.Fatalf("Build = %v, want CompileError", err)
	}
}

type failedEvent struct{}

func (failedEvent) Wait() error { return errors.New("upstream failed") }

func TestHostDevicePropagatesDependencyFailure(t *testing.T) {
	dev := NewHostDevice(1, nil)
	defer dev.Close()
	buf, _ := dev.NewBuffer(StateBuffer, 2)
	ev, err := dev.WriteState(buf, []float32{1, 2}, failedEvent{})
	if err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if err := ev.Wait(); !errors.Is(err, ErrTransfer) {
		t.Fatalf("Wait = %v, want ErrTransfer", err)
	}
	if err := dev.Barrier(); err == nil {
		t.Fatal("Barrier did not report the failed operation")
	}
	if err := dev.Barrier(); err != nil {
		t.Fatalf("second Barrier = %v, want nil", err)
	}
}

func TestHostDeviceRejectsMismatchedTransfers(t *testing.T) {
	dev := NewHostDevice(1, nil)
	defer dev.Close()
	state, _ := dev.NewBuffer(StateBuffer, 4)
	table, _ := dev.NewBuffer(TableBuffer, 4)
	if _, err := dev.WriteState(state, make([]float32, 3)); !errors.Is(err, ErrTransfer) {
		t.Errorf("short write = %v", err)
	}
	if _, err := dev.WriteTable(state, make([]uint32, 4)); !errors.Is(err, ErrTransfer) {
		t.Errorf("table write into state buffer = %v", err)
	}
	if _, err := dev.ReadState(table, make([]float32, 4)); !errors.Is(err, ErrTransfer) {
		t.Errorf("state read from table buffer = %v", err)
	}
}

func TestBuildRowMasks(t *testing.T) {
	table := []uint32{
		CellFixed, 0, 0, CellInsulator, 0,
		CellFixed, CellFixed, CellFixed, CellFixed, CellFixed,
	}
	rows := buildRowMasks(table, 5, 2)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := []span{{1, 2}, {4, 4}}
	if len(rows[0].spans) != len(want) {
		t.Fatalf("row 0 spans = %v, want %v", rows[0].spans, want)
	}
	for i := range want {
		if rows[0].spans[i] != want[i] {
			t.Fatalf("row 0 spans = %v, want %v", rows[0].spans, want)
		}
	}
	if len(rows[1].spans) != 0 {
		t.Fatalf("row 1 spans = %v, want none", rows[1].spans)
	}
	masks := assignRowMasks(3, rows)
	if len(masks) != 3 || len(masks[0].rows) != 1 || len(masks[1].rows) != 1 || len(masks[2].rows) != 0 {
		t.Fatalf("unexpected mask assignment %+v", masks)
	}
}
