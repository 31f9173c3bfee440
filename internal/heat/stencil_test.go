package heat

import (
	"math"
	"testing"
)

func TestNewCoefficients(t *testing.T) {
	c := NewCoefficients(1.0, 0.1)
	if math.Abs(float64(c.Outer-0.1)) > 1e-7 {
		t.Errorf("outer = %v, want 0.1", c.Outer)
	}
	if math.Abs(float64(c.Inner-0.975)) > 1e-7 {
		t.Errorf("inner = %v, want 0.975", c.Inner)
	}
}

func TestEvaluateCellImmutable(t *testing.T) {
	src := []float32{0.3, 0.9, 0.1, 0.7, 0.4, 0.2, 0.6, 0.8, 0.5}
	c := NewCoefficients(1, 0.5)
	for _, flag := range []uint32{CellFixed, CellInsulator, CellFixed | CellInsulator} {
		if got := EvaluateCell(flag, 4, 3, src, c); got != src[4] {
			t.Errorf("flag 0x%x: got %v, want held value %v", flag, got, src[4])
		}
	}
}

func TestEvaluateCellUniformFieldIsFixedPoint(t *testing.T) {
	src := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1}
	c := NewCoefficients(1, 0.1)
	got := EvaluateCell(ActiveMask, 4, 3, src, c)
	if math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("uniform field moved to %v", got)
	}
}

func TestEvaluateCellWeightsOnlyActiveNeighbours(t *testing.T) {
	// 3x3 neighbourhood around index 4; only left and right are active.
	src := []float32{
		0, 0.9, 0,
		0.2, 0.5, 0.6,
		0, 0.1, 0,
	}
	c := NewCoefficients(2, 0.1)
	got := EvaluateCell(ActiveLeft|ActiveRight, 4, 3, src, c)
	want := (c.Inner*0.5 + c.Outer*0.2 + c.Outer*0.6) / (c.Inner + 2*c.Outer)
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEvaluateCellClamps(t *testing.T) {
	c := NewCoefficients(1, 0.1)
	high := []float32{0, 9, 0, 7, 5, 8, 0, 6, 0}
	if got := EvaluateCell(ActiveMask, 4, 3, high, c); got != 1 {
		t.Errorf("high input: got %v, want 1", got)
	}
	low := []float32{0, -9, 0, -7, -5, -8, 0, -6, 0}
	if got := EvaluateCell(ActiveMask, 4, 3, low, c); got != 0 {
		t.Errorf("low input: got %v, want 0", got)
	}
}

func TestEvaluateCellDegenerateWeights(t *testing.T) {
	// alpha*dt == 4 leaves no inner weight; an isolated cell divides 0/0.
	c := NewCoefficients(4, 1)
	src := []float32{0.5}
	got := EvaluateCell(0, 0, 1, src, c)
	if got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}
