package gridio

import (
	"math"
	"testing"
)

func TestHalfExactValues(t *testing.T) {
	cases := []struct {
		f    float32
		bits uint16
	}{
		{0, 0x0000},
		{1, 0x3c00},
		{-2, 0xc000},
		{0.5, 0x3800},
		{65504, 0x7bff},
		{float32(math.Inf(1)), 0x7c00},
		{5.960464477539063e-08, 0x0001},
	}
	for _, c := range cases {
		if got := halfBits(c.f); got != c.bits {
			t.Errorf("halfBits(%v) = %#04x, want %#04x", c.f, got, c.bits)
		}
		if got := halfValue(c.bits); got != c.f {
			t.Errorf("halfValue(%#04x) = %v, want %v", c.bits, got, c.f)
		}
	}
}

func TestHalfOverflowAndNaN(t *testing.T) {
	if got := halfBits(1e6); got != 0x7c00 {
		t.Errorf("halfBits(1e6) = %#04x, want inf", got)
	}
	nan := halfValue(halfBits(float32(math.NaN())))
	if !math.IsNaN(float64(nan)) {
		t.Errorf("NaN round trip = %v", nan)
	}
}

func TestHalfUnitRangeError(t *testing.T) {
	src := make([]float32, 1001)
	for i := range src {
		src[i] = float32(i) / 1000
	}
	bits := make([]uint16, len(src))
	back := make([]float32, len(src))
	float32ToHalf(bits, src)
	halfToFloat32(back, bits)
	for i := range src {
		if d := math.Abs(float64(back[i] - src[i])); d > 1.0/2048 {
			t.Fatalf("value %v came back as %v", src[i], back[i])
		}
	}
}
