package heat

// Coefficients are the per-run weights of the stencil. Outer is the share a
// cell takes from each active neighbour and Inner the share it keeps.
type Coefficients struct {
	Inner float32
	Outer float32
}

// NewCoefficients derives the stencil weights for diffusion rate alpha and
// time step dt.
func NewCoefficients(alpha, dt float32) Coefficients {
	outer := alpha * dt
	return Coefficients{Inner: 1 - outer/4, Outer: outer}
}

// EvaluateCell returns the next value of cell i. The result is normalised by
// the number of contributing terms and clamped to [0, 1].
func EvaluateCell(desc uint32, i, width int, src []float32, c Coefficients) float32 {
	if desc&cellImmutable != 0 {
		return src[i]
	}
	contrib := c.Inner
	acc := c.Inner * src[i]
	if desc&ActiveAbove != 0 {
		contrib += c.Outer
		acc += c.Outer * src[i-width]
	}
	if desc&ActiveBelow != 0 {
		contrib += c.Outer
		acc += c.Outer * src[i+width]
	}
	if desc&ActiveLeft != 0 {
		contrib += c.Outer
		acc += c.Outer * src[i-1]
	}
	if desc&ActiveRight != 0 {
		contrib += c.Outer
		acc += c.Outer * src[i+1]
	}
	res := acc / contrib
	// NaN collapses to 0, matching fmax/fmin on the device.
	if !(res > 0) {
		return 0
	}
	if res < 1 {
		return res
	}
	return 1
}

// StepReference advances src by one step into dst on the calling goroutine.
// It is the host reference used for verification.
func StepReference(dst, src []float32, table []uint32, width, height int, scheme DescriptorScheme, c Coefficients) {
	for i := range src {
		dst[i] = EvaluateCell(scheme.Descriptor(table, width, height, i), i, width, src, c)
	}
}
