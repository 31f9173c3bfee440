package heat

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed stencil.cl
var stencilKernelSource string

// KernelSource returns the OpenCL C source of the stencil kernels. A
// non-empty path overrides the embedded copy.
func KernelSource(path string) (string, error) {
	if path == "" {
		return stencilKernelSource, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: loading kernel source from %q: %w", ErrCompile, path, err)
	}
	return string(raw), nil
}
