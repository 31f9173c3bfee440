package heat

import (
	"errors"
	"strings"
	"testing"
)

func TestOpenDeviceHost(t *testing.T) {
	dev, err := OpenDevice(DeviceConfig{Backend: "host", Workers: 2}, nil)
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	defer dev.Close()
	if !strings.HasPrefix(dev.Name(), "host") {
		t.Fatalf("Name() = %q", dev.Name())
	}
}

func TestOpenDeviceUnknownBackend(t *testing.T) {
	_, err := OpenDevice(DeviceConfig{Backend: "fpga"}, nil)
	var be *BackendError
	if !errors.As(err, &be) || !errors.Is(err, ErrBackendAcquisition) {
		t.Fatalf("OpenDevice = %v, want BackendError", err)
	}
	if len(be.Options) == 0 {
		t.Fatal("backend error lists no options")
	}
}

func TestKernelSourceEmbedded(t *testing.T) {
	src, err := KernelSource("")
	if err != nil {
		t.Fatalf("KernelSource: %v", err)
	}
	for _, name := range []string{PackedScheme{}.Kernel(), InspectScheme{}.Kernel()} {
		if !strings.Contains(src, "__kernel void "+name) {
			t.Errorf("embedded source lacks kernel %s", name)
		}
	}
	if _, err := KernelSource("/nonexistent/stencil.cl"); !errors.Is(err, ErrCompile) {
		t.Errorf("missing override = %v, want ErrCompile", err)
	}
}
