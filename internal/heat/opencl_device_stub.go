//go:build !opencl

package heat

import (
	"errors"
	"log"
)

// OpenCLDevice is unavailable in builds without the opencl tag.
type OpenCLDevice struct{}

func NewOpenCLDevice(_ DeviceConfig, _ *log.Logger) (*OpenCLDevice, error) {
	return nil, &BackendError{
		Op:      "opening OpenCL device",
		Options: []string{"host"},
		Err:     errors.New("OpenCL support is not enabled; rebuild with -tags opencl"),
	}
}

func (d *OpenCLDevice) Name() string         { return "" }
func (d *OpenCLDevice) Build(string) error   { return errOpenCLUnavailable }
func (d *OpenCLDevice) ReleaseBuffer(Buffer) {}
func (d *OpenCLDevice) Barrier() error       { return nil }
func (d *OpenCLDevice) Close() error         { return nil }

func (d *OpenCLDevice) NewBuffer(BufferKind, int) (Buffer, error) {
	return 0, errOpenCLUnavailable
}

func (d *OpenCLDevice) WriteState(Buffer, []float32, ...Event) (Event, error) {
	return nil, errOpenCLUnavailable
}

func (d *OpenCLDevice) WriteTable(Buffer, []uint32, ...Event) (Event, error) {
	return nil, errOpenCLUnavailable
}

func (d *OpenCLDevice) ReadState(Buffer, []float32, ...Event) (Event, error) {
	return nil, errOpenCLUnavailable
}

func (d *OpenCLDevice) Dispatch(Launch, ...Event) (Event, error) {
	return nil, errOpenCLUnavailable
}

var errOpenCLUnavailable = errors.New("OpenCL solver unavailable")
