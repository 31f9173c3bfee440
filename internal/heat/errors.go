package heat

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every failure of a stepping call wraps exactly one of them
// and is fatal for that call.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrBackendAcquisition = errors.New("backend acquisition failed")
	ErrCompile            = errors.New("kernel compile failed")
	ErrTransfer           = errors.New("transfer failed")
	ErrDispatch           = errors.New("dispatch failed")
)

// BackendError reports a failure to obtain a usable execution context along
// with the options that were enumerated while looking for one.
type BackendError struct {
	Op      string
	Options []string
	Err     error
}

func (e *BackendError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Options) > 0 {
		b.WriteString(" (available: ")
		b.WriteString(strings.Join(e.Options, "; "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *BackendError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBackendAcquisition}
	}
	return []error{ErrBackendAcquisition, e.Err}
}

// BuildLog is the diagnostic output of building a kernel for one device.
type BuildLog struct {
	Device string
	Log    string
}

// CompileError carries the build log of every candidate device.
type CompileError struct {
	Kernel string
	Logs   []BuildLog
	Err    error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "building kernel %q", e.Kernel)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, l := range e.Logs {
		fmt.Fprintf(&b, "\nlog for device %s:\n%s", l.Device, l.Log)
	}
	return b.String()
}

func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompile}
	}
	return []error{ErrCompile, e.Err}
}

// opError tags a device operation failure with its class.
func opError(class error, op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, class, err)
}
