package frame

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrShutdown is returned by RenderFrame after Shutdown.
	ErrShutdown = errors.New("frame: driver is shut down")
	// ErrTimeout is wrapped by Device implementations when a bounded wait
	// expires.
	ErrTimeout = errors.New("frame: wait timed out")

	ErrZeroExtent       = errors.New("frame: surface reports a zero extent")
	ErrNoSurfaceFormats = errors.New("frame: surface reports no formats")
	ErrNoImages         = errors.New("frame: swapchain returned no images")
	ErrTargetMismatch   = errors.New("frame: target count does not match image count")
	ErrTargetIndex      = errors.New("frame: target index out of range")
)

// SyncInitError is returned when the synchronization set cannot be created.
type SyncInitError struct {
	Slot int
	Err  error
}

func (e *SyncInitError) Error() string {
	return fmt.Sprintf("frame: create sync objects for slot %d: %v", e.Slot, e.Err)
}

func (e *SyncInitError) Unwrap() error { return e.Err }

// ChainBuildError is returned when the presentable surface chain or its
// render targets cannot be built.
type ChainBuildError struct {
	Stage string
	Err   error
}

func (e *ChainBuildError) Error() string {
	return fmt.Sprintf("frame: build chain (%s): %v", e.Stage, e.Err)
}

func (e *ChainBuildError) Unwrap() error { return e.Err }

// DeviceError is an unexpected failure while driving a frame. The device
// state is no longer trusted once one is returned.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("frame: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func deviceError(op string, err error) error {
	return &DeviceError{Op: op, Err: errors.WithStack(err)}
}
