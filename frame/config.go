package frame

import (
	"time"

	"github.com/cockroachdb/errors"
)

// MaxSlots bounds MaxFramesInFlight.
const MaxSlots = 8

// SuboptimalPolicy decides when a suboptimal acquire or present triggers a
// chain rebuild. The same policy applies to both paths.
type SuboptimalPolicy int

const (
	// SuboptimalRebuildImmediate rebuilds at the end of the tick that saw
	// the suboptimal result. The slot does not advance.
	SuboptimalRebuildImmediate SuboptimalPolicy = iota
	// SuboptimalRebuildDeferred lets the frame count as presented and
	// rebuilds at the start of the next tick.
	SuboptimalRebuildDeferred
)

func (p SuboptimalPolicy) String() string {
	switch p {
	case SuboptimalRebuildImmediate:
		return "immediate"
	case SuboptimalRebuildDeferred:
		return "deferred"
	}
	return "unknown"
}

// ParseSuboptimalPolicy parses "immediate" or "deferred".
func ParseSuboptimalPolicy(s string) (SuboptimalPolicy, error) {
	switch s {
	case "immediate", "":
		return SuboptimalRebuildImmediate, nil
	case "deferred":
		return SuboptimalRebuildDeferred, nil
	}
	return 0, errors.Newf("unknown suboptimal policy %q", s)
}

// Config tunes the frame driver.
type Config struct {
	MaxFramesInFlight int
	// PreferredFormat is used when the surface offers it. The zero value
	// takes the first format the surface reports.
	PreferredFormat SurfaceFormat
	PresentMode     PresentMode
	FenceTimeout    time.Duration
	AcquireTimeout  time.Duration
	Suboptimal      SuboptimalPolicy
}

// DefaultConfig returns two frames in flight, FIFO presentation and
// unbounded waits.
func DefaultConfig() Config {
	return Config{
		MaxFramesInFlight: 2,
		PresentMode:       PresentModeFIFO,
		FenceTimeout:      NoTimeout,
		AcquireTimeout:    NoTimeout,
		Suboptimal:        SuboptimalRebuildImmediate,
	}
}

func (c Config) Validate() error {
	if c.MaxFramesInFlight < 1 || c.MaxFramesInFlight > MaxSlots {
		return errors.Newf("max frames in flight must be in [1, %d], got %d", MaxSlots, c.MaxFramesInFlight)
	}
	if c.FenceTimeout <= 0 {
		return errors.Newf("fence timeout must be positive, got %s", c.FenceTimeout)
	}
	if c.AcquireTimeout <= 0 {
		return errors.Newf("acquire timeout must be positive, got %s", c.AcquireTimeout)
	}
	if c.Suboptimal != SuboptimalRebuildImmediate && c.Suboptimal != SuboptimalRebuildDeferred {
		return errors.Newf("unknown suboptimal policy %d", int(c.Suboptimal))
	}
	return nil
}
