package frame

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// State is the position of the driver in its per-frame state machine.
type State int

const (
	Idle State = iota
	WaitingSlot
	Acquiring
	Recording
	Submitting
	Presenting
	Rebuilding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case WaitingSlot:
		return "WaitingSlot"
	case Acquiring:
		return "Acquiring"
	case Recording:
		return "Recording"
	case Submitting:
		return "Submitting"
	case Presenting:
		return "Presenting"
	case Rebuilding:
		return "Rebuilding"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options wires a Driver to its collaborators.
type Options struct {
	Device    Device
	Presenter Presenter
	Targets   TargetFactory
	Encoder   Encoder
	Surface   Surface

	Pipeline PipelineState
	Geometry Geometry

	Config Config
}

func (o Options) validate() error {
	switch {
	case o.Device == nil:
		return errors.New("frame: options: nil Device")
	case o.Presenter == nil:
		return errors.New("frame: options: nil Presenter")
	case o.Targets == nil:
		return errors.New("frame: options: nil Targets")
	case o.Encoder == nil:
		return errors.New("frame: options: nil Encoder")
	case o.Surface == nil:
		return errors.New("frame: options: nil Surface")
	}
	return errors.Wrap(o.Config.Validate(), "frame: options")
}

// Driver runs the frame pipeline. It is not safe for concurrent use; one
// goroutine calls RenderFrame and Shutdown.
type Driver struct {
	id uuid.UUID

	device    Device
	presenter Presenter
	factory   TargetFactory
	surface   Surface
	recorder  *Recorder

	pipeline PipelineState
	geometry Geometry
	cfg      Config

	sync      *SyncSet
	buffers   []CommandBuffer
	submitted []bool

	chain      *Chain
	targets    *TargetSet
	generation uint64

	slot           int
	state          State
	pendingRebuild bool
	failed         error
	shutdown       bool
	shutdownErr    error

	stats Stats
}

// NewDriver creates the synchronization set, the per-slot command buffers
// and the first chain generation. Every error it returns is fatal.
func NewDriver(opts Options) (*Driver, error) {
	err := opts.validate()
	if err != nil {
		return nil, err
	}

	d := &Driver{
		id:        uuid.New(),
		device:    opts.Device,
		presenter: opts.Presenter,
		factory:   opts.Targets,
		surface:   opts.Surface,
		recorder:  NewRecorder(opts.Encoder),
		pipeline:  opts.Pipeline,
		geometry:  opts.Geometry,
		cfg:       opts.Config,
		submitted: make([]bool, opts.Config.MaxFramesInFlight),
	}

	d.sync, err = NewSyncSet(d.device, d.cfg.MaxFramesInFlight)
	if err != nil {
		return nil, err
	}

	d.buffers, err = d.device.AllocateCommandBuffers(d.cfg.MaxFramesInFlight)
	if err != nil {
		d.sync.Destroy()
		return nil, errors.Wrap(err, "frame: allocate command buffers")
	}

	err = d.buildChain()
	if err != nil {
		d.device.FreeCommandBuffers(d.buffers)
		d.sync.Destroy()
		return nil, err
	}

	d.logger().Info("frame driver ready",
		slog.Int("slots", d.cfg.MaxFramesInFlight),
		slog.String("extent", d.chain.Extent().String()),
		slog.Int("images", len(d.chain.Images())),
		slog.String("present_mode", d.chain.PresentMode().String()),
		slog.String("suboptimal", d.cfg.Suboptimal.String()))

	return d, nil
}

func (d *Driver) logger() *slog.Logger {
	return Logger().With(slog.String("driver", d.id.String()), slog.Uint64("generation", d.generation))
}

// buildChain creates the next chain generation and its targets. The
// generation number is only consumed when both are built.
func (d *Driver) buildChain() error {
	generation := d.generation + 1
	chain, err := BuildChain(d.presenter, ChainConfig{
		PreferredFormat: d.cfg.PreferredFormat,
		PresentMode:     d.cfg.PresentMode,
		Requested:       d.surface.DrawableExtent(),
	}, generation)
	if err != nil {
		return err
	}

	targets, err := BuildTargets(d.factory, chain.Images(), chain.Extent())
	if err != nil {
		chain.Destroy()
		return err
	}

	if targets.Len() != len(chain.Images()) {
		targets.Destroy()
		chain.Destroy()
		return &ChainBuildError{Stage: "targets", Err: ErrTargetMismatch}
	}

	d.chain = chain
	d.targets = targets
	d.generation = generation
	return nil
}

// RenderFrame performs one tick of the state machine: wait for the current
// slot, acquire, record, submit, present, and rebuild the chain when the
// surface was invalidated. Invalidation is never reported as an error; any
// error returned is fatal and is returned again by every later call.
func (d *Driver) RenderFrame() error {
	if d.shutdown {
		return ErrShutdown
	}
	if d.failed != nil {
		return d.failed
	}

	if d.pendingRebuild {
		done, err := d.rebuild()
		if err != nil {
			return d.fail(err)
		}
		if !done {
			d.stats.Skipped++
			return nil
		}
	}

	err := d.renderFrame()
	if err != nil {
		return d.fail(err)
	}
	return nil
}

func (d *Driver) renderFrame() error {
	watch := startStopwatch()
	d.stats.Frames++

	triple := d.sync.Slot(d.slot)
	cb := d.buffers[d.slot]

	d.state = WaitingSlot
	err := d.device.WaitFence(triple.SlotFree, d.cfg.FenceTimeout)
	if err != nil {
		return deviceError("wait for frame slot", err)
	}
	d.submitted[d.slot] = false

	d.state = Acquiring
	acquired, err := d.chain.AcquireNext(triple.ImageAcquired, d.cfg.AcquireTimeout)
	if err != nil {
		return err
	}
	if acquired.Kind == AcquireOutOfDate {
		d.stats.Skipped++
		d.invalidate("acquire out of date")
		_, err = d.rebuild()
		return err
	}

	d.state = Recording
	err = d.device.ResetCommandBuffer(cb)
	if err != nil {
		return deviceError("reset command buffer", err)
	}

	err = d.recorder.Record(cb, acquired.Index, d.targets, d.pipeline, d.geometry, d.chain.Extent())
	if err != nil {
		return deviceError("record commands", err)
	}

	d.state = Submitting
	err = d.device.ResetFence(triple.SlotFree)
	if err != nil {
		return deviceError("reset slot fence", err)
	}

	err = d.device.Submit(Submission{
		CommandBuffer: cb,
		Wait:          triple.ImageAcquired,
		Signal:        triple.RenderFinished,
		Fence:         triple.SlotFree,
	})
	if err != nil {
		return deviceError("submit", err)
	}
	d.submitted[d.slot] = true

	d.state = Presenting
	presented, err := d.chain.Present(acquired.Index, triple.RenderFinished)
	if err != nil {
		return err
	}

	rebuildNow := false
	suboptimal := acquired.Kind == SuboptimalAcquired

	switch presented {
	case Presented, SuboptimalPresented:
		d.stats.Presented++
		d.stats.LastFrame = watch.elapsed()
		d.stats.TotalFrame += d.stats.LastFrame
		if presented == SuboptimalPresented {
			suboptimal = true
		}
	case PresentOutOfDate:
		d.invalidate("present out of date")
		rebuildNow = true
	}

	if d.surface.ShouldRebuild() {
		d.invalidate("surface resized")
		rebuildNow = true
	}

	if suboptimal {
		d.invalidate("suboptimal")
		if d.cfg.Suboptimal == SuboptimalRebuildImmediate {
			rebuildNow = true
		}
	}

	if rebuildNow {
		_, err = d.rebuild()
		return err
	}

	d.slot = (d.slot + 1) % d.cfg.MaxFramesInFlight
	d.state = Idle
	return nil
}

// invalidate marks the current generation stale. Repeated calls before the
// rebuild coalesce.
func (d *Driver) invalidate(reason string) {
	if !d.pendingRebuild {
		d.logger().Debug("chain invalidated", slog.String("reason", reason))
	}
	d.pendingRebuild = true
}

// rebuild replaces the chain and its targets. It reports false, leaving the
// rebuild pending, when the surface closed while waiting for a usable size.
func (d *Driver) rebuild() (bool, error) {
	d.state = Rebuilding

	// Minimized windows report a zero drawable size. Block here until the
	// user restores the window.
	for d.surface.DrawableExtent().IsZero() {
		if d.surface.Closed() {
			d.state = Idle
			return false, nil
		}
		d.surface.WaitEvents()
	}

	watch := startStopwatch()

	err := d.device.WaitIdle()
	if err != nil {
		return false, deviceError("wait idle before rebuild", err)
	}

	d.destroyChain()

	err = d.buildChain()
	if err != nil {
		return false, err
	}

	// This generation already reflects any resize reported so far.
	d.surface.ShouldRebuild()
	d.pendingRebuild = false

	d.stats.Rebuilds++
	d.stats.LastRebuild = watch.elapsed()
	d.state = Idle

	d.logger().Info("chain rebuilt",
		slog.String("extent", d.chain.Extent().String()),
		slog.Int("images", len(d.chain.Images())),
		slog.Duration("elapsed", d.stats.LastRebuild))

	return true, nil
}

func (d *Driver) destroyChain() {
	if d.targets != nil {
		d.targets.Destroy()
		d.targets = nil
	}
	if d.chain != nil {
		d.chain.Destroy()
		d.chain = nil
	}
}

func (d *Driver) fail(err error) error {
	d.failed = err
	d.state = Idle
	d.logger().Error("frame driver failed", slog.String("error", err.Error()))
	return err
}

// Shutdown waits for every outstanding submission to retire and for the
// device to go idle, then releases the chain, the targets, the command
// buffers and the synchronization set. If any wait fails nothing is
// released, since the GPU may still be using it, and the error is returned.
// Calling it again returns the first result.
func (d *Driver) Shutdown() error {
	if d.shutdown {
		return d.shutdownErr
	}
	d.shutdown = true

	var errs error
	for slot, fence := range d.sync.Fences() {
		if !d.submitted[slot] {
			continue
		}
		err := d.device.WaitFence(fence, d.cfg.FenceTimeout)
		if err != nil {
			errs = errors.CombineErrors(errs, deviceError(fmt.Sprintf("wait for slot %d", slot), err))
			continue
		}
		d.submitted[slot] = false
	}

	err := d.device.WaitIdle()
	if err != nil {
		errs = errors.CombineErrors(errs, deviceError("wait idle", err))
	}

	d.state = Idle
	if errs != nil {
		d.shutdownErr = errs
		d.logger().Error("frame driver shut down without releasing GPU resources",
			slog.String("error", errs.Error()))
		return errs
	}

	d.destroyChain()
	d.device.FreeCommandBuffers(d.buffers)
	d.buffers = nil
	d.sync.Destroy()

	d.logger().Info("frame driver shut down",
		slog.Uint64("frames", d.stats.Frames),
		slog.Uint64("presented", d.stats.Presented),
		slog.Uint64("rebuilds", d.stats.Rebuilds))

	return nil
}

func (d *Driver) ID() uuid.UUID { return d.id }

func (d *Driver) State() State { return d.state }

// Slot returns the frame slot the next tick will use.
func (d *Driver) Slot() int { return d.slot }

// Generation returns the current chain generation, starting at 1.
func (d *Driver) Generation() uint64 { return d.generation }

func (d *Driver) Stats() Stats { return d.stats }

// Extent returns the extent of the current chain generation, or the zero
// extent if there is none.
func (d *Driver) Extent() Extent {
	if d.chain == nil {
		return Extent{}
	}
	return d.chain.Extent()
}

// Format returns the surface format of the current chain generation, or the
// zero format if there is none.
func (d *Driver) Format() SurfaceFormat {
	if d.chain == nil {
		return SurfaceFormat{}
	}
	return d.chain.Format()
}

// ImageCount returns the number of presentable images in the current
// generation.
func (d *Driver) ImageCount() int {
	if d.chain == nil {
		return 0
	}
	return len(d.chain.Images())
}

// TargetCount returns the number of render targets in the current
// generation.
func (d *Driver) TargetCount() int {
	if d.targets == nil {
		return 0
	}
	return d.targets.Len()
}
