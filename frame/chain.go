package frame

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// AcquireKind classifies an acquire outcome.
type AcquireKind int

const (
	Acquired AcquireKind = iota
	SuboptimalAcquired
	AcquireOutOfDate
)

// AcquireResult is the per-frame outcome of Chain.AcquireNext. Index is only
// meaningful for Acquired and SuboptimalAcquired.
type AcquireResult struct {
	Kind  AcquireKind
	Index int
}

func (r AcquireResult) String() string {
	switch r.Kind {
	case Acquired:
		return fmt.Sprintf("Acquired(%d)", r.Index)
	case SuboptimalAcquired:
		return fmt.Sprintf("SuboptimalAcquired(%d)", r.Index)
	case AcquireOutOfDate:
		return "OutOfDate"
	}
	return fmt.Sprintf("AcquireKind(%d)", int(r.Kind))
}

// PresentResult is the per-frame outcome of Chain.Present.
type PresentResult int

const (
	Presented PresentResult = iota
	SuboptimalPresented
	PresentOutOfDate
)

func (r PresentResult) String() string {
	switch r {
	case Presented:
		return "Presented"
	case SuboptimalPresented:
		return "SuboptimalPresented"
	case PresentOutOfDate:
		return "OutOfDate"
	}
	return fmt.Sprintf("PresentResult(%d)", int(r))
}

// PresentableImage is one image of a chain generation.
type PresentableImage struct {
	Index  int
	Format Format
	Image  Image
	View   ImageView
}

// ChainConfig is what the driver asks of the surface.
type ChainConfig struct {
	PreferredFormat SurfaceFormat
	PresentMode     PresentMode
	Requested       Extent
}

// Chain is one generation of the presentable surface chain.
type Chain struct {
	presenter  Presenter
	swapchain  Swapchain
	images     []PresentableImage
	format     SurfaceFormat
	extent     Extent
	mode       PresentMode
	generation uint64
}

// BuildChain negotiates a swapchain configuration with the surface and
// creates the swapchain and one view per image.
func BuildChain(presenter Presenter, cfg ChainConfig, generation uint64) (*Chain, error) {
	caps, err := presenter.SurfaceCapabilities()
	if err != nil {
		return nil, &ChainBuildError{Stage: "capabilities", Err: err}
	}

	swapCfg, err := negotiate(caps, cfg)
	if err != nil {
		return nil, &ChainBuildError{Stage: "negotiate", Err: err}
	}

	swapchain, images, err := presenter.CreateSwapchain(swapCfg)
	if err != nil {
		return nil, &ChainBuildError{Stage: "swapchain", Err: err}
	}

	chain := &Chain{
		presenter:  presenter,
		swapchain:  swapchain,
		format:     swapCfg.Format,
		extent:     swapCfg.Extent,
		mode:       swapCfg.PresentMode,
		generation: generation,
	}

	if len(images) == 0 {
		chain.Destroy()
		return nil, &ChainBuildError{Stage: "swapchain", Err: ErrNoImages}
	}

	for i, image := range images {
		view, err := presenter.CreateImageView(image, swapCfg.Format.Format)
		if err != nil {
			chain.Destroy()
			return nil, &ChainBuildError{Stage: "image views", Err: errors.Wrapf(err, "image %d", i)}
		}
		chain.images = append(chain.images, PresentableImage{
			Index:  i,
			Format: swapCfg.Format.Format,
			Image:  image,
			View:   view,
		})
	}

	return chain, nil
}

func negotiate(caps SurfaceCapabilities, cfg ChainConfig) (SwapchainConfig, error) {
	if len(caps.Formats) == 0 {
		return SwapchainConfig{}, ErrNoSurfaceFormats
	}
	extent := chooseExtent(caps, cfg.Requested)
	if extent.IsZero() {
		return SwapchainConfig{}, errors.Wrapf(ErrZeroExtent, "negotiated %s", extent)
	}

	return SwapchainConfig{
		ImageCount:  chooseImageCount(caps),
		Format:      chooseFormat(caps.Formats, cfg.PreferredFormat),
		Extent:      extent,
		PresentMode: choosePresentMode(caps.PresentModes, cfg.PresentMode),
	}, nil
}

// ChooseSurfaceFormat returns the format BuildChain will pick for preferred
// on a surface reporting caps. Render passes must be created against it.
func ChooseSurfaceFormat(caps SurfaceCapabilities, preferred SurfaceFormat) (SurfaceFormat, error) {
	if len(caps.Formats) == 0 {
		return SurfaceFormat{}, ErrNoSurfaceFormats
	}
	return chooseFormat(caps.Formats, preferred), nil
}

func chooseFormat(available []SurfaceFormat, preferred SurfaceFormat) SurfaceFormat {
	if preferred.Format != 0 {
		for _, format := range available {
			if format == preferred {
				return format
			}
		}
	}

	return available[0]
}

func choosePresentMode(available []PresentMode, preferred PresentMode) PresentMode {
	for _, mode := range available {
		if mode == preferred {
			return mode
		}
	}

	return PresentModeFIFO
}

func chooseExtent(caps SurfaceCapabilities, requested Extent) Extent {
	if caps.CurrentExtent.Width >= 0 {
		return caps.CurrentExtent
	}

	width, height := requested.Width, requested.Height
	if width < caps.MinExtent.Width {
		width = caps.MinExtent.Width
	}
	if width > caps.MaxExtent.Width {
		width = caps.MaxExtent.Width
	}
	if height < caps.MinExtent.Height {
		height = caps.MinExtent.Height
	}
	if height > caps.MaxExtent.Height {
		height = caps.MaxExtent.Height
	}

	return Extent{Width: width, Height: height}
}

func chooseImageCount(caps SurfaceCapabilities) int {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && caps.MaxImageCount < count {
		count = caps.MaxImageCount
	}
	return count
}

// AcquireNext requests the next presentable image. signal is signaled on
// the GPU timeline once the image may be rendered to.
func (c *Chain) AcquireNext(signal Semaphore, timeout time.Duration) (AcquireResult, error) {
	index, status, err := c.presenter.AcquireNextImage(c.swapchain, signal, timeout)
	if err != nil {
		return AcquireResult{}, deviceError("acquire next image", err)
	}

	switch status {
	case StatusOutOfDate:
		return AcquireResult{Kind: AcquireOutOfDate}, nil
	case StatusSuccess, StatusSuboptimal:
		if index < 0 || index >= len(c.images) {
			return AcquireResult{}, deviceError("acquire next image",
				errors.Newf("image index %d outside chain of %d images", index, len(c.images)))
		}
		if status == StatusSuboptimal {
			return AcquireResult{Kind: SuboptimalAcquired, Index: index}, nil
		}
		return AcquireResult{Kind: Acquired, Index: index}, nil
	}

	return AcquireResult{}, deviceError("acquire next image", errors.Newf("unexpected status %s", status))
}

// Present queues image index for display once wait is signaled.
func (c *Chain) Present(index int, wait Semaphore) (PresentResult, error) {
	status, err := c.presenter.Present(c.swapchain, index, wait)
	if err != nil {
		return Presented, deviceError("present", err)
	}

	switch status {
	case StatusSuccess:
		return Presented, nil
	case StatusSuboptimal:
		return SuboptimalPresented, nil
	case StatusOutOfDate:
		return PresentOutOfDate, nil
	}

	return Presented, deviceError("present", errors.Newf("unexpected status %s", status))
}

// Images returns the images of this generation in chain order.
func (c *Chain) Images() []PresentableImage { return c.images }

func (c *Chain) Format() SurfaceFormat { return c.format }

func (c *Chain) Extent() Extent { return c.extent }

func (c *Chain) PresentMode() PresentMode { return c.mode }

func (c *Chain) Generation() uint64 { return c.generation }

// Destroy releases the views and the swapchain. The GPU must be idle.
func (c *Chain) Destroy() {
	for _, image := range c.images {
		c.presenter.DestroyImageView(image.View)
	}
	c.images = nil

	if c.swapchain != nil {
		c.presenter.DestroySwapchain(c.swapchain)
		c.swapchain = nil
	}
}
