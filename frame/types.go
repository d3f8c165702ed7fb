package frame

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// NoTimeout makes a wait block until the device signals.
const NoTimeout = time.Duration(math.MaxInt64)

// Resource is an opaque device object. Implementations type-assert the
// handles they created; vkngwrapper handle structs satisfy it directly.
type Resource interface {
	Initialized() bool
}

// Semaphore orders work on the GPU timeline only.
type Semaphore interface{ Resource }

// Fence is signaled by the device when a submission retires and can be
// waited on from the CPU.
type Fence interface{ Resource }

// CommandBuffer is a reusable recording surface.
type CommandBuffer interface{ Resource }

// Swapchain is a backend presentable image chain.
type Swapchain interface{ Resource }

// Image is a presentable image owned by a Swapchain.
type Image interface{ Resource }

// ImageView is a view derived from an Image.
type ImageView interface{ Resource }

// RenderTarget is what a render pass draws into (a framebuffer in Vulkan).
type RenderTarget interface{ Resource }

// Pipeline is an immutable graphics pipeline state object.
type Pipeline interface{ Resource }

// Buffer is a GPU buffer holding vertex or index data.
type Buffer interface{ Resource }

// Extent is a two dimensional size in pixels. A negative width in
// SurfaceCapabilities.CurrentExtent means the surface lets the swapchain
// pick its size.
type Extent struct {
	Width  int
	Height int
}

// IsZero reports whether either dimension is degenerate.
func (e Extent) IsZero() bool {
	return e.Width <= 0 || e.Height <= 0
}

// Aspect returns width/height, or 1 for degenerate extents.
func (e Extent) Aspect() float32 {
	if e.IsZero() {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Format is a backend pixel format value (VkFormat for Vulkan).
type Format int32

// ColorSpace is a backend color space value (VkColorSpaceKHR for Vulkan).
type ColorSpace int32

// SurfaceFormat pairs a pixel format with the color space it is presented in.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode selects how presented images are queued for display.
type PresentMode int

const (
	PresentModeFIFO PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
	PresentModeFIFORelaxed
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFIFO:
		return "fifo"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeImmediate:
		return "immediate"
	case PresentModeFIFORelaxed:
		return "fifo-relaxed"
	}
	return fmt.Sprintf("PresentMode(%d)", int(m))
}

// SurfaceCapabilities is what the display surface currently supports.
type SurfaceCapabilities struct {
	MinImageCount int
	// MaxImageCount of zero means no upper limit.
	MaxImageCount int
	CurrentExtent Extent
	MinExtent     Extent
	MaxExtent     Extent
	Formats       []SurfaceFormat
	PresentModes  []PresentMode
}

// SwapchainConfig is the negotiated configuration handed to the backend.
type SwapchainConfig struct {
	ImageCount  int
	Format      SurfaceFormat
	Extent      Extent
	PresentMode PresentMode
}

// Status is the raw outcome of a backend acquire or present call.
type Status int

const (
	StatusSuccess Status = iota
	StatusSuboptimal
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Color is a linear RGBA clear color.
type Color [4]float32

// Camera places the fixed workload in view. The projection aspect ratio
// follows the chain extent.
type Camera struct {
	Eye    mgl32.Vec3
	Center mgl32.Vec3
	Up     mgl32.Vec3
	// FovY is the vertical field of view in radians.
	FovY float32
	Near float32
	Far  float32
}

// PipelineState is the immutable draw state supplied by the pipeline
// provider. It is valid for the lifetime of the driver.
type PipelineState struct {
	Pipeline   Pipeline
	ClearColor Color
	Camera     Camera
}

// Geometry is the fixed indexed mesh drawn every frame.
type Geometry struct {
	Vertices   Buffer
	Indices    Buffer
	IndexCount int
}
