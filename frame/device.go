package frame

import "time"

// Submission describes one queue submission of a recorded frame.
type Submission struct {
	CommandBuffer CommandBuffer
	// Wait is waited on before color attachment output begins.
	Wait Semaphore
	// Signal is signaled when the command buffer completes.
	Signal Semaphore
	// Fence is signaled once the submission retires.
	Fence Fence
}

// Device is the graphics queue and primitive factory the pipeline runs on.
type Device interface {
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(Semaphore)
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(Fence)

	// WaitFence blocks until the fence is signaled. It returns an error
	// wrapping ErrTimeout if the timeout elapses first.
	WaitFence(fence Fence, timeout time.Duration) error
	ResetFence(Fence) error

	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers([]CommandBuffer)
	ResetCommandBuffer(CommandBuffer) error

	Submit(Submission) error
	WaitIdle() error
}

// Presenter creates and drives swapchains on the display surface.
type Presenter interface {
	SurfaceCapabilities() (SurfaceCapabilities, error)

	CreateSwapchain(cfg SwapchainConfig) (Swapchain, []Image, error)
	DestroySwapchain(Swapchain)

	CreateImageView(image Image, format Format) (ImageView, error)
	DestroyImageView(ImageView)

	// AcquireNextImage maps out-of-date and suboptimal results to a Status
	// with a nil error.
	AcquireNextImage(swapchain Swapchain, signal Semaphore, timeout time.Duration) (int, Status, error)
	Present(swapchain Swapchain, index int, wait Semaphore) (Status, error)
}

// TargetFactory builds render targets over presentable image views.
type TargetFactory interface {
	CreateTarget(view ImageView, extent Extent) (RenderTarget, error)
	DestroyTarget(RenderTarget)
}

// Encoder is the command vocabulary the Recorder emits.
type Encoder interface {
	Begin(cb CommandBuffer) error
	BeginPass(cb CommandBuffer, target RenderTarget, extent Extent, clear Color) error
	SetViewport(cb CommandBuffer, extent Extent)
	BindPipeline(cb CommandBuffer, pipeline Pipeline)
	PushConstants(cb CommandBuffer, pipeline Pipeline, data []byte)
	BindGeometry(cb CommandBuffer, vertices, indices Buffer)
	DrawIndexed(cb CommandBuffer, indexCount, instanceCount int)
	EndPass(cb CommandBuffer)
	End(cb CommandBuffer) error
}

// Surface is the window side of presentation.
type Surface interface {
	// DrawableExtent is the current drawable size in pixels; zero while
	// minimized.
	DrawableExtent() Extent
	// ShouldRebuild reports and clears a pending resize notification.
	ShouldRebuild() bool
	// WaitEvents blocks until the window system delivers an event.
	WaitEvents()
	// Closed reports whether the window was asked to close.
	Closed() bool
}
