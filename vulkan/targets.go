package vulkan

import (
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/vulkray/frame"
)

// Target is a framebuffer over one swapchain image view.
type Target struct {
	framebuffer core1_0.Framebuffer
	renderPass  core1_0.RenderPass
}

func (t *Target) Initialized() bool { return t != nil && t.framebuffer.Initialized() }

// Targets implements frame.TargetFactory for one pipeline's render pass.
type Targets struct {
	driver   core1_0.DeviceDriver
	pipeline *Pipeline
}

var _ frame.TargetFactory = (*Targets)(nil)

func NewTargets(ctx *Context, pipeline *Pipeline) *Targets {
	return &Targets{driver: ctx.deviceDriver, pipeline: pipeline}
}

func (t *Targets) CreateTarget(view frame.ImageView, extent frame.Extent) (frame.RenderTarget, error) {
	framebuffer, _, err := t.driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass: t.pipeline.renderPass,
		Layers:     1,
		Attachments: []core1_0.ImageView{
			imageViewOf(view),
		},
		Width:  extent.Width,
		Height: extent.Height,
	})
	if err != nil {
		return nil, err
	}

	return &Target{framebuffer: framebuffer, renderPass: t.pipeline.renderPass}, nil
}

func (t *Targets) DestroyTarget(rt frame.RenderTarget) {
	t.driver.DestroyFramebuffer(rt.(*Target).framebuffer, nil)
}
