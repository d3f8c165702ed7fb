package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/vulkray/frame"
)

// Encoder implements frame.Encoder with core 1.0 commands.
type Encoder struct {
	driver core1_0.DeviceDriver
}

var _ frame.Encoder = (*Encoder)(nil)

func NewEncoder(ctx *Context) *Encoder {
	return &Encoder{driver: ctx.deviceDriver}
}

func (e *Encoder) Begin(cb frame.CommandBuffer) error {
	_, err := e.driver.BeginCommandBuffer(commandBufferOf(cb), core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return err
}

func (e *Encoder) BeginPass(cb frame.CommandBuffer, rt frame.RenderTarget, extent frame.Extent, clear frame.Color) error {
	target, ok := rt.(*Target)
	if !ok {
		return errors.Newf("render target %T is not a vulkan framebuffer", rt)
	}

	return e.driver.CmdBeginRenderPass(commandBufferOf(cb), core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  target.renderPass,
			Framebuffer: target.framebuffer,
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: toExtent(extent),
			},
			ClearValues: []core1_0.ClearValue{
				clearValue(clear),
			},
		})
}

func (e *Encoder) SetViewport(cb frame.CommandBuffer, extent frame.Extent) {
	buffer := commandBufferOf(cb)
	e.driver.CmdSetViewport(buffer, core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	e.driver.CmdSetScissor(buffer, core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: toExtent(extent),
	})
}

func (e *Encoder) BindPipeline(cb frame.CommandBuffer, pipeline frame.Pipeline) {
	e.driver.CmdBindPipeline(commandBufferOf(cb), core1_0.PipelineBindPointGraphics, pipeline.(*Pipeline).pipeline)
}

func (e *Encoder) PushConstants(cb frame.CommandBuffer, pipeline frame.Pipeline, data []byte) {
	e.driver.CmdPushConstants(commandBufferOf(cb), pipeline.(*Pipeline).layout, core1_0.StageVertex, 0, data)
}

func (e *Encoder) BindGeometry(cb frame.CommandBuffer, vertices, indices frame.Buffer) {
	buffer := commandBufferOf(cb)
	e.driver.CmdBindVertexBuffers(buffer, 0, []core1_0.Buffer{vertices.(*Buffer).buffer}, []int{0})
	e.driver.CmdBindIndexBuffer(buffer, indices.(*Buffer).buffer, 0, core1_0.IndexTypeUInt32)
}

func (e *Encoder) DrawIndexed(cb frame.CommandBuffer, indexCount, instanceCount int) {
	e.driver.CmdDrawIndexed(commandBufferOf(cb), indexCount, instanceCount, 0, 0, 0)
}

func (e *Encoder) EndPass(cb frame.CommandBuffer) {
	e.driver.CmdEndRenderPass(commandBufferOf(cb))
}

func (e *Encoder) End(cb frame.CommandBuffer) error {
	_, err := e.driver.EndCommandBuffer(commandBufferOf(cb))
	return err
}
