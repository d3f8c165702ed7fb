package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/vulkray/frame"
)

// Device implements frame.Device on the graphics queue. Handles are passed
// through the frame package as pointers to the vkngwrapper values.
type Device struct {
	driver core1_0.DeviceDriver
	pool   core1_0.CommandPool
	queue  core1_0.Queue
}

var _ frame.Device = (*Device)(nil)

func (d *Device) CreateSemaphore() (frame.Semaphore, error) {
	semaphore, _, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, errors.Wrap(err, "create semaphore")
	}
	return &semaphore, nil
}

func (d *Device) DestroySemaphore(s frame.Semaphore) {
	d.driver.DestroySemaphore(semaphoreOf(s), nil)
}

func (d *Device) CreateFence(signaled bool) (frame.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	fence, _, err := d.driver.CreateFence(nil, core1_0.FenceCreateInfo{Flags: flags})
	if err != nil {
		return nil, errors.Wrap(err, "create fence")
	}
	return &fence, nil
}

func (d *Device) DestroyFence(f frame.Fence) {
	d.driver.DestroyFence(fenceOf(f), nil)
}

func (d *Device) WaitFence(f frame.Fence, timeout time.Duration) error {
	res, err := d.driver.WaitForFences(true, timeout, fenceOf(f))
	if res == core1_0.VKTimeout {
		return errors.Wrapf(frame.ErrTimeout, "fence wait after %s", timeout)
	}
	return err
}

func (d *Device) ResetFence(f frame.Fence) error {
	_, err := d.driver.ResetFences(fenceOf(f))
	return err
}

func (d *Device) AllocateCommandBuffers(count int) ([]frame.CommandBuffer, error) {
	buffers, _, err := d.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, err
	}

	out := make([]frame.CommandBuffer, len(buffers))
	for i := range buffers {
		out[i] = &buffers[i]
	}
	return out, nil
}

func (d *Device) FreeCommandBuffers(buffers []frame.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}

	handles := make([]core1_0.CommandBuffer, len(buffers))
	for i, cb := range buffers {
		handles[i] = commandBufferOf(cb)
	}
	d.driver.FreeCommandBuffers(handles...)
}

func (d *Device) ResetCommandBuffer(cb frame.CommandBuffer) error {
	_, err := d.driver.ResetCommandBuffer(commandBufferOf(cb), 0)
	return err
}

func (d *Device) Submit(s frame.Submission) error {
	fence := fenceOf(s.Fence)
	_, err := d.driver.QueueSubmit(d.queue, &fence,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{semaphoreOf(s.Wait)},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{commandBufferOf(s.CommandBuffer)},
			SignalSemaphores: []core1_0.Semaphore{semaphoreOf(s.Signal)},
		},
	)
	return err
}

func (d *Device) WaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}

func semaphoreOf(s frame.Semaphore) core1_0.Semaphore {
	return *s.(*core1_0.Semaphore)
}

func fenceOf(f frame.Fence) core1_0.Fence {
	return *f.(*core1_0.Fence)
}

func commandBufferOf(cb frame.CommandBuffer) core1_0.CommandBuffer {
	return *cb.(*core1_0.CommandBuffer)
}
