// Package frame drives the per-frame acquire, record, submit and present
// sequence of a swapchain-based renderer.
//
// A Driver owns a fixed number of frame slots. Each slot has its own
// synchronization triple (image acquired semaphore, render finished
// semaphore, slot free fence) and its own command buffer, so up to
// MaxFramesInFlight frames can execute on the GPU while the CPU records the
// next one. The presentable surface chain and its render targets are
// generation scoped: when the surface becomes out of date they are torn down
// and rebuilt while the slots stay untouched.
//
// The package never talks to a graphics API directly. It consumes the
// Device, Presenter, TargetFactory, Encoder and Surface interfaces; the
// vulkan package implements them on top of vkngwrapper.
//
// Typical use:
//
//	driver, err := frame.NewDriver(frame.Options{...})
//	if err != nil {
//		return err
//	}
//	defer driver.Shutdown()
//
//	for !window.Closed() {
//		window.PollEvents()
//		if err := driver.RenderFrame(); err != nil {
//			return err
//		}
//	}
package frame
