package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/vulkray/frame"
)

// Presenter implements frame.Presenter with VK_KHR_swapchain.
type Presenter struct {
	driver           core1_0.DeviceDriver
	surfaceExtension khr_surface.ExtensionDriver
	extension        khr_swapchain.ExtensionDriver

	surface        khr_surface.Surface
	physicalDevice core1_0.PhysicalDevice
	queue          core1_0.Queue
	families       QueueFamilyIndices
}

var _ frame.Presenter = (*Presenter)(nil)

func (p *Presenter) SurfaceCapabilities() (frame.SurfaceCapabilities, error) {
	caps, _, err := p.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(p.surface, p.physicalDevice)
	if err != nil {
		return frame.SurfaceCapabilities{}, errors.Wrap(err, "query surface capabilities")
	}

	formats, _, err := p.surfaceExtension.GetPhysicalDeviceSurfaceFormats(p.surface, p.physicalDevice)
	if err != nil {
		return frame.SurfaceCapabilities{}, errors.Wrap(err, "query surface formats")
	}

	modes, _, err := p.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(p.surface, p.physicalDevice)
	if err != nil {
		return frame.SurfaceCapabilities{}, errors.Wrap(err, "query present modes")
	}

	return fromCapabilities(caps, formats, modes), nil
}

func (p *Presenter) CreateSwapchain(cfg frame.SwapchainConfig) (frame.Swapchain, []frame.Image, error) {
	caps, _, err := p.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(p.surface, p.physicalDevice)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query surface capabilities")
	}

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	if *p.families.GraphicsFamily != *p.families.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *p.families.GraphicsFamily, *p.families.PresentFamily)
	}

	swapchain, _, err := p.extension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: p.surface,

		MinImageCount:    cfg.ImageCount,
		ImageFormat:      core1_0.Format(cfg.Format.Format),
		ImageColorSpace:  khr_surface.ColorSpace(cfg.Format.ColorSpace),
		ImageExtent:      toExtent(cfg.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   caps.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    toPresentMode(cfg.PresentMode),
		Clipped:        true,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "create swapchain")
	}

	images, _, err := p.extension.GetSwapchainImages(swapchain)
	if err != nil {
		p.extension.DestroySwapchain(swapchain, nil)
		return nil, nil, errors.Wrap(err, "get swapchain images")
	}

	out := make([]frame.Image, len(images))
	for i := range images {
		out[i] = &images[i]
	}

	return &swapchain, out, nil
}

func (p *Presenter) DestroySwapchain(sc frame.Swapchain) {
	p.extension.DestroySwapchain(swapchainOf(sc), nil)
}

func (p *Presenter) CreateImageView(image frame.Image, format frame.Format) (frame.ImageView, error) {
	view, _, err := p.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    *image.(*core1_0.Image),
		ViewType: core1_0.ImageViewType2D,
		Format:   core1_0.Format(format),
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (p *Presenter) DestroyImageView(view frame.ImageView) {
	p.driver.DestroyImageView(imageViewOf(view), nil)
}

func (p *Presenter) AcquireNextImage(sc frame.Swapchain, signal frame.Semaphore, timeout time.Duration) (int, frame.Status, error) {
	semaphore := semaphoreOf(signal)
	imageIndex, res, err := p.extension.AcquireNextImage(swapchainOf(sc), timeout, &semaphore, nil)
	status, err := swapchainStatus(res, err)
	return imageIndex, status, err
}

func (p *Presenter) Present(sc frame.Swapchain, index int, wait frame.Semaphore) (frame.Status, error) {
	res, err := p.extension.QueuePresent(p.queue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{semaphoreOf(wait)},
		Swapchains:     []khr_swapchain.Swapchain{swapchainOf(sc)},
		ImageIndices:   []int{index},
	})
	return swapchainStatus(res, err)
}

func swapchainOf(sc frame.Swapchain) khr_swapchain.Swapchain {
	return *sc.(*khr_swapchain.Swapchain)
}

func imageViewOf(view frame.ImageView) core1_0.ImageView {
	return *view.(*core1_0.ImageView)
}
