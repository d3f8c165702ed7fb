package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/vulkray/frame"
)

// PreferredSurfaceFormat is 8-bit BGRA sRGB, the format most presentation
// engines offer first.
func PreferredSurfaceFormat() frame.SurfaceFormat {
	return frame.SurfaceFormat{
		Format:     frame.Format(core1_0.FormatB8G8R8A8SRGB),
		ColorSpace: frame.ColorSpace(khr_surface.ColorSpaceSRGBNonlinear),
	}
}

// swapchainStatus classifies the result of an acquire or present call.
// Out-of-date and suboptimal are outcomes, not errors.
func swapchainStatus(res common.VkResult, err error) (frame.Status, error) {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return frame.StatusOutOfDate, nil
	case khr_swapchain.VKSuboptimal:
		return frame.StatusSuboptimal, nil
	case core1_0.VKTimeout:
		return frame.StatusSuccess, errors.Wrapf(frame.ErrTimeout, "%v", res)
	}
	if err != nil {
		return frame.StatusSuccess, err
	}
	return frame.StatusSuccess, nil
}

func toPresentMode(mode frame.PresentMode) khr_surface.PresentMode {
	switch mode {
	case frame.PresentModeMailbox:
		return khr_surface.PresentModeMailbox
	case frame.PresentModeImmediate:
		return khr_surface.PresentModeImmediate
	case frame.PresentModeFIFORelaxed:
		return khr_surface.PresentModeFIFORelaxed
	}
	return khr_surface.PresentModeFIFO
}

// fromPresentModes drops modes the frame package has no name for.
func fromPresentModes(modes []khr_surface.PresentMode) []frame.PresentMode {
	var out []frame.PresentMode
	for _, mode := range modes {
		switch mode {
		case khr_surface.PresentModeFIFO:
			out = append(out, frame.PresentModeFIFO)
		case khr_surface.PresentModeMailbox:
			out = append(out, frame.PresentModeMailbox)
		case khr_surface.PresentModeImmediate:
			out = append(out, frame.PresentModeImmediate)
		case khr_surface.PresentModeFIFORelaxed:
			out = append(out, frame.PresentModeFIFORelaxed)
		}
	}
	return out
}

func fromSurfaceFormats(formats []khr_surface.SurfaceFormat) []frame.SurfaceFormat {
	out := make([]frame.SurfaceFormat, 0, len(formats))
	for _, format := range formats {
		out = append(out, frame.SurfaceFormat{
			Format:     frame.Format(format.Format),
			ColorSpace: frame.ColorSpace(format.ColorSpace),
		})
	}
	return out
}

func toExtent(e frame.Extent) core1_0.Extent2D {
	return core1_0.Extent2D{Width: e.Width, Height: e.Height}
}

func fromExtent(e core1_0.Extent2D) frame.Extent {
	return frame.Extent{Width: e.Width, Height: e.Height}
}

func fromCapabilities(caps *khr_surface.SurfaceCapabilities, formats []khr_surface.SurfaceFormat, modes []khr_surface.PresentMode) frame.SurfaceCapabilities {
	return frame.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		CurrentExtent: fromExtent(caps.CurrentExtent),
		MinExtent:     fromExtent(caps.MinImageExtent),
		MaxExtent:     fromExtent(caps.MaxImageExtent),
		Formats:       fromSurfaceFormats(formats),
		PresentModes:  fromPresentModes(modes),
	}
}

func clearValue(c frame.Color) core1_0.ClearValueFloat {
	return core1_0.ClearValueFloat{c[0], c[1], c[2], c[3]}
}
