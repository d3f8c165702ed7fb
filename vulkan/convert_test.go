package vulkan

import (
	"log/slog"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/vulkray/frame"
)

func TestSwapchainStatus(t *testing.T) {
	deviceLost := errors.New("device lost")

	tests := []struct {
		name       string
		res        common.VkResult
		err        error
		want       frame.Status
		wantErr    error
		wantAnyErr bool
	}{
		{name: "success", res: core1_0.VKSuccess, want: frame.StatusSuccess},
		{name: "suboptimal", res: khr_swapchain.VKSuboptimal, want: frame.StatusSuboptimal},
		{name: "out of date", res: khr_swapchain.VKErrorOutOfDate, err: errors.New("out of date"), want: frame.StatusOutOfDate},
		{name: "timeout", res: core1_0.VKTimeout, wantErr: frame.ErrTimeout, wantAnyErr: true},
		{name: "device error", res: core1_0.VKErrorDeviceLost, err: deviceLost, wantErr: deviceLost, wantAnyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := swapchainStatus(tt.res, tt.err)
			if (err != nil) != tt.wantAnyErr {
				t.Fatalf("swapchainStatus() error = %v, wantErr %v", err, tt.wantAnyErr)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("swapchainStatus() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("swapchainStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPresentModeRoundTrip(t *testing.T) {
	modes := []khr_surface.PresentMode{
		khr_surface.PresentModeFIFO,
		khr_surface.PresentModeMailbox,
		khr_surface.PresentModeImmediate,
		khr_surface.PresentModeFIFORelaxed,
	}

	converted := fromPresentModes(modes)
	if len(converted) != len(modes) {
		t.Fatalf("fromPresentModes() = %v, want %d modes", converted, len(modes))
	}
	for i, mode := range converted {
		if back := toPresentMode(mode); back != modes[i] {
			t.Errorf("toPresentMode(%v) = %v, want %v", mode, back, modes[i])
		}
	}
}

func TestFromCapabilities(t *testing.T) {
	caps := &khr_surface.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  0,
		CurrentExtent:  core1_0.Extent2D{Width: -1, Height: -1},
		MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: core1_0.Extent2D{Width: 16384, Height: 16384},
	}
	formats := []khr_surface.SurfaceFormat{
		{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
	}

	got := fromCapabilities(caps, formats, []khr_surface.PresentMode{khr_surface.PresentModeFIFO})

	if got.MinImageCount != 2 || got.MaxImageCount != 0 {
		t.Errorf("image counts = %d/%d, want 2/0", got.MinImageCount, got.MaxImageCount)
	}
	if got.CurrentExtent != (frame.Extent{Width: -1, Height: -1}) {
		t.Errorf("CurrentExtent = %v, want undefined", got.CurrentExtent)
	}
	if got.MaxExtent != (frame.Extent{Width: 16384, Height: 16384}) {
		t.Errorf("MaxExtent = %v", got.MaxExtent)
	}
	if len(got.Formats) != 1 || got.Formats[0] != PreferredSurfaceFormat() {
		t.Errorf("Formats = %v, want [%v]", got.Formats, PreferredSurfaceFormat())
	}
	if len(got.PresentModes) != 1 || got.PresentModes[0] != frame.PresentModeFIFO {
		t.Errorf("PresentModes = %v, want [FIFO]", got.PresentModes)
	}
}

func TestSeverityLevel(t *testing.T) {
	tests := []struct {
		severity ext_debug_utils.DebugUtilsMessageSeverityFlags
		want     slog.Level
	}{
		{ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning, slog.LevelError},
		{ext_debug_utils.SeverityWarning, slog.LevelWarn},
		{ext_debug_utils.SeverityInfo, slog.LevelInfo},
		{ext_debug_utils.SeverityVerbose, slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := severityLevel(tt.severity); got != tt.want {
			t.Errorf("severityLevel(%v) = %v, want %v", tt.severity, got, tt.want)
		}
	}
}

func TestVertexLayout(t *testing.T) {
	if size := unsafe.Sizeof(Vertex{}); size != 24 {
		t.Fatalf("Vertex size = %d, want 24", size)
	}

	bindings := getVertexBindingDescription()
	if len(bindings) != 1 || bindings[0].Stride != 24 {
		t.Errorf("bindings = %+v, want one binding with stride 24", bindings)
	}

	attributes := getVertexAttributeDescriptions()
	if len(attributes) != 2 || attributes[0].Offset != 0 || attributes[1].Offset != 12 {
		t.Errorf("attributes = %+v, want position at 0 and color at 12", attributes)
	}
}

func TestBytesToBytecode(t *testing.T) {
	code := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	if len(code) != 2 || code[0] != 0x07230203 || code[1] != 0x00010000 {
		t.Errorf("bytesToBytecode() = %#x, want [0x7230203 0x10000]", code)
	}
}
