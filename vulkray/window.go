package main

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/vulkray/frame"
)

// Window is an SDL window acting as the frame driver's surface.
type Window struct {
	window  *sdl.Window
	resized bool
	closed  bool
}

var _ frame.Surface = (*Window)(nil)

func NewWindow(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "init sdl")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &Window{window: window}, nil
}

// PollEvents drains the SDL event queue without blocking.
func (w *Window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handle(event)
	}
}

func (w *Window) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.closed = true
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_CLOSE:
			w.closed = true
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_RESTORED:
			w.resized = true
		}
	}
}

func (w *Window) DrawableExtent() frame.Extent {
	if (w.window.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return frame.Extent{}
	}
	width, height := w.window.VulkanGetDrawableSize()
	return frame.Extent{Width: int(width), Height: int(height)}
}

func (w *Window) ShouldRebuild() bool {
	resized := w.resized
	w.resized = false
	return resized
}

// WaitEvents blocks for one event, then drains whatever else is queued.
func (w *Window) WaitEvents() {
	if event := sdl.WaitEvent(); event != nil {
		w.handle(event)
	}
	w.PollEvents()
}

func (w *Window) Closed() bool { return w.closed }

func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}

// SDLWindow is the underlying window, for surface creation.
func (w *Window) SDLWindow() *sdl.Window { return w.window }

// QuitOnDone posts an SDL quit event once ctx is done, so a WaitEvents call
// blocked behind a minimized window returns. Call stop before Destroy.
func (w *Window) QuitOnDone(ctx context.Context) (stop func()) {
	return notifyOnDone(ctx, func() {
		_, err := sdl.PushEvent(&sdl.QuitEvent{Type: sdl.QUIT})
		if err != nil {
			frame.Logger().Warn("post quit event", slog.String("error", err.Error()))
		}
	})
}

// notifyOnDone calls post once if ctx is done before stop. stop returns only
// after the watcher has exited.
func notifyOnDone(ctx context.Context, post func()) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			post()
		case <-done:
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}
