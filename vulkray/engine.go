package main

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"

	"github.com/vkngwrapper/vulkray/frame"
	"github.com/vkngwrapper/vulkray/vulkan"
)

// Engine owns the window, the Vulkan context and the frame driver.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	window   *Window
	vk       *vulkan.Context
	pipeline *vulkan.Pipeline
	geometry frame.Geometry
	driver   *frame.Driver

	started time.Duration
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Run loads assets, brings up the device and renders until the window
// closes or MaxFrames frames have been driven.
func (e *Engine) Run(ctx context.Context) error {
	assets, err := LoadAssets(ctx, e.cfg)
	if err != nil {
		return err
	}

	defer e.cleanup()

	err = e.initWindow()
	if err != nil {
		return err
	}
	defer e.window.QuitOnDone(ctx)()

	err = e.initVulkan(assets)
	if err != nil {
		return err
	}

	return e.mainLoop(ctx)
}

func (e *Engine) initWindow() error {
	window, err := NewWindow(e.cfg.Title, e.cfg.Width, e.cfg.Height)
	if err != nil {
		return err
	}
	e.window = window
	return nil
}

func (e *Engine) initVulkan(assets Assets) error {
	var err error
	e.vk, err = vulkan.NewContext(e.window.SDLWindow(), vulkan.ContextOptions{
		ApplicationName: e.cfg.Title,
		Validation:      e.cfg.Validation,
	})
	if err != nil {
		return err
	}

	presenter := e.vk.Presenter()

	// The render pass is built once, so the format is pinned here and handed
	// to the driver as its preference.
	caps, err := presenter.SurfaceCapabilities()
	if err != nil {
		return err
	}
	format, err := frame.ChooseSurfaceFormat(caps, vulkan.PreferredSurfaceFormat())
	if err != nil {
		return err
	}

	e.pipeline, err = vulkan.NewPipeline(e.vk, format, assets.Shaders)
	if err != nil {
		return err
	}

	e.geometry, err = vulkan.UploadGeometry(e.vk, assets.Mesh.Vertices, assets.Mesh.Indices)
	if err != nil {
		return err
	}

	frameCfg := e.cfg.FrameConfig()
	frameCfg.PreferredFormat = e.pipeline.Format()

	e.driver, err = frame.NewDriver(frame.Options{
		Device:    e.vk.Device(),
		Presenter: presenter,
		Targets:   vulkan.NewTargets(e.vk, e.pipeline),
		Encoder:   vulkan.NewEncoder(e.vk),
		Surface:   e.window,
		Pipeline: frame.PipelineState{
			Pipeline:   e.pipeline,
			ClearColor: frame.Color{0, 0, 0, 1},
			Camera:     DefaultCamera(),
		},
		Geometry: e.geometry,
		Config:   frameCfg,
	})
	return err
}

// DefaultCamera looks at the origin from (2, 2, 2) with Z up.
func DefaultCamera() frame.Camera {
	return frame.Camera{
		Eye:    mgl32.Vec3{2, 2, 2},
		Center: mgl32.Vec3{0, 0, 0},
		Up:     mgl32.Vec3{0, 0, 1},
		FovY:   mgl32.DegToRad(45),
		Near:   0.1,
		Far:    10,
	}
}

func (e *Engine) mainLoop(ctx context.Context) error {
	e.started = hrtime.Now()

	for !e.window.Closed() {
		if ctx.Err() != nil {
			return nil
		}

		e.window.PollEvents()
		if e.window.Closed() {
			break
		}

		err := e.driver.RenderFrame()
		if err != nil {
			return err
		}

		err = checkFormat(e.pipeline.Format(), e.driver.Format())
		if err != nil {
			return err
		}

		if e.cfg.MaxFrames > 0 && e.driver.Stats().Frames >= e.cfg.MaxFrames {
			break
		}
	}

	return nil
}

// checkFormat fails when a rebuild negotiated a format the render pass was
// not built for. The zero chain format means no generation exists.
func checkFormat(pipeline, chain frame.SurfaceFormat) error {
	if chain == (frame.SurfaceFormat{}) || chain == pipeline {
		return nil
	}
	return errors.Newf("swapchain format %d/%d no longer matches the render pass format %d/%d",
		chain.Format, chain.ColorSpace, pipeline.Format, pipeline.ColorSpace)
}

func (e *Engine) cleanup() {
	if e.driver != nil {
		err := e.driver.Shutdown()
		e.report()
		if err != nil {
			// The GPU may still reference every device object; leave them
			// to process exit.
			e.logger.Error("shutdown", slog.Any("error", err))
			e.window.Destroy()
			return
		}
	}

	if e.geometry.Vertices != nil {
		vulkan.DestroyGeometry(e.geometry)
	}

	if e.pipeline != nil {
		e.pipeline.Destroy()
	}

	if e.vk != nil {
		e.vk.Destroy()
	}

	if e.window != nil {
		e.window.Destroy()
	}
}

func (e *Engine) report() {
	stats := e.driver.Stats()
	elapsed := hrtime.Since(e.started)

	fps := 0.0
	if elapsed > 0 {
		fps = float64(stats.Presented) / elapsed.Seconds()
	}

	e.logger.Info("frame statistics",
		slog.Uint64("frames", stats.Frames),
		slog.Uint64("presented", stats.Presented),
		slog.Uint64("skipped", stats.Skipped),
		slog.Uint64("rebuilds", stats.Rebuilds),
		slog.Uint64("generation", e.driver.Generation()),
		slog.Duration("avg_frame", stats.AverageFrame()),
		slog.Duration("elapsed", elapsed),
		slog.Float64("fps", math.Round(fps*10)/10))
}
