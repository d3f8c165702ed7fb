package main

import (
	"flag"
	"io"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/vulkray/frame"
)

// Config is the engine configuration assembled from the command line.
type Config struct {
	Title  string
	Width  int
	Height int

	FramesInFlight int
	VSync          bool
	Validation     bool
	FenceTimeout   time.Duration
	Suboptimal     frame.SuboptimalPolicy

	VertexShader   string
	FragmentShader string
	Mesh           string
	Material       string

	LogLevel  slog.Level
	MaxFrames uint64
}

// ParseConfig parses args (without the program name). Usage goes to output.
func ParseConfig(args []string, output io.Writer) (Config, error) {
	cfg := Config{}
	var suboptimal, logLevel string

	fs := flag.NewFlagSet("vulkray", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Title, "title", "Vulkray Test", "window title")
	fs.IntVar(&cfg.Width, "width", 800, "initial window width")
	fs.IntVar(&cfg.Height, "height", 600, "initial window height")
	fs.IntVar(&cfg.FramesInFlight, "frames", 2, "frames in flight")
	fs.BoolVar(&cfg.VSync, "vsync", true, "present with FIFO; otherwise prefer mailbox")
	fs.BoolVar(&cfg.Validation, "validation", false, "enable the Khronos validation layer")
	fs.DurationVar(&cfg.FenceTimeout, "fence-timeout", 0, "bound on each frame slot wait (0 waits forever)")
	fs.StringVar(&suboptimal, "suboptimal", "immediate", "rebuild policy for suboptimal swapchains: immediate or deferred")
	fs.StringVar(&cfg.VertexShader, "vert", "", "vertex shader SPIR-V file (required)")
	fs.StringVar(&cfg.FragmentShader, "frag", "", "fragment shader SPIR-V file (required)")
	fs.StringVar(&cfg.Mesh, "mesh", "", "OBJ mesh to draw instead of the test cube")
	fs.StringVar(&cfg.Material, "mtl", "", "MTL material library for -mesh")
	fs.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	fs.Uint64Var(&cfg.MaxFrames, "max-frames", 0, "exit after this many frames (0 runs until the window closes)")

	err := fs.Parse(args)
	if err != nil {
		return Config{}, err
	}

	cfg.Suboptimal, err = frame.ParseSuboptimalPolicy(suboptimal)
	if err != nil {
		return Config{}, err
	}

	err = cfg.LogLevel.UnmarshalText([]byte(logLevel))
	if err != nil {
		return Config{}, errors.Wrap(err, "log-level")
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.New("both -vert and -frag are required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Material != "" && c.Mesh == "" {
		return errors.New("-mtl needs -mesh")
	}
	if c.FenceTimeout < 0 {
		return errors.Newf("fence timeout must not be negative, got %s", c.FenceTimeout)
	}
	return c.FrameConfig().Validate()
}

// FrameConfig derives the frame driver configuration.
func (c Config) FrameConfig() frame.Config {
	cfg := frame.DefaultConfig()
	cfg.MaxFramesInFlight = c.FramesInFlight
	cfg.Suboptimal = c.Suboptimal
	if !c.VSync {
		cfg.PresentMode = frame.PresentModeMailbox
	}
	if c.FenceTimeout > 0 {
		cfg.FenceTimeout = c.FenceTimeout
	}
	return cfg
}
