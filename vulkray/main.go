// Command vulkray opens a window and draws a test cube through the frame
// driver, rebuilding the swapchain as the window changes.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/vulkray/frame"
)

func main() {
	// SDL and the Vulkan surface belong to the main thread.
	runtime.LockOSThread()

	cfg, err := ParseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%v\n", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	frame.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = NewEngine(cfg, logger).Run(ctx)
	if err != nil {
		stop()
		log.Fatalf("%+v\n", err)
	}
}
