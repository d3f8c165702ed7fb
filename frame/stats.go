package frame

import (
	"time"

	"github.com/loov/hrtime"
)

// Stats counts what the driver has done since it was created.
type Stats struct {
	// Frames is the number of RenderFrame ticks that reached WaitingSlot.
	Frames uint64
	// Presented counts frames whose present succeeded (including
	// suboptimal presents).
	Presented uint64
	// Skipped counts ticks that submitted nothing because the chain was out
	// of date or could not be rebuilt yet.
	Skipped  uint64
	Rebuilds uint64

	LastFrame   time.Duration
	TotalFrame  time.Duration
	LastRebuild time.Duration
}

// AverageFrame is the mean CPU time of presented frames.
func (s Stats) AverageFrame() time.Duration {
	if s.Presented == 0 {
		return 0
	}
	return s.TotalFrame / time.Duration(s.Presented)
}

type stopwatch struct {
	start time.Duration
}

func startStopwatch() stopwatch {
	return stopwatch{start: hrtime.Now()}
}

func (w stopwatch) elapsed() time.Duration {
	return hrtime.Since(w.start)
}
