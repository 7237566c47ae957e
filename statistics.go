// statistics.go collects draw counters readable from any goroutine.

package vidframe

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/atomic"
)

type Stats struct {
	Drawn             uint64
	SkippedNotReady   uint64
	SkippedNoFrame    uint64
	SkippedNoDrawable uint64
	Failed            uint64
	FramesImported    uint64
	ScalerRebuilds    uint64
	ScalerMemory      uint64
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"drawn:%d skipped(not_ready:%d no_frame:%d no_drawable:%d) failed:%d imported:%d scaler(rebuilds:%d memory:%s)",
		s.Drawn, s.SkippedNotReady, s.SkippedNoFrame, s.SkippedNoDrawable, s.Failed,
		s.FramesImported, s.ScalerRebuilds, humanize.IBytes(s.ScalerMemory),
	)
}

type commonsDrawStatistics struct {
	Drawn             atomic.Uint64
	SkippedNotReady   atomic.Uint64
	SkippedNoFrame    atomic.Uint64
	SkippedNoDrawable atomic.Uint64
	Failed            atomic.Uint64
	FramesImported    atomic.Uint64
	ScalerRebuilds    atomic.Uint64
	ScalerMemory      atomic.Uint64
}

func (stats *commonsDrawStatistics) Convert() Stats {
	return Stats{
		Drawn:             stats.Drawn.Load(),
		SkippedNotReady:   stats.SkippedNotReady.Load(),
		SkippedNoFrame:    stats.SkippedNoFrame.Load(),
		SkippedNoDrawable: stats.SkippedNoDrawable.Load(),
		Failed:            stats.Failed.Load(),
		FramesImported:    stats.FramesImported.Load(),
		ScalerRebuilds:    stats.ScalerRebuilds.Load(),
		ScalerMemory:      stats.ScalerMemory.Load(),
	}
}
