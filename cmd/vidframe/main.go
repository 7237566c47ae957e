// main.go provides a headless player that renders a video onto the CPU device.

package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/vidframe"
	"github.com/xaionaro-go/vidframe/avconv"
	"github.com/xaionaro-go/vidframe/decoder/libav"
	"github.com/xaionaro-go/vidframe/decoder/testpattern"
	"github.com/xaionaro-go/vidframe/framesource"
	"github.com/xaionaro-go/vidframe/gpu/software"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <URL>\n       %s --test-pattern=1280x720 [flags]\n", os.Args[0], os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	viewport := types.Resolution{Width: 1920, Height: 1080}
	pflag.Var(&viewport, "viewport", "the size of the presentation surface")
	var scalingMode types.ScalingMode
	scalingModeSet := false
	pflag.Var(&scalingMode, "scaling-mode", "off, fit or fill; overrides the config file")
	var testPattern types.Resolution
	pflag.Var(&testPattern, "test-pattern", "render a generated test pattern of this size instead of a URL")
	configPath := pflag.String("config", "", "path to a YAML config file")
	fps := pflag.Float64("fps", 60, "the display refresh rate to draw at")
	snapshotDir := pflag.String("snapshot-dir", "", "a directory to save presented frames to as PNG")
	snapshotEvery := pflag.Uint64("snapshot-every", 60, "save every N-th presented frame")
	durationLimit := pflag.Duration("duration-limit", 0, "stop after this long (0 means until the end of the video)")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Parse()
	pflag.Visit(func(f *pflag.Flag) {
		if f.Name == "scaling-mode" {
			scalingModeSet = true
		}
	})
	if testPattern.IsZero() == (len(pflag.Args()) == 0) || len(pflag.Args()) > 1 {
		pflag.Usage()
		os.Exit(1)
	}
	if !(*fps > 0) {
		fmt.Fprintf(os.Stderr, "invalid --fps: %v\n", *fps)
		os.Exit(1)
	}

	runtime.DefaultCallerPCFilter = observability.CallerPCFilter(runtime.DefaultCallerPCFilter)
	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.SetDefault(func() logger.Logger {
		return l
	})
	defer belt.Flush(ctx)
	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()

	astiav.SetLogLevel(avconv.LogLevelToAstiav(l.Level()))
	astiav.SetLogCallback(func(c astiav.Classer, level astiav.LogLevel, fmt, msg string) {
		var cs string
		if c != nil {
			if cl := c.Class(); cl != nil {
				cs = " - class: " + cl.String()
			}
		}
		l.Logf(
			avconv.LogLevelFromAstiav(level),
			"%s%s",
			strings.TrimSpace(msg), cs,
		)
	})

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	cfg := vidframe.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = vidframe.LoadConfig(*configPath)
		if err != nil {
			l.Fatal(err)
		}
	}
	if scalingModeSet {
		cfg.ScalingMode = scalingMode
	}

	var decoder framesource.Decoder
	if !testPattern.IsZero() {
		patternCfg := testpattern.DefaultConfig()
		patternCfg.Resolution = testPattern
		if *durationLimit > 0 {
			patternCfg.Duration = *durationLimit
		}
		d, err := testpattern.New(patternCfg)
		if err != nil {
			l.Fatal(err)
		}
		decoder = d
	} else {
		l.Debugf("opening '%s' as the input...", pflag.Arg(0))
		d, err := libav.New(ctx, pflag.Arg(0), libav.Config{})
		if err != nil {
			l.Fatal(err)
		}
		decoder = d
	}
	defer decoder.Close(ctx)

	dev := software.NewDevice()
	surface := software.NewSurface(viewport)
	renderer, err := vidframe.NewRenderer(ctx, dev, surface, viewport, decoder, cfg)
	if err != nil {
		l.Fatal(err)
	}
	defer renderer.Close(ctx)
	if err := renderer.WaitReady(ctx); err != nil {
		l.Fatal(err)
	}
	l.Infof("%s", renderer.Info())

	if *snapshotDir != "" {
		if err := os.MkdirAll(*snapshotDir, 0o755); err != nil {
			l.Fatal(err)
		}
	}

	var deadline <-chan time.Time
	if *durationLimit > 0 {
		deadline = time.After(*durationLimit)
	}
	vsync := time.NewTicker(time.Duration(float64(time.Second) / *fps))
	defer vsync.Stop()
	statsTicker := time.NewTicker(time.Second)
	defer statsTicker.Stop()
	duration := decoder.Duration()
	lastSaved := uint64(0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			fmt.Printf("%s\n", renderer.Stats())
			return
		case <-statsTicker.C:
			fmt.Printf("%v: %s\n", renderer.Position(ctx), renderer.Stats())
		case <-vsync.C:
			if err := renderer.Draw(ctx); err != nil {
				l.Errorf("unable to draw: %v", err)
			}
			presented := surface.PresentedCount()
			if *snapshotDir != "" && *snapshotEvery > 0 && presented/(*snapshotEvery) > lastSaved/(*snapshotEvery) {
				lastSaved = presented
				path := filepath.Join(*snapshotDir, fmt.Sprintf("frame-%06d.png", presented))
				if err := imgio.Save(path, surface.LastPresented().Image(), imgio.PNGEncoder()); err != nil {
					l.Errorf("unable to save '%s': %v", path, err)
				}
			}
			if duration.IsSet() && renderer.Position(ctx) >= duration.Get() {
				fmt.Printf("%s\n", renderer.Stats())
				return
			}
		}
	}
}
