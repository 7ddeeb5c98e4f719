// Command convolute applies a monophonic impulse response to a monophonic
// audio file via partitioned overlap-add frequency-domain convolution,
// streaming the result to disk.
//
// Usage:
//
//	convolute <input-file> <ir-file> <output-file> <amp>
//
// Options:
//
//	-log          Write structured logs to this file instead of stderr
//	-verbose      Log geometry and pass details at Info level
//	-chunk-max    Override the IR chunk size (samples) per pass
//	-no-tui       Disable the progress dashboard
//	-monitor-addr Serve a JSON/WebSocket progress monitor at this address (e.g. :8090)
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"convolute/internal/cxerr"
	"convolute/internal/engine"
	"convolute/internal/monitor"
)

var (
	logPath     = flag.String("log", "", "write structured logs to this file")
	verbose     = flag.Bool("verbose", false, "log geometry and pass details")
	chunkMax    = flag.Int("chunk-max", 0, "override the IR chunk size in samples (0 = default)")
	noTUI       = flag.Bool("no-tui", false, "disable the progress dashboard")
	monitorAddr = flag.String("monitor-addr", "", "serve a progress monitor at this address")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <input-file> <ir-file> <output-file> <amp>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Convolves input-file with ir-file scaled by amp, writing a mono 24-bit WAV to output-file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 4 {
		flag.Usage()
		fatal(cxerr.New(cxerr.BadArgs, "expected exactly 4 positional arguments"))
	}

	inputPath := flag.Arg(0)
	irPath := flag.Arg(1)
	outputPath := flag.Arg(2)

	amp, err := strconv.ParseFloat(flag.Arg(3), 64)
	if err != nil {
		fatal(cxerr.Wrap(cxerr.BadArgs, "amp must be a float", err))
	}

	logger, closeLog := setupLogger(*logPath, *verbose)
	defer closeLog()

	slog.SetDefault(logger)

	var mon *monitor.Server

	if *monitorAddr != "" {
		mon = monitor.New(*monitorAddr, logger)
		mon.Start()

		defer mon.Stop()
	}

	var dash *dashboard

	if !*noTUI {
		dash = newDashboard()
		if dash != nil {
			go dash.run()

			defer dash.close()
		}
	}

	onPass := func(passIndex, passes int) {
		logger.Info("pass start", "pass", passIndex, "passes", passes)

		if dash != nil {
			dash.setPass(passIndex, passes)
		}

		if mon != nil {
			mon.Publish(monitor.Event{Type: "pass", PassIndex: passIndex, Passes: passes})
		}
	}

	onStep := func(st, steps int) {
		if dash != nil {
			dash.setStep(st, steps)
		}

		if mon != nil {
			mon.Publish(monitor.Event{Type: "step", Step: st, Steps: steps})
		}
	}

	var cancel <-chan struct{}
	if mon != nil {
		cancel = mon.Cancel()
	}

	err = engine.Convolute(engine.DriverParams{
		InputPath:   inputPath,
		IRPath:      irPath,
		OutputPath:  outputPath,
		Amp:         amp,
		ChunkMax:    *chunkMax,
		Diagnostics: os.Stderr,
		Logger:      logger,
		OnPass:      onPass,
		OnStep:      onStep,
		Cancel:      cancel,
	})
	if err != nil {
		fatal(err)
	}

	logger.Info("convolution complete", "output", outputPath)
}

// fatal is the single fatal-error sink (replacing the original program's
// die/diem macros): it prints one diagnostic line and terminates. Nothing
// below main calls os.Exit.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "convolute: %v\n", err)
	os.Exit(1)
}

func setupLogger(path string, verbose bool) (*slog.Logger, func()) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}

	if path == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), func() {}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "convolute: could not open log file %s: %v\n", path, err)
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), func() {}
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))

	return logger, func() { _ = f.Close() }
}
