package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"convolute/internal/cxerr"
	"convolute/internal/sndio"
)

// DefaultChunkMax is the tuning constant bounding IR samples processed per
// pass (spec.md's stated "typical value"). It governs peak memory: working
// set is O(fft_len), and fft_len grows with the IR chunk length.
const DefaultChunkMax = 1_600_000

const tempSuffix = ".convolute-temp"

// DriverParams are the inputs to the pass driver (component E).
type DriverParams struct {
	InputPath  string
	IRPath     string
	OutputPath string
	Amp        float64
	ChunkMax   int // 0 means DefaultChunkMax

	Diagnostics io.Writer
	Logger      *slog.Logger

	// OnPass, if non-nil, is called before each pass begins (passIndex, passes).
	OnPass func(passIndex, passes int)
	// OnStep, if non-nil, is forwarded to RunPass for per-block progress.
	OnStep func(st, steps int)

	// Cancel, if non-nil, is checked before each pass boundary. When
	// closed, the driver stops after the last completed pass rather than
	// starting another: the rename-on-completion discipline means
	// output_path is always a valid, fully-accumulated result of the
	// passes that did run.
	Cancel <-chan struct{}
}

// Convolute executes component E: it splits the IR into chunk_max-sized
// chunks, invokes the single-pass engine once per chunk with the correct
// delay, and atomically swaps each pass's temporary output into place.
func Convolute(p DriverParams) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chunkMax := p.ChunkMax
	if chunkMax <= 0 {
		chunkMax = DefaultChunkMax
	}

	tempPath := p.OutputPath + tempSuffix

	if err := killFile(p.OutputPath); err != nil {
		return err
	}

	if err := killFile(tempPath); err != nil {
		return err
	}

	irLen, err := sndio.Length(p.IRPath)
	if err != nil {
		return err
	}

	inputLen, err := sndio.Length(p.InputPath)
	if err != nil {
		return err
	}

	inputPath, irPath := p.InputPath, p.IRPath

	if irLen > inputLen {
		logger.Info("swapping input and IR: IR is longer than input", "ir_len", irLen, "input_len", inputLen)

		inputPath, irPath = irPath, inputPath
		inputLen, irLen = irLen, inputLen
	}

	passes := (irLen + chunkMax - 1) / chunkMax
	if passes < 1 {
		passes = 1
	}

	logger.Info("starting convolution", "passes", passes, "chunk_max", chunkMax, "ir_len", irLen, "input_len", inputLen)

	for i := 0; i < passes; i++ {
		if p.Cancel != nil {
			select {
			case <-p.Cancel:
				logger.Info("cancellation requested; stopping at pass boundary", "completed_passes", i, "passes", passes)
				return nil
			default:
			}
		}

		if p.Diagnostics != nil && passes > 1 {
			fmt.Fprintf(p.Diagnostics, "pass %d/%d\033[K\n", i, passes)
		}

		if p.OnPass != nil {
			p.OnPass(i, passes)
		}

		additive := ""
		if i > 0 {
			additive = p.OutputPath
		}

		_, err := RunPass(PassParams{
			InputPath:    inputPath,
			IRPath:       irPath,
			IROffset:     i * chunkMax,
			IRChunkMax:   chunkMax,
			AdditivePath: additive,
			OutputPath:   tempPath,
			Amp:          p.Amp,
			Diagnostics:  p.Diagnostics,
			Logger:       logger,
			OnStep:       p.OnStep,
		})
		if err != nil {
			return fmt.Errorf("pass %d/%d: %w", i, passes, err)
		}

		if err := os.Rename(tempPath, p.OutputPath); err != nil {
			return cxerr.Wrap(cxerr.Rename, "rename temp to output", err)
		}
	}

	return nil
}

// killFile removes path if it exists; a pre-existing file that cannot be
// removed is fatal, but a missing file is not an error.
func killFile(path string) error {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return cxerr.Wrap(cxerr.Unlink, "stat "+path, err)
	}

	if err := os.Remove(path); err != nil {
		return cxerr.Wrap(cxerr.Unlink, "remove "+path, err)
	}

	return nil
}
