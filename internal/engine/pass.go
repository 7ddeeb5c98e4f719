package engine

import (
	"fmt"
	"io"
	"log/slog"

	"convolute/internal/cxerr"
	"convolute/internal/fftplan"
	"convolute/internal/sndio"
)

// PassParams are the inputs to a single invocation of the single-pass
// overlap-add engine (component D).
type PassParams struct {
	InputPath    string
	IRPath       string
	IROffset     int
	IRChunkMax   int
	AdditivePath string // "" means no additive stream (pass 0)
	OutputPath   string
	Amp          float64

	Diagnostics io.Writer    // progress line + clip warnings; nil disables both
	Logger      *slog.Logger // nil uses slog.Default()

	// OnStep, if non-nil, is called after each block is emitted, for
	// progress reporting to callers other than Diagnostics (e.g. the TUI
	// or the monitor server).
	OnStep func(st, steps int)
}

// RunPass executes component D: it convolves the input with one IR chunk,
// delays that contribution by IROffset, sums in an optional additive stream,
// and writes the result to OutputPath. Returns the clipping statistics observed.
func RunPass(p PassParams) (*ClipMonitor, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	in, err := sndio.OpenRead(p.InputPath)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	inputLen := in.Length()
	inputRate := in.SampleRate()

	chunk, err := sndio.ReadChunk(p.IRPath, p.IROffset, p.IRChunkMax)
	if err != nil {
		return nil, err
	}

	if chunk.SampleRate != inputRate {
		return nil, cxerr.New(cxerr.RateMismatch, "input and IR sample rates differ")
	}

	irLen := len(chunk.Data)
	if irLen == 0 {
		return nil, cxerr.New(cxerr.BadFormat, "IR chunk is empty")
	}

	geom := ComputeGeometry(irLen, inputLen)

	logger.Info("pass geometry",
		"ir_len", geom.IRLen, "fft_len", geom.FFTLen, "step", geom.Step, "steps", geom.Steps,
		"ir_offset", p.IROffset, "input_len", inputLen)

	plan, err := fftplan.New(geom.FFTLen)
	if err != nil {
		return nil, cxerr.Wrap(cxerr.Alloc, "create FFT plan", err)
	}
	defer plan.Close()

	var add sndio.Reader

	if p.AdditivePath != "" {
		add, err = sndio.OpenRead(p.AdditivePath)
		if err != nil {
			return nil, err
		}

		defer add.Close()
	}

	out, err := sndio.OpenWrite(p.OutputPath, inputRate)
	if err != nil {
		return nil, err
	}

	monitor, bodyErr := runPassBody(plan, geom, inputLen, in, add, out, chunk.Data, p)

	closeErr := out.Close()

	if bodyErr != nil {
		return nil, bodyErr
	}

	if closeErr != nil {
		return nil, cxerr.Wrap(cxerr.Close, "close output stream", closeErr)
	}

	if p.Diagnostics != nil {
		monitor.ReportIfClipped(p.Diagnostics, p.Amp)
	}

	return monitor, nil
}

func runPassBody(
	plan *fftplan.Plan,
	geom Geometry,
	inputLen int,
	in, add sndio.Reader,
	out sndio.Writer,
	irChunk []float32,
	p PassParams,
) (*ClipMonitor, error) {
	monitor := &ClipMonitor{}

	// Leading copy (prefix): align this pass's contribution at file index
	// n+d in the output by first copying d samples of the additive stream
	// (or silence).
	if err := copyPrefix(add, out, p.IROffset); err != nil {
		return nil, err
	}

	// Transform the IR chunk, zero-padded to fft_len.
	paddedIR := make([]float32, geom.FFTLen)
	copy(paddedIR, irChunk)

	h := make([]complex64, plan.SpectrumLen())
	if err := plan.Forward(h, paddedIR); err != nil {
		return nil, cxerr.Wrap(cxerr.Alloc, "transform IR chunk", err)
	}

	accum := make([]float32, geom.FFTLen)
	if err := readAdditive(add, accum); err != nil {
		return nil, err
	}

	scratch := make([]float32, geom.FFTLen)
	freq := make([]complex64, plan.SpectrumLen())
	amp := float32(p.Amp)
	fftLenF := float32(geom.FFTLen)

	for st := 0; st < geom.Steps; st++ {
		if p.Diagnostics != nil {
			fmt.Fprintf(p.Diagnostics, "convoluting... %d/%d\033[K\r", st, geom.Steps)
		}

		start := st * geom.Step

		readLen := geom.Step
		if start+readLen > inputLen {
			readLen = inputLen - start
		}

		if readLen < 0 {
			readLen = 0
		}

		for i := range scratch {
			scratch[i] = 0
		}

		if readLen > 0 {
			n, err := in.Read(scratch[:readLen])
			if err != nil {
				return nil, cxerr.Wrap(cxerr.OpenRead, "read input block", err)
			}

			readLen = n
		}

		if err := plan.Forward(freq, scratch); err != nil {
			return nil, cxerr.Wrap(cxerr.Alloc, "forward transform input block", err)
		}

		for k := range freq {
			freq[k] *= h[k]
		}

		if err := plan.Inverse(scratch, freq); err != nil {
			return nil, cxerr.Wrap(cxerr.Alloc, "inverse transform block", err)
		}

		for i := range accum {
			accum[i] += scratch[i] * amp / fftLenF
		}

		monitor.Scan(accum, geom.Step)

		var emitLen int
		if st < geom.Steps-1 {
			emitLen = geom.Step
		} else {
			emitLen = inputLen - geom.Step*(geom.Steps-1) + geom.IRLen
		}

		if emitLen > len(accum) {
			emitLen = len(accum)
		}

		if emitLen > 0 {
			if _, err := out.Write(accum[:emitLen]); err != nil {
				return nil, cxerr.Wrap(cxerr.OpenWrite, "write output block", err)
			}
		}

		copy(accum[:geom.FFTLen-geom.Step], accum[geom.Step:geom.FFTLen])

		if err := readAdditive(add, accum[geom.FFTLen-geom.Step:geom.FFTLen]); err != nil {
			return nil, err
		}

		if p.OnStep != nil {
			p.OnStep(st+1, geom.Steps)
		}
	}

	if p.Diagnostics != nil {
		fmt.Fprint(p.Diagnostics, "\r\033[K")
	}

	// Finalisation: scan whatever remains in the accumulator, even though
	// it is never emitted, so the reported peak reflects every sample the
	// accumulator ever held.
	monitor.Scan(accum, len(accum))

	return monitor, nil
}

// copyPrefix writes exactly d samples to out, sourced from add if present
// (reading forward, zero-padding past EOF) or from silence otherwise.
func copyPrefix(add sndio.Reader, out sndio.Writer, d int) error {
	const blockFrames = 65536

	buf := make([]float32, min(blockFrames, max(d, 1)))

	remaining := d
	for remaining > 0 {
		n := min(remaining, len(buf))

		if err := readAdditive(add, buf[:n]); err != nil {
			return err
		}

		if _, err := out.Write(buf[:n]); err != nil {
			return cxerr.Wrap(cxerr.OpenWrite, "write prefix", err)
		}

		remaining -= n
	}

	return nil
}

// readAdditive fills buf from the additive stream, zero-padding on short
// read. A nil reader behaves exactly as a stream of endless zeros, matching
// the original implementation's pre-zeroed additive file on pass 0.
func readAdditive(add sndio.Reader, buf []float32) error {
	if add == nil {
		for i := range buf {
			buf[i] = 0
		}

		return nil
	}

	n, err := add.Read(buf)
	if err != nil && err != io.EOF {
		return cxerr.Wrap(cxerr.OpenRead, "read additive stream", err)
	}

	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}

	return nil
}
