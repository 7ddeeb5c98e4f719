package engine

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestRunPassShiftedImpulse(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	input := []float32{1, 0, 0, 0, 0}
	ir := []float32{0, 0, 1}

	inputPath := writeWAV(t, dir, "in.wav", 44100, input)
	irPath := writeWAV(t, dir, "ir.wav", 44100, ir)
	outPath := filepath.Join(dir, "out.wav")

	_, err := RunPass(PassParams{
		InputPath:  inputPath,
		IRPath:     irPath,
		IRChunkMax: len(ir),
		OutputPath: outPath,
		Amp:        1.0,
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	got := readAllWAV(t, outPath)
	want := []float32{0, 0, 1, 0, 0, 0, 0}
	approxEqual(t, got, want, 1e-3)
}

func TestRunPassBoxBox(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	input := []float32{1, 1, 1, 1}
	ir := []float32{1, 1, 1}

	inputPath := writeWAV(t, dir, "in.wav", 44100, input)
	irPath := writeWAV(t, dir, "ir.wav", 44100, ir)

	outPath := filepath.Join(dir, "out.wav")

	_, err := RunPass(PassParams{
		InputPath:  inputPath,
		IRPath:     irPath,
		IRChunkMax: len(ir),
		OutputPath: outPath,
		Amp:        0.2,
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	got := readAllWAV(t, outPath)
	want := []float32{0.2, 0.4, 0.6, 0.6, 0.6, 0.4, 0.2}
	approxEqual(t, got, want, 1e-3)
}

func TestRunPassDeltaIdentity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	input := []float32{0.3, -0.2, 0.1, 0.9, -0.4, 0.05, 0.7, -0.6}
	ir := []float32{1.0}

	inputPath := writeWAV(t, dir, "in.wav", 44100, input)
	irPath := writeWAV(t, dir, "ir.wav", 44100, ir)

	outPath := filepath.Join(dir, "out.wav")

	_, err := RunPass(PassParams{
		InputPath:  inputPath,
		IRPath:     irPath,
		IRChunkMax: len(ir),
		OutputPath: outPath,
		Amp:        1.0,
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	got := readAllWAV(t, outPath)
	approxEqual(t, got, input, 2e-3)
}

func TestRunPassClippingWarning(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// A DC input convolved with a DC IR whose sum peaks well above 1.
	input := []float32{1, 1, 1, 1}
	ir := []float32{0.9, 0.9, 0.9, 0.9} // running sum reaches 3.6 mid-convolution

	inputPath := writeWAV(t, dir, "in.wav", 44100, input)
	irPath := writeWAV(t, dir, "ir.wav", 44100, ir)

	outPath := filepath.Join(dir, "out.wav")

	var diag bytes.Buffer

	mon, err := RunPass(PassParams{
		InputPath:   inputPath,
		IRPath:      irPath,
		IRChunkMax:  len(ir),
		OutputPath:  outPath,
		Amp:         1.0,
		Diagnostics: &diag,
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if mon.ClippedCount == 0 {
		t.Fatalf("expected clipping, got none (peak=%v)", mon.PeakAbs)
	}

	if !bytes.Contains(diag.Bytes(), []byte("WARNING")) {
		t.Fatalf("expected clip warning in diagnostics, got %q", diag.String())
	}
}

func TestRunPassRateMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	inputPath := writeWAV(t, dir, "in.wav", 44100, []float32{1, 0, 0})
	irPath := writeWAV(t, dir, "ir.wav", 48000, []float32{1})

	_, err := RunPass(PassParams{
		InputPath:  inputPath,
		IRPath:     irPath,
		IRChunkMax: 1,
		OutputPath: filepath.Join(dir, "out.wav"),
		Amp:        1.0,
	})
	if err == nil {
		t.Fatalf("expected RateMismatch error, got nil")
	}
}
