package engine

import (
	"path/filepath"
	"testing"

	"convolute/internal/sndio"
)

func writeWAV(t *testing.T, dir, name string, rate int, samples []float32) string {
	t.Helper()

	path := filepath.Join(dir, name)

	w, err := sndio.OpenWrite(path, rate)
	if err != nil {
		t.Fatalf("OpenWrite(%s): %v", path, err)
	}

	if _, err := w.Write(samples); err != nil {
		t.Fatalf("Write(%s): %v", path, err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close(%s): %v", path, err)
	}

	return path
}

func readAllWAV(t *testing.T, path string) []float32 {
	t.Helper()

	r, err := sndio.OpenRead(path)
	if err != nil {
		t.Fatalf("OpenRead(%s): %v", path, err)
	}
	defer r.Close()

	out := make([]float32, r.Length())

	n, err := r.Read(out)
	if err != nil {
		t.Fatalf("Read(%s): %v", path, err)
	}

	return out[:n]
}

func approxEqual(t *testing.T, got, want []float32, tol float32) {
	t.Helper()

	if len(got) < len(want) {
		t.Fatalf("got %d samples, want at least %d", len(got), len(want))
	}

	for i, w := range want {
		g := got[i]
		diff := g - w

		if diff < 0 {
			diff = -diff
		}

		if diff > tol {
			t.Fatalf("sample[%d] = %v, want %v (tol %v)", i, g, w, tol)
		}
	}
}
