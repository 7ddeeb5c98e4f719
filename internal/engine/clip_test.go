package engine

import (
	"bytes"
	"strings"
	"testing"
)

func TestClipMonitorScan(t *testing.T) {
	t.Parallel()

	m := &ClipMonitor{}
	samples := []float32{0.5, -1.5, 2.0, -0.1}

	m.Scan(samples, len(samples))

	if m.ClippedCount != 2 {
		t.Fatalf("ClippedCount = %d, want 2", m.ClippedCount)
	}

	if m.PeakAbs != 2.0 {
		t.Fatalf("PeakAbs = %v, want 2.0", m.PeakAbs)
	}

	want := []float32{0.5, -1, 1, -0.1}
	for i, s := range samples {
		if s != want[i] {
			t.Fatalf("samples[%d] = %v, want %v (clamp in place)", i, s, want[i])
		}
	}
}

func TestClipMonitorScanPartialN(t *testing.T) {
	t.Parallel()

	m := &ClipMonitor{}
	samples := []float32{2.0, 2.0, 2.0}

	m.Scan(samples, 1)

	if m.ClippedCount != 1 {
		t.Fatalf("ClippedCount = %d, want 1 (only first element scanned)", m.ClippedCount)
	}

	if samples[1] != 2.0 {
		t.Fatalf("samples[1] was modified despite n=1")
	}
}

func TestClipMonitorReportIfClipped(t *testing.T) {
	t.Parallel()

	m := &ClipMonitor{ClippedCount: 3, PeakAbs: 3.2}

	var buf bytes.Buffer

	m.ReportIfClipped(&buf, 1.0)

	out := buf.String()
	if !strings.Contains(out, "3 samples") {
		t.Fatalf("report missing clip count: %q", out)
	}

	if !strings.Contains(out, "0.312500") {
		t.Fatalf("report missing recommended multiplier: %q", out)
	}
}

func TestClipMonitorReportNoClip(t *testing.T) {
	t.Parallel()

	m := &ClipMonitor{}

	var buf bytes.Buffer

	m.ReportIfClipped(&buf, 1.0)

	if buf.Len() != 0 {
		t.Fatalf("expected no output when nothing clipped, got %q", buf.String())
	}
}
