package engine

import (
	"fmt"
	"io"
)

// ClipMonitor is the clipping monitor (component F): it tracks per-sample
// peak amplitude and saturated-sample count across a pass, and can emit a
// user-visible summary with a recommended multiplier.
type ClipMonitor struct {
	ClippedCount int
	PeakAbs      float64
}

// Scan updates peak/clip counters over samples[0:n], clamping any
// out-of-range sample to +-1 in place. Call once per emitted block with the
// portion about to be written, and once more at finalisation over whatever
// remains in the accumulator (see the "Clipping semantics" design note:
// peak covers every sample ever present in the accumulator; clipped_count
// only counts samples that were actually emitted or finalised).
func (m *ClipMonitor) Scan(samples []float32, n int) {
	for i := 0; i < n; i++ {
		abs := float64(samples[i])
		if abs < 0 {
			abs = -abs
		}

		if abs > m.PeakAbs {
			m.PeakAbs = abs
		}

		if abs > 1 {
			m.ClippedCount++

			if samples[i] > 0 {
				samples[i] = 1
			} else {
				samples[i] = -1
			}
		}
	}
}

// ReportIfClipped writes a warning plus a recommended multiplier to w when
// any sample clipped during the pass. amp is the multiplier that was
// actually used.
func (m *ClipMonitor) ReportIfClipped(w io.Writer, amp float64) {
	if m.ClippedCount == 0 {
		return
	}

	fmt.Fprintf(w, "WARNING: %d samples got clipped!\n", m.ClippedCount)

	if m.PeakAbs > 0 {
		fmt.Fprintf(w, "Recommend a multiplier of less than %f instead\n", amp/m.PeakAbs)
	}

	fmt.Fprintf(w, "maximum amplitude: %f\n", m.PeakAbs)
}
