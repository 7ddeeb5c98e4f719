// Package fftplan adapts github.com/MeKo-Christian/algo-fft's real-to-complex
// transform into the FFT primitive required by the convolution engine: a
// plan bound to a fixed power-of-two size N, with forward real[N] ->
// complex[N/2+1] and an *unnormalised* inverse complex[N/2+1] -> real[N].
package fftplan

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Plan is a forward/inverse real FFT pair bound to a fixed size.
type Plan struct {
	size        int
	spectrumLen int
	inner       *algofft.PlanRealT[float32, complex64]
}

// New creates a plan for a power-of-two transform size n. Planning uses
// algo-fft's default ("estimate"-quality, no measurement) construction.
func New(n int) (*Plan, error) {
	inner, err := algofft.NewPlanReal32(n)
	if err != nil {
		return nil, fmt.Errorf("fftplan: create plan for size %d: %w", n, err)
	}

	return &Plan{
		size:        n,
		spectrumLen: n/2 + 1,
		inner:       inner,
	}, nil
}

// Size returns the transform length N.
func (p *Plan) Size() int { return p.size }

// SpectrumLen returns N/2+1, the length of the half-spectrum representation.
func (p *Plan) SpectrumLen() int { return p.spectrumLen }

// Forward transforms a real time-domain block of length N into the
// half-spectrum dst of length N/2+1.
func (p *Plan) Forward(dst []complex64, src []float32) error {
	if len(src) != p.size {
		return fmt.Errorf("fftplan: forward input length %d, want %d", len(src), p.size)
	}

	if len(dst) != p.spectrumLen {
		return fmt.Errorf("fftplan: forward output length %d, want %d", len(dst), p.spectrumLen)
	}

	if err := p.inner.Forward(dst, src); err != nil {
		return fmt.Errorf("fftplan: forward: %w", err)
	}

	return nil
}

// Inverse transforms a half-spectrum src of length N/2+1 back into a
// time-domain block dst of length N. Unlike algo-fft's own Inverse (which
// normalises by 1/N), this result is left unnormalised: the caller (the
// overlap-add engine) owns the division by N, per the FFT adapter contract.
func (p *Plan) Inverse(dst []float32, src []complex64) error {
	if len(src) != p.spectrumLen {
		return fmt.Errorf("fftplan: inverse input length %d, want %d", len(src), p.spectrumLen)
	}

	if len(dst) != p.size {
		return fmt.Errorf("fftplan: inverse output length %d, want %d", len(dst), p.size)
	}

	if err := p.inner.Inverse(dst, src); err != nil {
		return fmt.Errorf("fftplan: inverse: %w", err)
	}

	n := float32(p.size)
	for i := range dst {
		dst[i] *= n
	}

	return nil
}

// Close releases plan resources. algo-fft plans carry no external handles
// today, but the call is kept so every exit path in the engine follows the
// same acquire/release discipline regardless of backend.
func (p *Plan) Close() error { return nil }
