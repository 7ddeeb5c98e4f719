// Package wavfile is the WAV backend of the sound I/O adapter, built on
// github.com/go-audio/wav and github.com/go-audio/audio. It decodes any
// PCM bit depth and encodes 24-bit signed PCM, mono, file endianness, as
// required of convolute's output.
package wavfile

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const decodeBufFrames = 4096

// Reader decodes a mono WAV file with forward-sequential reads and
// restart-from-head seeking (adequate for the bounded, non-hot-path random
// access the engine performs against impulse response files).
type Reader struct {
	file       *os.File
	dec        *wav.Decoder
	channels   int
	sampleRate int
	bitDepth   int
	dataOffset int64
	length     int
	pos        int
}

// NewReader opens a WAV decoder over f, positioned at the start of the PCM
// data chunk.
func NewReader(f *os.File) (*Reader, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wavfile: not a valid WAV file")
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("wavfile: seek to PCM data: %w", err)
	}

	dataOffset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("wavfile: locate PCM data offset: %w", err)
	}

	format := dec.Format()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("wavfile: stat file: %w", err)
	}

	frameSize := int(dec.BitDepth) / 8 * format.NumChannels
	if frameSize <= 0 {
		return nil, fmt.Errorf("wavfile: invalid frame size (bit depth %d, channels %d)", dec.BitDepth, format.NumChannels)
	}

	length := int((info.Size() - dataOffset) / int64(frameSize))

	return &Reader{
		file:       f,
		dec:        dec,
		channels:   format.NumChannels,
		sampleRate: format.SampleRate,
		bitDepth:   int(dec.BitDepth),
		dataOffset: dataOffset,
		length:     length,
	}, nil
}

// NumChannels reports the decoded channel count.
func (r *Reader) NumChannels() int { return r.channels }

// Length reports the total frame count.
func (r *Reader) Length() int { return r.length }

// SampleRate reports the sample rate in Hz.
func (r *Reader) SampleRate() int { return r.sampleRate }

// Read copies up to len(buf) mono samples, scaled to [-1, 1], advancing the
// read position. Returns the number of samples actually read.
func (r *Reader) Read(buf []float32) (int, error) {
	chunk := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: r.channels, SampleRate: r.sampleRate},
		Data:           make([]int, len(buf)),
		SourceBitDepth: r.bitDepth,
	}

	n, err := r.dec.PCMBuffer(chunk)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("wavfile: read PCM: %w", err)
	}

	scale := float32(int(1) << (r.bitDepth - 1))
	for i := range n {
		buf[i] = float32(chunk.Data[i]) / scale
	}

	r.pos += n

	return n, nil
}

// Seek repositions the read cursor to the given frame index by restarting
// decode from the head of the PCM data and discarding leading frames.
func (r *Reader) Seek(frame int) error {
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("wavfile: seek to data start: %w", err)
	}

	r.dec = wav.NewDecoder(r.file)
	r.pos = 0

	discard := make([]float32, decodeBufFrames)
	remaining := frame

	for remaining > 0 {
		want := remaining
		if want > decodeBufFrames {
			want = decodeBufFrames
		}

		n, err := r.Read(discard[:want])
		if err != nil {
			return err
		}

		if n == 0 {
			break
		}

		remaining -= n
	}

	r.pos = frame

	return nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("wavfile: close: %w", err)
	}

	return nil
}

// Writer encodes mono, 24-bit signed PCM WAV output.
type Writer struct {
	file *os.File
	enc  *wav.Encoder
}

// NewWriter opens a 24-bit mono WAV encoder writing to f at the given
// sample rate.
func NewWriter(f *os.File, sampleRate int) (*Writer, error) {
	const bitDepth = 24

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)

	return &Writer{file: f, enc: enc}, nil
}

// Write appends n samples, scaled from [-1, 1] to 24-bit signed PCM.
func (w *Writer) Write(buf []float32) (int, error) {
	const maxVal = 1<<23 - 1

	ints := make([]int, len(buf))
	for i, s := range buf {
		v := int(s * maxVal)

		switch {
		case v > maxVal:
			v = maxVal
		case v < -maxVal-1:
			v = -maxVal - 1
		}

		ints[i] = v
	}

	chunk := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.enc.SampleRate},
		Data:           ints,
		SourceBitDepth: 24,
	}

	if err := w.enc.Write(chunk); err != nil {
		return 0, fmt.Errorf("wavfile: write PCM: %w", err)
	}

	return len(buf), nil
}

// Close flushes the WAV header/trailer and releases the file handle.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("wavfile: close encoder: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("wavfile: close file: %w", err)
	}

	return nil
}
