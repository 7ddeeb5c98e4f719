// Package sndio is the sound I/O adapter: open/read/write mono float32
// sample streams, with random-access chunk reads for impulse responses.
// It dispatches to a WAV backend (internal/sndio/wavfile) or its own
// in-package AIFF decoder (aiff.go) by sniffing the file's container magic.
package sndio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"convolute/internal/cxerr"
	"convolute/internal/sndio/wavfile"
)

// Reader is a mono float32 sample source with random access by frame index.
type Reader interface {
	// Length reports the total number of frames in the stream.
	Length() int
	// SampleRate reports the stream's sample rate in Hz.
	SampleRate() int
	// Read copies up to len(buf) samples starting at the stream's current
	// position, advancing that position, and returns the number actually
	// read (< len(buf) at EOF).
	Read(buf []float32) (int, error)
	// Seek repositions the stream's current position to the given frame index.
	Seek(frame int) error
	// Close releases the underlying file handle.
	Close() error
}

// Writer is a mono float32 sample sink. Output is always WAV, 24-bit signed
// PCM, file endianness, mono, per spec.
type Writer interface {
	// Write appends n samples from buf.
	Write(buf []float32) (int, error)
	// Close flushes and releases the underlying file handle.
	Close() error
}

// Chunk is an owned, in-memory slice of samples read from a random-access
// source, together with its provenance (offset requested, actual length,
// which may be less than requested past end-of-file).
type Chunk struct {
	Data       []float32
	Offset     int
	Requested  int
	SampleRate int
}

// OpenRead opens path, dispatching on container format, and requires the
// decoded stream to be mono.
func OpenRead(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cxerr.Wrap(cxerr.OpenRead, "open "+path, err)
	}

	// Sniff the container magic via ReadAt so the file's current read
	// offset (which the WAV backend depends on) is left untouched.
	var magic [12]byte

	n, err := f.ReadAt(magic[:], 0)
	if err != nil && err != io.EOF {
		_ = f.Close()
		return nil, cxerr.Wrap(cxerr.OpenRead, "sniff "+path, err)
	}

	switch {
	case n >= 12 && string(magic[0:4]) == "RIFF" && string(magic[8:12]) == "WAVE":
		r, err := wavfile.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, cxerr.Wrap(cxerr.OpenRead, "decode wav "+path, err)
		}

		if r.NumChannels() != 1 {
			_ = r.Close()
			return nil, cxerr.New(cxerr.BadFormat, path+": not mono")
		}

		return r, nil

	case n >= 4 && string(magic[0:4]) == "FORM":
		ar, err := newAIFFReader(bufio.NewReader(f))
		if err != nil {
			_ = f.Close()
			return nil, cxerr.Wrap(cxerr.OpenRead, "decode aiff "+path, err)
		}

		_ = f.Close()

		if ar.NumChannels() != 1 {
			return nil, cxerr.New(cxerr.BadFormat, path+": not mono")
		}

		return ar, nil

	default:
		_ = f.Close()
		return nil, cxerr.New(cxerr.BadFormat, path+": unrecognised container")
	}
}

// OpenWrite opens path for writing a mono, 24-bit PCM WAV stream at the
// given sample rate.
func OpenWrite(path string, sampleRate int) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, cxerr.Wrap(cxerr.OpenWrite, "create "+path, err)
	}

	w, err := wavfile.NewWriter(f, sampleRate)
	if err != nil {
		_ = f.Close()
		return nil, cxerr.Wrap(cxerr.OpenWrite, "init wav encoder "+path, err)
	}

	return w, nil
}

// ReadChunk performs a random-access read of up to maxLen samples starting
// at frame start, returning an owned buffer of actual length (<= maxLen).
func ReadChunk(path string, start, maxLen int) (*Chunk, error) {
	r, err := OpenRead(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := r.Seek(start); err != nil {
		return nil, fmt.Errorf("sndio: seek %s to frame %d: %w", path, start, err)
	}

	buf := make([]float32, maxLen)

	n, err := r.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("sndio: read chunk from %s: %w", path, err)
	}

	return &Chunk{
		Data:       buf[:n],
		Offset:     start,
		Requested:  maxLen,
		SampleRate: r.SampleRate(),
	}, nil
}

// Length reports the frame count of path without decoding the whole file.
func Length(path string) (int, error) {
	r, err := OpenRead(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	return r.Length(), nil
}

// SampleRate reports the sample rate of path.
func SampleRate(path string) (int, error) {
	r, err := OpenRead(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	return r.SampleRate(), nil
}
