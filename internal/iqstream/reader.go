// internal/iqstream/reader.go

// Package iqstream reads and writes raw complex baseband streams: one
// sample is two little-endian IEEE 754 float32 values, in-phase then
// quadrature, with no framing or header.
package iqstream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrTruncatedStream indicates the stream ended in the middle of a sample
var ErrTruncatedStream = errors.New("stream ends mid-sample")

// SampleSize is the on-disk size of one complex sample in bytes.
const SampleSize = 8

const streamBufferSize = 1 << 16

// Reader decodes complex samples from a raw I/Q stream.
type Reader struct {
	f   *os.File
	br  *bufio.Reader
	buf [SampleSize]byte
}

// Open opens the file at path for sequential sample reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	return &Reader{f: f, br: bufio.NewReaderSize(f, streamBufferSize)}, nil
}

// NewReader wraps an arbitrary byte stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, streamBufferSize)}
}

// ReadSample returns the next sample. A clean end of stream is io.EOF;
// trailing bytes shorter than one sample report ErrTruncatedStream.
func (r *Reader) ReadSample() (complex64, error) {
	if _, err := io.ReadFull(r.br, r.buf[:]); err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrTruncatedStream
		}
		return 0, fmt.Errorf("read sample: %w", err)
	}

	re := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[0:4]))
	im := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[4:8]))
	return complex(re, im), nil
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
