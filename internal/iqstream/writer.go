// internal/iqstream/writer.go
package iqstream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Writer encodes complex samples onto a raw I/Q stream. It buffers
// writes; Close flushes and, when the writer owns a file, closes it.
// Writer satisfies the detector's output sink contract.
type Writer struct {
	f      *os.File
	bw     *bufio.Writer
	buf    [SampleSize]byte
	closed bool
}

// Create opens (truncating) the file at path for sample writing.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output stream: %w", err)
	}
	return &Writer{f: f, bw: bufio.NewWriterSize(f, streamBufferSize)}, nil
}

// NewWriter wraps an arbitrary byte stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, streamBufferSize)}
}

// WriteSample appends one sample to the stream.
func (w *Writer) WriteSample(s complex64) error {
	binary.LittleEndian.PutUint32(w.buf[0:4], math.Float32bits(real(s)))
	binary.LittleEndian.PutUint32(w.buf[4:8], math.Float32bits(imag(s)))
	if _, err := w.bw.Write(w.buf[:]); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// Close flushes buffered samples and releases the file, if owned.
// It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.bw.Flush(); err != nil {
		if w.f != nil {
			w.f.Close()
		}
		return fmt.Errorf("flush output stream: %w", err)
	}
	if w.f == nil {
		return nil
	}
	return w.f.Close()
}
