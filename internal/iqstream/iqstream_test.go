// internal/iqstream/iqstream_test.go
package iqstream

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	samples := []complex64{
		0,
		complex(1, 0),
		complex(0, 1),
		complex(-0.5, 0.25),
		complex(float32(math.Pi), float32(-math.Pi)),
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, s := range samples {
		if err := w.WriteSample(s); err != nil {
			t.Fatalf("WriteSample failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if buf.Len() != len(samples)*SampleSize {
		t.Errorf("stream length = %d bytes, want %d", buf.Len(), len(samples)*SampleSize)
	}

	r := NewReader(&buf)
	for i, want := range samples {
		got, err := r.ReadSample()
		if err != nil {
			t.Fatalf("ReadSample %d failed: %v", i, err)
		}
		if got != want {
			t.Errorf("sample %d = %v, want %v", i, got, want)
		}
	}
	if _, err := r.ReadSample(); err != io.EOF {
		t.Errorf("error past end = %v, want io.EOF", err)
	}
}

// The wire format is interleaved little-endian float32 I/Q.
func TestWriter_Encoding(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteSample(complex(1, -2)); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// 1.0 = 0x3f800000, -2.0 = 0xc0000000, both little-endian.
	want := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0xc0}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded bytes = %x, want %x", buf.Bytes(), want)
	}
}

func TestReader_TruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteSample(complex(1, 1)); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	buf.Write([]byte{0x01, 0x02, 0x03}) // partial trailing sample

	r := NewReader(&buf)
	if _, err := r.ReadSample(); err != nil {
		t.Fatalf("ReadSample failed: %v", err)
	}
	if _, err := r.ReadSample(); err != ErrTruncatedStream {
		t.Errorf("error on partial sample = %v, want %v", err, ErrTruncatedStream)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.raw")); err == nil {
		t.Error("Open() = nil error for a missing file")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.raw")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 0; i < 100; i++ {
		if err := w.WriteSample(complex(float32(i), -float32(i))); err != nil {
			t.Fatalf("WriteSample failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	for i := 0; i < 100; i++ {
		got, err := r.ReadSample()
		if err != nil {
			t.Fatalf("ReadSample %d failed: %v", i, err)
		}
		if want := complex(float32(i), -float32(i)); got != want {
			t.Errorf("sample %d = %v, want %v", i, got, want)
		}
	}
	if _, err := r.ReadSample(); err != io.EOF {
		t.Errorf("error past end = %v, want io.EOF", err)
	}
}
