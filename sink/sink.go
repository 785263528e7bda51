// Package sink persists the single result of a request cycle.
package sink

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"

	"github.com/ijmichel/httpexperiments/errors"
)

// Sink stores a result at a caller chosen destination.
type Sink interface {
	Write(destination string, data []byte) error
}

type CompressionType string

const (
	CompressionNone    CompressionType = ""
	CompressionGzip    CompressionType = "gzip"
	CompressionDeflate CompressionType = "deflate"
	CompressionBrotli  CompressionType = "br"
	CompressionSnappy  CompressionType = "snappy"
	CompressionLZ4     CompressionType = "lz4"
)

// CompressionTypes lists every supported encoding, CompressionNone first.
func CompressionTypes() []CompressionType {
	return []CompressionType{
		CompressionNone,
		CompressionGzip,
		CompressionDeflate,
		CompressionBrotli,
		CompressionSnappy,
		CompressionLZ4,
	}
}

// Encoder wraps w so that everything written is encoded with c. The caller
// must Close the returned writer to flush it; closing does not close w.
func Encoder(c CompressionType, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionDeflate:
		return zlib.NewWriter(w), nil
	case CompressionBrotli:
		return brotli.NewWriter(w), nil
	case CompressionSnappy:
		return snappy.NewBufferedWriter(w), nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", c)
	}
}

// Decoder is the inverse of Encoder.
func Decoder(c CompressionType, r io.Reader) (io.Reader, error) {
	switch c {
	case CompressionNone:
		return r, nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionDeflate:
		return zlib.NewReader(r)
	case CompressionBrotli:
		return brotli.NewReader(r), nil
	case CompressionSnappy:
		return snappy.NewReader(r), nil
	case CompressionLZ4:
		return lz4.NewReader(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", c)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// FileSink writes each result to the file named by its destination,
// replacing any previous content.
type FileSink struct {
	Compression CompressionType
}

// NewFileSink returns a FileSink that encodes with c.
func NewFileSink(c CompressionType) *FileSink {
	return &FileSink{Compression: c}
}

func (s *FileSink) Write(destination string, data []byte) error {
	f, err := os.Create(destination)
	if err != nil {
		return errors.NewSinkError(errors.SinkErrorWrite, "failed to create "+destination, err)
	}

	enc, err := Encoder(s.Compression, f)
	if err != nil {
		f.Close()
		return errors.NewSinkError(errors.SinkErrorEncoding, "failed to create encoder", err)
	}

	if _, err := enc.Write(data); err != nil {
		enc.Close()
		f.Close()
		return errors.NewSinkError(errors.SinkErrorWrite, "failed to write "+destination, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return errors.NewSinkError(errors.SinkErrorEncoding, "failed to flush encoder", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewSinkError(errors.SinkErrorWrite, "failed to close "+destination, err)
	}
	return nil
}

// Memory keeps results in memory, keyed by destination.
type Memory struct {
	mu      sync.Mutex
	results map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{results: make(map[string][]byte)}
}

func (m *Memory) Write(destination string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.results[destination] = cp
	m.mu.Unlock()
	return nil
}

// Get returns the last result written to destination.
func (m *Memory) Get(destination string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.results[destination]
	return data, ok
}
