// Package stream adapts byte streams to console links.
package stream

import (
	"io"
	"os"
)

// ChunkSize caps the size of a single read chunk.
const ChunkSize = 512

// Link implements comm.Link over a byte stream. A chunk is whatever a
// single Read returns.
type Link struct {
	io.ReadWriter
}

// New creates a Link from an io.ReadWriter.
func New(s io.ReadWriter) *Link {
	return &Link{s}
}

// Pair combines a separate reader and writer into one stream.
type Pair struct {
	io.Reader
	io.Writer
}

// Stdio creates a Link over standard input/output.
func Stdio() *Link {
	return New(Pair{os.Stdin, os.Stdout})
}

// ReadChunk implements comm.ChunkReader.
func (l *Link) ReadChunk() ([]byte, error) {
	buf := make([]byte, ChunkSize)
	for {
		n, err := l.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// WriteChunk implements comm.ChunkWriter.
func (l *Link) WriteChunk(chunk []byte) error {
	_, err := l.Write(chunk)
	return err
}

// Close implements io.Closer. The underlying stream is closed only if
// it provides io.Closer.
func (l *Link) Close() error {
	if c, ok := l.ReadWriter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
