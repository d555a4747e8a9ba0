package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type closableBuf struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuf) Close() error {
	b.closed = true
	return nil
}

func TestLinkReadWrite(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	require.NoError(t, l.WriteChunk([]byte("TQY\r\n")))
	chunk, err := l.ReadChunk()
	require.NoError(t, err)
	require.Equal(t, "TQY\r\n", string(chunk))

	_, err = l.ReadChunk()
	require.Equal(t, io.EOF, err)
}

func TestLinkChunkCap(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{'a'}, ChunkSize+10))
	l := New(&buf)

	chunk, err := l.ReadChunk()
	require.NoError(t, err)
	require.Len(t, chunk, ChunkSize)
	chunk, err = l.ReadChunk()
	require.NoError(t, err)
	require.Len(t, chunk, 10)
}

func TestLinkClose(t *testing.T) {
	b := &closableBuf{}
	require.NoError(t, New(b).Close())
	require.True(t, b.closed)

	var plain bytes.Buffer
	require.NoError(t, New(&plain).Close())
}
