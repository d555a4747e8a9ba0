// Package websocket carries device consoles over websocket
// connections. Each message frame is one chunk.
package websocket

import (
	"net/http"

	"golang.org/x/net/websocket"
)

// Link implements comm.Link over a websocket connection.
type Link websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *Link {
	return (*Link)(conn)
}

// Dial connects to a websocket console endpoint, e.g. ws://host:8180/.
func Dial(wsURL string) (*Link, error) {
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Handler creates an http.Handler serving one console connection at a
// time; serve returns when the connection is done.
func Handler(serve func(*Link)) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		serve(New(conn))
	})
}

// ReadChunk implements comm.ChunkReader.
func (l *Link) ReadChunk() (chunk []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(l), &chunk)
	return
}

// WriteChunk implements comm.ChunkWriter.
func (l *Link) WriteChunk(chunk []byte) error {
	return websocket.Message.Send((*websocket.Conn)(l), chunk)
}

// Close implements io.Closer.
func (l *Link) Close() error {
	return (*websocket.Conn)(l).Close()
}
