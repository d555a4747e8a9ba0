package sim

import (
	"context"
	"sync"

	"github.com/robotalks/mcu.go/pkg/comm"
)

// sendChunkSize caps one console output write.
const sendChunkSize = 256

// Console fans the board serial channel out to console links: bytes
// read from any link feed the receive interrupt, transmitted bytes are
// written to every attached link. With no link attached, output drains
// into nothing, like a serial port with no cable.
type Console struct {
	board *Board

	mu    sync.Mutex
	links []*attached
}

type attached struct {
	link comm.Link
	done chan struct{}
}

// NewConsole creates the hub for a board.
func NewConsole(b *Board) *Console {
	return &Console{board: b}
}

// Attach adds a link and starts pumping its input. The link is closed
// when it fails or when the console shuts down.
func (c *Console) Attach(link comm.Link) {
	c.attach(link)
}

// Serve attaches the link and blocks until it is detached, for use
// inside connection handlers.
func (c *Console) Serve(link comm.Link) {
	<-c.attach(link).done
}

// Name implements framework.Named.
func (c *Console) Name() string {
	return "console"
}

// Run implements framework.Runnable: the transmit interrupt side,
// draining queued sends and broadcasting them.
func (c *Console) Run(ctx context.Context) error {
	buf := make([]byte, sendChunkSize)
	for {
		select {
		case <-ctx.Done():
			c.closeAll()
			return ctx.Err()
		case <-c.board.TransmitPending():
		}
		for {
			n := c.board.NextSendChunk(buf)
			if n == 0 {
				break
			}
			c.broadcast(buf[:n])
		}
	}
}

func (c *Console) attach(link comm.Link) *attached {
	a := &attached{link: link, done: make(chan struct{})}
	c.mu.Lock()
	c.links = append(c.links, a)
	c.mu.Unlock()
	go c.pumpInput(a)
	return a
}

func (c *Console) pumpInput(a *attached) {
	defer c.detach(a)
	for {
		chunk, err := a.link.ReadChunk()
		if err != nil {
			return
		}
		c.board.FeedRecv(chunk)
	}
}

func (c *Console) detach(a *attached) {
	c.mu.Lock()
	for i, cur := range c.links {
		if cur == a {
			c.links = append(c.links[:i], c.links[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	a.link.Close()
	close(a.done)
}

func (c *Console) broadcast(chunk []byte) {
	c.mu.Lock()
	links := make([]*attached, len(c.links))
	copy(links, c.links)
	c.mu.Unlock()
	for _, a := range links {
		if err := a.link.WriteChunk(chunk); err != nil {
			// the input pump will detach it
			a.link.Close()
		}
	}
}

func (c *Console) closeAll() {
	c.mu.Lock()
	links := make([]*attached, len(c.links))
	copy(links, c.links)
	c.mu.Unlock()
	for _, a := range links {
		a.link.Close()
	}
}
