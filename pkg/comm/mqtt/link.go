package mqtt

import (
	"context"
	"io"

	"github.com/robotalks/mcu.go/pkg/comm"
)

// Link implements comm.Link over a pair of MQTT topics. Each message
// on SubTopic is one inbound chunk; each WriteChunk publishes one
// message on PubTopic.
type Link struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	chunkCh chan []byte
	done    chan struct{}
	sub     *Subscription
}

// NewLink creates a Link on the queue. Topics must be set with
// WithTopics, ForDevice or ForHost before Open.
func NewLink(q *Queue) *Link {
	return &Link{
		Queue:   q,
		chunkCh: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (l *Link) WithTopics(sub, pub string) *Link {
	l.SubTopic, l.PubTopic = sub, pub
	return l
}

// ForDevice sets topics using the device-side convention:
// SubTopic = name/cmd
// PubTopic = name/msg
func (l *Link) ForDevice(ref comm.DeviceRef) *Link {
	name := ref.Name()
	return l.WithTopics(name+"/cmd", name+"/msg")
}

// ForHost sets topics using the host-side convention:
// SubTopic = name/msg
// PubTopic = name/cmd
func (l *Link) ForHost(ref comm.DeviceRef) *Link {
	name := ref.Name()
	return l.WithTopics(name+"/msg", name+"/cmd")
}

// Open subscribes the inbound topic. Before the first connect
// completes the broker subscription may fail; Resubscribe replays it
// on connect, so that failure is not surfaced here.
func (l *Link) Open() error {
	l.sub = l.Queue.Sub(l.SubTopic, l.handleChunk)
	return nil
}

// ReadChunk implements comm.ChunkReader. Buffered chunks drain before
// a close is observed.
func (l *Link) ReadChunk() ([]byte, error) {
	select {
	case chunk := <-l.chunkCh:
		return chunk, nil
	default:
	}
	select {
	case chunk := <-l.chunkCh:
		return chunk, nil
	case <-l.done:
		return nil, io.EOF
	}
}

// WriteChunk implements comm.ChunkWriter.
func (l *Link) WriteChunk(chunk []byte) error {
	token := l.Queue.Pub(l.PubTopic, chunk)
	token.Wait()
	return token.Error()
}

// Close implements io.Closer. The queue stays usable.
func (l *Link) Close() error {
	select {
	case <-l.done:
		return nil
	default:
	}
	close(l.done)
	if l.sub != nil {
		return l.sub.Close()
	}
	return nil
}

// Run implements framework.Runnable: the link stays open until the
// context is done.
func (l *Link) Run(ctx context.Context) error {
	if err := l.Open(); err != nil {
		return err
	}
	defer l.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (l *Link) handleChunk(_ string, payload []byte) {
	select {
	case l.chunkCh <- payload:
	case <-l.done:
	}
}
