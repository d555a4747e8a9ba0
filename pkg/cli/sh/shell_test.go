package sh

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/comm"
)

type fakeLink struct {
	in     chan []byte
	writes chan []byte

	mu     sync.Mutex
	closed bool
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		in:     make(chan []byte, 4),
		writes: make(chan []byte, 4),
	}
}

func (f *fakeLink) ReadChunk() ([]byte, error) {
	chunk, ok := <-f.in
	if !ok {
		return nil, io.EOF
	}
	return chunk, nil
}

func (f *fakeLink) WriteChunk(chunk []byte) error {
	f.writes <- chunk
	return nil
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.in)
	}
	return nil
}

func TestConsoleConnExchange(t *testing.T) {
	link := newFakeLink()
	conn := newConsoleConn("dev", link)
	defer conn.Close()

	var sent string
	replied := make(chan struct{})
	go func() {
		sent = string(<-link.writes)
		link.in <- []byte("time: 5 ticks\r\n")
		close(replied)
	}()

	out, err := conn.Exchange("TQY", 50*time.Millisecond, time.Second)
	require.NoError(t, err)
	require.Equal(t, "time: 5 ticks\r\n", out)
	<-replied
	require.Equal(t, "TQY\r\n", sent)
}

func TestConsoleConnTakeAfterClose(t *testing.T) {
	link := newFakeLink()
	conn := newConsoleConn("dev", link)
	link.in <- []byte("late\r\n")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	var out string
	var err error
	for time.Now().Before(deadline) {
		var s string
		s, err = conn.Take()
		out += s
		if err != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	// buffered output drains first, then the dead link surfaces
	require.Equal(t, "late\r\n", out)
	require.Equal(t, io.EOF, err)
}

func TestFormatInfo(t *testing.T) {
	for _, c := range []struct {
		name   string
		info   comm.DeviceInfo
		expect string
	}{
		{
			name:   "ref only",
			info:   comm.DeviceInfo{Ref: comm.DeviceRef{Type: "skel", ID: "abc"}},
			expect: "skel/abc",
		},
		{
			name: "with identity",
			info: comm.DeviceInfo{
				Ref:  comm.DeviceRef{Type: "skel", ID: "abc"},
				Meta: comm.DeviceMeta{Identity: "devicetype: 1"},
			},
			expect: "skel/abc: devicetype: 1",
		},
		{
			name: "with description",
			info: comm.DeviceInfo{
				Ref:  comm.DeviceRef{Type: "skel", ID: "abc"},
				Meta: comm.DeviceMeta{Identity: "devicetype: 1", Description: "demo"},
			},
			expect: "skel/abc: devicetype: 1 (demo)",
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expect, FormatInfo(c.info))
		})
	}
}
