package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/robotalks/mcu.go/pkg/comm"
)

// Connector implements comm.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

// Discover implements comm.Connector. It collects retained device
// metadata for DiscoverTimeout. An empty payload is a cleared
// announcement and is skipped.
func (c *Connector) Discover(ctx context.Context) (res []comm.DeviceInfo, err error) {
	q := NewQueue(c.options, c.topicPrefix)
	q.Connect()
	defer q.Close()
	resCh := make(chan comm.DeviceInfo, 1)
	q.Sub("+/+/meta", Handler(func(topic string, payload []byte) {
		if len(payload) == 0 {
			return
		}
		items := strings.Split(topic, "/")
		if len(items) != 3 {
			return
		}
		info := comm.DeviceInfo{Ref: comm.DeviceRef{Type: items[0], ID: items[1]}}
		json.Unmarshal(payload, &info.Meta)
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	}))

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect implements comm.Connector. The returned link owns its own
// client connection; closing the link disconnects it.
func (c *Connector) Connect(ctx context.Context, ref comm.DeviceRef) (comm.Link, error) {
	q := NewQueue(c.options, c.topicPrefix)
	link := NewLink(q).ForHost(ref)
	if err := q.ConnectWait(); err != nil {
		return nil, err
	}
	if err := link.Open(); err != nil {
		q.Close()
		return nil, err
	}
	return &hostConn{Link: link, queue: q}, nil
}

// hostConn couples a Link with the client connection it rides on.
type hostConn struct {
	*Link
	queue *Queue
}

func (c *hostConn) Close() error {
	err := c.Link.Close()
	c.queue.Close()
	return err
}
