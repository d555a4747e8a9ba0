package mqtt

import (
	"context"
	"encoding/json"

	"github.com/robotalks/mcu.go/pkg/comm"
)

// Registrar announces a device on the broker and carries its console.
// Device metadata is published retained on name/meta; a will clears it
// when the connection drops, and a clean shutdown clears it explicitly.
type Registrar struct {
	Queue *Queue
	Info  comm.DeviceInfo
	Link  *Link

	metaJSON string
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info comm.DeviceInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		panic(err)
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Name()+"/meta", nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("mcu:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: string(meta),
	}
	r.Queue.OnConnect = func(*Queue) { r.announce() }
	r.Link = NewLink(r.Queue).ForDevice(info.Ref)
	return r, nil
}

// Run implements framework.Runnable. The connection retries in the
// background; the console link is usable as soon as Run starts.
func (r *Registrar) Run(ctx context.Context) error {
	r.Queue.Connect()
	r.Link.Open()
	<-ctx.Done()
	r.Link.Close()
	r.Queue.PubWith(r.Info.Ref.Name()+"/meta", nil, 1, true)
	r.Queue.Close()
	return nil
}

func (r *Registrar) announce() {
	r.Queue.PubWith(r.Info.Ref.Name()+"/meta", []byte(r.metaJSON), 1, true)
}
