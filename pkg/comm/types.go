// Package comm defines the transports carrying a device console between
// an emulated device and host-side tools. A console is a byte stream in
// both directions; transports move it in chunks whose boundaries carry
// no meaning.
package comm

import (
	"context"
	"io"
)

// ChunkReader reads console data in chunks.
type ChunkReader interface {
	ReadChunk() ([]byte, error)
}

// ChunkWriter writes console data in chunks.
type ChunkWriter interface {
	WriteChunk([]byte) error
}

// Link is a bidirectional console connection.
type Link interface {
	ChunkReader
	ChunkWriter
	io.Closer
}

// DeviceRef is a reference to a device console.
type DeviceRef struct {
	// Type is the device type, e.g. skel.
	Type string
	// ID is unique ID of the device.
	ID string
}

// Name retrieves the name from ref.
func (r DeviceRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates DeviceRef is valid.
func (r DeviceRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// DeviceMeta is the metadata a device announces about itself.
type DeviceMeta struct {
	// Identity is the device identity line, without line ending.
	Identity string `json:"identity,omitempty"`
	// Description is free text for display.
	Description string `json:"description,omitempty"`
	// Labels carries additional key/value pairs.
	Labels map[string]string `json:"labels,omitempty"`
}

// DeviceInfo provides information of an announced device.
type DeviceInfo struct {
	Ref  DeviceRef
	Meta DeviceMeta
}

// Connector is used by host tools to reach device consoles.
type Connector interface {
	// Discover enumerates announced devices.
	Discover(context.Context) ([]DeviceInfo, error)
	// Connect opens a console link to the specified device.
	Connect(context.Context, DeviceRef) (Link, error)
}
