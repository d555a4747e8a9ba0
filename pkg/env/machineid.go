// Package env provides environment helpers shared by the device and
// host binaries.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves the unique ID identifying the machine. Hosts
// without one fall back to the hostname.
func MachineID() string {
	id, err := machineid.ID()
	if err == nil {
		return id
	}
	if name, herr := os.Hostname(); herr == nil && name != "" {
		return name
	}
	return "unknown"
}
