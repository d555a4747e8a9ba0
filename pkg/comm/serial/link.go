// Package serial opens real serial ports as console links, for talking
// to firmware running on hardware instead of the emulated board.
package serial

import (
	"fmt"
	"net/url"
	"strconv"

	tarm "github.com/tarm/serial"

	"github.com/robotalks/mcu.go/pkg/comm/stream"
)

// DefaultBaud is used when the URL does not specify a baud rate.
const DefaultBaud = 115200

// Open opens a serial port named by a URL of the form
// serial:/dev/ttyUSB0?baud=115200.
func Open(portURL string) (*stream.Link, error) {
	name, baud, err := parsePortURL(portURL)
	if err != nil {
		return nil, err
	}
	port, err := tarm.OpenPort(&tarm.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, err
	}
	return stream.New(port), nil
}

func parsePortURL(portURL string) (name string, baud int, err error) {
	u, err := url.Parse(portURL)
	if err != nil {
		return
	}
	if name = u.Opaque; name == "" {
		name = u.Path
	}
	if name == "" {
		err = fmt.Errorf("no port name in %q", portURL)
		return
	}
	baud = DefaultBaud
	if val := u.Query().Get("baud"); val != "" {
		if baud, err = strconv.Atoi(val); err != nil {
			err = fmt.Errorf("invalid baud %q: %v", val, err)
		}
	}
	return
}
