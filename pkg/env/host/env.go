// Package host configures the host-side console tools.
package host

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/robotalks/mcu.go/pkg/comm"
	"github.com/robotalks/mcu.go/pkg/comm/mqtt"
	"github.com/robotalks/mcu.go/pkg/comm/serial"
	"github.com/robotalks/mcu.go/pkg/comm/websocket"
)

// Config provides common options to reach device consoles.
type Config struct {
	Ref comm.DeviceRef

	// RegistryURL locates the device registry.
	// e.g. mqtt://host:port/topic-prefix
	RegistryURL string

	// ConsoleURL connects one console directly, bypassing the
	// registry. e.g. ws://host:8180/, serial:/dev/ttyUSB0?baud=115200
	ConsoleURL string
}

var defaultConfig = Config{
	RegistryURL: "mqtt://localhost:1883/mcu/",
}

func init() {
	if val := os.Getenv("MCU_DEVICE_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("MCU_DEVICE_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("MCU_REGISTRY_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
	if val := os.Getenv("MCU_CONSOLE_URL"); val != "" {
		defaultConfig.ConsoleURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "device-type", defaultConfig.Ref.Type, "Device type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "device-id", defaultConfig.Ref.ID, "Device ID to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "reg", defaultConfig.RegistryURL, "Device registry URL.")
	flag.StringVar(&defaultConfig.ConsoleURL, "console", defaultConfig.ConsoleURL, "Direct console URL, bypasses the registry.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector for the registry.
func (c *Config) NewConnector() (comm.Connector, error) {
	parsedURL, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %v", err)
	}
	switch parsedURL.Scheme {
	case "mqtt", "mqtts":
		return mqtt.NewConnector(c.RegistryURL)
	default:
		return nil, fmt.Errorf("unknown registry URL scheme: %q", parsedURL.Scheme)
	}
}

// Dial opens a console link. With ConsoleURL set it connects directly;
// otherwise it goes through the registry to the configured device.
func (c *Config) Dial(ctx context.Context) (comm.Link, error) {
	if c.ConsoleURL != "" {
		return DialConsole(c.ConsoleURL)
	}
	if !c.Ref.IsValid() {
		return nil, fmt.Errorf("device type and id must be specified")
	}
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx, c.Ref)
}

// DialConsole opens a direct console link from a URL.
func DialConsole(consoleURL string) (comm.Link, error) {
	u, err := url.Parse(consoleURL)
	if err != nil {
		return nil, fmt.Errorf("invalid console URL: %v", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return websocket.Dial(consoleURL)
	case "serial":
		return serial.Open(consoleURL)
	default:
		return nil, fmt.Errorf("unknown console URL scheme: %q", u.Scheme)
	}
}
