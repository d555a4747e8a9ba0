// Package sim emulates the board: the peripherals from pkg/hal backed
// by goroutines instead of silicon, a console hub fanning the serial
// channel out to transports, and the tick interrupt source.
package sim

import (
	"fmt"

	"github.com/robotalks/mcu.go/pkg/hal"
)

// Board defaults.
const (
	DefaultTickMs = 10
	DefaultBaud   = 115200
)

// Config describes the emulated board.
type Config struct {
	// TickMs is the clock tick interval in milliseconds.
	TickMs int `yaml:"tick_ms"`
	// Realtime paces ticks against the wall clock; off runs virtual
	// time as fast as the host allows. Default on.
	Realtime *bool `yaml:"realtime"`
	// Baud is the rate the board reports for its console. Emulated
	// bytes move unpaced.
	Baud int `yaml:"baud"`

	UART UARTConfig `yaml:"uart"`
	ADC  ADCConfig  `yaml:"adc"`
}

// UARTConfig sizes the serial channel receive ring.
type UARTConfig struct {
	// Lines and LineSize must be powers of two; zero picks the
	// hardware defaults.
	Lines    int `yaml:"lines"`
	LineSize int `yaml:"line_size"`
	// FilterEmpty drops empty received lines.
	FilterEmpty bool `yaml:"filter_empty"`
}

// ADCConfig configures the analog sample sources.
type ADCConfig struct {
	// Channels assigns sources by channel index. Channels beyond the
	// list read midscale.
	Channels []SourceConfig `yaml:"channels"`
}

// SourceConfig selects the sample pattern of one analog channel.
type SourceConfig struct {
	// Pattern is one of midscale, constant, ramp. Empty means
	// midscale.
	Pattern string `yaml:"pattern"`
	// Value is the constant sample, or the first ramp sample.
	Value uint16 `yaml:"value"`
	// Step is the ramp increment per sample; zero means 1.
	Step uint16 `yaml:"step"`
}

// Validate checks configuration correctness. It does not mutate the
// configuration.
func Validate(cfg *Config) error {
	if cfg.TickMs < 0 {
		return fmt.Errorf("tick_ms must not be negative")
	}
	if cfg.Baud < 0 {
		return fmt.Errorf("baud must not be negative")
	}
	if n := len(cfg.ADC.Channels); n > hal.AnalogChannels {
		return fmt.Errorf("adc: %d channels configured, the board has %d", n, hal.AnalogChannels)
	}
	for ch, src := range cfg.ADC.Channels {
		switch src.Pattern {
		case "", "midscale", "constant", "ramp":
		default:
			return fmt.Errorf("adc channel %d: unknown pattern %q", ch, src.Pattern)
		}
	}
	return nil
}

// Normalize fills defaults in place. It must be called after Validate.
func Normalize(cfg *Config) {
	if cfg.TickMs == 0 {
		cfg.TickMs = DefaultTickMs
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.Realtime == nil {
		on := true
		cfg.Realtime = &on
	}
}
