package sim

import (
	"fmt"

	"github.com/robotalks/mcu.go/pkg/hal"
)

// Midscale is the sample read from unconfigured analog channels.
const Midscale uint16 = 0x8000

// Source produces the samples of one analog channel.
type Source interface {
	Sample() uint16
}

type constantSource uint16

func (s constantSource) Sample() uint16 {
	return uint16(s)
}

type rampSource struct {
	next uint16
	step uint16
}

func (s *rampSource) Sample() uint16 {
	v := s.next
	s.next += s.step
	return v
}

// NewSource creates a Source from config.
func NewSource(cfg SourceConfig) (Source, error) {
	switch cfg.Pattern {
	case "", "midscale":
		return constantSource(Midscale), nil
	case "constant":
		return constantSource(cfg.Value), nil
	case "ramp":
		step := cfg.Step
		if step == 0 {
			step = 1
		}
		return &rampSource{next: cfg.Value, step: step}, nil
	}
	return nil, fmt.Errorf("unknown pattern %q", cfg.Pattern)
}

// converter emulates the analog hardware: a conversion completes the
// moment it starts, with the value drawn from the channel's source.
type converter struct {
	sources [hal.AnalogChannels]Source
	result  uint16
}

func newConverter(cfg ADCConfig) (*converter, error) {
	c := &converter{}
	for ch := range c.sources {
		var src SourceConfig
		if ch < len(cfg.Channels) {
			src = cfg.Channels[ch]
		}
		s, err := NewSource(src)
		if err != nil {
			return nil, fmt.Errorf("adc channel %d: %v", ch, err)
		}
		c.sources[ch] = s
	}
	return c, nil
}

// Start implements hal.Converter.
func (c *converter) Start(channel uint8) {
	c.result = c.sources[channel].Sample()
}

// Busy implements hal.Converter. The emulated hardware is never busy.
func (c *converter) Busy() bool {
	return false
}

// Result implements hal.Converter.
func (c *converter) Result() uint16 {
	return c.result
}
