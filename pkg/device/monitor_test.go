package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/app"
	"github.com/robotalks/mcu.go/pkg/hal"
)

// stubConverter completes every conversion by the next housekeeping
// call and records start order.
type stubConverter struct {
	samples map[uint8]uint16
	current uint8
	starts  []uint8
}

func (c *stubConverter) Start(channel uint8) {
	c.current = channel
	c.starts = append(c.starts, channel)
}

func (c *stubConverter) Busy() bool { return false }

func (c *stubConverter) Result() uint16 { return c.samples[c.current] }

func drainSamples(m *AnalogMonitor) []string {
	var got []string
	for {
		var buf app.ReportBuf
		if !m.MakeReport(&buf) {
			return got
		}
		got = append(got, buf.String())
	}
}

func TestAnalogMonitorOneShot(t *testing.T) {
	sect := hal.NewSection()
	conv := &stubConverter{samples: map[uint8]uint16{0: 100, 2: 200, 5: 500}}
	adc := hal.NewADC(sect, conv)
	timer := sect.NewOwner("timer")
	m := NewAnalogMonitor(sect, adc)
	m.InitState()

	m.HandleCommand(opAnalogOnce, 1<<0|1<<2|1<<5, 0)
	require.Equal(t, []uint8{0}, conv.starts, "lowest channel starts first")
	require.Empty(t, drainSamples(m), "mid-batch samples stay hidden")

	// One housekeeping call completes each conversion.
	for i := 0; i < 3; i++ {
		m.HandleTick(timer)
	}
	require.Equal(t, []uint8{0, 2, 5}, conv.starts)
	require.Equal(t, []string{
		"analog 0: 100\r\n",
		"analog 2: 200\r\n",
		"analog 5: 500\r\n",
	}, drainSamples(m))
}

func TestAnalogMonitorPeriodic(t *testing.T) {
	sect := hal.NewSection()
	conv := &stubConverter{samples: map[uint8]uint16{1: 4096}}
	adc := hal.NewADC(sect, conv)
	timer := sect.NewOwner("timer")
	m := NewAnalogMonitor(sect, adc)
	m.InitState()

	m.HandleCommand(opAnalogPeriodic, 1<<1, 3)
	m.HandleTick(timer)
	m.HandleTick(timer)
	require.Empty(t, conv.starts, "nothing converts before the period elapses")

	m.HandleTick(timer) // third tick arms the batch
	require.Equal(t, []uint8{1}, conv.starts)

	m.HandleTick(timer) // housekeeping completes it
	require.Equal(t, []string{"analog 1: 4096\r\n"}, drainSamples(m))

	m.HandleTick(timer)
	m.HandleTick(timer) // second period elapses
	require.Equal(t, []uint8{1, 1}, conv.starts)
	m.HandleTick(timer)
	require.Equal(t, []string{"analog 1: 4096\r\n"}, drainSamples(m))

	m.HandleCommand(opAnalogPeriodic, 1<<1, 0)
	for i := 0; i < 6; i++ {
		m.HandleTick(timer)
	}
	require.Equal(t, []uint8{1, 1}, conv.starts, "period zero stops sampling")
}
