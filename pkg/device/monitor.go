package device

import (
	"fmt"

	"github.com/robotalks/mcu.go/pkg/app"
	"github.com/robotalks/mcu.go/pkg/hal"
)

// AnalogMonitor samples analog channels through the conversion
// scheduler, one-shot or on a fixed tick period, and reports each
// sample. It also drives the scheduler's housekeeping from the tick
// context.
type AnalogMonitor struct {
	app.NopHandler
	owner *hal.Owner
	adc   *hal.ADC

	mask      uint8
	period    uint32
	countdown uint32
}

// NewAnalogMonitor creates a monitor around the board's scheduler.
func NewAnalogMonitor(sect *hal.Section, adc *hal.ADC) *AnalogMonitor {
	return &AnalogMonitor{owner: sect.NewOwner("analog-monitor"), adc: adc}
}

// Commands lists the monitor commands.
func (m *AnalogMonitor) Commands() []app.CmdSpec {
	return []app.CmdSpec{
		{Name: "AIQ", Opcode: opAnalogOnce, Args: 1},
		{Name: "AIP", Opcode: opAnalogPeriodic, Args: 2},
	}
}

// Binding registers the monitor.
func (m *AnalogMonitor) Binding() app.Binding {
	return app.Binding{Handler: m, Cmds: m.Commands()}
}

// HelpScreen implements app.Handler.
func (m *AnalogMonitor) HelpScreen() string {
	return "Analog monitor commands:\r\n" +
		"\r\n" +
		"  AIQ n  :  Convert the channels in bit mask n once.\r\n" +
		"  AIP n m:  Convert bit mask n every m ticks; m of 0 stops.\r\n"
}

// InitState implements app.Handler.
func (m *AnalogMonitor) InitState() {
	g := m.owner.Enter(hal.Restore)
	m.mask = 0
	m.period = 0
	m.countdown = 0
	g.Leave()
}

// HandleTick implements app.Handler: housekeeping every tick, plus the
// periodic restart. A restart that lands while a batch is still
// converting is ignored by the scheduler.
func (m *AnalogMonitor) HandleTick(o *hal.Owner) {
	m.adc.Housekeeping(o)
	g := o.Enter(hal.Restore)
	defer g.Leave()
	if m.period == 0 {
		return
	}
	m.countdown--
	if m.countdown == 0 {
		m.countdown = m.period
		m.adc.StartConversion(o, m.mask)
	}
}

// HandleCommand implements app.Handler. The channel mask is the low
// eight bits of the first argument.
func (m *AnalogMonitor) HandleCommand(opcode byte, arg1, arg2 uint16) {
	switch opcode {
	case opAnalogOnce:
		m.adc.StartConversion(m.owner, uint8(arg1))
	case opAnalogPeriodic:
		g := m.owner.Enter(hal.Restore)
		m.mask = uint8(arg1)
		m.period = uint32(arg2)
		m.countdown = m.period
		g.Leave()
	}
}

// MakeReport implements app.Handler, draining one finished sample per
// call. Mid-batch nothing is readable, so partial batches are never
// reported.
func (m *AnalogMonitor) MakeReport(buf *app.ReportBuf) bool {
	value, channel, ok := m.adc.ReadPendingSample(m.owner)
	if !ok {
		return false
	}
	app.SetReport(buf, fmt.Sprintf("analog %d: %d\r\n", channel, value))
	return true
}
