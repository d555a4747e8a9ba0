// Package device holds demo feature handlers for the application
// skeleton: a time keeper and stopwatch showing handler composition
// through embedding and adjacent registry rows, and an analog monitor
// driving the conversion scheduler.
package device

import (
	"fmt"

	"github.com/robotalks/mcu.go/pkg/app"
	"github.com/robotalks/mcu.go/pkg/hal"
)

// Handler opcodes.
const (
	opTimeQuery byte = iota + 1
	opTimeZero
	opWatchStart
	opWatchStop
	opWatchLap
	opAnalogOnce
	opAnalogPeriodic
)

// TimeKeeper counts clock ticks and reports elapsed time on request.
type TimeKeeper struct {
	app.NopHandler
	owner *hal.Owner

	ticks     uint32 // advanced in the tick context
	snapTicks uint32 // captured by SaveReportState
	pending   bool   // a time query awaits its report
}

// NewTimeKeeper creates a time keeper on the board's section.
func NewTimeKeeper(sect *hal.Section) *TimeKeeper {
	return &TimeKeeper{owner: sect.NewOwner("timekeeper")}
}

// Commands lists the time commands.
func (k *TimeKeeper) Commands() []app.CmdSpec {
	return []app.CmdSpec{
		{Name: "TQY", Opcode: opTimeQuery},
		{Name: "TZE", Opcode: opTimeZero},
	}
}

// Binding registers the time keeper standalone.
func (k *TimeKeeper) Binding() app.Binding {
	return app.Binding{Handler: k, Cmds: k.Commands()}
}

// HelpScreen implements app.Handler.
func (k *TimeKeeper) HelpScreen() string {
	return "Time commands:\r\n" +
		"\r\n" +
		"  TQY    :  Report elapsed time in ticks.\r\n" +
		"  TZE    :  Zero the elapsed time counter.\r\n"
}

// InitState implements app.Handler.
func (k *TimeKeeper) InitState() {
	g := k.owner.Enter(hal.Restore)
	k.ticks = 0
	g.Leave()
	k.pending = false
}

// HandleTick implements app.Handler.
func (k *TimeKeeper) HandleTick(o *hal.Owner) {
	g := o.Enter(hal.Restore)
	k.ticks++
	g.Leave()
}

// SaveReportState implements app.Handler.
func (k *TimeKeeper) SaveReportState(g hal.Guard) {
	k.snapTicks = k.ticks
}

// HandleCommand implements app.Handler.
func (k *TimeKeeper) HandleCommand(opcode byte, arg1, arg2 uint16) {
	switch opcode {
	case opTimeQuery:
		k.pending = true
	case opTimeZero:
		g := k.owner.Enter(hal.Restore)
		k.ticks = 0
		g.Leave()
	}
}

// MakeReport implements app.Handler.
func (k *TimeKeeper) MakeReport(buf *app.ReportBuf) bool {
	if !k.pending {
		return false
	}
	k.pending = false
	app.SetReport(buf, fmt.Sprintf("time: %d ticks\r\n", k.snapTicks))
	return true
}

// Stopwatch extends TimeKeeper with start/stop/lap tracking. It
// registers as two adjacent rows sharing one handler: lifecycle hooks
// run once while both command lists dispatch.
type Stopwatch struct {
	TimeKeeper

	running  bool
	base     uint32 // tick count when started
	total    uint32 // accumulated across stops
	lapSnap  uint32
	lapReady bool
}

// NewStopwatch creates a stopwatch on the board's section.
func NewStopwatch(sect *hal.Section) *Stopwatch {
	return &Stopwatch{TimeKeeper: TimeKeeper{owner: sect.NewOwner("stopwatch")}}
}

// WatchCommands lists the stopwatch additions to the time commands.
func (s *Stopwatch) WatchCommands() []app.CmdSpec {
	return []app.CmdSpec{
		{Name: "SWS", Opcode: opWatchStart},
		{Name: "SWP", Opcode: opWatchStop},
		{Name: "SWL", Opcode: opWatchLap},
	}
}

// Bindings registers the embedded time commands and the stopwatch
// additions as adjacent rows of the same handler.
func (s *Stopwatch) Bindings() []app.Binding {
	return []app.Binding{
		{Handler: s, Cmds: s.TimeKeeper.Commands()},
		{Handler: s, Cmds: s.WatchCommands()},
	}
}

// HelpScreen implements app.Handler.
func (s *Stopwatch) HelpScreen() string {
	return s.TimeKeeper.HelpScreen() +
		"\r\n" +
		"Stopwatch commands:\r\n" +
		"\r\n" +
		"  SWS    :  Start the stopwatch.\r\n" +
		"  SWP    :  Stop the stopwatch.\r\n" +
		"  SWL    :  Report the current lap time in ticks.\r\n"
}

// InitState implements app.Handler.
func (s *Stopwatch) InitState() {
	s.TimeKeeper.InitState()
	s.running = false
	s.base = 0
	s.total = 0
	s.lapReady = false
}

// elapsed returns the accumulated stopwatch time as of now.
func (s *Stopwatch) elapsed() uint32 {
	g := s.owner.Enter(hal.Restore)
	now := s.ticks
	g.Leave()
	if s.running {
		return s.total + (now - s.base)
	}
	return s.total
}

// HandleCommand implements app.Handler, delegating time commands to
// the embedded keeper.
func (s *Stopwatch) HandleCommand(opcode byte, arg1, arg2 uint16) {
	switch opcode {
	case opWatchStart:
		if !s.running {
			g := s.owner.Enter(hal.Restore)
			s.base = s.ticks
			g.Leave()
			s.running = true
		}
	case opWatchStop:
		if s.running {
			s.total = s.elapsed()
			s.running = false
		}
	case opWatchLap:
		s.lapSnap = s.elapsed()
		s.lapReady = true
	default:
		s.TimeKeeper.HandleCommand(opcode, arg1, arg2)
	}
}

// MakeReport implements app.Handler: time query answers first, then
// lap reports.
func (s *Stopwatch) MakeReport(buf *app.ReportBuf) bool {
	if s.TimeKeeper.MakeReport(buf) {
		return true
	}
	if !s.lapReady {
		return false
	}
	s.lapReady = false
	app.SetReport(buf, fmt.Sprintf("lap: %d ticks\r\n", s.lapSnap))
	return true
}
