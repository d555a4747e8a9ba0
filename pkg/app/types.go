// Package app is the application skeleton that runs on top of the hal
// peripherals: a command-line parser, a handler registry with
// adjacency-deduplicated lifecycle dispatch, a fixed report queue and
// the built-in command set.
package app

import "github.com/robotalks/mcu.go/pkg/hal"

const (
	// CmdChars is the opcode width of the command grammar.
	CmdChars = 3
	// ReportChars caps one report message, terminator included.
	ReportChars = 90
	// DefaultReportSlots is the report queue depth.
	DefaultReportSlots = 4
	// DebugHandlerSlots is the number of per-handler overrun counters.
	DebugHandlerSlots = 16
	// DefaultEcho is the initial setting for echoing received lines.
	DefaultEcho = true
)

// CmdName is a command opcode: exactly CmdChars letters, uppercase,
// NUL-padded when the typed opcode was shorter.
type CmdName [CmdChars]byte

func (n CmdName) String() string {
	i := 0
	for i < len(n) && n[i] != 0 {
		i++
	}
	return string(n[:i])
}

// Cmd is one parsed command line.
type Cmd struct {
	Name CmdName
	Arg1 uint16
	Arg2 uint16
	Args int
}

// Handler is one application feature: lifecycle hooks, command
// execution and report generation. Embed NopHandler and override what
// the feature needs.
type Handler interface {
	// HelpScreen returns the feature's help text with CRLF line
	// endings, shown by the built-in help command.
	HelpScreen() string
	// InitHardware configures peripherals once at startup, before the
	// tick source runs.
	InitHardware()
	// InitState resets soft state; runs at startup and again on the
	// built-in reinitialize command.
	InitState()
	// HandleTick runs once per clock tick in interrupt context with
	// the section released; o identifies that context for locking. It
	// must finish well within one tick period.
	HandleTick(o *hal.Owner)
	// HandlePollPriority runs from the tick path like HandleTick but
	// may span many tick periods; occurrences that overlap a still
	// running one are skipped and counted.
	HandlePollPriority(o *hal.Owner)
	// HandleCommand executes a dispatched command by opcode.
	HandleCommand(opcode byte, arg1, arg2 uint16)
	// SaveReportState snapshots volatile state for report generation;
	// it runs inside the section and must be quick.
	SaveReportState(g hal.Guard)
	// MakeReport renders at most one pending message into buf and
	// reports whether it did. It is called repeatedly until it
	// returns false or the report queue fills.
	MakeReport(buf *ReportBuf) bool
	// HandlePolling runs once per main-loop cycle, outside the
	// section.
	HandlePolling()
}

// NopHandler implements every Handler method as a no-op.
type NopHandler struct{}

// HelpScreen implements Handler.
func (NopHandler) HelpScreen() string {
	return "Command-specific help goes here.\r\n"
}

// InitHardware implements Handler.
func (NopHandler) InitHardware() {}

// InitState implements Handler.
func (NopHandler) InitState() {}

// HandleTick implements Handler.
func (NopHandler) HandleTick(*hal.Owner) {}

// HandlePollPriority implements Handler.
func (NopHandler) HandlePollPriority(*hal.Owner) {}

// HandleCommand implements Handler.
func (NopHandler) HandleCommand(byte, uint16, uint16) {}

// SaveReportState implements Handler.
func (NopHandler) SaveReportState(hal.Guard) {}

// MakeReport implements Handler.
func (NopHandler) MakeReport(*ReportBuf) bool {
	return false
}

// HandlePolling implements Handler.
func (NopHandler) HandlePolling() {}

// Messages carries the application identity strings used by the
// built-in commands.
type Messages struct {
	// Identity answers the identity query, terminator included.
	Identity string
	// HelpBanner opens the help screen, terminator included.
	HelpBanner string
}
