package app

import (
	"errors"
	"fmt"

	"github.com/robotalks/mcu.go/pkg/hal"
)

// Errors from NewApp.
var (
	// ErrNoSection indicates the config is missing the section.
	ErrNoSection = errors.New("application needs a section")
	// ErrNoUART indicates the config is missing the serial channel.
	ErrNoUART = errors.New("application needs a serial channel")
	// ErrNoClock indicates the config is missing the clock.
	ErrNoClock = errors.New("application needs a clock")
	// ErrNoRegistry indicates the config is missing the registry.
	ErrNoRegistry = errors.New("application needs a registry")
)

// builtinHelp describes the always-available commands.
const builtinHelp = "Built-in commands:\r\n" +
	"\r\n" +
	" ?, HLP  :  Help screen.\r\n" +
	"  ECH 1/0:  Start/stop echoing typed characters back to the host.\r\n" +
	"  IDQ    :  Device identification string query.\r\n" +
	"  INI    :  Reinitialize (reset clock and idle events).\r\n" +
	"\r\n" +
	"Built-in debugging commands:\r\n" +
	"\r\n" +
	"  ZZM    :  Report the amount of free memory.\r\n" +
	"  ZZE    :  Report accumulated timeslice overruns for event handlers.\r\n"

// Built-in command names.
var (
	cmdHelp  = CmdName{'H', 'L', 'P'}
	cmdIdent = CmdName{'I', 'D', 'Q'}
	cmdReset = CmdName{'I', 'N', 'I'}
	cmdEcho  = CmdName{'E', 'C', 'H'}
	cmdMem   = CmdName{'Z', 'Z', 'M'}
	cmdTicks = CmdName{'Z', 'Z', 'E'}
)

// Hooks are application-global counterparts of the handler lifecycle,
// for code that is not worth a full Handler. Nil members are skipped.
type Hooks struct {
	InitHardware func()
	InitState    func()
	Tick         func(*hal.Owner)
	PollPriority func(*hal.Owner)
	Poll         func()
}

// Config assembles an application.
type Config struct {
	Section  *hal.Section
	UART     *hal.UART
	Clock    *hal.Clock
	Registry *Registry
	Messages Messages

	// ReportSlots is the report queue depth; non-positive selects
	// DefaultReportSlots.
	ReportSlots int
	// EchoOff starts with echoing of received lines disabled.
	EchoOff bool
	// FreeMemory answers the free-memory debug query. Nil reports the
	// full 16-bit range.
	FreeMemory func() uint16
	Hooks      Hooks
}

// App ties the peripherals to the handler registry: it owns the
// parser, the built-in commands, the report queue and the timing
// statistics. Drive it with UpdateISR from the tick context (or
// AttachClock) and Poll from the main loop.
type App struct {
	sect       *hal.Section
	uart       *hal.UART
	clock      *hal.Clock
	reg        *Registry
	msgs       Messages
	hooks      Hooks
	freeMemory func() uint16

	owner   *hal.Owner // identity of the polling context
	parser  Parser
	reports *reportQueue
	echo    bool

	inISR       bool
	longRunning bool

	skippedTicks uint32
	skippedPolls uint32
	tickOverruns [DebugHandlerSlots]uint32
	pollOverruns [DebugHandlerSlots]uint32
}

// AppStats is a snapshot of the dispatch and report-loss counters.
type AppStats struct {
	// SkippedTicks counts ticks that landed while the quick tick
	// phase was still running.
	SkippedTicks uint32
	// SkippedPolls counts ticks that landed while the high-priority
	// poll phase was still running. Nonzero is normal.
	SkippedPolls uint32
	// TickOverruns accumulates, per registry row, ticks elapsed
	// during that handler's quick tick phase.
	TickOverruns [DebugHandlerSlots]uint32
	// PollOverruns is TickOverruns for the high-priority poll phase.
	PollOverruns [DebugHandlerSlots]uint32
	// ReportsStarved counts handlers not asked for reports because
	// the queue was already full at their turn.
	ReportsStarved uint32
}

// NewApp validates cfg and builds the application. Call InitialSetup
// before the tick source starts.
func NewApp(cfg Config) (*App, error) {
	switch {
	case cfg.Section == nil:
		return nil, ErrNoSection
	case cfg.UART == nil:
		return nil, ErrNoUART
	case cfg.Clock == nil:
		return nil, ErrNoClock
	case cfg.Registry == nil:
		return nil, ErrNoRegistry
	}
	slots := cfg.ReportSlots
	if slots <= 0 {
		slots = DefaultReportSlots
	}
	msgs := cfg.Messages
	if msgs.Identity == "" {
		msgs.Identity = "BOGUS"
	}
	if msgs.HelpBanner == "" {
		msgs.HelpBanner = "BOGUS"
	}
	a := &App{
		sect:       cfg.Section,
		uart:       cfg.UART,
		clock:      cfg.Clock,
		reg:        cfg.Registry,
		msgs:       msgs,
		hooks:      cfg.Hooks,
		freeMemory: cfg.FreeMemory,
		owner:      cfg.Section.NewOwner("app"),
		reports:    newReportQueue(slots),
		echo:       !cfg.EchoOff,
	}
	a.parser.Reset()
	return a, nil
}

// InitialSetup performs the one-time bring-up: hardware init hooks
// first, then a full state reset. Call it exactly once.
func (a *App) InitialSetup() {
	a.inISR = false
	a.longRunning = false
	if a.hooks.InitHardware != nil {
		a.hooks.InitHardware()
	}
	a.reg.eachDistinct(func(_ int, h Handler) { h.InitHardware() })
	a.ReInitState()
}

// ReInitState soft-resets the application: parser, report queue,
// timing statistics and every handler's state. The built-in
// reinitialize command lands here; calling it repeatedly is fine.
func (a *App) ReInitState() {
	a.parser.Reset()
	a.reports.reset()

	// Let any in-flight transmission drain so retirement stays
	// consistent with the emptied queue.
	a.uart.WaitSendDone(a.owner)

	g := a.owner.Enter(hal.Restore)
	a.skippedTicks = 0
	a.skippedPolls = 0
	for i := range a.tickOverruns {
		a.tickOverruns[i] = 0
		a.pollOverruns[i] = 0
	}
	g.Leave()

	if a.hooks.InitState != nil {
		a.hooks.InitState()
	}
	a.reg.eachDistinct(func(_ int, h Handler) { h.InitState() })
}

// AttachClock registers UpdateISR as the clock's per-tick callback.
func (a *App) AttachClock(o *hal.Owner) {
	a.clock.RegisterCallback(o, a.UpdateISR)
}

// UpdateISR runs the per-tick work from the tick context: the quick
// HandleTick phase, then the HandlePollPriority phase that may span
// many ticks. Both phases run with the section released so reception
// and the main loop keep going; a phase still running when another
// tick lands is skipped and counted. g is the tick context's guard.
func (a *App) UpdateISR(g hal.Guard) {
	o := g.Owner()

	if a.inISR {
		// Quick phase overran a whole tick. We expect this to stay
		// zero.
		a.skippedTicks++
	} else {
		a.inISR = true
		var overruns [DebugHandlerSlots]uint32
		g.Nonatomic(func() {
			last := a.clock.Query(o)
			a.reg.eachDistinct(func(i int, h Handler) {
				h.HandleTick(o)
				now := a.clock.Query(o)
				if i < DebugHandlerSlots {
					overruns[i] += now - last
				}
				last = now
			})
			if a.hooks.Tick != nil {
				a.hooks.Tick(o)
			}
		})
		for i, v := range overruns {
			a.tickOverruns[i] += v
		}
		a.inISR = false
	}

	if a.longRunning {
		// The long phase usually spans many ticks.
		a.skippedPolls++
	} else {
		a.longRunning = true
		var overruns [DebugHandlerSlots]uint32
		g.Nonatomic(func() {
			last := a.clock.Query(o)
			a.reg.eachDistinct(func(i int, h Handler) {
				h.HandlePollPriority(o)
				now := a.clock.Query(o)
				if i < DebugHandlerSlots {
					overruns[i] += now - last
				}
				last = now
			})
			if a.hooks.PollPriority != nil {
				a.hooks.PollPriority(o)
			}
		})
		for i, v := range overruns {
			a.pollOverruns[i] += v
		}
		a.longRunning = false
	}
}

// Poll runs one main-loop cycle: one line of input, report state
// capture, report transmission and the polling hooks. Call it
// repeatedly from exactly one goroutine.
func (a *App) Poll() {
	a.pollInput()

	// Capture volatile state for report generation in one atomic
	// sweep.
	g := a.owner.Enter(hal.Restore)
	a.reg.eachDistinct(func(_ int, h Handler) { h.SaveReportState(g) })
	g.Leave()

	a.advanceReports()
	a.fillReports()

	a.reg.eachDistinct(func(_ int, h Handler) { h.HandlePolling() })
	if a.hooks.Poll != nil {
		a.hooks.Poll()
	}
}

func (a *App) pollInput() {
	line := a.uart.NextLine(a.owner)
	if line == nil {
		return
	}

	if a.echo {
		a.uart.QueueSend(a.owner, line)
		a.uart.QueueSendString(a.owner, "\r\n")
	}

	if a.parser.ParseLine(line) {
		if cmd, ok := a.parser.TakeCommand(); ok {
			if !a.runCommand(cmd) {
				a.printShortHelp(line)
			}
		}
	} else {
		a.printShortHelp(line)
	}

	a.uart.DoneWithLine(a.owner)
}

// runCommand executes one parsed command, built-ins first. It reports
// false for an unrecognized name or a recognized one with the wrong
// argument count. Built-ins other than ECH ignore extra arguments.
func (a *App) runCommand(cmd Cmd) bool {
	switch cmd.Name {
	case cmdHelp:
		a.printHelp()
	case cmdIdent:
		a.uart.QueueSendString(a.owner, a.msgs.Identity)
	case cmdReset:
		a.ReInitState()
	case cmdEcho:
		if cmd.Args != 1 {
			return false
		}
		a.echo = cmd.Arg1 != 0
	case cmdMem:
		free := uint16(0xffff)
		if a.freeMemory != nil {
			free = a.freeMemory()
		}
		a.sendDebugLine(fmt.Sprintf("Available memory:  %d bytes\r\n", free))
	case cmdTicks:
		a.printTickStats()
	default:
		return a.reg.dispatch(cmd)
	}
	return true
}

func (a *App) printHelp() {
	o := a.owner
	a.uart.QueueSendString(o, "\r\n")
	a.uart.QueueSendString(o, a.msgs.HelpBanner)
	a.uart.QueueSendString(o, "\r\n")
	a.uart.QueueSendString(o, builtinHelp)
	a.reg.eachDistinct(func(_ int, h Handler) {
		a.uart.QueueSendString(o, "\r\n")
		a.uart.QueueSendString(o, h.HelpScreen())
	})
	a.uart.QueueSendString(o, "\r\n")
}

func (a *App) printTickStats() {
	st := a.Stats()
	a.sendDebugLine(fmt.Sprintf("ISR skipped ticks: %10d\r\n", st.SkippedTicks))
	for i, v := range st.TickOverruns {
		a.sendDebugLine(fmt.Sprintf("ISR handler %02d tick overruns:  %10d\r\n", i, v))
	}
	a.sendDebugLine(fmt.Sprintf("Priority poll skipped ticks: %10d\r\n", st.SkippedPolls))
	for i, v := range st.PollOverruns {
		a.sendDebugLine(fmt.Sprintf("Priority poll handler %02d tick overruns:  %10d\r\n", i, v))
	}
	a.sendDebugLine("End of skipped ticks.\r\n")
}

// sendDebugLine transmits s and drains it, so consecutive debug lines
// can share the channel.
func (a *App) sendDebugLine(s string) {
	a.uart.QueueSendString(a.owner, s)
	a.uart.WaitSendDone(a.owner)
}

// printShortHelp writes the bad-command diagnostic, rendering
// non-printable bytes of the offending line as hex.
func (a *App) printShortHelp(line []byte) {
	o := a.owner
	a.uart.QueueSendString(o, "Unrecognized command:  \"")
	for _, c := range line {
		if c == 0 {
			break
		}
		if c >= 32 && c <= 126 {
			a.uart.PrintChar(o, c)
		} else {
			a.uart.PrintChar(o, '<')
			a.uart.PrintHex8(o, c)
			a.uart.PrintChar(o, '>')
		}
	}
	a.uart.QueueSendString(o, "\". Type \"?\" or \"HLP\" for help.\r\n")
}

// advanceReports retires the report whose transmission has finished
// and starts the next one. Nothing moves while the channel is busy, so
// reports never interleave with echo or command output mid-message.
func (a *App) advanceReports() {
	q := a.reports
	if q.count == 0 {
		return
	}
	if a.uart.SendInProgress(a.owner) {
		return
	}
	if q.sending {
		q.retire()
	}
	if q.count > 0 {
		q.sending = true
		a.uart.QueueSend(a.owner, q.head()[:])
	}
}

// fillReports asks each distinct handler for report messages until it
// has none or the queue fills. A handler facing a full queue at its
// turn is not asked at all: its messages are dropped and the
// starvation counted, rather than blocking command processing.
func (a *App) fillReports() {
	q := a.reports
	starved := uint32(0)
	a.reg.eachDistinct(func(_ int, h Handler) {
		if q.full() {
			starved++
			return
		}
		for !q.full() && h.MakeReport(q.writeSlot()) {
			q.commit()
		}
	})
	if starved > 0 {
		g := a.owner.Enter(hal.Restore)
		q.starved += starved
		g.Leave()
	}
}

// Stats snapshots the timing and report-loss counters.
func (a *App) Stats() AppStats {
	g := a.owner.Enter(hal.Restore)
	st := AppStats{
		SkippedTicks:   a.skippedTicks,
		SkippedPolls:   a.skippedPolls,
		TickOverruns:   a.tickOverruns,
		PollOverruns:   a.pollOverruns,
		ReportsStarved: a.reports.starved,
	}
	g.Leave()
	return st
}
