package app

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/hal"
)

// appRig wires an App to real peripherals: characters are fed through
// the receive interrupt and a pump goroutine drains the transmitter
// into a capture buffer.
type appRig struct {
	sect  *hal.Section
	uart  *hal.UART
	clock *hal.Clock
	app   *App
	main  *hal.Owner
	feed  *hal.Owner

	mu   sync.Mutex
	out  []byte
	stop chan struct{}
	done chan struct{}
}

func newAppRig(t *testing.T, cfg Config, bindings ...Binding) *appRig {
	sect := hal.NewSection()
	uart, err := hal.NewUART(sect, hal.UARTConfig{})
	require.NoError(t, err)
	clock := hal.NewClock(sect)
	reg, err := NewRegistry(bindings...)
	require.NoError(t, err)

	cfg.Section = sect
	cfg.UART = uart
	cfg.Clock = clock
	cfg.Registry = reg
	a, err := NewApp(cfg)
	require.NoError(t, err)

	r := &appRig{
		sect:  sect,
		uart:  uart,
		clock: clock,
		app:   a,
		main:  sect.NewOwner("test"),
		feed:  sect.NewOwner("recv"),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go r.pump()
	a.InitialSetup()
	return r
}

func (r *appRig) close() {
	close(r.stop)
	<-r.done
}

// pump plays the transmit interrupt, draining sends into the capture
// buffer.
func (r *appRig) pump() {
	o := r.sect.NewOwner("xmit")
	for {
		select {
		case <-r.stop:
			close(r.done)
			return
		default:
		}
		g := o.Enter(hal.Restore)
		for {
			c, ok := r.uart.NextSendCharISR(g)
			if !ok {
				break
			}
			r.mu.Lock()
			r.out = append(r.out, c)
			r.mu.Unlock()
		}
		g.Leave()
		time.Sleep(100 * time.Microsecond)
	}
}

// feedLine plays the receive interrupt for one CRLF-terminated line.
func (r *appRig) feedLine(s string) {
	g := r.feed.Enter(hal.Restore)
	for i := 0; i < len(s); i++ {
		r.uart.HandleRecvCharISR(g, s[i])
	}
	r.uart.HandleRecvCharISR(g, '\r')
	r.uart.HandleRecvCharISR(g, '\n')
	g.Leave()
}

// output waits for the in-flight transmission to drain and returns
// everything sent since the previous call.
func (r *appRig) output() string {
	r.uart.WaitSendDone(r.main)
	r.mu.Lock()
	s := string(r.out)
	r.out = r.out[:0]
	r.mu.Unlock()
	return s
}

func TestAppEchoAndDispatch(t *testing.T) {
	log := &eventLog{}
	h := &scriptedHandler{name: "h", log: log}
	r := newAppRig(t, Config{},
		Binding{Handler: h, Cmds: []CmdSpec{{Name: "PNG", Opcode: 7}}})
	defer r.close()

	require.Equal(t, []string{"h.hw", "h.init"}, log.events, "setup order mismatch")
	log.events = nil

	r.feedLine("png")
	r.app.Poll()
	require.Equal(t, "png\r\n", r.output(), "typed line must be echoed back")
	require.Equal(t, []string{"h.cmd(7,0,0)", "h.poll"}, log.events)
}

func TestAppOneLinePerPoll(t *testing.T) {
	log := &eventLog{}
	h := &scriptedHandler{name: "h", log: log}
	r := newAppRig(t, Config{EchoOff: true},
		Binding{Handler: h, Cmds: []CmdSpec{{Name: "PNG", Opcode: 7}}})
	defer r.close()
	log.events = nil

	r.feedLine("png")
	r.feedLine("png")
	r.app.Poll()
	require.Equal(t, []string{"h.cmd(7,0,0)", "h.poll"}, log.events)
	r.app.Poll()
	require.Equal(t, []string{"h.cmd(7,0,0)", "h.poll", "h.cmd(7,0,0)", "h.poll"}, log.events)
}

func TestAppEchoToggle(t *testing.T) {
	log := &eventLog{}
	h := &scriptedHandler{name: "h", log: log}
	r := newAppRig(t, Config{},
		Binding{Handler: h, Cmds: []CmdSpec{{Name: "PNG", Opcode: 7}}})
	defer r.close()

	r.feedLine("ECH 0")
	r.app.Poll()
	require.Equal(t, "ECH 0\r\n", r.output(), "the toggling line itself is echoed")

	r.feedLine("png")
	r.app.Poll()
	require.Equal(t, "", r.output(), "echo disabled")

	r.feedLine("ECH 1")
	r.app.Poll()
	require.Equal(t, "", r.output(), "the re-enabling line is not echoed")

	r.feedLine("png")
	r.app.Poll()
	require.Equal(t, "png\r\n", r.output())
}

func TestAppEchoNeedsOneArgument(t *testing.T) {
	r := newAppRig(t, Config{EchoOff: true})
	defer r.close()

	r.feedLine("ECH")
	r.app.Poll()
	require.Equal(t, "Unrecognized command:  \"ECH\". Type \"?\" or \"HLP\" for help.\r\n", r.output())

	r.feedLine("ECH 1 2")
	r.app.Poll()
	require.Equal(t, "Unrecognized command:  \"ECH 1 2\". Type \"?\" or \"HLP\" for help.\r\n", r.output())
}

func TestAppUnrecognized(t *testing.T) {
	r := newAppRig(t, Config{EchoOff: true})
	defer r.close()

	r.feedLine("xyz")
	r.app.Poll()
	require.Equal(t, "Unrecognized command:  \"xyz\". Type \"?\" or \"HLP\" for help.\r\n", r.output())

	r.feedLine("no\x01pe")
	r.app.Poll()
	require.Equal(t, "Unrecognized command:  \"no<01>pe\". Type \"?\" or \"HLP\" for help.\r\n", r.output(),
		"non-printable bytes render as hex")
}

func TestAppWrongArgCountRejects(t *testing.T) {
	log := &eventLog{}
	h1 := &scriptedHandler{name: "h1", log: log}
	h2 := &scriptedHandler{name: "h2", log: log}
	r := newAppRig(t, Config{EchoOff: true},
		Binding{Handler: h1, Cmds: []CmdSpec{{Name: "SET", Opcode: 1, Args: 1}}},
		Binding{Handler: h2, Cmds: []CmdSpec{{Name: "SET", Opcode: 2, Args: 2}}})
	defer r.close()
	log.events = nil

	r.feedLine("SET 1 2")
	r.app.Poll()
	require.Equal(t, "Unrecognized command:  \"SET 1 2\". Type \"?\" or \"HLP\" for help.\r\n", r.output())
	require.Equal(t, []string{"h1.poll", "h2.poll"}, log.events, "no handler may run")
}

func TestAppHelpScreen(t *testing.T) {
	log := &eventLog{}
	h := &scriptedHandler{name: "h", log: log, help: "  FOO 1  :  Do foo.\r\n"}
	r := newAppRig(t,
		Config{EchoOff: true, Messages: Messages{HelpBanner: "Test device commands:\r\n"}},
		Binding{Handler: h, Cmds: []CmdSpec{{Name: "FOA", Opcode: 1}}},
		Binding{Handler: h, Cmds: []CmdSpec{{Name: "FOB", Opcode: 2}}})
	defer r.close()

	r.feedLine("?")
	r.app.Poll()
	expect := "\r\n" + "Test device commands:\r\n" +
		"\r\n" + builtinHelp +
		"\r\n" + "  FOO 1  :  Do foo.\r\n" +
		"\r\n"
	require.Equal(t, expect, r.output(), "handler help must appear once despite two rows")
}

func TestAppIdentityQuery(t *testing.T) {
	const ident = "devicetype: test  subtype: rig  revision: 1\r\n"
	r := newAppRig(t, Config{EchoOff: true, Messages: Messages{Identity: ident}})
	defer r.close()

	r.feedLine("idq")
	r.app.Poll()
	require.Equal(t, ident, r.output())

	rd := newAppRig(t, Config{EchoOff: true})
	defer rd.close()

	rd.feedLine("IDQ")
	rd.app.Poll()
	require.Equal(t, "BOGUS", rd.output(), "placeholder identity")
}

func TestAppFreeMemoryQuery(t *testing.T) {
	r := newAppRig(t, Config{EchoOff: true, FreeMemory: func() uint16 { return 1234 }})
	defer r.close()

	r.feedLine("zzm")
	r.app.Poll()
	require.Equal(t, "Available memory:  1234 bytes\r\n", r.output())

	rd := newAppRig(t, Config{EchoOff: true})
	defer rd.close()

	rd.feedLine("ZZM")
	rd.app.Poll()
	require.Equal(t, "Available memory:  65535 bytes\r\n", rd.output())
}

func TestAppTickStatsQuery(t *testing.T) {
	r := newAppRig(t, Config{EchoOff: true})
	defer r.close()

	r.feedLine("ZZE")
	r.app.Poll()
	out := r.output()
	lines := strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n")
	require.Len(t, lines, 35)
	require.Equal(t, "ISR skipped ticks:"+strings.Repeat(" ", 10)+"0", lines[0])
	require.Equal(t, "ISR handler 00 tick overruns:"+strings.Repeat(" ", 11)+"0", lines[1])
	require.Equal(t, "ISR handler 15 tick overruns:"+strings.Repeat(" ", 11)+"0", lines[16])
	require.Equal(t, "Priority poll skipped ticks:"+strings.Repeat(" ", 10)+"0", lines[17])
	require.Equal(t, "Priority poll handler 00 tick overruns:"+strings.Repeat(" ", 11)+"0", lines[18])
	require.Equal(t, "End of skipped ticks.", lines[34])
}

func TestAppReInit(t *testing.T) {
	log := &eventLog{}
	h := &scriptedHandler{name: "h", log: log}
	r := newAppRig(t, Config{EchoOff: true},
		Binding{Handler: h}, Binding{Handler: h})
	defer r.close()

	require.Equal(t, []string{"h.hw", "h.init"}, log.events, "adjacent rows initialize once")
	log.events = nil

	r.feedLine("INI")
	r.app.Poll()
	require.Equal(t, "", r.output())
	require.Equal(t, []string{"h.init", "h.poll"}, log.events)
}

// reportSource emits a scripted list of report messages, one per call.
type reportSource struct {
	NopHandler
	pending []string
}

func (h *reportSource) MakeReport(buf *ReportBuf) bool {
	if len(h.pending) == 0 {
		return false
	}
	SetReport(buf, h.pending[0])
	h.pending = h.pending[1:]
	return true
}

func TestAppReportFlow(t *testing.T) {
	src := &reportSource{pending: []string{"R1\r\n", "R2\r\n", "R3\r\n", "R4\r\n", "R5\r\n"}}
	r := newAppRig(t, Config{EchoOff: true}, Binding{Handler: src})
	defer r.close()

	var got string
	for i := 0; i < 8; i++ {
		r.app.Poll()
		got += r.output()
	}
	require.Equal(t, "R1\r\nR2\r\nR3\r\nR4\r\nR5\r\n", got, "reports must drain in order")
	require.Equal(t, uint32(1), r.app.Stats().ReportsStarved,
		"the full-queue cycle must count one starved handler")
}

// rogueReporter fills its slot completely, ignoring the terminator
// convention.
type rogueReporter struct {
	NopHandler
	fired bool
}

func (h *rogueReporter) MakeReport(buf *ReportBuf) bool {
	if h.fired {
		return false
	}
	h.fired = true
	for i := range buf {
		buf[i] = 'A'
	}
	return true
}

func TestAppReportOverrunSealed(t *testing.T) {
	r := newAppRig(t, Config{EchoOff: true}, Binding{Handler: &rogueReporter{}})
	defer r.close()

	r.app.Poll()
	r.app.Poll()
	require.Equal(t, strings.Repeat("A", ReportChars-1), r.output(),
		"the forced terminator must bound the message")
}

// tickHandler counts tick-context callbacks.
type tickHandler struct {
	NopHandler
	ticks int
	polls int
}

func (h *tickHandler) HandleTick(*hal.Owner)         { h.ticks++ }
func (h *tickHandler) HandlePollPriority(*hal.Owner) { h.polls++ }

func TestAppTickDispatch(t *testing.T) {
	var hookTicks int
	h := &tickHandler{}
	r := newAppRig(t,
		Config{EchoOff: true, Hooks: Hooks{Tick: func(*hal.Owner) { hookTicks++ }}},
		Binding{Handler: h})
	defer r.close()

	timer := r.sect.NewOwner("timer")
	r.app.AttachClock(timer)
	for i := 0; i < 3; i++ {
		g := timer.Enter(hal.Restore)
		r.clock.TickISR(g)
		g.Leave()
	}

	require.Equal(t, 3, h.ticks)
	require.Equal(t, 3, h.polls)
	require.Equal(t, 3, hookTicks)
	st := r.app.Stats()
	require.Equal(t, uint32(0), st.SkippedTicks)
	require.Equal(t, uint32(0), st.SkippedPolls)
}

// reentrantTicker fires one extra tick from inside its own tick
// handler, as a nested interrupt would.
type reentrantTicker struct {
	NopHandler
	clock *hal.Clock
	fired bool
}

func (h *reentrantTicker) HandleTick(o *hal.Owner) {
	if h.fired {
		return
	}
	h.fired = true
	g := o.Enter(hal.Restore)
	h.clock.TickISR(g)
	g.Leave()
}

func TestAppNestedTickSkips(t *testing.T) {
	h := &reentrantTicker{}
	r := newAppRig(t, Config{EchoOff: true}, Binding{Handler: h})
	defer r.close()
	h.clock = r.clock

	timer := r.sect.NewOwner("timer")
	r.app.AttachClock(timer)
	g := timer.Enter(hal.Restore)
	r.clock.TickISR(g)
	g.Leave()

	require.Equal(t, uint32(2), r.clock.Query(r.main))
	st := r.app.Stats()
	require.Equal(t, uint32(1), st.SkippedTicks, "the nested tick must skip the busy quick phase")
	require.Equal(t, uint32(1), st.TickOverruns[0], "the quick phase spanned the nested tick")
}
