package hal

import (
	"errors"
	"math/bits"
	"time"
)

// Transmitter is the hardware hook behind the transmit path. After a
// message is installed, EnableTransmitISR is invoked inside the
// section so the hardware starts draining bytes via NextSendCharISR.
type Transmitter interface {
	EnableTransmitISR()
}

// TransmitFunc is the func form of Transmitter.
type TransmitFunc func()

// EnableTransmitISR implements Transmitter.
func (f TransmitFunc) EnableTransmitISR() {
	f()
}

// Receive ring defaults, sized like the smaller target chip.
const (
	DefaultLines    = 8
	DefaultLineSize = 64
)

// ErrBufferSize indicates a receive ring dimension is not a power of two.
var ErrBufferSize = errors.New("line buffer sizes must be powers of two")

// UARTConfig sizes the receive line ring. Dimensions must be powers of
// two; zero selects the default. Transmit may be nil when nothing
// needs waking.
type UARTConfig struct {
	Lines    int // line slots in the receive ring
	LineSize int // bytes per slot, including the terminating NUL
	Transmit Transmitter
}

// UARTStats counts the silent loss paths of the serial channel.
type UARTStats struct {
	CharsDropped     uint32 // receive bytes beyond a full line slot
	LinesOverwritten uint32 // completed lines reused while the ring was full
}

// UART is the byte-wise serial channel: interrupt-driven receive into
// a ring of line slots, and a single in-flight transmit source drained
// byte by byte. All state is owned by the section. The slot at newest
// is always the in-progress line and is never readable; at most
// Lines-1 complete lines are held.
type UART struct {
	sect *Section
	xmit Transmitter

	lines    int
	lineMask int
	size     int
	sizeBits uint
	buf      []byte // lines * size, flat
	oldest   int
	newest   int
	count    int
	cursor   int // write position in the in-progress slot
	sawCR    bool
	filter   bool // drop empty received lines

	txBytes  []byte
	txStr    string
	txIsStr  bool
	txPos    int
	txActive bool

	stats UARTStats

	scratch [16]byte // shared by the Print helpers
}

// NewUART creates the serial channel.
func NewUART(sect *Section, cfg UARTConfig) (*UART, error) {
	lines, size := cfg.Lines, cfg.LineSize
	if lines == 0 {
		lines = DefaultLines
	}
	if size == 0 {
		size = DefaultLineSize
	}
	if !powerOfTwo(lines) || !powerOfTwo(size) {
		return nil, ErrBufferSize
	}
	u := &UART{
		sect:     sect,
		xmit:     cfg.Transmit,
		lines:    lines,
		lineMask: lines - 1,
		size:     size,
		sizeBits: uint(bits.TrailingZeros32(uint32(size))),
		buf:      make([]byte, lines*size),
	}
	return u, nil
}

func powerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// HandleRecvCharISR consumes one byte from the receive interrupt. CR,
// LF and CRLF each count as one line terminator. Bytes beyond a full
// slot are dropped and counted. When Lines-1 complete lines are
// already held, the in-progress slot is reused for the next line and
// the completed text is lost (counted, never surfaced).
func (u *UART) HandleRecvCharISR(g Guard, c byte) {
	u.sect.mustHold(g)
	switch {
	case u.sawCR && c == '\n':
		// the LF of a CRLF, even with filtering off
	case c == '\n' || c == '\r':
		if u.filter && u.cursor == 0 {
			// empty line with filtering on: overwrite it with the
			// next line
		} else {
			u.finishLine()
		}
	default:
		if u.cursor < u.size {
			u.buf[(u.newest<<u.sizeBits)+u.cursor] = c
			u.cursor++
		} else {
			u.stats.CharsDropped++
		}
	}
	u.sawCR = c == '\r'
}

func (u *UART) finishLine() {
	if u.cursor >= u.size {
		u.cursor = u.size - 1
	}
	u.buf[(u.newest<<u.sizeBits)+u.cursor] = 0

	// Advance to the next slot. count tracks completed lines only;
	// one slot always holds the incomplete line, so the true cap is
	// lines-1.
	if u.count < u.lines-1 {
		u.newest = (u.newest + 1) & u.lineMask
		u.count++
	} else {
		u.stats.LinesOverwritten++
	}

	u.buf[u.newest<<u.sizeBits] = 0
	u.cursor = 0
}

// NextLine returns the oldest complete line without consuming it, nil
// when none is available. The slice aliases the ring and stays valid
// until DoneWithLine.
func (u *UART) NextLine(o *Owner) []byte {
	g := o.Enter(Restore)
	defer g.Leave()
	if u.count == 0 {
		return nil
	}
	start := u.oldest << u.sizeBits
	line := u.buf[start : start+u.size]
	n := 0
	for n < len(line) && line[n] != 0 {
		n++
	}
	return line[:n]
}

// DoneWithLine releases the oldest complete line, whether or not it
// was looked at.
func (u *UART) DoneWithLine(o *Owner) {
	g := o.Enter(Restore)
	if u.count > 0 {
		u.oldest = (u.oldest + 1) & u.lineMask
		u.count--
	}
	g.Leave()
}

// SetLineFiltering toggles dropping of empty received lines.
func (u *UART) SetLineFiltering(o *Owner, filter bool) {
	g := o.Enter(Restore)
	u.filter = filter
	g.Leave()
}

// Stats returns the silent-loss counters.
func (u *UART) Stats(o *Owner) UARTStats {
	g := o.Enter(Restore)
	st := u.stats
	g.Leave()
	return st
}

// QueueSend waits for any in-flight message to finish, then installs
// msg as the transmit source. Transmission stops at the end of msg or
// at the first NUL byte. msg must stay untouched until the send
// completes.
func (u *UART) QueueSend(o *Owner, msg []byte) {
	u.WaitSendDone(o)
	g := o.Enter(Restore)
	u.txBytes, u.txStr, u.txIsStr = msg, "", false
	u.txPos = 0
	u.txActive = true
	if u.xmit != nil {
		u.xmit.EnableTransmitISR()
	}
	g.Leave()
}

// QueueSendString is QueueSend for string sources, the counterpart of
// transmitting from read-only memory.
func (u *UART) QueueSendString(o *Owner, msg string) {
	u.WaitSendDone(o)
	g := o.Enter(Restore)
	u.txBytes, u.txStr, u.txIsStr = nil, msg, true
	u.txPos = 0
	u.txActive = true
	if u.xmit != nil {
		u.xmit.EnableTransmitISR()
	}
	g.Leave()
}

// SendInProgress reports whether a transmit source is still installed.
func (u *UART) SendInProgress(o *Owner) bool {
	g := o.Enter(Restore)
	busy := u.txActive
	g.Leave()
	return busy
}

// WaitSendDone busy-waits until the channel is idle, sleeping a small
// fixed quantum between polls so the section is not hammered. It never
// times out.
func (u *UART) WaitSendDone(o *Owner) {
	for u.SendInProgress(o) {
		time.Sleep(waitQuantum)
	}
}

// NextSendCharISR fetches the next byte of the in-flight message for
// the transmit interrupt. It returns false at the end of the source,
// clearing transmit state; the caller should then stop asking until
// the next QueueSend.
func (u *UART) NextSendCharISR(g Guard) (byte, bool) {
	u.sect.mustHold(g)
	if !u.txActive {
		return 0, false
	}
	var c byte
	if u.txIsStr {
		if u.txPos < len(u.txStr) {
			c = u.txStr[u.txPos]
		}
	} else {
		if u.txPos < len(u.txBytes) {
			c = u.txBytes[u.txPos]
		}
	}
	if c == 0 {
		u.txBytes, u.txStr, u.txIsStr = nil, "", false
		u.txPos = 0
		u.txActive = false
		return 0, false
	}
	u.txPos++
	return c, true
}
