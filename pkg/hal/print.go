package hal

import "strconv"

// Formatted output helpers. They all render into one shared scratch
// buffer, waiting for the previous send to finish before touching it,
// so they can be freely interleaved with QueueSend from the same
// context.

// PrintChar transmits a single character.
func (u *UART) PrintChar(o *Owner, c byte) {
	u.WaitSendDone(o)
	u.scratch[0] = c
	u.QueueSend(o, u.scratch[:1])
}

// PrintUInt transmits an unsigned value in decimal.
func (u *UART) PrintUInt(o *Owner, value uint32) {
	u.WaitSendDone(o)
	buf := strconv.AppendUint(u.scratch[:0], uint64(value), 10)
	u.QueueSend(o, buf)
}

// PrintSInt transmits a signed value in decimal.
func (u *UART) PrintSInt(o *Owner, value int32) {
	u.WaitSendDone(o)
	buf := strconv.AppendInt(u.scratch[:0], int64(value), 10)
	u.QueueSend(o, buf)
}

// PrintHex32 transmits value as 8 hex digits.
func (u *UART) PrintHex32(o *Owner, value uint32) {
	u.printHex(o, value, 8)
}

// PrintHex16 transmits value as 4 hex digits.
func (u *UART) PrintHex16(o *Owner, value uint16) {
	u.printHex(o, uint32(value), 4)
}

// PrintHex8 transmits value as 2 hex digits.
func (u *UART) PrintHex8(o *Owner, value uint8) {
	u.printHex(o, uint32(value), 2)
}

func (u *UART) printHex(o *Owner, value uint32, digits int) {
	u.WaitSendDone(o)
	buf := AppendHex(u.scratch[:0], value, digits)
	u.QueueSend(o, buf)
}
