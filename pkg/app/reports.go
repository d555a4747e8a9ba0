package app

// ReportBuf holds one outgoing report message as a NUL-terminated
// string. Generators write into it up to the terminator; the queue
// forces the last byte to NUL after every fill, so an overrunning
// generator is truncated rather than trusted.
type ReportBuf [ReportChars]byte

// SetReport copies s into buf, truncating to fit with the terminator.
func SetReport(buf *ReportBuf, s string) {
	n := copy(buf[:ReportChars-1], s)
	buf[n] = 0
}

// String returns the message up to its terminator.
func (b *ReportBuf) String() string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

// reportQueue is the fixed ring of outgoing report messages. Slots are
// filled in place by the handlers' report generators and drained one
// at a time through the serial channel.
type reportQueue struct {
	slots   []ReportBuf
	rd      int
	wr      int
	count   int
	sending bool   // the rd slot is installed as the transmit source
	starved uint32 // fill requests not made because the queue was full
}

func newReportQueue(depth int) *reportQueue {
	return &reportQueue{slots: make([]ReportBuf, depth)}
}

// reset empties the queue. Slot contents are terminated rather than
// cleared; a stale tail is unreachable past the NUL.
func (q *reportQueue) reset() {
	q.rd = 0
	q.wr = 0
	q.count = 0
	q.sending = false
	q.starved = 0
	for i := range q.slots {
		q.slots[i][0] = 0
	}
}

func (q *reportQueue) full() bool {
	return q.count >= len(q.slots)
}

// head returns the oldest queued message.
func (q *reportQueue) head() *ReportBuf {
	return &q.slots[q.rd]
}

// retire drops the oldest queued message once its transmission is
// over.
func (q *reportQueue) retire() {
	q.sending = false
	q.count--
	q.rd++
	if q.rd >= len(q.slots) {
		q.rd = 0
	}
}

// writeSlot returns the next free slot. Valid only while !full().
func (q *reportQueue) writeSlot() *ReportBuf {
	return &q.slots[q.wr]
}

// commit seals the slot returned by writeSlot and queues it. The
// forced terminator bounds whatever the generator wrote.
func (q *reportQueue) commit() {
	q.slots[q.wr][ReportChars-1] = 0
	q.count++
	q.wr++
	if q.wr >= len(q.slots) {
		q.wr = 0
	}
}
