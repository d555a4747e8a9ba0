package sim

import (
	"github.com/robotalks/mcu.go/pkg/hal"
)

// Board assembles the emulated peripherals around one section. The
// interrupt sources of the real chip become methods driven by
// goroutines: Timer fires the tick, FeedRecv delivers console input,
// NextSendChunk drains console output.
type Board struct {
	Sect  *hal.Section
	Clock *hal.Clock
	UART  *hal.UART
	ADC   *hal.ADC

	config Config

	txWake  chan struct{}
	rxOwner *hal.Owner
	txOwner *hal.Owner
}

// NewBoard creates a Board. The config is validated and normalized.
func NewBoard(config Config) (*Board, error) {
	if err := Validate(&config); err != nil {
		return nil, err
	}
	Normalize(&config)

	b := &Board{
		Sect:   hal.NewSection(),
		config: config,
		txWake: make(chan struct{}, 1),
	}
	b.rxOwner = b.Sect.NewOwner("uart-rx")
	b.txOwner = b.Sect.NewOwner("uart-tx")

	uart, err := hal.NewUART(b.Sect, hal.UARTConfig{
		Lines:    config.UART.Lines,
		LineSize: config.UART.LineSize,
		Transmit: hal.TransmitFunc(b.wakeTransmit),
	})
	if err != nil {
		return nil, err
	}
	b.UART = uart
	if config.UART.FilterEmpty {
		b.UART.SetLineFiltering(b.rxOwner, true)
	}

	conv, err := newConverter(config.ADC)
	if err != nil {
		return nil, err
	}
	b.Clock = hal.NewClock(b.Sect)
	b.ADC = hal.NewADC(b.Sect, conv)
	return b, nil
}

// Config returns the normalized board config.
func (b *Board) Config() Config {
	return b.config
}

// QueryBaud reports the configured console rate.
func (b *Board) QueryBaud() int {
	return b.config.Baud
}

// FreeMemory stands in for the free-RAM probe of the real chip; the
// emulated board always reports the maximum.
func (b *Board) FreeMemory() uint16 {
	return 0xffff
}

// FeedRecv delivers console input through the receive interrupt.
func (b *Board) FeedRecv(chunk []byte) {
	g := b.rxOwner.Enter(hal.Restore)
	for _, c := range chunk {
		b.UART.HandleRecvCharISR(g, c)
	}
	g.Leave()
}

// NextSendChunk drains transmitted bytes into buf via the transmit
// interrupt, returning how many were pulled. Zero means the channel
// went idle.
func (b *Board) NextSendChunk(buf []byte) int {
	g := b.txOwner.Enter(hal.Restore)
	n := 0
	for n < len(buf) {
		c, ok := b.UART.NextSendCharISR(g)
		if !ok {
			break
		}
		buf[n] = c
		n++
	}
	g.Leave()
	return n
}

// TransmitPending signals when a transmit source is installed. The
// channel carries at most one pending wake.
func (b *Board) TransmitPending() <-chan struct{} {
	return b.txWake
}

// wakeTransmit runs inside the section when a send is queued.
func (b *Board) wakeTransmit() {
	select {
	case b.txWake <- struct{}{}:
	default:
	}
}

// NewTimer creates the tick interrupt source from the board config.
func (b *Board) NewTimer() *Timer {
	return &Timer{
		board:    b,
		owner:    b.Sect.NewOwner("timer"),
		tickMs:   b.config.TickMs,
		realtime: *b.config.Realtime,
	}
}
