package hal

import "time"

// AnalogChannels is the number of multiplexed analog inputs.
const AnalogChannels = 8

// Converter is the hardware behind the analog scheduler. It performs
// one conversion at a time; every method is invoked inside the
// section.
type Converter interface {
	// Start begins a conversion on the given channel.
	Start(channel uint8)
	// Busy reports whether a conversion is still in progress.
	Busy() bool
	// Result returns the most recently completed sample, left-aligned
	// to the full 16-bit scale.
	Result() uint16
}

// ADC sequences batch conversions across the analog channels, one
// hardware conversion in flight at a time, lowest-numbered channel
// first. Completed samples are held per channel until read; the
// scheduler is idle once no channel is awaiting conversion.
type ADC struct {
	sect *Section
	conv Converter

	idle  bool
	needs [AnalogChannels]bool
	ready [AnalogChannels]bool
	data  [AnalogChannels]uint16
}

// NewADC creates the scheduler around a hardware converter.
func NewADC(sect *Section, conv Converter) *ADC {
	a := &ADC{sect: sect, conv: conv, idle: true}
	return a
}

func (a *ADC) reinit() {
	for ch := 0; ch < AnalogChannels; ch++ {
		a.needs[ch] = false
		a.ready[ch] = false
		a.data[ch] = 0
	}
}

// StartConversion requests a batch of conversions, one mask bit per
// channel. The request is ignored unless the scheduler is idle. An
// accepted request discards any unread samples, marks the requested
// channels and starts the lowest-numbered one.
func (a *ADC) StartConversion(o *Owner, channelMask uint8) {
	g := o.Enter(Restore)
	defer g.Leave()
	if !a.idle {
		return
	}
	a.reinit()
	first := -1
	for ch := 0; ch < AnalogChannels; ch++ {
		if channelMask&(1<<uint(ch)) != 0 {
			a.needs[ch] = true
			if first < 0 {
				first = ch
			}
		}
	}
	if first >= 0 {
		a.idle = false
		a.conv.Start(uint8(first))
	}
}

// HousekeepingISR advances the sequence: once the hardware is no
// longer busy, the lowest-numbered pending channel receives the
// completed result and the next pending channel, if any, is started.
// Typically called from the tick interrupt.
func (a *ADC) HousekeepingISR(g Guard) {
	a.sect.mustHold(g)
	a.housekeeping()
}

// Housekeeping is the main-line form of HousekeepingISR.
func (a *ADC) Housekeeping(o *Owner) {
	g := o.Enter(Restore)
	a.housekeeping()
	g.Leave()
}

func (a *ADC) housekeeping() {
	if a.idle || a.conv.Busy() {
		return
	}

	// A conversion just finished. The lowest pending channel is the
	// one that was converting.
	pending := 0
	next := 0
	for ch := 0; ch < AnalogChannels; ch++ {
		if a.needs[ch] {
			pending++
			switch pending {
			case 1:
				a.needs[ch] = false
				a.ready[ch] = true
				a.data[ch] = a.conv.Result()
			case 2:
				next = ch
			}
		}
	}

	if pending <= 1 {
		a.idle = true
	} else {
		a.conv.Start(uint8(next))
	}
}

// DataReady reports whether unread samples are available. It answers
// only once the whole batch has finished; mid-batch it stays false.
func (a *ADC) DataReady(o *Owner) bool {
	g := o.Enter(Restore)
	defer g.Leave()
	if !a.idle {
		return false
	}
	for ch := 0; ch < AnalogChannels; ch++ {
		if a.ready[ch] {
			return true
		}
	}
	return false
}

// WaitForData busy-waits until DataReady, sleeping a small fixed
// quantum between polls. The batch must be driven to completion by
// housekeeping calls from another context, or this never returns.
func (a *ADC) WaitForData(o *Owner) {
	for !a.DataReady(o) {
		time.Sleep(waitQuantum)
	}
}

// ReadPendingSample consumes the lowest-numbered unread sample,
// returning its value and channel. It finds nothing mid-batch; only a
// finished batch is readable.
func (a *ADC) ReadPendingSample(o *Owner) (value uint16, channel uint8, ok bool) {
	g := o.Enter(Restore)
	defer g.Leave()
	if !a.idle {
		return 0, 0, false
	}
	for ch := 0; ch < AnalogChannels; ch++ {
		if a.ready[ch] {
			a.ready[ch] = false
			return a.data[ch], uint8(ch), true
		}
	}
	return 0, 0, false
}
