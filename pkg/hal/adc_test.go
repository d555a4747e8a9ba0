package hal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testConverter is a scripted hardware converter: never busy unless
// told, answers per-channel canned results.
type testConverter struct {
	busy    bool
	results map[uint8]uint16
	current uint8
	started []uint8
}

func (c *testConverter) Start(channel uint8) {
	c.current = channel
	c.started = append(c.started, channel)
}

func (c *testConverter) Busy() bool {
	return c.busy
}

func (c *testConverter) Result() uint16 {
	return c.results[c.current]
}

func newADCForTest(results map[uint8]uint16) (*ADC, *testConverter, *Owner) {
	sect := NewSection()
	conv := &testConverter{results: results}
	return NewADC(sect, conv), conv, sect.NewOwner("main")
}

func TestADCBatchAscending(t *testing.T) {
	adc, conv, main := newADCForTest(map[uint8]uint16{2: 0x2222, 5: 0x5555, 7: 0x7777})

	adc.StartConversion(main, 1<<2|1<<5|1<<7)
	require.Equal(t, []uint8{2}, conv.started, "lowest channel starts first")
	require.False(t, adc.DataReady(main), "no data mid-batch")

	adc.Housekeeping(main)
	require.Equal(t, []uint8{2, 5}, conv.started)
	require.False(t, adc.DataReady(main), "still mid-batch")

	adc.Housekeeping(main)
	require.Equal(t, []uint8{2, 5, 7}, conv.started)

	adc.Housekeeping(main)
	require.True(t, adc.DataReady(main), "batch complete")

	type sample struct {
		value   uint16
		channel uint8
	}
	var got []sample
	for {
		v, ch, ok := adc.ReadPendingSample(main)
		if !ok {
			break
		}
		got = append(got, sample{v, ch})
	}
	require.Equal(t, []sample{{0x2222, 2}, {0x5555, 5}, {0x7777, 7}}, got,
		"each channel reads back exactly once, ascending")
	require.False(t, adc.DataReady(main), "all samples consumed")
}

func TestADCSingleChannel(t *testing.T) {
	adc, conv, main := newADCForTest(map[uint8]uint16{0: 0x8000})

	adc.StartConversion(main, 1<<0)
	adc.Housekeeping(main)
	require.Equal(t, []uint8{0}, conv.started)

	v, ch, ok := adc.ReadPendingSample(main)
	require.True(t, ok)
	require.Equal(t, uint16(0x8000), v)
	require.Equal(t, uint8(0), ch)
}

func TestADCStartIgnoredMidBatch(t *testing.T) {
	adc, conv, main := newADCForTest(map[uint8]uint16{1: 1, 3: 3})

	adc.StartConversion(main, 1<<1|1<<3)
	adc.StartConversion(main, 1<<6)
	require.Equal(t, []uint8{1}, conv.started, "second request ignored while busy")

	adc.Housekeeping(main)
	adc.Housekeeping(main)
	_, ch, ok := adc.ReadPendingSample(main)
	require.True(t, ok)
	require.Equal(t, uint8(1), ch, "original batch unaffected")
}

func TestADCHousekeepingWaitsForHardware(t *testing.T) {
	adc, conv, main := newADCForTest(map[uint8]uint16{4: 4})

	adc.StartConversion(main, 1<<4)
	conv.busy = true
	adc.Housekeeping(main)
	require.False(t, adc.DataReady(main), "nothing completes while hardware is busy")

	conv.busy = false
	adc.Housekeeping(main)
	require.True(t, adc.DataReady(main))
}

func TestADCNewRequestDiscardsUnread(t *testing.T) {
	adc, _, main := newADCForTest(map[uint8]uint16{2: 0x2222, 5: 0x5555})

	adc.StartConversion(main, 1<<2)
	adc.Housekeeping(main)
	require.True(t, adc.DataReady(main))

	// Idle again, so a new request is accepted and the unread sample
	// from channel 2 is gone.
	adc.StartConversion(main, 1<<5)
	adc.Housekeeping(main)

	v, ch, ok := adc.ReadPendingSample(main)
	require.True(t, ok)
	require.Equal(t, uint8(5), ch)
	require.Equal(t, uint16(0x5555), v)
	_, _, ok = adc.ReadPendingSample(main)
	require.False(t, ok)
}

func TestADCZeroMask(t *testing.T) {
	adc, conv, main := newADCForTest(map[uint8]uint16{3: 3})

	adc.StartConversion(main, 1<<3)
	adc.Housekeeping(main)
	require.True(t, adc.DataReady(main))

	// An empty accepted request still reinitializes the buffers.
	adc.StartConversion(main, 0)
	require.False(t, adc.DataReady(main), "unread data discarded")
	require.Equal(t, []uint8{3}, conv.started, "nothing new started")
}
