package hal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClockTickAndQuery(t *testing.T) {
	sect := NewSection()
	main := sect.NewOwner("main")
	isr := sect.NewOwner("isr")
	clock := NewClock(sect)

	require.Equal(t, uint32(0), clock.Query(main))

	var seen []uint32
	clock.RegisterCallback(main, func(g Guard) {
		seen = append(seen, clock.QueryISR(g))
	})

	for i := 0; i < 3; i++ {
		g := isr.Enter(Restore)
		clock.TickISR(g)
		g.Leave()
	}

	require.Equal(t, uint32(3), clock.Query(main))
	require.Equal(t, []uint32{1, 2, 3}, seen, "callback observes the incremented count")

	clock.Reset(main)
	require.Equal(t, uint32(0), clock.Query(main))
}

func TestClockWraparound(t *testing.T) {
	sect := NewSection()
	main := sect.NewOwner("main")
	isr := sect.NewOwner("isr")
	clock := NewClock(sect)
	clock.ticks = 0xffffffff

	g := isr.Enter(Restore)
	clock.TickISR(g)
	g.Leave()

	require.Equal(t, uint32(0), clock.Query(main), "counter wraps silently")
}
