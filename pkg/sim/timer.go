package sim

import (
	"context"
	"runtime"
	"time"

	"github.com/robotalks/mcu.go/pkg/hal"
)

// Timer emulates the tick interrupt. In realtime mode ticks follow the
// wall clock at the configured interval; otherwise virtual time runs
// as fast as the host allows.
type Timer struct {
	board    *Board
	owner    *hal.Owner
	tickMs   int
	realtime bool
}

// Name implements framework.Named.
func (t *Timer) Name() string {
	return "timer"
}

// Run implements framework.Runnable.
func (t *Timer) Run(ctx context.Context) error {
	if !t.realtime {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			t.Tick()
			// let the polling goroutines advance between ticks
			runtime.Gosched()
		}
	}

	ticker := time.NewTicker(time.Duration(t.tickMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick fires one tick interrupt.
func (t *Timer) Tick() {
	g := t.owner.Enter(hal.Restore)
	t.board.Clock.TickISR(g)
	g.Leave()
}
