package sim

import (
	"context"
	"time"

	"github.com/robotalks/mcu.go/pkg/app"
	fx "github.com/robotalks/mcu.go/pkg/framework"
)

// pollQuantum paces the main program loop. The real chip spins flat
// out; the emulation sleeps between polls instead.
const pollQuantum = time.Millisecond

// Program runs the application main loop as a Runnable.
func Program(a *app.App) fx.Runnable {
	return fx.NamedRun("program", fx.RunFunc(func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			a.Poll()
			time.Sleep(pollQuantum)
		}
	}))
}
