package skel

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mcu.go/pkg/cli/sh"
)

var (
	// TimeQueryCmd exposes the time query command.
	TimeQueryCmd = ishell.Cmd{
		Name:    "time.query",
		Aliases: []string{"tq"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Send(c, "TQY")
		}),
	}

	// TimeZeroCmd exposes the time reset command.
	TimeZeroCmd = ishell.Cmd{
		Name:    "time.zero",
		Aliases: []string{"tz"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Send(c, "TZE")
		}),
	}

	// WatchStartCmd exposes the stopwatch start command.
	WatchStartCmd = ishell.Cmd{
		Name:    "sw.start",
		Aliases: []string{"sws"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Send(c, "SWS")
		}),
	}

	// WatchStopCmd exposes the stopwatch stop command.
	WatchStopCmd = ishell.Cmd{
		Name:    "sw.stop",
		Aliases: []string{"swp"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Send(c, "SWP")
		}),
	}

	// WatchLapCmd exposes the stopwatch lap command.
	WatchLapCmd = ishell.Cmd{
		Name:    "sw.lap",
		Aliases: []string{"swl"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Send(c, "SWL")
		}),
	}

	// AnalogReadCmd exposes the one-shot analog conversion command.
	AnalogReadCmd = ishell.Cmd{
		Name:    "adc.read",
		Aliases: []string{"aiq"},
		Help:    "MASK",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("channel mask expected"))
				return
			}
			sh.Send(c, "AIQ "+c.Args[0])
		}),
	}

	// AnalogWatchCmd exposes the periodic analog conversion command.
	AnalogWatchCmd = ishell.Cmd{
		Name:    "adc.watch",
		Aliases: []string{"aip"},
		Help:    "MASK PERIOD",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("channel mask and period expected"))
				return
			}
			sh.Send(c, "AIP "+c.Args[0]+" "+c.Args[1])
		}),
	}
)

func init() {
	sh.AddCmds(
		&TimeQueryCmd,
		&TimeZeroCmd,
		&WatchStartCmd,
		&WatchStopCmd,
		&WatchLapCmd,
		&AnalogReadCmd,
		&AnalogWatchCmd,
	)
}
