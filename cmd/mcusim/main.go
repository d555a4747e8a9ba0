package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"fmt"
	"log"

	"github.com/robotalks/mcu.go/pkg/app"
	"github.com/robotalks/mcu.go/pkg/comm"
	"github.com/robotalks/mcu.go/pkg/device"
	env "github.com/robotalks/mcu.go/pkg/env/device"
	"github.com/robotalks/mcu.go/pkg/framework"
	"github.com/robotalks/mcu.go/pkg/sim"
)

// Identity of the demo firmware.
const (
	deviceTypeNum = 3
	subtypeNum    = 1
	revisionNum   = 1
)

func init() {
	env.SetDeviceType("skel", comm.DeviceMeta{Description: "Demo Device"})
	env.SetupFlags()
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	identity := fmt.Sprintf("devicetype: %d  subtype: %d  revision: %d  serial: %s",
		deviceTypeNum, subtypeNum, revisionNum, conf.Info.Ref.ID)
	conf.Info.Meta.Identity = identity
	e := conf.MustNewEnv()

	watch := device.NewStopwatch(e.Board.Sect)
	monitor := device.NewAnalogMonitor(e.Board.Sect, e.Board.ADC)
	registry, err := app.NewRegistry(append(watch.Bindings(), monitor.Binding())...)
	if err != nil {
		log.Fatalln(err)
	}
	application, err := app.NewApp(app.Config{
		Section:  e.Board.Sect,
		UART:     e.Board.UART,
		Clock:    e.Board.Clock,
		Registry: registry,
		Messages: app.Messages{
			Identity:   identity + "\r\n",
			HelpBanner: "Demo device console.\r\n",
		},
		FreeMemory: e.Board.FreeMemory,
	})
	if err != nil {
		log.Fatalln(err)
	}
	application.InitialSetup()
	application.AttachClock(e.Board.Sect.NewOwner("clock-attach"))

	framework.NewLoop().HandleSignals().
		Add(e).
		AddRunnable(sim.Program(application)).
		RunOrFail()
}
