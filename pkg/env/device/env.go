// Package device configures and assembles an emulated device process
// from flags, environment variables and an optional board YAML file.
package device

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/mcu.go/pkg/comm"
	"github.com/robotalks/mcu.go/pkg/comm/mqtt"
	"github.com/robotalks/mcu.go/pkg/comm/stream"
	wsock "github.com/robotalks/mcu.go/pkg/comm/websocket"
	"github.com/robotalks/mcu.go/pkg/env"
	fx "github.com/robotalks/mcu.go/pkg/framework"
	"github.com/robotalks/mcu.go/pkg/sim"
)

// Config provides common options to set up an emulated device.
type Config struct {
	Info comm.DeviceInfo

	// MQTTBrokerURL announces the device and carries its console over
	// MQTT when set. e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// WebsocketAddr serves the console on ws://addr/ when set.
	WebsocketAddr string
	// Stdio attaches the console to stdin/stdout.
	Stdio bool
	// ConfigFile is an optional YAML file with board settings.
	ConfigFile string

	// Board is the emulated board configuration, overridden by
	// ConfigFile when set.
	Board sim.Config
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/mcu/",
}

func init() {
	if val := os.Getenv("MCU_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("MCU_CONFIG"); val != "" {
		defaultConfig.ConfigFile = val
	}
	defaultConfig.Info.Ref.ID = env.MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Device type.")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Device ID.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty disables MQTT.")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Websocket console listen address.")
	flag.BoolVar(&defaultConfig.Stdio, "stdio", defaultConfig.Stdio, "Attach the console to stdin/stdout.")
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "Board config YAML file.")
}

// SetDeviceType should be called in init with basic info about the
// device.
func SetDeviceType(typ string, meta comm.DeviceMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadBoardConfig reads the board section from ConfigFile, if any.
func (c *Config) LoadBoardConfig() error {
	if c.ConfigFile == "" {
		return nil
	}
	data, err := ioutil.ReadFile(c.ConfigFile)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, &c.Board); err != nil {
		return fmt.Errorf("parse %s: %v", c.ConfigFile, err)
	}
	return nil
}

// Env is the runtime environment of an emulated device: the board, its
// console hub, and every configured console transport.
type Env struct {
	Config  *Config
	Board   *sim.Board
	Console *sim.Console
	Timer   *sim.Timer

	// Registrar is nil when MQTT is disabled.
	Registrar *mqtt.Registrar
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("device type and id must be specified")
	}
	if err := c.LoadBoardConfig(); err != nil {
		return nil, err
	}
	board, err := sim.NewBoard(c.Board)
	if err != nil {
		return nil, err
	}
	e := &Env{
		Config:  c,
		Board:   board,
		Console: sim.NewConsole(board),
		Timer:   board.NewTimer(),
	}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %v", err)
		}
		e.Registrar = reg
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// AddToLoop implements framework.LoopAdder: the board runners plus
// every configured console transport.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(e.Timer, e.Console)
	if e.Config.Stdio {
		e.Console.Attach(stream.Stdio())
	}
	if e.Registrar != nil {
		loop.AddRunnable(fx.NamedRun("mqtt", e.Registrar))
		e.Console.Attach(e.Registrar.Link)
	}
	if addr := e.Config.WebsocketAddr; addr != "" {
		loop.AddRunnable(&wsock.Server{
			Addr:  addr,
			Serve: func(l *wsock.Link) { e.Console.Serve(l) },
		})
	}
}
