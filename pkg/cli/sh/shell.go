// Package sh provides the interactive console client: discovery and
// connection verbs, plus raw pass-through of command lines to the
// device console.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mcu.go/pkg/comm"
	env "github.com/robotalks/mcu.go/pkg/env/host"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *ConsoleConn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// Response collection windows: a reply is done once it pauses for
// replyIdle; replyMax caps the whole wait.
const (
	replyIdle = 200 * time.Millisecond
	replyMax  = 2 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&SendCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print discover output in JSON.")
}

// AddCmds is used by other command providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	// anything that is not a shell verb goes to the device console
	s.Shell.NotFound(func(c *ishell.Context) {
		Send(c, strings.Join(c.RawArgs, " "))
	})
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints DeviceInfo into friendly string for display.
func FormatInfo(info comm.DeviceInfo) string {
	str := info.Ref.Name()
	if info.Meta.Identity != "" {
		str += ": " + info.Meta.Identity
	}
	if info.Meta.Description != "" {
		str += " (" + info.Meta.Description + ")"
	}
	return str
}

// Send passes one command line to the device console and prints the
// response.
func Send(c *ishell.Context, line string) {
	s := ShellFrom(c)
	if s.Conn == nil {
		c.Err(fmt.Errorf("not connected"))
		return
	}
	out, err := s.Conn.Exchange(line, replyIdle, replyMax)
	if out != "" {
		c.Print(out)
	}
	if err != nil {
		c.Err(err)
		s.Disconnect()
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverDevices discovers announced devices.
func (s *Shell) DiscoverDevices(filter func(comm.DeviceInfo) bool) ([]comm.DeviceInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	infoList, err := connector.Discover(context.TODO())
	if err != nil {
		return nil, err
	}
	if filter != nil {
		items := make([]comm.DeviceInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return infoList, nil
}

// SelectDevice discovers devices and asks for a choice.
func (s *Shell) SelectDevice(filter func(comm.DeviceInfo) bool) (*comm.DeviceInfo, error) {
	infoList, err := s.DiscoverDevices(filter)
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 devices discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect connects the device console with ref.
func (s *Shell) Connect(ref comm.DeviceRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	link, err := connector.Connect(context.TODO(), ref)
	if err != nil {
		return err
	}
	s.attach(ref.Name(), link)
	return nil
}

// ConnectConsole connects a direct console URL.
func (s *Shell) ConnectConsole(consoleURL string) error {
	link, err := env.DialConsole(consoleURL)
	if err != nil {
		return err
	}
	s.attach(consoleURL, link)
	return nil
}

func (s *Shell) attach(name string, link comm.Link) {
	if s.Conn != nil {
		s.Conn.Close()
	}
	s.Conn = newConsoleConn(name, link)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
}

// Disconnect disconnects current console.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		if consoleURL := s.Config.ConsoleURL; consoleURL != "" {
			if s.Interactive {
				s.Shell.Printf("Connecting %s ...\n", consoleURL)
			}
			if err := s.ConnectConsole(consoleURL); err != nil {
				log.Fatalf("connect %q failed: %v", consoleURL, err)
			}
		} else if s.Config.Ref.IsValid() {
			if s.Interactive {
				s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
			}
			if err := s.Connect(s.Config.Ref); err != nil {
				log.Fatalf("connect %q failed: %v", s.Config.Ref.Name(), err)
			}
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ConsoleConn is an open console link with a background reader
// buffering device output.
type ConsoleConn struct {
	Name string
	Link comm.Link

	mu    sync.Mutex
	buf   bytes.Buffer
	rdErr error
}

func newConsoleConn(name string, link comm.Link) *ConsoleConn {
	c := &ConsoleConn{Name: name, Link: link}
	go c.pump()
	return c
}

func (c *ConsoleConn) pump() {
	for {
		chunk, err := c.Link.ReadChunk()
		if err != nil {
			c.mu.Lock()
			c.rdErr = err
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.buf.Write(chunk)
		c.mu.Unlock()
	}
}

// Take returns buffered console output. Once the buffer is drained a
// dead link surfaces as the read error.
func (c *ConsoleConn) Take() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.buf.String()
	c.buf.Reset()
	if out == "" && c.rdErr != nil {
		return "", c.rdErr
	}
	return out, nil
}

// SendLine writes one command line to the console.
func (c *ConsoleConn) SendLine(line string) error {
	return c.Link.WriteChunk([]byte(line + "\r\n"))
}

// Exchange sends a line and collects the response until it goes idle.
func (c *ConsoleConn) Exchange(line string, idle, max time.Duration) (string, error) {
	if _, err := c.Take(); err != nil {
		return "", err
	}
	if err := c.SendLine(line); err != nil {
		return "", err
	}
	return c.Collect(idle, max)
}

// Collect gathers output until it pauses for idle, or until max
// elapses with nothing arriving.
func (c *ConsoleConn) Collect(idle, max time.Duration) (string, error) {
	var collected []byte
	deadline := time.Now().Add(max)
	quiet := time.Now().Add(idle)
	for time.Now().Before(deadline) {
		out, err := c.Take()
		if err != nil {
			return string(collected), err
		}
		if out != "" {
			collected = append(collected, out...)
			quiet = time.Now().Add(idle)
		} else if len(collected) > 0 && time.Now().After(quiet) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	return string(collected), nil
}

// Close implements io.Closer.
func (c *ConsoleConn) Close() error {
	return c.Link.Close()
}

var (
	// DiscoverCmd discovers devices.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverDevices(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []comm.DeviceInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No devices found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a device console.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "TYPE ID | URL",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 1 && strings.Contains(c.Args[0], ":") {
				if err := s.ConnectConsole(c.Args[0]); err != nil {
					c.Err(err)
				}
				return
			}
			var ref comm.DeviceRef
			if len(c.Args) >= 2 {
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			} else {
				var filter func(comm.DeviceInfo) bool
				if len(c.Args) == 1 {
					filter = func(info comm.DeviceInfo) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				info, err := s.SelectDevice(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no device discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
				return
			}
		},
	}

	// DisconnectCmd disconnects current console.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SendCmd sends one command line and prints the response.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "LINE...",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("command line expected"))
				return
			}
			Send(c, strings.Join(c.Args, " "))
		}),
	}

	// WatchCmd streams console output for a while.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[SECONDS]",
		Func: MustBeConnected(func(c *ishell.Context) {
			dur := 5 * time.Second
			if len(c.Args) > 0 {
				secs, err := strconv.Atoi(c.Args[0])
				if err != nil || secs <= 0 {
					c.Err(fmt.Errorf("invalid duration %q", c.Args[0]))
					return
				}
				dur = time.Duration(secs) * time.Second
			}
			s := ShellFrom(c)
			deadline := time.Now().Add(dur)
			for time.Now().Before(deadline) {
				out, err := s.Conn.Take()
				if err != nil {
					c.Err(err)
					s.Disconnect()
					return
				}
				if out != "" {
					c.Print(out)
				}
				time.Sleep(50 * time.Millisecond)
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
