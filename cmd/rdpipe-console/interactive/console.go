// Package interactive provides the command prompt for rdpipe-console.
package interactive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/driver"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/examples"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/handler"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/protocol"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/transport"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// Console is the interactive prompt around one protocol handler. One
// of speech and braille is set depending on the mirrored driver kind.
type Console struct {
	speech  *handler.SpeechHandler
	braille *handler.BrailleHandler
	rl      *readline.Instance
}

// NewSpeechConsole creates a console around a speech handler and wires
// the simulated synthesizer's output to the prompt.
func NewSpeechConsole(h *handler.SpeechHandler, synth *examples.SimulatedSynth) (*Console, error) {
	rl, err := newReadline("speech> ")
	if err != nil {
		return nil, err
	}
	c := &Console{speech: h, rl: rl}

	synth.OnOutput = func(text string) {
		fmt.Fprintf(rl.Stdout(), "[synth] %s\n", text)
	}
	h.SetIndexReachedCallback(func(index int) {
		fmt.Fprintf(rl.Stdout(), "[peer] index reached: %d\n", index)
	})

	registerPeerReceivers(h.RemoteHandler)
	return c, nil
}

// NewBrailleConsole creates a console around a braille handler and
// wires the simulated display's output to the prompt.
func NewBrailleConsole(h *handler.BrailleHandler, display *examples.SimulatedDisplay) (*Console, error) {
	rl, err := newReadline("braille> ")
	if err != nil {
		return nil, err
	}
	c := &Console{braille: h, rl: rl}

	display.OnDisplay = func(cells []byte) {
		fmt.Fprintf(rl.Stdout(), "[display] % x\n", cells)
	}
	h.SetExecuteGestureCallback(func(gesture driver.Gesture) error {
		fmt.Fprintf(rl.Stdout(), "[peer] gesture: %s (route %d)\n", gesture.ID, gesture.Route)
		return nil
	})

	registerPeerReceivers(h.RemoteHandler)
	return c, nil
}

// registerPeerReceivers adds the receivers the controlling role needs
// to fetch the peer's setting metadata.
func registerPeerReceivers(h *handler.RemoteHandler) {
	h.RegisterAttributeReceiver(protocol.NewAttributeReceiver(
		wire.AttrSupportedSettings,
		func(payload []byte) (any, error) {
			var settings []driver.Setting
			if err := wire.Unmarshal(payload, &settings); err != nil {
				return nil, err
			}
			return settings, nil
		},
		protocol.StaticDefault([]driver.Setting{}),
	))
	h.RegisterAttributeReceiver(protocol.NewWildcardAttributeReceiver(
		"available*s",
		func(attribute wire.Attribute, payload []byte) (any, error) {
			var values map[string]string
			if err := wire.Unmarshal(payload, &values); err != nil {
				return nil, err
			}
			return values, nil
		},
		func(attribute wire.Attribute) (any, error) {
			return map[string]string{}, nil
		},
	))
}

func newReadline(prompt string) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

func (c *Console) base() *handler.RemoteHandler {
	if c.speech != nil {
		return c.speech.RemoteHandler
	}
	return c.braille.RemoteHandler
}

// Callbacks returns the transport callbacks of the wrapped handler.
func (c *Console) Callbacks() transport.Callbacks {
	return c.base().Callbacks()
}

// Bind attaches the transport to the wrapped handler.
func (c *Console) Bind(dev transport.Transport) {
	c.base().Bind(dev)
}

// Run starts the prompt loop and blocks until the user exits.
func (c *Console) Run() {
	defer c.rl.Close()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "get":
			c.cmdGet(args)

		case "req":
			c.cmdReq(args)

		case "cached":
			c.cmdCached(args)

		case "settings":
			c.cmdSettings()

		case "setting":
			c.cmdSetting(args)

		case "speak":
			c.cmdSpeak(args)

		case "cancel":
			c.cmdCancel()

		case "pause":
			c.cmdPause(args)

		case "display", "d":
			c.cmdDisplay(args)

		case "cells":
			c.cmdCells()

		case "intercept":
			c.cmdIntercept(args)

		case "gesture":
			c.cmdGesture(args)

		case "focus":
			c.cmdFocus()

		case "status":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command %q, try 'help'\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	out := c.rl.Stdout()
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  get <attr>              Fetch a remote attribute (blocks)")
	fmt.Fprintln(out, "  req <attr>              Request a remote attribute (async)")
	fmt.Fprintln(out, "  cached <attr>           Show the cached attribute value")
	fmt.Fprintln(out, "  settings                Fetch the peer's supported settings")
	fmt.Fprintln(out, "  setting get <id>        Fetch one peer setting value")
	fmt.Fprintln(out, "  setting set <id> <v>    Push a setting value to the peer")
	if c.speech != nil {
		fmt.Fprintln(out, "  speak <text...>         Speak text on the peer")
		fmt.Fprintln(out, "  cancel                  Stop the peer's speech")
		fmt.Fprintln(out, "  pause on|off            Pause or resume the peer's speech")
	}
	if c.braille != nil {
		fmt.Fprintln(out, "  display <text>          Write cells to the peer's display")
		fmt.Fprintln(out, "  cells                   Fetch the peer display's size")
		fmt.Fprintln(out, "  intercept <ids...>      Ask the peer to forward these gestures")
		fmt.Fprintln(out, "  gesture <id> [route]    Forward a gesture to the peer")
	}
	fmt.Fprintln(out, "  focus                   Show the remote focus decision")
	fmt.Fprintln(out, "  status                  Show connection status")
	fmt.Fprintln(out, "  quit                    Exit")
}

func (c *Console) timeout() time.Duration {
	return c.base().Configuration().AttributeTimeout()
}

func (c *Console) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "usage: get <attr>")
		return
	}
	v, err := c.base().GetRemoteAttribute(wire.Attribute(args[0]), c.timeout())
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "%s = %v\n", args[0], v)
}

func (c *Console) cmdReq(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "usage: req <attr>")
		return
	}
	if err := c.base().RequestRemoteAttribute(wire.Attribute(args[0])); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "requested")
}

func (c *Console) cmdCached(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "usage: cached <attr>")
		return
	}
	v, err := c.base().Values().GetValue(wire.Attribute(args[0]))
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "%s = %v\n", args[0], v)
}

func (c *Console) cmdSettings() {
	v, err := c.base().GetRemoteAttribute(wire.AttrSupportedSettings, c.timeout())
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
		return
	}
	settings, ok := v.([]driver.Setting)
	if !ok {
		fmt.Fprintf(c.rl.Stdout(), "unexpected value %v\n", v)
		return
	}
	if len(settings) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "peer reports no settings")
		return
	}
	for _, setting := range settings {
		suffix := ""
		if setting.Available {
			suffix = " (enumerable)"
		}
		fmt.Fprintf(c.rl.Stdout(), "  %-16s %s%s\n", setting.ID, setting.DisplayName, suffix)
	}
}

func (c *Console) cmdSetting(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "usage: setting get <id> | setting set <id> <value>")
		return
	}
	switch args[0] {
	case "get":
		value, err := c.base().GetRemoteSettingValue(args[1], c.timeout())
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
			return
		}
		fmt.Fprintf(c.rl.Stdout(), "%s = %s\n", args[1], value)
	case "set":
		if len(args) != 3 {
			fmt.Fprintln(c.rl.Stdout(), "usage: setting set <id> <value>")
			return
		}
		if err := c.base().SetRemoteSettingValue(args[1], parseValue(args[2])); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
			return
		}
		fmt.Fprintln(c.rl.Stdout(), "sent")
	default:
		fmt.Fprintln(c.rl.Stdout(), "usage: setting get <id> | setting set <id> <value>")
	}
}

func (c *Console) cmdSpeak(args []string) {
	if c.speech == nil {
		fmt.Fprintln(c.rl.Stdout(), "not a speech connection")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "usage: speak <text...>")
		return
	}
	sequence := []driver.SpeechItem{
		driver.TextItem(strings.Join(args, " ")),
		driver.IndexItem(1),
	}
	if err := c.speech.SpeakRemote(sequence); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
	}
}

func (c *Console) cmdCancel() {
	if c.speech == nil {
		fmt.Fprintln(c.rl.Stdout(), "not a speech connection")
		return
	}
	if err := c.speech.CancelRemote(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
	}
}

func (c *Console) cmdPause(args []string) {
	if c.speech == nil {
		fmt.Fprintln(c.rl.Stdout(), "not a speech connection")
		return
	}
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(c.rl.Stdout(), "usage: pause on|off")
		return
	}
	if err := c.speech.PauseRemote(args[0] == "on"); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
	}
}

func (c *Console) cmdDisplay(args []string) {
	if c.braille == nil {
		fmt.Fprintln(c.rl.Stdout(), "not a braille connection")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "usage: display <text>")
		return
	}
	if err := c.braille.DisplayRemote([]byte(strings.Join(args, " "))); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
	}
}

func (c *Console) cmdCells() {
	if c.braille == nil {
		fmt.Fprintln(c.rl.Stdout(), "not a braille connection")
		return
	}
	cells, err := c.braille.RemoteNumCells(c.timeout())
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "peer display has %d cells\n", cells)
}

func (c *Console) cmdIntercept(args []string) {
	if c.braille == nil {
		fmt.Fprintln(c.rl.Stdout(), "not a braille connection")
		return
	}
	if err := c.braille.InterceptRemoteGestures(args); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "intercepting %d gestures\n", len(args))
}

func (c *Console) cmdGesture(args []string) {
	if c.braille == nil {
		fmt.Fprintln(c.rl.Stdout(), "not a braille connection")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "usage: gesture <id> [route]")
		return
	}
	gesture := driver.Gesture{ID: args[0], Route: -1}
	if len(args) > 1 {
		route, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "bad route %q\n", args[1])
			return
		}
		gesture.Route = route
	}
	if err := c.braille.ForwardGesture(gesture); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "error: %v\n", err)
	}
}

func (c *Console) cmdFocus() {
	fmt.Fprintf(c.rl.Stdout(), "remote session has focus: %v\n", c.base().HasFocus())
}

func (c *Console) cmdStatus() {
	out := c.rl.Stdout()
	dev := c.base().Transport()
	if dev == nil {
		fmt.Fprintln(out, "not connected")
		return
	}
	fmt.Fprintf(out, "connection: %s\n", dev.ID())
	fmt.Fprintf(out, "peer:       %s\n", dev.RemoteAddr())
	fmt.Fprintf(out, "driver:     %s\n", c.base().DriverType())
}

// parseValue maps a console argument to a wire value: booleans and
// integers by shape, everything else as a string.
func parseValue(s string) wire.Value {
	switch s {
	case "true":
		return wire.BoolValue(true)
	case "false":
		return wire.BoolValue(false)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return wire.IntValue(n)
	}
	return wire.StringValue(s)
}
