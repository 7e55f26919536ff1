// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/control"
	"github.com/chotop-overlay/chotop/lib/netutil"
	"github.com/chotop-overlay/chotop/lib/protocol"
	"github.com/chotop-overlay/chotop/lib/version"
)

// newRoot returns the command tree. Results are written to stdout.
func newRoot(stdout io.Writer) *Command {
	return &Command{
		Name:    "chotopctl",
		Summary: "Control a running chotop overlay and simulate a chat-client plugin.",
		Subcommands: []*Command{
			testModeCommand(stdout),
			reloadCommand(stdout),
			simpleControlCommand(stdout, "restart", "Restart the overlay process", control.Restart),
			simpleControlCommand(stdout, "quit", "Stop the overlay", control.Quit),
			sendCommand(stdout),
			demoCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func([]string) error {
					fmt.Fprintf(stdout, "chotopctl %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// controlOptions are the flags shared by commands that talk to the
// control socket.
type controlOptions struct {
	socketPath string
	timeout    time.Duration
}

func (o *controlOptions) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.socketPath, "socket", "", "control socket path (default from $CHOTOP_CONFIG or the built-in default)")
	flagSet.DurationVar(&o.timeout, "timeout", control.DefaultTimeout, "time allowed for the daemon to acknowledge")
}

// send delivers command and reports the acknowledgment.
func (o *controlOptions) send(stdout io.Writer, command control.Command) error {
	socketPath := o.socketPath
	if socketPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		socketPath = cfg.Control.SocketPath
	}

	client := control.NewClient(socketPath)
	client.Timeout = o.timeout
	if err := client.Send(context.Background(), command); err != nil {
		return fmt.Errorf("%s: %w", command.Kind, err)
	}
	fmt.Fprintf(stdout, "%s: %s\n", command.Kind, control.Acknowledgment)
	return nil
}

func testModeCommand(stdout io.Writer) *Command {
	var options controlOptions
	return &Command{
		Name:    "test-mode",
		Summary: "Show or hide the fake test channel",
		Usage:   "chotopctl test-mode on|off [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("test-mode", pflag.ContinueOnError)
			options.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: chotopctl test-mode on|off")
			}
			switch args[0] {
			case "on":
				return options.send(stdout, control.EnableTestMode())
			case "off":
				return options.send(stdout, control.DisableTestMode())
			default:
				return fmt.Errorf("test-mode takes on or off, got %q", args[0])
			}
		},
	}
}

func reloadCommand(stdout io.Writer) *Command {
	var options controlOptions
	return &Command{
		Name:    "reload",
		Summary: "Validate a configuration file and apply it to the running overlay",
		Usage:   "chotopctl reload [file] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("reload", pflag.ContinueOnError)
			options.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: chotopctl reload [file]")
			}
			path := os.Getenv("CHOTOP_CONFIG")
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no configuration file given and $CHOTOP_CONFIG is unset")
			}

			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration %s: %w", path, err)
			}
			return options.send(stdout, control.UpdateConfig(cfg))
		},
	}
}

func simpleControlCommand(stdout io.Writer, name, summary string, build func() control.Command) *Command {
	var options controlOptions
	return &Command{
		Name:    name,
		Summary: summary,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			options.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%s takes no arguments", name)
			}
			return options.send(stdout, build())
		},
	}
}

// streamOptions are the flags of the plugin simulators.
type streamOptions struct {
	address string
	delay   time.Duration
	hold    time.Duration
}

func (o *streamOptions) addFlags(flagSet *pflag.FlagSet, delay time.Duration) {
	defaultAddress := config.Default().Ingest.Address()
	flagSet.StringVar(&o.address, "address", defaultAddress, "overlay websocket address")
	flagSet.DurationVar(&o.delay, "delay", delay, "pause between messages")
	flagSet.DurationVar(&o.hold, "hold", 0, "keep the connection open this long after the last message")
}

func sendCommand(stdout io.Writer) *Command {
	var options streamOptions
	return &Command{
		Name:    "send",
		Summary: "Send plugin messages from a file, one JSON object per line",
		Usage:   "chotopctl send [file|-] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("send", pflag.ContinueOnError)
			options.addFlags(flagSet, 0)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: chotopctl send [file|-]")
			}
			input := io.Reader(os.Stdin)
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				input = file
			}

			messages, err := readMessages(input)
			if err != nil {
				return err
			}
			return stream(context.Background(), stdout, options, messages)
		},
	}
}

// readMessages reads one message per non-blank line and checks that
// each parses.
func readMessages(input io.Reader) ([][]byte, error) {
	var messages [][]byte
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for line := 1; scanner.Scan(); line++ {
		message := bytes.TrimSpace(scanner.Bytes())
		if len(message) == 0 {
			continue
		}
		if _, err := protocol.Parse(message); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		messages = append(messages, bytes.Clone(message))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return messages, nil
}

func demoCommand(stdout io.Writer) *Command {
	var options streamOptions
	return &Command{
		Name:    "demo",
		Summary: "Play a scripted voice session against the overlay",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("demo", pflag.ContinueOnError)
			options.addFlags(flagSet, time.Second)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("demo takes no arguments")
			}
			messages, err := encodeAll(demoScript())
			if err != nil {
				return err
			}
			return stream(context.Background(), stdout, options, messages)
		},
	}
}

// demoScript is a short voice session: registration, a join, speaking
// changes, a newcomer, a notification and a departure.
func demoScript() []protocol.Event {
	channel := protocol.String("demo")
	return []protocol.Event{
		protocol.ConfigReceived{Config: protocol.Registration{
			Port:   protocol.Int(config.DefaultPort),
			UserID: protocol.String("100"),
		}},
		protocol.ChannelJoined{ChannelName: "Demo Channel", Users: []protocol.VoiceUser{
			{UserID: "100", Username: "You", ChannelID: channel},
			{UserID: "101", Username: "Alice Smith", ChannelID: channel},
		}},
		protocol.VoiceStateUpdate{State: protocol.VoiceUserPartial{UserID: "101", Speaking: protocol.Bool(true)}},
		protocol.VoiceStateUpdate{State: protocol.VoiceUserPartial{
			UserID: "102", Username: protocol.String("Bob"), ChannelID: channel, Mute: protocol.Bool(true),
		}},
		protocol.VoiceStateUpdate{State: protocol.VoiceUserPartial{UserID: "101", Speaking: protocol.Bool(false)}},
		protocol.Notification{Content: protocol.NotificationContent{
			Title: "Alice Smith", Body: "are you still coming tonight?", ChannelID: protocol.String("555"),
		}},
		protocol.VoiceStateUpdate{State: protocol.VoiceUserPartial{UserID: "102", Streaming: protocol.Bool(true)}},
		protocol.VoiceStateUpdate{State: protocol.VoiceUserPartial{UserID: "101", ChannelID: protocol.String("")}},
	}
}

func encodeAll(events []protocol.Event) ([][]byte, error) {
	messages := make([][]byte, 0, len(events))
	for _, event := range events {
		data, err := protocol.Encode(event)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", event.Command(), err)
		}
		messages = append(messages, data)
	}
	return messages, nil
}

// stream writes messages to the overlay over one websocket connection.
// Closing the connection afterwards makes the overlay leave the
// channel.
func stream(ctx context.Context, stdout io.Writer, options streamOptions, messages [][]byte) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+options.address, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", options.address, err)
	}
	defer conn.Close()

	for index, message := range messages {
		if index > 0 && options.delay > 0 {
			time.Sleep(options.delay)
		}
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return fmt.Errorf("sending message %d: %w", index+1, err)
		}
	}
	fmt.Fprintf(stdout, "sent %d messages to %s\n", len(messages), options.address)

	if options.hold > 0 {
		time.Sleep(options.hold)
	}
	err = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if err != nil && !netutil.IsExpectedCloseError(err) {
		return fmt.Errorf("closing connection: %w", err)
	}
	return nil
}
