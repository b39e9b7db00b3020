package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/annie444/radio-hal/internal/log"
	"github.com/annie444/radio-hal/internal/telemetry"
	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/ops"
	"github.com/annie444/radio-hal/pkg/radio"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrPowerOutOfRange = errors.New("power must be in the range [-18, 13] dBm")
)

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, dev radio.Device, opts *commandOptions, args map[string]string) error

type Command struct {
	help     string
	args     []Argument
	optional []Argument
	handler  Handler
}

// commandOptions carries the flag values shared by the radio commands, plus
// the process-wide capture sink and metrics collector.
type commandOptions struct {
	policy     blocking.Policy
	power      int8
	period     time.Duration
	delay      time.Duration
	continuous bool
	appendInfo bool
	parseInfo  bool
	reportFile string
	sink       ops.FrameSink
	metrics    *telemetry.Collector
}

func (o *commandOptions) observer() ops.Observer {
	return &consoleObserver{metrics: o.metrics}
}

// ParsePower validates a transmit power in dBm against the range supported by
// the RFM69 PA0 output stage.
func ParsePower(value int) (int8, error) {
	if value < -18 || value > 13 {
		return 0, ErrPowerOutOfRange
	}
	return int8(value), nil
}

// ParseData decodes a command-line payload. Arguments starting with "0x" are
// hex decoded; anything else is sent as UTF-8 text.
func ParseData(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "0x") || strings.HasPrefix(arg, "0X") {
		data, err := hex.DecodeString(arg[2:])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCommandLineArgs, err)
		}
		return data, nil
	}
	return []byte(arg), nil
}

// FormatPayload renders a received payload for the console. Printable UTF-8
// text passes through unchanged; anything else comes out as 0x-prefixed hex.
func FormatPayload(payload []byte) string {
	if utf8.Valid(payload) {
		printable := true
		for _, r := range string(payload) {
			if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
				printable = false
				break
			}
		}
		if printable {
			return string(payload)
		}
	}
	return "0x" + hex.EncodeToString(payload)
}

// consoleObserver prints command progress to the console and mirrors it into
// the metrics collector when one is configured.
type consoleObserver struct {
	metrics *telemetry.Collector
}

func (o *consoleObserver) FrameTransmitted(n int) {
	log.Debug("Transmitted %d bytes", n)
	if o.metrics != nil {
		o.metrics.FramesTransmitted.Inc()
		o.metrics.BytesTransmitted.Add(float64(n))
	}
}

func (o *consoleObserver) FrameReceived(payload []byte, info radio.RxInfo) {
	fmt.Printf("Received '%s' (%d bytes, %d dBm)\n", FormatPayload(payload), len(payload), info.RSSI())
	if o.metrics != nil {
		o.metrics.FramesReceived.Inc()
		o.metrics.BytesReceived.Add(float64(len(payload)))
		o.metrics.RSSI.Set(float64(info.RSSI()))
	}
}

func (o *consoleObserver) FrameDropped(n int) {
	log.Warning("Dropped %d byte frame: no room to append signal info", n)
	if o.metrics != nil {
		o.metrics.FramesDropped.Inc()
	}
}

func (o *consoleObserver) RSSISample(rssi int16) {
	fmt.Printf("%d dBm\n", rssi)
	if o.metrics != nil {
		o.metrics.RSSI.Set(float64(rssi))
	}
}

func (o *consoleObserver) RoundOutcome(round ops.LinkTestRound) {
	switch {
	case !round.Received:
		log.Debug("Round %d: no response", round.Index)
	case round.RemoteRSSI != nil:
		log.Debug("Round %d: local %d dBm, remote %d dBm", round.Index, *round.LocalRSSI, *round.RemoteRSSI)
	case round.LocalRSSI != nil:
		log.Debug("Round %d: local %d dBm", round.Index, *round.LocalRSSI)
	}
	o.metrics.RecordRound(round.Received)
}

// countingSink wraps the capture sink so recorded frames show up in the
// metrics collector.
type countingSink struct {
	ops.FrameSink
	metrics *telemetry.Collector
}

func (s countingSink) WriteFrame(ts time.Time, payload []byte) error {
	if err := s.FrameSink.WriteFrame(ts, payload); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.CaptureFrames.Inc()
	}
	return nil
}

func execute(ctx context.Context, dev radio.Device, opts *commandOptions, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}

	info, ok := commands[args[0]]
	if !ok {
		return ErrUnknownCommand
	}

	var err error
	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(ctx, dev, opts, keywords)
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(args[0])
	}
	return err
}

func (c *Command) Usage(name string) {
	fmt.Printf("Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" [")
	}
	for _, arg := range c.optional {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" ]")
	}
	fmt.Printf("\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

var commands = map[string]*Command{
	"tx": &Command{
		help: "Transmit DATA, repeating every -period when one is set",
		args: []Argument{
			Argument{name: "DATA", help: "UTF-8 text, or hex bytes with a 0x prefix (e.g., 0x2a2b2c)"},
		},
		handler: func(ctx context.Context, dev radio.Device, opts *commandOptions, args map[string]string) error {
			payload, err := ParseData(args["DATA"])
			if err != nil {
				return err
			}
			return ops.Transmit(ctx, dev, payload, ops.TransmitOptions{
				Power:    &opts.power,
				Period:   opts.period,
				Policy:   opts.policy,
				Observer: opts.observer(),
			})
		},
	},
	"rx": &Command{
		help: "Listen for frames, printing and recording each arrival",
		handler: func(ctx context.Context, dev radio.Device, opts *commandOptions, args map[string]string) error {
			_, err := ops.Receive(ctx, dev, ops.ReceiveOptions{
				Continuous: opts.continuous,
				Sink:       opts.sink,
				Policy:     opts.policy,
				Observer:   opts.observer(),
			})
			return err
		},
	},
	"rssi": &Command{
		help: "Sample ambient signal strength every -period",
		handler: func(ctx context.Context, dev radio.Device, opts *commandOptions, args map[string]string) error {
			return ops.PollRSSI(ctx, dev, ops.RSSIOptions{
				Period:     opts.period,
				Continuous: opts.continuous,
				Observer:   opts.observer(),
			})
		},
	},
	"echo": &Command{
		help: "Reply to each received frame after -delay, appending signal info with -append-info",
		handler: func(ctx context.Context, dev radio.Device, opts *commandOptions, args map[string]string) error {
			_, err := ops.Echo(ctx, dev, ops.EchoOptions{
				Continuous: opts.continuous,
				Power:      &opts.power,
				Delay:      opts.delay,
				AppendInfo: opts.appendInfo,
				Policy:     opts.policy,
				Observer:   opts.observer(),
			})
			return err
		},
	},
	"ping-pong": &Command{
		help: "Run a round-trip link test against an echo peer and print the report",
		optional: []Argument{
			Argument{name: "ROUNDS", help: "Number of rounds to run (default 100)"},
		},
		handler: func(ctx context.Context, dev radio.Device, opts *commandOptions, args map[string]string) error {
			rounds := uint64(100)
			if arg, ok := args["ROUNDS"]; ok {
				var err error
				rounds, err = strconv.ParseUint(arg, 10, 32)
				if err != nil || rounds == 0 {
					return fmt.Errorf("%w: ROUNDS must be a positive integer", ErrCommandLineArgs)
				}
			}
			report, err := ops.LinkTest(ctx, dev, ops.LinkTestOptions{
				Rounds:    uint32(rounds),
				Power:     &opts.power,
				Delay:     opts.delay,
				ParseInfo: opts.parseInfo,
				Policy:    opts.policy,
				Observer:  opts.observer(),
			})
			if err != nil {
				return err
			}
			fmt.Println(report.String())
			if opts.reportFile != "" {
				if err := report.ExportToFile(opts.reportFile); err != nil {
					return err
				}
				log.Debug("Wrote link-test report to %s", opts.reportFile)
			}
			return nil
		},
	},
}
