package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/annie444/radio-hal/internal/log"
	"github.com/annie444/radio-hal/internal/telemetry"
	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/cli"
	"github.com/annie444/radio-hal/pkg/radio"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Commands run against the radio selected with -driver (or $RADIO_DRIVER).
 * The echo and ping-pong commands are the two ends of the same link test.
 * Interrupting (Ctrl-C) a continuous command stops it cleanly.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(dev radio.Device, opts *commandOptions, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, dev, opts, args); err != nil {
		var devErr *blocking.DeviceError
		switch {
		case errors.Is(err, context.Canceled):
			writeErr("Interrupted")
		case blocking.IsTimeout(err):
			writeErr("Timed out: %s", err)
		case errors.As(err, &devErr):
			writeErr("Radio fault: %s", err)
		default:
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(dev radio.Device, opts *commandOptions) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		if args[0] == "help" {
			if len(args) > 1 {
				if info, ok := commands[args[1]]; ok {
					info.Usage(args[1])
				} else {
					writeErr("Unrecognized command: %s", args[1])
				}
			} else {
				Usage()
			}
			continue
		}
		runCommand(dev, opts, args)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug        bool
		interactive  bool
		logFile      string
		power        int
		period       time.Duration
		delay        time.Duration
		continuous   bool
		appendInfo   bool
		parseInfo    bool
		reportFile   string
		pollInterval time.Duration
		opTimeout    time.Duration
	)
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(1)
	}
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.BoolVar(&interactive, "i", false, "Run an interactive command shell")
	flag.StringVar(&logFile, "log-file", "", "Append logs to `file` (with rotation) instead of stderr")
	flag.IntVar(&power, "power", 13, "Transmit `power` in dBm (-18 to 13)")
	flag.DurationVar(&period, "period", 0, "Repeat transmissions at this `interval` (0 transmits once); also the RSSI sampling interval (0 samples every second)")
	flag.DurationVar(&delay, "delay", 100*time.Millisecond, "Turnaround `delay` before echo replies and between link-test rounds")
	flag.BoolVar(&continuous, "continuous", false, "Keep the rx, rssi, and echo commands running until interrupted")
	flag.BoolVar(&appendInfo, "append-info", false, "Append received signal info to echoed frames")
	flag.BoolVar(&parseInfo, "parse-info", false, "Parse signal info appended by the echo peer (requires -append-info on that end)")
	flag.StringVar(&reportFile, "report", "", "Write the link-test report to `file` as JSON")
	flag.DurationVar(&pollInterval, "poll-interval", 100*time.Microsecond, "`interval` between radio readiness polls")
	flag.DurationVar(&opTimeout, "timeout", 100*time.Millisecond, "Give up on a blocking radio operation after this `duration` (0 waits forever)")

	config.RegisterCommandLineFlags()
	flag.Parse()
	if !debug {
		if debugEnv, ok := os.LookupEnv("RADIO_VERBOSE"); ok {
			debug = debugEnv != "false" && debugEnv != "0"
		}
	}
	if debug {
		log.SetLevel(log.LevelDebug)
	}
	config.ReadFromEnvironment()
	if err := config.LoadConfigFile(); err != nil {
		writeErr("Error loading config file: %s", err)
		return
	}
	if logFile != "" {
		log.SetOutput(&lumberjack.Logger{Filename: logFile, MaxSize: 10, MaxBackups: 3})
	} else if w := config.LogWriter(); w != nil {
		log.SetOutput(w)
	}

	args := flag.Args()
	if len(args) > 0 {
		if args[0] == "help" {
			status = 0
			if len(args) == 1 {
				Usage()
				return
			}
			info, ok := commands[args[1]]
			if !ok {
				status = 1
				writeErr("Unrecognized command: %s", args[1])
				return
			}
			info.Usage(args[1])
			return
		}
		if _, ok := commands[args[0]]; !ok {
			writeErr("Unrecognized command: %s", args[0])
			return
		}
	} else if !interactive {
		Usage()
		return
	}

	pwr, err := ParsePower(power)
	if err != nil {
		writeErr("Invalid -power value: %s", err)
		return
	}

	if err := config.LoadCredentials(); err != nil {
		writeErr("Error loading credentials: %s", err)
		return
	}

	dev, err := config.Connect()
	if err != nil {
		writeErr("Error opening radio: %s", err)
		return
	}
	defer dev.Close()

	sink, err := config.OpenCaptureSink()
	if err != nil {
		writeErr("Error opening capture sink: %s", err)
		return
	}
	if sink != nil {
		defer sink.Close()
	}

	var metrics *telemetry.Collector
	if config.MetricsAddr != "" {
		metrics, err = telemetry.New(nil)
		if err != nil {
			writeErr("Error registering metrics: %s", err)
			return
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: config.MetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics server: %s", err)
			}
		}()
		defer server.Close()
		log.Debug("Serving metrics on %s", config.MetricsAddr)
	}

	opts := &commandOptions{
		policy:     blocking.Policy{PollInterval: pollInterval, Timeout: opTimeout},
		power:      pwr,
		period:     period,
		delay:      delay,
		continuous: continuous,
		appendInfo: appendInfo,
		parseInfo:  parseInfo,
		reportFile: reportFile,
		metrics:    metrics,
	}
	if sink != nil {
		opts.sink = countingSink{FrameSink: sink, metrics: metrics}
	}

	if interactive {
		status = runInteractiveShell(dev, opts)
	} else {
		status = runCommand(dev, opts, args)
	}
}
