/*
Package cli facilitates building command-line applications that operate a
packet radio. It defines a [Config] type that can be used to register common
command-line flags (using the Golang flag package) and environment variable
equivalents, load a YAML hardware description, and open the configured radio
and capture sinks.

The package uses [keyring]'s platform-agnostic interface for storing the MQTT
broker password in an OS-dependent credential store.

# Examples

	import flag

	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for the driver, capture sinks, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables
	if err := config.LoadConfigFile(); err != nil {
		panic(err)
	}
	config.LoadCredentials()          // Prompt for broker/keyring passwords if needed

	radio, err := config.Connect()
	if err != nil {
		panic(err)
	}
	defer radio.Close()

	sink, err := config.OpenCaptureSink()
	if err != nil {
		panic(err)
	}

The returned sink is nil when no capture output was requested.

Alternatively, you can use a [Flag] mask to control what [Config] fields are
populated. Note that in the examples below, config.Flags must be set before
calling [flag.Parse] or [Config.ReadFromEnvironment]:

	config, err = cli.NewConfig(cli.FlagRadio)                   // Radio only, no capture or metrics options.
	config, err = cli.NewConfig(cli.FlagRadio | cli.FlagCapture) // Local pcap capture, but no MQTT publishing.
*/
package cli

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/annie444/radio-hal/internal/log"
	"github.com/annie444/radio-hal/pkg/capture"
	"github.com/annie444/radio-hal/pkg/driver/rfm69"
	"github.com/annie444/radio-hal/pkg/radio"
	"github.com/annie444/radio-hal/pkg/radiotest"

	"github.com/99designs/keyring"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"
)

// Driver names accepted by [Config.Connect].
const (
	DriverRFM69    = "rfm69"
	DriverLoopback = "loopback"
)

// Environment variable names used by [Config.ReadFromEnvironment] to set
// common parameters.
const (
	EnvRadioDriver       = "RADIO_DRIVER"
	EnvRadioConfigFile   = "RADIO_CONFIG_FILE"
	EnvRadioSPIPort      = "RADIO_SPI_PORT"
	EnvRadioMQTTBroker   = "RADIO_MQTT_BROKER"
	EnvRadioMQTTTopic    = "RADIO_MQTT_TOPIC"
	EnvRadioMQTTUser     = "RADIO_MQTT_USER"
	EnvRadioMQTTPass     = "RADIO_MQTT_PASSWORD"
	EnvRadioKeyringType  = "RADIO_KEYRING_TYPE"
	EnvRadioKeyringPass  = "RADIO_KEYRING_PASSWORD"
	EnvRadioKeyringPath  = "RADIO_KEYRING_PATH"
	EnvRadioKeyringDebug = "RADIO_KEYRING_DEBUG"
)

// Flag controls what options should be scanned from the command line and/or
// environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagRadio   Flag = 1 // Enable radio driver options.
	FlagCapture Flag = 2 // Enable pcap capture options.
	FlagMQTT    Flag = 4 // Enable MQTT frame publishing options.
	FlagMetrics Flag = 8 // Enable Prometheus metrics options.
	FlagAll     Flag = FlagRadio | FlagCapture | FlagMQTT | FlagMetrics
)

var (
	ErrNoBrokerConfigured = errors.New("no MQTT broker configured")
	ErrKeyNotFound        = keyring.ErrKeyNotFound
)

// RadioConfig is the YAML description of the radio hardware. Fields left
// zero fall back to driver defaults.
type RadioConfig struct {
	Driver   string         `yaml:"driver"`
	RFM69    RFM69Config    `yaml:"rfm69"`
	Loopback LoopbackConfig `yaml:"loopback"`
	Log      LogConfig      `yaml:"log"`
}

// RFM69Config configures the SPI-attached RFM69 module.
type RFM69Config struct {
	SPIPort     string `yaml:"spiPort"`
	FrequencyHz uint32 `yaml:"frequencyHz"`
	BitrateBps  uint32 `yaml:"bitrateBps"`
	SyncWord    string `yaml:"syncWord"` // hex encoded, 1 to 8 bytes
	PowerDBm    int8   `yaml:"powerDbm"`
}

// LoopbackConfig configures the in-process simulator driver.
type LoopbackConfig struct {
	LatencyMs int   `yaml:"latencyMs"`
	RSSIDBm   int16 `yaml:"rssiDbm"`
	BeaconMs  int   `yaml:"beaconMs"`
}

// LogConfig routes log output to a rotating file instead of stderr.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// Config fields determine what hardware a client operates and where received
// frames are recorded.
type Config struct {
	Flags       Flag   // Controls which set of environment variables/CLI flags to use.
	Driver      string // Radio driver name; see DriverRFM69 and DriverLoopback.
	ConfigFile  string // YAML hardware description file
	SPIPort     string // SPI port of the RFM69 module, e.g. "SPI0.0"
	CaptureFile string // pcap capture file
	CapturePipe string // pcap named pipe
	MQTTBroker  string // MQTT broker URL, e.g. tcp://host:1883
	MQTTTopic   string
	MQTTUser    string // Username for the broker and the system keyring
	MetricsAddr string // Listen address for the Prometheus endpoint
	Backend     keyring.Config
	BackendType backendType
	Debug       bool // Enable keyring debug messages

	password     *string
	mqttPassword string
	radio        RadioConfig
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword

	return &c, nil
}

func (c *Config) RegisterCommandLineFlags() {
	if c.Flags.isSet(FlagRadio) {
		flag.StringVar(&c.Driver, "driver", "", "Radio `driver` (rfm69 or loopback). Defaults to $RADIO_DRIVER.")
		flag.StringVar(&c.ConfigFile, "config", "", "Radio configuration `file`. Defaults to $RADIO_CONFIG_FILE.")
		flag.StringVar(&c.SPIPort, "spi", "", "SPI `port` of the RFM69 module. Defaults to $RADIO_SPI_PORT.")
	}
	if c.Flags.isSet(FlagCapture) {
		flag.StringVar(&c.CaptureFile, "pcap-file", "", "Record received frames to a pcap `file`.")
		flag.StringVar(&c.CapturePipe, "pcap-pipe", "", "Stream received frames through a pcap named `pipe` for live inspection.")
	}
	if c.Flags.isSet(FlagMQTT) {
		flag.StringVar(&c.MQTTBroker, "mqtt-broker", "", "Publish received frames to an MQTT `broker`. Defaults to $RADIO_MQTT_BROKER.")
		flag.StringVar(&c.MQTTTopic, "mqtt-topic", "", "MQTT `topic` for published frames. Defaults to $RADIO_MQTT_TOPIC.")
		flag.StringVar(&c.MQTTUser, "mqtt-user", "", "MQTT `username`. Defaults to $RADIO_MQTT_USER.")

		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $RADIO_KEYRING_TYPE.")
		flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		flag.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
	}
	if c.Flags.isSet(FlagMetrics) {
		flag.StringVar(&c.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on `address`, e.g. :9090.")
	}
}

// LoadCredentials attempts to resolve the MQTT broker password, prompting for
// a keyring password if needed. Call this method before [Config.Connect] to
// prevent interactive prompts from counting against timeouts.
func (c *Config) LoadCredentials() error {
	if c.Flags.isSet(FlagMQTT) && c.MQTTBroker != "" && c.MQTTUser != "" {
		if _, err := c.MQTTPassword(); err != nil {
			return err
		}
	}
	return nil
}

// ReadFromEnvironment populates c using environment variables. Values that
// are already populated are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization
// method) will prevent the environment from overriding explicit command-line
// parameters and avoid potentially misleading debug log messages.
func (c *Config) ReadFromEnvironment() {
	if c.Flags.isSet(FlagRadio) {
		if c.Driver == "" {
			c.Driver = os.Getenv(EnvRadioDriver)
			log.Debug("Set radio driver to '%s'", c.Driver)
		}
		if c.ConfigFile == "" {
			c.ConfigFile = os.Getenv(EnvRadioConfigFile)
			log.Debug("Set radio config file to '%s'", c.ConfigFile)
		}
		if c.SPIPort == "" {
			c.SPIPort = os.Getenv(EnvRadioSPIPort)
			log.Debug("Set SPI port to '%s'", c.SPIPort)
		}
	}
	if c.Flags.isSet(FlagMQTT) {
		if c.MQTTBroker == "" {
			c.MQTTBroker = os.Getenv(EnvRadioMQTTBroker)
			log.Debug("Set MQTT broker to '%s'", c.MQTTBroker)
		}
		if c.MQTTTopic == "" {
			c.MQTTTopic = os.Getenv(EnvRadioMQTTTopic)
			log.Debug("Set MQTT topic to '%s'", c.MQTTTopic)
		}
		if c.MQTTUser == "" {
			c.MQTTUser = os.Getenv(EnvRadioMQTTUser)
			log.Debug("Set MQTT user to '%s'", c.MQTTUser)
		}
		if c.mqttPassword == "" {
			c.mqttPassword = os.Getenv(EnvRadioMQTTPass)
			if len(c.mqttPassword) > 0 {
				log.Debug("Set MQTT password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvRadioKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvRadioKeyringPass)
			c.password = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvRadioKeyringPath)
			log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvRadioKeyringDebug)
			log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
		}
	}
}

// LoadConfigFile parses c.ConfigFile and fills in fields that were not set on
// the command line or by the environment. Calling this method is a no-op when
// no configuration file is set.
func (c *Config) LoadConfigFile() error {
	if c.ConfigFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to read radio config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.radio); err != nil {
		return fmt.Errorf("failed to parse radio config: %w", err)
	}
	if c.Driver == "" {
		c.Driver = c.radio.Driver
		log.Debug("Set radio driver to '%s'", c.Driver)
	}
	if c.SPIPort == "" {
		c.SPIPort = c.radio.RFM69.SPIPort
		log.Debug("Set SPI port to '%s'", c.SPIPort)
	}
	return nil
}

// LogWriter returns the rotating log writer named in the configuration file,
// or nil when logs should go to stderr.
func (c *Config) LogWriter() io.Writer {
	if c.radio.Log.File == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   c.radio.Log.File,
		MaxSize:    c.radio.Log.MaxSizeMB,
		MaxBackups: c.radio.Log.MaxBackups,
	}
}

// Connect opens the configured radio. The caller is responsible for calling
// Close on the returned device.
func (c *Config) Connect() (radio.Device, error) {
	driver := c.Driver
	if driver == "" {
		driver = DriverRFM69
	}
	switch driver {
	case DriverRFM69:
		sync, err := c.syncWord()
		if err != nil {
			return nil, err
		}
		log.Debug("Opening RFM69 on SPI port '%s'...", c.SPIPort)
		return rfm69.Open(rfm69.Config{
			Port:        c.SPIPort,
			FrequencyHz: c.radio.RFM69.FrequencyHz,
			BitrateBps:  c.radio.RFM69.BitrateBps,
			Sync:        sync,
			PowerDBm:    c.radio.RFM69.PowerDBm,
		})
	case DriverLoopback:
		log.Debug("Using loopback radio")
		return radiotest.NewLoopback(radiotest.LoopbackConfig{
			Latency: time.Duration(c.radio.Loopback.LatencyMs) * time.Millisecond,
			RSSIDBm: c.radio.Loopback.RSSIDBm,
			Beacon:  time.Duration(c.radio.Loopback.BeaconMs) * time.Millisecond,
		}), nil
	default:
		return nil, fmt.Errorf("unknown radio driver '%s'", driver)
	}
}

// OpenCaptureSink assembles the capture outputs selected by c. The returned
// sink is nil when no capture output is configured.
func (c *Config) OpenCaptureSink() (capture.Sink, error) {
	opts := capture.Options{
		File:  c.CaptureFile,
		Pipe:  c.CapturePipe,
		Topic: c.MQTTTopic,
	}
	if c.Flags.isSet(FlagMQTT) && c.MQTTBroker != "" {
		opts.Broker = c.MQTTBroker
		opts.Username = c.MQTTUser
		if c.MQTTUser != "" {
			password, err := c.MQTTPassword()
			if err != nil {
				return nil, err
			}
			opts.Password = password
		}
	}
	return opts.Open()
}

func (c *Config) syncWord() ([]byte, error) {
	if c.radio.RFM69.SyncWord == "" {
		return nil, nil
	}
	sync, err := hex.DecodeString(strings.TrimPrefix(c.radio.RFM69.SyncWord, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid sync word in radio config: %s", err)
	}
	return sync, nil
}
