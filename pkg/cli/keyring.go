package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/annie444/radio-hal/internal/log"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const (
	keyringServiceName = "io.radio-hal.auth"
	keyringMQTTService = "mqttPassword"
	keyringDirectory   = "~/.radio_keys"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

func readSecret(prompt string) (string, error) {
	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		} else {
			w = os.Stderr
		}
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	return string(b), nil
}

func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}
	password, err := readSecret(prompt)
	if err != nil {
		return "", err
	}
	c.password = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	keyring.Debug = c.Debug
	return keyring.Open(c.Backend)
}

func (c *Config) fullMQTTKeyName() string {
	return keyringMQTTService + "." + c.MQTTUser
}

// MQTTPassword returns the password used to authenticate to the MQTT broker.
//
// The password is read from $RADIO_MQTT_PASSWORD if set, then from the system
// keyring, and finally from an interactive prompt. The password is cached
// after it is first resolved, and subsequent calls always return the same
// value.
func (c *Config) MQTTPassword() (string, error) {
	if c.mqttPassword != "" {
		return c.mqttPassword, nil
	}
	if c.MQTTUser == "" {
		return "", nil
	}
	password, err := c.LoadMQTTPasswordFromKeyring()
	if err == nil {
		c.mqttPassword = password
		return password, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		log.Debug("Keyring lookup failed: %s", err)
	}
	password, err = readSecret(fmt.Sprintf("MQTT password for %s", c.MQTTUser))
	if err != nil {
		return "", err
	}
	c.mqttPassword = password
	return password, nil
}

// LoadMQTTPasswordFromKeyring loads the broker password from the system
// keyring.
//
// The MQTT username must match the value provided to
// SaveMQTTPasswordToKeyring.
func (c *Config) LoadMQTTPasswordFromKeyring() (string, error) {
	kr, err := c.openKeyring()
	if err != nil {
		return "", err
	}

	item, err := kr.Get(c.fullMQTTKeyName())
	if err != nil {
		return "", fmt.Errorf("could not load MQTT password: %w", err)
	}
	return string(item.Data), nil
}

// SaveMQTTPasswordToKeyring writes the broker password to the system keyring.
//
// The password is stored under the configured MQTT username and does not
// necessarily need to match the system username.
func (c *Config) SaveMQTTPasswordToKeyring(password string) error {
	if c.MQTTUser == "" {
		return ErrNoBrokerConfigured
	}
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}

	if err := kr.Set(keyring.Item{
		Key:  c.fullMQTTKeyName(),
		Data: []byte(password),
	}); err != nil {
		return fmt.Errorf("failed to enroll MQTT password in keyring: %s", err)
	}
	c.mqttPassword = password
	return nil
}

// DeleteMQTTPassword removes the broker password from the system keyring.
func (c *Config) DeleteMQTTPassword() error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	return kr.Remove(c.fullMQTTKeyName())
}
