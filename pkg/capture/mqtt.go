package capture

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttTimeout = 5 * time.Second

// frameDoc is the JSON document published for each captured frame.
type frameDoc struct {
	At   time.Time `json:"at"`
	Len  int       `json:"len"`
	Data string    `json:"data"`
}

type mqttSink struct {
	client mqtt.Client
	topic  string
}

func dialMQTT(o Options) (Sink, error) {
	topic := o.Topic
	if topic == "" {
		topic = "radio/frames"
	}
	id := o.ClientID
	if id == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "radio"
		}
		id = "radio-util-" + host
	}
	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(id).
		SetConnectTimeout(mqttTimeout)
	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}
	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(mqttTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("capture: connect to %s: timed out", o.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("capture: connect to %s: %w", o.Broker, err)
	}
	return &mqttSink{client: client, topic: topic}, nil
}

func (s *mqttSink) WriteFrame(ts time.Time, payload []byte) error {
	doc, err := json.Marshal(frameDoc{At: ts, Len: len(payload), Data: hex.EncodeToString(payload)})
	if err != nil {
		return fmt.Errorf("capture: encode frame: %w", err)
	}
	tok := s.client.Publish(s.topic, 1, false, doc)
	if !tok.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("capture: publish to %s: timed out", s.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("capture: publish to %s: %w", s.topic, err)
	}
	return nil
}

func (s *mqttSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
