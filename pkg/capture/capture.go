// Package capture records received frames for offline inspection.
//
// Frames go to a pcap capture file with link-layer type IEEE 802.15.4,
// written either to a regular file or to a named pipe (so live tooling can
// read the stream), and can additionally be published to an MQTT topic as
// JSON documents. Sink open failures and write failures are ordinary typed
// errors; the receive path treats write failures as fatal but the radio
// itself is unaffected.
package capture

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// LinkTypeIEEE802154 is the pcap link-layer type for IEEE 802.15.4 frames
// (LINKTYPE_IEEE802_15_4_WITHFCS). gopacket does not name this value.
const LinkTypeIEEE802154 = layers.LinkType(195)

const snapLen = 65535

// ErrBothOutputs is returned by Open when a file and a pipe are both
// configured; the two are mutually exclusive.
var ErrBothOutputs = errors.New("capture: file and pipe outputs are mutually exclusive")

// Sink accepts timestamped frames in arrival order. Implementations are
// not safe for concurrent use.
type Sink interface {
	WriteFrame(ts time.Time, payload []byte) error
	Close() error
}

// Options selects where captured frames go. File and Pipe are mutually
// exclusive. Broker adds MQTT publication alongside (or instead of) the
// pcap output.
type Options struct {
	// File is the path of a pcap file to create.
	File string

	// Pipe is the path of a named pipe to create and stream pcap data
	// through. Opening blocks until a reader attaches.
	Pipe string

	// Broker is an MQTT broker URL, e.g. "tcp://host:1883". Empty
	// disables publication.
	Broker string

	// Topic for published frames. Defaults to "radio/frames".
	Topic string

	// ClientID for the broker session. Defaults to "radio-util-" plus
	// the hostname.
	ClientID string

	Username string
	Password string
}

// Open builds the configured sink. It returns (nil, nil) when no output is
// configured at all.
func (o Options) Open() (Sink, error) {
	if o.File != "" && o.Pipe != "" {
		return nil, ErrBothOutputs
	}
	var sinks []Sink
	switch {
	case o.File != "":
		f, err := os.Create(o.File)
		if err != nil {
			return nil, fmt.Errorf("capture: create %s: %w", o.File, err)
		}
		s, err := newPcapSink(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	case o.Pipe != "":
		f, err := openPipe(o.Pipe)
		if err != nil {
			return nil, err
		}
		s, err := newPcapSink(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if o.Broker != "" {
		s, err := dialMQTT(o)
		if err != nil {
			for _, prev := range sinks {
				prev.Close()
			}
			return nil, err
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return teeSink(sinks), nil
	}
}

type pcapSink struct {
	f *os.File
	w *pcapgo.Writer
}

func newPcapSink(f *os.File) (*pcapSink, error) {
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snapLen, LinkTypeIEEE802154); err != nil {
		return nil, fmt.Errorf("capture: write file header: %w", err)
	}
	return &pcapSink{f: f, w: w}, nil
}

func (s *pcapSink) WriteFrame(ts time.Time, payload []byte) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(payload),
		Length:        len(payload),
	}
	if err := s.w.WritePacket(ci, payload); err != nil {
		return fmt.Errorf("capture: write record: %w", err)
	}
	return nil
}

func (s *pcapSink) Close() error { return s.f.Close() }

// teeSink fans writes out to several sinks; the first write error is
// returned and, like any sink error, ends the capture.
type teeSink []Sink

func (t teeSink) WriteFrame(ts time.Time, payload []byte) error {
	for _, s := range t {
		if err := s.WriteFrame(ts, payload); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) Close() error {
	var first error
	for _, s := range t {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
