package radiotest

import (
	"errors"
	"fmt"
	"time"

	"github.com/annie444/radio-hal/pkg/radio"
)

const loopbackAmbientRSSI = -102

// LoopbackConfig tunes the loopback simulator.
type LoopbackConfig struct {
	// Latency is the delay between a transmission and its arrival at the
	// receiver. Defaults to 2ms.
	Latency time.Duration

	// RSSIDBm is the signal strength reported for delivered frames.
	// Defaults to -60.
	RSSIDBm int16

	// Beacon, when positive, makes the simulator synthesize a numbered
	// beacon frame at this interval while listening, so receive-only
	// commands have traffic to observe.
	Beacon time.Duration
}

// Loopback is a self-contained radio.Device: every transmitted frame is
// queued for delivery back to the same device after a fixed latency. It
// lets transmit, receive, echo, and link-test flows run end to end in one
// process with no hardware attached.
//
// Like real drivers it is meant for single-goroutine use.
type Loopback struct {
	cfg        LoopbackConfig
	queue      []loopbackFrame
	listening  bool
	nextBeacon time.Time
	beaconSeq  uint32
	closed     bool
}

type loopbackFrame struct {
	payload []byte
	readyAt time.Time
}

var _ radio.Device = (*Loopback)(nil)

// NewLoopback returns a simulator with cfg's zero fields defaulted.
func NewLoopback(cfg LoopbackConfig) *Loopback {
	if cfg.Latency <= 0 {
		cfg.Latency = 2 * time.Millisecond
	}
	if cfg.RSSIDBm == 0 {
		cfg.RSSIDBm = -60
	}
	return &Loopback{cfg: cfg}
}

func (l *Loopback) StartTransmit(payload []byte) error {
	if l.closed {
		return errors.New("radiotest: loopback is closed")
	}
	if len(payload) > radio.MaxFrameLen {
		return fmt.Errorf("radiotest: payload of %d bytes exceeds frame capacity", len(payload))
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	l.queue = append(l.queue, loopbackFrame{payload: cp, readyAt: time.Now().Add(l.cfg.Latency)})
	return nil
}

func (l *Loopback) CheckTransmit() (bool, error) {
	if l.closed {
		return false, errors.New("radiotest: loopback is closed")
	}
	return true, nil
}

func (l *Loopback) StartReceive() error {
	if l.closed {
		return errors.New("radiotest: loopback is closed")
	}
	l.listening = true
	if l.cfg.Beacon > 0 && l.nextBeacon.IsZero() {
		l.nextBeacon = time.Now().Add(l.cfg.Beacon)
	}
	return nil
}

func (l *Loopback) CheckReceive(restart bool) (bool, error) {
	if l.closed {
		return false, errors.New("radiotest: loopback is closed")
	}
	if !l.listening {
		return false, nil
	}
	now := time.Now()
	if l.cfg.Beacon > 0 && now.After(l.nextBeacon) {
		payload := []byte(fmt.Sprintf("beacon %d", l.beaconSeq))
		l.beaconSeq++
		l.queue = append(l.queue, loopbackFrame{payload: payload, readyAt: now})
		l.nextBeacon = now.Add(l.cfg.Beacon)
	}
	return len(l.queue) > 0 && !now.Before(l.queue[0].readyAt), nil
}

func (l *Loopback) GetReceived(buf []byte) (int, radio.RxInfo, error) {
	if len(l.queue) == 0 || time.Now().Before(l.queue[0].readyAt) {
		return 0, nil, errors.New("radiotest: no frame pending")
	}
	frame := l.queue[0]
	l.queue = l.queue[1:]
	n := copy(buf, frame.payload)
	return n, Info{RSSIDBm: l.cfg.RSSIDBm}, nil
}

func (l *Loopback) PollRSSI() (int16, error) {
	if l.closed {
		return 0, errors.New("radiotest: loopback is closed")
	}
	if len(l.queue) > 0 {
		return l.cfg.RSSIDBm, nil
	}
	return loopbackAmbientRSSI, nil
}

func (l *Loopback) SetPower(dbm int8) error {
	if l.closed {
		return errors.New("radiotest: loopback is closed")
	}
	return nil
}

func (l *Loopback) Delay(d time.Duration) { time.Sleep(d) }

func (l *Loopback) Close() error {
	l.closed = true
	return nil
}
