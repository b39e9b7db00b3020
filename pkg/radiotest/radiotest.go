// Package radiotest provides radio implementations without hardware: a
// hook-driven scripted [Radio] for unit tests and an in-process [Loopback]
// simulator that delivers transmitted frames back to its own receiver.
package radiotest

import (
	"time"

	"github.com/annie444/radio-hal/pkg/radio"
)

// Info is a minimal frame info carrying a fixed RSSI.
type Info struct {
	RSSIDBm int16
}

// RSSI returns the stored value in dBm.
func (i Info) RSSI() int16 { return i.RSSIDBm }

// Radio is a scripted radio.Device for tests. Each method delegates to the
// corresponding hook when one is set and otherwise succeeds trivially;
// call and delay accounting happens either way. Delays are recorded, not
// slept, so polling loops run at full speed under test.
//
// The zero value is usable: transmissions complete on the first check and
// no frames ever arrive.
type Radio struct {
	StartTransmitFunc func(payload []byte) error
	CheckTransmitFunc func() (bool, error)
	StartReceiveFunc  func() error
	CheckReceiveFunc  func(restart bool) (bool, error)
	GetReceivedFunc   func(buf []byte) (int, radio.RxInfo, error)
	PollRSSIFunc      func() (int16, error)
	SetPowerFunc      func(dbm int8) error
	DelayFunc         func(d time.Duration)

	// Transmits holds a copy of every payload passed to StartTransmit.
	// Copies matter: callers reuse their buffers between operations.
	Transmits [][]byte

	// Powers holds every value passed to SetPower in order.
	Powers []int8

	TransmitPolls int
	ReceiveStarts int
	ReceivePolls  int
	RSSIPolls     int

	// Slept is the total of all recorded delays; Delays the individual
	// values in order.
	Slept  time.Duration
	Delays []time.Duration
}

var _ radio.Device = (*Radio)(nil)

func (r *Radio) StartTransmit(payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	r.Transmits = append(r.Transmits, cp)
	if r.StartTransmitFunc != nil {
		return r.StartTransmitFunc(payload)
	}
	return nil
}

func (r *Radio) CheckTransmit() (bool, error) {
	r.TransmitPolls++
	if r.CheckTransmitFunc != nil {
		return r.CheckTransmitFunc()
	}
	return true, nil
}

func (r *Radio) StartReceive() error {
	r.ReceiveStarts++
	if r.StartReceiveFunc != nil {
		return r.StartReceiveFunc()
	}
	return nil
}

func (r *Radio) CheckReceive(restart bool) (bool, error) {
	r.ReceivePolls++
	if r.CheckReceiveFunc != nil {
		return r.CheckReceiveFunc(restart)
	}
	return false, nil
}

func (r *Radio) GetReceived(buf []byte) (int, radio.RxInfo, error) {
	if r.GetReceivedFunc != nil {
		return r.GetReceivedFunc(buf)
	}
	return 0, Info{}, nil
}

func (r *Radio) PollRSSI() (int16, error) {
	r.RSSIPolls++
	if r.PollRSSIFunc != nil {
		return r.PollRSSIFunc()
	}
	return 0, nil
}

func (r *Radio) SetPower(dbm int8) error {
	r.Powers = append(r.Powers, dbm)
	if r.SetPowerFunc != nil {
		return r.SetPowerFunc(dbm)
	}
	return nil
}

func (r *Radio) Delay(d time.Duration) {
	r.Slept += d
	r.Delays = append(r.Delays, d)
	if r.DelayFunc != nil {
		r.DelayFunc(d)
	}
}

func (r *Radio) Close() error { return nil }

// CompleteAfter returns a transmit-check hook that reports done on the nth
// call and not-done before that.
func CompleteAfter(n int) func() (bool, error) {
	calls := 0
	return func() (bool, error) {
		calls++
		return calls >= n, nil
	}
}

// ReadyAfter returns a receive-check hook that reports a pending frame on
// the nth poll and nothing before that.
func ReadyAfter(n int) func(restart bool) (bool, error) {
	polls := 0
	return func(bool) (bool, error) {
		polls++
		return polls >= n, nil
	}
}

// Deliver returns a receive hook handing out payload with the given RSSI.
func Deliver(payload []byte, rssiDBm int16) func(buf []byte) (int, radio.RxInfo, error) {
	return func(buf []byte) (int, radio.RxInfo, error) {
		n := copy(buf, payload)
		return n, Info{RSSIDBm: rssiDBm}, nil
	}
}

// DeliverEach returns a receive hook handing out the payloads in sequence,
// one per call, each with the matching RSSI (the last value repeats if
// rssis is shorter than payloads).
func DeliverEach(payloads [][]byte, rssis ...int16) func(buf []byte) (int, radio.RxInfo, error) {
	i := 0
	return func(buf []byte) (int, radio.RxInfo, error) {
		if i >= len(payloads) {
			return 0, Info{}, nil
		}
		n := copy(buf, payloads[i])
		rssi := int16(0)
		if len(rssis) > 0 {
			if i < len(rssis) {
				rssi = rssis[i]
			} else {
				rssi = rssis[len(rssis)-1]
			}
		}
		i++
		return n, Info{RSSIDBm: rssi}, nil
	}
}
