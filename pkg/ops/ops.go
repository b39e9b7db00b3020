// Package ops implements the radio exercise commands: transmit, receive,
// RSSI polling, echo, and the round-trip link test.
//
// Each command is a procedure over the minimal capability set it needs,
// built on the blocking adapter. Commands run synchronously on the calling
// goroutine against an exclusively-owned radio; continuous modes loop until
// their context is cancelled. Progress is reported through an [Observer]
// rather than a logger, so embedding applications decide what the defined
// events mean.
package ops

import (
	"time"

	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/radio"
)

// FrameSink receives delivered frames with their arrival timestamps. It is
// the write half of a capture sink; this package never opens or closes
// sinks.
type FrameSink interface {
	WriteFrame(ts time.Time, payload []byte) error
}

// Observer receives progress callbacks from the executors. Callbacks run
// inline on the operating goroutine, so implementations must be cheap and
// must not call back into the radio.
type Observer interface {
	// FrameTransmitted reports a completed transmission of n bytes.
	FrameTransmitted(n int)

	// FrameReceived reports a delivered frame with its link info. The
	// payload slice is only valid for the duration of the call.
	FrameReceived(payload []byte, info radio.RxInfo)

	// FrameDropped reports a delivered frame of n bytes that was
	// discarded without a reply (echo only).
	FrameDropped(n int)

	// RSSISample reports one ambient signal-strength measurement in dBm.
	RSSISample(rssi int16)

	// RoundOutcome reports the result of one link-test round.
	RoundOutcome(round LinkTestRound)
}

type nopObserver struct{}

func (nopObserver) FrameTransmitted(int)               {}
func (nopObserver) FrameReceived([]byte, radio.RxInfo) {}
func (nopObserver) FrameDropped(int)                   {}
func (nopObserver) RSSISample(int16)                   {}
func (nopObserver) RoundOutcome(LinkTestRound)         {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

// TransmitRadio is the capability set required by Transmit.
type TransmitRadio interface {
	radio.Transmitter
	radio.PowerSetter
	radio.Delayer
}

// ReceiveRadio is the capability set required by Receive.
type ReceiveRadio interface {
	radio.Receiver
	radio.Delayer
}

// RSSIRadio is the capability set required by PollRSSI.
type RSSIRadio interface {
	radio.Receiver
	radio.RSSIReader
	radio.Delayer
}

// EchoRadio is the capability set required by Echo.
type EchoRadio interface {
	radio.Transmitter
	radio.Receiver
	radio.PowerSetter
	radio.Delayer
}

// LinkRadio is the capability set required by LinkTest.
type LinkRadio interface {
	radio.Transmitter
	radio.Receiver
	radio.PowerSetter
	radio.Delayer
}

func applyPower(r radio.PowerSetter, dbm *int8) error {
	if dbm == nil {
		return nil
	}
	if err := r.SetPower(*dbm); err != nil {
		return &blocking.DeviceError{Op: "set power", Err: err}
	}
	return nil
}
