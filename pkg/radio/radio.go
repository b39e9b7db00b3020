// Package radio defines the capability interfaces implemented by packet-radio
// drivers.
//
// The interfaces model hardware whose operations complete asynchronously: a
// caller starts a transmission or reception and then polls until the radio
// reports completion. Each capability is a separate interface so that
// higher-level code can require exactly the set it needs; complete drivers
// implement [Device].
//
// All methods are issued serially against a single device from a single
// goroutine. At most one hardware operation is in flight at a time, and
// implementations are not required to be safe for concurrent use.
package radio

import "time"

// MaxFrameLen is the upper bound on frame payload length across drivers.
// Individual radios may support less; see the driver documentation.
const MaxFrameLen = 1024

// RxInfo describes link-quality metadata attached to a received frame.
// Drivers may provide richer concrete types; consumers should rely only on
// the methods declared here.
type RxInfo interface {
	// RSSI returns the received signal strength for the frame in dBm.
	RSSI() int16
}

// Transmitter starts outbound frames and reports their completion.
type Transmitter interface {
	// StartTransmit begins transmitting payload. It returns once the radio
	// has accepted the frame, not once the frame is on the air.
	StartTransmit(payload []byte) error

	// CheckTransmit reports whether the transmission started by
	// StartTransmit has completed.
	CheckTransmit() (bool, error)
}

// Receiver arms the radio for reception and delivers arrived frames.
type Receiver interface {
	// StartReceive places the radio in receive mode.
	StartReceive() error

	// CheckReceive reports whether a frame is ready to be read. If restart
	// is true, the radio re-arms reception after an error so that a
	// transient fault does not leave the receive pipeline stalled.
	CheckReceive(restart bool) (bool, error)

	// GetReceived copies the pending frame into buf and returns its length
	// together with the frame's link-quality info. It is only valid after
	// CheckReceive has reported a frame.
	GetReceived(buf []byte) (int, RxInfo, error)
}

// RSSIReader measures ambient received signal strength.
type RSSIReader interface {
	// PollRSSI samples the current RSSI in dBm. The radio must be in
	// receive mode.
	PollRSSI() (int16, error)
}

// PowerSetter adjusts transmit output power.
type PowerSetter interface {
	// SetPower sets the output power in dBm. Values outside the hardware's
	// supported range are clamped or rejected by the driver.
	SetPower(dbm int8) error
}

// Delayer suspends the calling goroutine cooperatively. Drivers back this
// with the host clock; simulators may use a synthetic one, which keeps the
// timing behavior of higher layers testable.
type Delayer interface {
	Delay(d time.Duration)
}

// Radio is the full capability set used by the operation executors.
type Radio interface {
	Transmitter
	Receiver
	RSSIReader
	PowerSetter
	Delayer
}

// Device is a complete, closable radio as produced by driver constructors.
type Device interface {
	Radio

	// Close releases the underlying transport. Repeated calls must be
	// idempotent; the behavior of the other methods is undefined afterward.
	Close() error
}
