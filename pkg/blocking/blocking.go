// Package blocking converts the radio's start/check operation pairs into
// deadline-bounded blocking calls.
//
// The radio capability interfaces complete asynchronously: StartTransmit
// returns before the frame is on the air and the caller polls CheckTransmit
// until it reports done. This package wraps one such pair into a single
// call governed by a [Policy]: poll at a fixed cadence, stop at a deadline.
// Every command executor is built on it.
package blocking

import (
	"context"
	"time"

	"github.com/annie444/radio-hal/pkg/radio"
)

// Policy bounds one blocking call.
type Policy struct {
	// PollInterval is the cooperative delay between completion polls.
	// It must be positive.
	PollInterval time.Duration

	// Timeout bounds the whole call. Zero means no deadline; the call
	// polls until completion, a device error, or context cancellation.
	Timeout time.Duration
}

// TxRadio is the capability set needed to block on a transmission.
type TxRadio interface {
	radio.Transmitter
	radio.Delayer
}

// RxRadio is the capability set needed to block on a reception.
type RxRadio interface {
	radio.Receiver
	radio.Delayer
}

// Do runs one start/poll operation pair to completion under p.
//
// It invokes start once, then alternates polls with cooperative delays of
// p.PollInterval until poll reports done. Elapsed time is accounted by
// accumulating poll intervals, so a never-completing operation returns
// [ErrTimeout] once the accumulated delay exceeds p.Timeout; no poll is
// issued past the deadline. An error from start or poll returns a
// [*DeviceError] immediately, however much of the deadline remains.
// Cancellation of ctx is recognized at poll boundaries and returns the
// context's error.
func Do(ctx context.Context, d radio.Delayer, p Policy, op string, start func() error, poll func() (bool, error)) error {
	if p.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if err := start(); err != nil {
		return &DeviceError{Op: op, Err: err}
	}
	var elapsed time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := poll()
		if err != nil {
			return &DeviceError{Op: op, Err: err}
		}
		if done {
			return nil
		}
		d.Delay(p.PollInterval)
		elapsed += p.PollInterval
		if p.Timeout > 0 && elapsed > p.Timeout {
			return ErrTimeout
		}
	}
}

// Transmit sends payload and blocks until the radio reports the frame sent,
// the policy deadline passes, or the device faults.
func Transmit(ctx context.Context, r TxRadio, payload []byte, p Policy) error {
	return Do(ctx, r, p, "transmit",
		func() error { return r.StartTransmit(payload) },
		r.CheckTransmit)
}

// Receive arms the radio and blocks until a frame arrives, then copies it
// into buf and returns its length and link-quality info. A zero-timeout
// policy listens indefinitely.
func Receive(ctx context.Context, r RxRadio, buf []byte, p Policy) (int, radio.RxInfo, error) {
	err := Do(ctx, r, p, "receive",
		r.StartReceive,
		func() (bool, error) { return r.CheckReceive(true) })
	if err != nil {
		return 0, nil, err
	}
	n, info, err := r.GetReceived(buf)
	if err != nil {
		return 0, nil, &DeviceError{Op: "receive", Err: err}
	}
	return n, info, nil
}
