package ops

import (
	"context"
	"errors"
	"time"

	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/radio"
)

// ErrNoTrailerRoom indicates a received frame already filled the operating
// buffer, leaving no room to append the RSSI trailer to the reply.
var ErrNoTrailerRoom = errors.New("ops: received frame leaves no room for the rssi trailer")

// EchoOptions configure Echo.
type EchoOptions struct {
	// Continuous keeps answering until cancellation. When false, Echo
	// returns after one reply.
	Continuous bool

	// Power, when non-nil, is applied once before the first reply.
	Power *int8

	// Delay is the turnaround pause between receiving a frame and
	// transmitting the reply.
	Delay time.Duration

	// AppendInfo extends each reply with the received frame's RSSI as a
	// 2-byte big-endian trailer, letting the peer recover link quality in
	// both directions.
	AppendInfo bool

	// Policy bounds each reply transmission and supplies the listen poll
	// cadence.
	Policy blocking.Policy

	Observer Observer
}

// Echo answers each received frame by retransmitting its payload. When the
// trailer does not fit a one-shot run fails with ErrNoTrailerRoom; a
// continuous run reports the frame as dropped and keeps listening. Echo
// returns the length of the last reply.
func Echo(ctx context.Context, r EchoRadio, opts EchoOptions) (int, error) {
	obs := observerOrNop(opts.Observer)
	if err := applyPower(r, opts.Power); err != nil {
		return 0, err
	}
	listen := blocking.Policy{PollInterval: opts.Policy.PollInterval}
	var buf [radio.MaxFrameLen]byte
	for {
		n, info, err := blocking.Receive(ctx, r, buf[:], listen)
		if err != nil {
			return 0, err
		}
		obs.FrameReceived(buf[:n], info)
		if opts.AppendInfo {
			if n+rssiTrailerLen > len(buf) {
				if !opts.Continuous {
					return 0, ErrNoTrailerRoom
				}
				obs.FrameDropped(n)
				continue
			}
			n = appendRSSITrailer(buf[:], n, info.RSSI())
		}
		r.Delay(opts.Delay)
		if err := blocking.Transmit(ctx, r, buf[:n], opts.Policy); err != nil {
			return 0, err
		}
		obs.FrameTransmitted(n)
		if !opts.Continuous {
			return n, nil
		}
	}
}
