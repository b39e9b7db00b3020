package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/radio"
)

// ReceiveOptions configure Receive.
type ReceiveOptions struct {
	// Continuous re-arms the receiver after each delivery. The loop ends
	// only by cancellation. When false, Receive returns after one frame.
	Continuous bool

	// Sink, when non-nil, records every delivered frame. A sink write
	// failure aborts the executor.
	Sink FrameSink

	// Policy supplies the poll cadence for the listen loop. The deadline,
	// if any, is not applied while listening: an idle channel is not an
	// error.
	Policy blocking.Policy

	Observer Observer
}

// Receive listens for frames, reporting and recording each delivery. It
// returns the length of the last delivered frame.
func Receive(ctx context.Context, r ReceiveRadio, opts ReceiveOptions) (int, error) {
	obs := observerOrNop(opts.Observer)
	listen := blocking.Policy{PollInterval: opts.Policy.PollInterval}
	var buf [radio.MaxFrameLen]byte
	for {
		n, info, err := blocking.Receive(ctx, r, buf[:], listen)
		if err != nil {
			return 0, err
		}
		obs.FrameReceived(buf[:n], info)
		if opts.Sink != nil {
			if err := opts.Sink.WriteFrame(time.Now(), buf[:n]); err != nil {
				return 0, fmt.Errorf("ops: record frame: %w", err)
			}
		}
		if !opts.Continuous {
			return n, nil
		}
	}
}
