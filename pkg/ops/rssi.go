package ops

import (
	"context"
	"time"

	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/radio"
)

// RSSIOptions configure PollRSSI.
type RSSIOptions struct {
	// Period between measurements. Defaults to one second.
	Period time.Duration

	// Continuous keeps measuring until cancellation. When false, PollRSSI
	// reports a single sample.
	Continuous bool

	Observer Observer
}

// PollRSSI measures ambient signal strength at a fixed period with the
// receiver listening. Frames that arrive between measurements are drained
// and discarded so the receive pipeline keeps moving.
func PollRSSI(ctx context.Context, r RSSIRadio, opts RSSIOptions) error {
	obs := observerOrNop(opts.Observer)
	period := opts.Period
	if period <= 0 {
		period = time.Second
	}
	if err := r.StartReceive(); err != nil {
		return &blocking.DeviceError{Op: "receive", Err: err}
	}
	var buf [radio.MaxFrameLen]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rssi, err := r.PollRSSI()
		if err != nil {
			return &blocking.DeviceError{Op: "rssi", Err: err}
		}
		obs.RSSISample(rssi)
		ready, err := r.CheckReceive(true)
		if err != nil {
			return &blocking.DeviceError{Op: "receive", Err: err}
		}
		if ready {
			if _, _, err := r.GetReceived(buf[:]); err != nil {
				return &blocking.DeviceError{Op: "receive", Err: err}
			}
		}
		r.Delay(period)
		if !opts.Continuous {
			return nil
		}
	}
}
