package ops

import (
	"context"
	"time"

	"github.com/annie444/radio-hal/pkg/blocking"
)

// TransmitOptions configure Transmit.
type TransmitOptions struct {
	// Power, when non-nil, is applied once before the first transmission
	// and stays in effect for every repeat.
	Power *int8

	// Period, when positive, repeats the transmission indefinitely at
	// this interval. The loop ends only by cancellation.
	Period time.Duration

	// Policy bounds each individual transmission.
	Policy blocking.Policy

	Observer Observer
}

// Transmit sends payload once, or repeatedly when a period is configured.
func Transmit(ctx context.Context, r TransmitRadio, payload []byte, opts TransmitOptions) error {
	obs := observerOrNop(opts.Observer)
	if err := applyPower(r, opts.Power); err != nil {
		return err
	}
	for {
		if err := blocking.Transmit(ctx, r, payload, opts.Policy); err != nil {
			return err
		}
		obs.FrameTransmitted(len(payload))
		if opts.Period <= 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Delay(opts.Period)
	}
}
