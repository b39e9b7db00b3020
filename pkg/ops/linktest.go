package ops

import (
	"context"
	"time"

	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/radio"
)

// Link-test exchanges are tiny: a round index, optionally echoed back with
// a trailer. A small operating buffer doubles as a guard against oversized
// replies counting as valid.
const linkTestBufLen = 32

// LinkTestRound is one round's outcome as reported to the Observer.
// LocalRSSI and RemoteRSSI are nil when the round produced no valid reply
// or the value was not requested.
type LinkTestRound struct {
	Index      uint32
	Sent       bool
	Received   bool
	LocalRSSI  *int16
	RemoteRSSI *int16
}

// LinkTestOptions configure LinkTest.
type LinkTestOptions struct {
	// Rounds is the number of request/response exchanges to run.
	Rounds uint32

	// Power, when non-nil, is applied once before the first round.
	Power *int8

	// Delay is the pause after every round, lost or not.
	Delay time.Duration

	// ParseInfo expects the peer to append its received RSSI to each
	// reply; replies without the trailer are then treated as lost.
	ParseInfo bool

	// Policy bounds each transmission and each wait for a reply. A round
	// whose reply times out counts as lost; the test goes on.
	Policy blocking.Policy

	Observer Observer
}

// LinkTest measures link quality against an echo peer: each round sends a
// numbered frame, waits for it to come back, and accumulates statistics
// over the signal strengths seen. Device failures abort the test; lost,
// mismatched, or malformed replies only count against it.
func LinkTest(ctx context.Context, r LinkRadio, opts LinkTestOptions) (*LinkTestReport, error) {
	obs := observerOrNop(opts.Observer)
	if err := applyPower(r, opts.Power); err != nil {
		return nil, err
	}
	report := &LinkTestReport{Sent: opts.Rounds}
	var buf [linkTestBufLen]byte
	for i := uint32(0); i < opts.Rounds; i++ {
		putRoundIndex(buf[:], i)
		if err := blocking.Transmit(ctx, r, buf[:roundIndexLen], opts.Policy); err != nil {
			return nil, err
		}
		round := LinkTestRound{Index: i, Sent: true}
		n, info, err := blocking.Receive(ctx, r, buf[:], opts.Policy)
		switch {
		case blocking.IsTimeout(err):
			// Lost round.
		case err != nil:
			return nil, err
		default:
			report.evaluate(&round, buf[:n], info, opts.ParseInfo)
		}
		obs.RoundOutcome(round)
		r.Delay(opts.Delay)
	}
	return report, nil
}

// evaluate applies one reply to the summary. Replies echoing the wrong
// index, or missing an expected trailer, leave the round counted as lost.
func (t *LinkTestReport) evaluate(round *LinkTestRound, frame []byte, info radio.RxInfo, parseInfo bool) {
	echoed, ok := roundIndex(frame)
	if !ok || echoed != round.Index {
		return
	}
	var remote *int16
	if parseInfo {
		v, ok := rssiTrailer(frame)
		if !ok {
			return
		}
		remote = &v
	}
	local := info.RSSI()
	t.Received++
	t.LocalRSSI.Update(float64(local))
	round.Received = true
	round.LocalRSSI = &local
	if remote != nil {
		t.RemoteRSSI.Update(float64(*remote))
		round.RemoteRSSI = remote
	}
}
