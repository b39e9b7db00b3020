package ops_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/annie444/radio-hal/pkg/blocking"
	"github.com/annie444/radio-hal/pkg/ops"
	"github.com/annie444/radio-hal/pkg/radio"
	"github.com/annie444/radio-hal/pkg/radiotest"
)

// recorder captures observer callbacks. The optional after hooks run with
// the running total for that event, which lets tests cancel a continuous
// executor at a chosen point.
type recorder struct {
	transmits []int
	frames    [][]byte
	rssis     []int16
	dropped   []int
	samples   []int16
	rounds    []ops.LinkTestRound

	afterTransmit func(total int)
	afterReceive  func(total int)
	afterSample   func(total int)
}

func (o *recorder) FrameTransmitted(n int) {
	o.transmits = append(o.transmits, n)
	if o.afterTransmit != nil {
		o.afterTransmit(len(o.transmits))
	}
}

func (o *recorder) FrameReceived(payload []byte, info radio.RxInfo) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	o.frames = append(o.frames, cp)
	o.rssis = append(o.rssis, info.RSSI())
	if o.afterReceive != nil {
		o.afterReceive(len(o.frames))
	}
}

func (o *recorder) FrameDropped(n int) {
	o.dropped = append(o.dropped, n)
}

func (o *recorder) RSSISample(rssi int16) {
	o.samples = append(o.samples, rssi)
	if o.afterSample != nil {
		o.afterSample(len(o.samples))
	}
}

func (o *recorder) RoundOutcome(round ops.LinkTestRound) {
	o.rounds = append(o.rounds, round)
}

// memorySink records frames handed to it, or fails every write when err is
// set.
type memorySink struct {
	times  []time.Time
	frames [][]byte
	err    error
}

func (s *memorySink) WriteFrame(ts time.Time, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.times = append(s.times, ts)
	s.frames = append(s.frames, cp)
	return nil
}

func int8Ptr(v int8) *int8 { return &v }

func TestTransmitOnce(t *testing.T) {
	r := &radiotest.Radio{}
	obs := &recorder{}
	opts := ops.TransmitOptions{
		Power:    int8Ptr(10),
		Policy:   blocking.Policy{PollInterval: time.Millisecond, Timeout: 10 * time.Millisecond},
		Observer: obs,
	}
	if err := ops.Transmit(context.Background(), r, []byte("abc"), opts); err != nil {
		t.Fatalf("transmit failed: %s", err)
	}
	if len(r.Powers) != 1 || r.Powers[0] != 10 {
		t.Errorf("expected power to be set once to 10, got %v", r.Powers)
	}
	if len(r.Transmits) != 1 || !bytes.Equal(r.Transmits[0], []byte("abc")) {
		t.Errorf("unexpected transmissions: %q", r.Transmits)
	}
	if len(obs.transmits) != 1 || obs.transmits[0] != 3 {
		t.Errorf("expected one transmit callback of 3 bytes, got %v", obs.transmits)
	}
}

func TestTransmitWithoutPower(t *testing.T) {
	r := &radiotest.Radio{}
	err := ops.Transmit(context.Background(), r, []byte("x"), ops.TransmitOptions{
		Policy: blocking.Policy{PollInterval: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("transmit failed: %s", err)
	}
	if len(r.Powers) != 0 {
		t.Errorf("expected radio power untouched, got %v", r.Powers)
	}
}

func TestTransmitRepeats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &radiotest.Radio{}
	obs := &recorder{afterTransmit: func(total int) {
		if total == 3 {
			cancel()
		}
	}}
	opts := ops.TransmitOptions{
		Power:    int8Ptr(5),
		Period:   10 * time.Millisecond,
		Policy:   blocking.Policy{PollInterval: time.Millisecond},
		Observer: obs,
	}
	err := ops.Transmit(ctx, r, []byte("beacon"), opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to end the repeat loop, got %v", err)
	}
	if len(r.Transmits) != 3 {
		t.Errorf("expected 3 transmissions, got %d", len(r.Transmits))
	}
	if len(r.Powers) != 1 {
		t.Errorf("expected power set exactly once across repeats, got %v", r.Powers)
	}
	// The cancellation lands before the third pause, so only two period
	// delays are recorded.
	want := []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}
	if len(r.Delays) != len(want) || r.Delays[0] != want[0] || r.Delays[1] != want[1] {
		t.Errorf("expected period delays %v, got %v", want, r.Delays)
	}
}

func TestTransmitPowerFailure(t *testing.T) {
	powerErr := errors.New("pa fault")
	r := &radiotest.Radio{SetPowerFunc: func(int8) error { return powerErr }}
	err := ops.Transmit(context.Background(), r, []byte("x"), ops.TransmitOptions{
		Power:  int8Ptr(13),
		Policy: blocking.Policy{PollInterval: time.Millisecond},
	})
	if !blocking.IsDeviceError(err) {
		t.Fatalf("expected a device error, got %v", err)
	}
	if !errors.Is(err, powerErr) {
		t.Errorf("expected error to wrap the power fault, got %v", err)
	}
	if len(r.Transmits) != 0 {
		t.Error("power must be applied before the first transmission")
	}
}

func TestReceiveOneFrame(t *testing.T) {
	r := &radiotest.Radio{
		CheckReceiveFunc: radiotest.ReadyAfter(3),
		GetReceivedFunc:  radiotest.Deliver([]byte("ping"), -70),
	}
	obs := &recorder{}
	sink := &memorySink{}
	n, err := ops.Receive(context.Background(), r, ops.ReceiveOptions{
		Sink:     sink,
		Policy:   blocking.Policy{PollInterval: 2 * time.Millisecond},
		Observer: obs,
	})
	if err != nil {
		t.Fatalf("receive failed: %s", err)
	}
	if n != 4 {
		t.Errorf("expected 4 bytes, got %d", n)
	}
	if r.ReceiveStarts != 1 || r.ReceivePolls != 3 {
		t.Errorf("expected 1 start and 3 polls, got %d and %d", r.ReceiveStarts, r.ReceivePolls)
	}
	if r.Slept != 4*time.Millisecond {
		t.Errorf("expected 4ms of poll delays, got %s", r.Slept)
	}
	if len(obs.frames) != 1 || !bytes.Equal(obs.frames[0], []byte("ping")) || obs.rssis[0] != -70 {
		t.Errorf("unexpected observer delivery: %q %v", obs.frames, obs.rssis)
	}
	if len(sink.frames) != 1 || !bytes.Equal(sink.frames[0], []byte("ping")) {
		t.Errorf("unexpected sink contents: %q", sink.frames)
	}
}

func TestReceiveIgnoresDeadlineWhileListening(t *testing.T) {
	// The frame arrives on the 50th poll, far past the configured 20ms
	// deadline. Listening must wait it out rather than time out.
	r := &radiotest.Radio{
		CheckReceiveFunc: radiotest.ReadyAfter(50),
		GetReceivedFunc:  radiotest.Deliver([]byte("late"), -90),
	}
	n, err := ops.Receive(context.Background(), r, ops.ReceiveOptions{
		Policy: blocking.Policy{PollInterval: 5 * time.Millisecond, Timeout: 20 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("expected the late frame to be delivered, got %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 bytes, got %d", n)
	}
	if r.ReceivePolls != 50 {
		t.Errorf("expected 50 polls, got %d", r.ReceivePolls)
	}
}

func TestReceiveSinkFailureAborts(t *testing.T) {
	sinkErr := errors.New("disk full")
	r := &radiotest.Radio{
		CheckReceiveFunc: radiotest.ReadyAfter(1),
		GetReceivedFunc:  radiotest.Deliver([]byte("data"), -60),
	}
	_, err := ops.Receive(context.Background(), r, ops.ReceiveOptions{
		Sink:   &memorySink{err: sinkErr},
		Policy: blocking.Policy{PollInterval: time.Millisecond},
	})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected the sink failure to surface, got %v", err)
	}
	if blocking.IsDeviceError(err) || blocking.IsTimeout(err) {
		t.Errorf("sink failures are not radio failures: %v", err)
	}
}

func TestReceiveContinuous(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &radiotest.Radio{
		CheckReceiveFunc: radiotest.ReadyAfter(1),
		GetReceivedFunc:  radiotest.DeliverEach([][]byte{[]byte("one"), []byte("two")}, -61, -63),
	}
	obs := &recorder{afterReceive: func(total int) {
		if total == 2 {
			cancel()
		}
	}}
	sink := &memorySink{}
	_, err := ops.Receive(ctx, r, ops.ReceiveOptions{
		Continuous: true,
		Sink:       sink,
		Policy:     blocking.Policy{PollInterval: time.Millisecond},
		Observer:   obs,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to end the loop, got %v", err)
	}
	if len(obs.frames) != 2 || !bytes.Equal(obs.frames[0], []byte("one")) || !bytes.Equal(obs.frames[1], []byte("two")) {
		t.Errorf("unexpected deliveries: %q", obs.frames)
	}
	if obs.rssis[0] != -61 || obs.rssis[1] != -63 {
		t.Errorf("unexpected rssi values: %v", obs.rssis)
	}
	// The listener re-arms for every delivery, including the one the
	// cancellation interrupts.
	if r.ReceiveStarts != 3 {
		t.Errorf("expected 3 listen starts, got %d", r.ReceiveStarts)
	}
	if len(sink.times) != 2 || sink.times[1].Before(sink.times[0]) {
		t.Errorf("expected non-decreasing sink timestamps, got %v", sink.times)
	}
}

func TestPollRSSIOnce(t *testing.T) {
	r := &radiotest.Radio{
		PollRSSIFunc: func() (int16, error) { return -95, nil },
	}
	obs := &recorder{}
	err := ops.PollRSSI(context.Background(), r, ops.RSSIOptions{
		Period:   250 * time.Millisecond,
		Observer: obs,
	})
	if err != nil {
		t.Fatalf("rssi poll failed: %s", err)
	}
	if r.ReceiveStarts != 1 {
		t.Errorf("expected the receiver listening during measurement, got %d starts", r.ReceiveStarts)
	}
	if len(obs.samples) != 1 || obs.samples[0] != -95 {
		t.Errorf("unexpected samples: %v", obs.samples)
	}
	// The period pause runs even for a single measurement.
	if len(r.Delays) != 1 || r.Delays[0] != 250*time.Millisecond {
		t.Errorf("expected one 250ms pause, got %v", r.Delays)
	}
}

func TestPollRSSIDrainsPendingFrames(t *testing.T) {
	drained := false
	r := &radiotest.Radio{
		PollRSSIFunc:     func() (int16, error) { return -80, nil },
		CheckReceiveFunc: func(bool) (bool, error) { return true, nil },
		GetReceivedFunc: func(buf []byte) (int, radio.RxInfo, error) {
			drained = true
			return copy(buf, "junk"), radiotest.Info{RSSIDBm: -50}, nil
		},
	}
	obs := &recorder{}
	if err := ops.PollRSSI(context.Background(), r, ops.RSSIOptions{Period: time.Millisecond, Observer: obs}); err != nil {
		t.Fatalf("rssi poll failed: %s", err)
	}
	if !drained {
		t.Error("expected the pending frame to be drained")
	}
	if len(obs.frames) != 0 {
		t.Errorf("drained frames must be discarded, not reported: %q", obs.frames)
	}
	if len(obs.samples) != 1 {
		t.Errorf("expected one sample, got %v", obs.samples)
	}
}

func TestPollRSSIContinuous(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &radiotest.Radio{
		PollRSSIFunc: func() (int16, error) { return -77, nil },
	}
	obs := &recorder{afterSample: func(total int) {
		if total == 3 {
			cancel()
		}
	}}
	err := ops.PollRSSI(ctx, r, ops.RSSIOptions{
		Period:     5 * time.Millisecond,
		Continuous: true,
		Observer:   obs,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to end the loop, got %v", err)
	}
	if len(obs.samples) != 3 {
		t.Errorf("expected 3 samples, got %d", len(obs.samples))
	}
	if r.ReceiveStarts != 1 {
		t.Errorf("expected a single listen start for the whole run, got %d", r.ReceiveStarts)
	}
}

func TestPollRSSIDeviceFailure(t *testing.T) {
	calls := 0
	r := &radiotest.Radio{
		PollRSSIFunc: func() (int16, error) {
			calls++
			if calls > 1 {
				return 0, errors.New("spi fault")
			}
			return -80, nil
		},
	}
	obs := &recorder{}
	err := ops.PollRSSI(context.Background(), r, ops.RSSIOptions{
		Period:     time.Millisecond,
		Continuous: true,
		Observer:   obs,
	})
	if !blocking.IsDeviceError(err) {
		t.Fatalf("expected a device error, got %v", err)
	}
	if len(obs.samples) != 1 {
		t.Errorf("expected the first sample before the fault, got %v", obs.samples)
	}
}

func TestEchoAppendsTrailer(t *testing.T) {
	r := &radiotest.Radio{
		CheckReceiveFunc: radiotest.ReadyAfter(2),
		GetReceivedFunc:  radiotest.Deliver([]byte("hi"), -70),
	}
	obs := &recorder{}
	n, err := ops.Echo(context.Background(), r, ops.EchoOptions{
		Power:      int8Ptr(5),
		Delay:      30 * time.Millisecond,
		AppendInfo: true,
		Policy:     blocking.Policy{PollInterval: time.Millisecond, Timeout: 50 * time.Millisecond},
		Observer:   obs,
	})
	if err != nil {
		t.Fatalf("echo failed: %s", err)
	}
	if n != 4 {
		t.Errorf("expected a 4-byte reply, got %d", n)
	}
	// -70 dBm big-endian is 0xffba.
	want := []byte{'h', 'i', 0xff, 0xba}
	if len(r.Transmits) != 1 || !bytes.Equal(r.Transmits[0], want) {
		t.Errorf("expected reply % x, got %q", want, r.Transmits)
	}
	if len(r.Powers) != 1 || r.Powers[0] != 5 {
		t.Errorf("expected power set once to 5, got %v", r.Powers)
	}
	// One listen-poll pause, then the turnaround pause before the reply.
	want2 := []time.Duration{time.Millisecond, 30 * time.Millisecond}
	if len(r.Delays) != 2 || r.Delays[0] != want2[0] || r.Delays[1] != want2[1] {
		t.Errorf("expected delays %v, got %v", want2, r.Delays)
	}
}

func TestEchoPlainReply(t *testing.T) {
	r := &radiotest.Radio{
		CheckReceiveFunc: radiotest.ReadyAfter(1),
		GetReceivedFunc:  radiotest.Deliver([]byte("payload"), -55),
	}
	n, err := ops.Echo(context.Background(), r, ops.EchoOptions{
		Policy: blocking.Policy{PollInterval: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("echo failed: %s", err)
	}
	if n != 7 || !bytes.Equal(r.Transmits[0], []byte("payload")) {
		t.Errorf("expected the payload echoed unchanged, got %q", r.Transmits)
	}
}

func TestEchoTrailerOverflow(t *testing.T) {
	full := make([]byte, radio.MaxFrameLen)
	r := &radiotest.Radio{
		CheckReceiveFunc: radiotest.ReadyAfter(1),
		GetReceivedFunc:  radiotest.Deliver(full, -40),
	}
	obs := &recorder{}
	_, err := ops.Echo(context.Background(), r, ops.EchoOptions{
		AppendInfo: true,
		Policy:     blocking.Policy{PollInterval: time.Millisecond},
		Observer:   obs,
	})
	if !errors.Is(err, ops.ErrNoTrailerRoom) {
		t.Fatalf("expected ErrNoTrailerRoom, got %v", err)
	}
	if len(r.Transmits) != 0 {
		t.Error("no reply may be sent when the trailer does not fit")
	}
	if len(obs.frames) != 1 {
		t.Errorf("the oversized frame is still a delivery: %d", len(obs.frames))
	}
}

func TestEchoContinuousSkipsOversizedFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	full := make([]byte, radio.MaxFrameLen)
	r := &radiotest.Radio{
		CheckReceiveFunc: radiotest.ReadyAfter(1),
		GetReceivedFunc:  radiotest.DeliverEach([][]byte{full, []byte("ok")}, -40, -48),
	}
	obs := &recorder{afterTransmit: func(total int) {
		if total == 1 {
			cancel()
		}
	}}
	_, err := ops.Echo(ctx, r, ops.EchoOptions{
		Continuous: true,
		AppendInfo: true,
		Policy:     blocking.Policy{PollInterval: time.Millisecond},
		Observer:   obs,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to end the loop, got %v", err)
	}
	if len(obs.dropped) != 1 || obs.dropped[0] != radio.MaxFrameLen {
		t.Errorf("expected the oversized frame reported dropped, got %v", obs.dropped)
	}
	want := []byte{'o', 'k', 0xff, 0xd0}
	if len(r.Transmits) != 1 || !bytes.Equal(r.Transmits[0], want) {
		t.Errorf("expected only the second frame answered with % x, got %q", want, r.Transmits)
	}
}
