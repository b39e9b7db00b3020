// Package telemetry bundles the Prometheus metrics exported by the radio
// tools.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the radio metrics and provides a ready-to-serve /metrics
// handler. Commands drive the counters from their observer callbacks.
type Collector struct {
	gatherer prometheus.Gatherer

	FramesTransmitted prometheus.Counter
	BytesTransmitted  prometheus.Counter
	FramesReceived    prometheus.Counter
	BytesReceived     prometheus.Counter
	FramesDropped     prometheus.Counter
	CaptureFrames     prometheus.Counter
	RSSI              prometheus.Gauge
	LinkTestRounds    *prometheus.CounterVec
}

// New registers the radio metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	framesTx, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radio_frames_transmitted_total",
		Help: "Total number of frames handed to the radio for transmission.",
	}), "radio_frames_transmitted_total")
	if err != nil {
		return nil, err
	}
	bytesTx, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radio_bytes_transmitted_total",
		Help: "Total payload bytes transmitted.",
	}), "radio_bytes_transmitted_total")
	if err != nil {
		return nil, err
	}
	framesRx, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radio_frames_received_total",
		Help: "Total number of frames delivered by the radio.",
	}), "radio_frames_received_total")
	if err != nil {
		return nil, err
	}
	bytesRx, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radio_bytes_received_total",
		Help: "Total payload bytes received.",
	}), "radio_bytes_received_total")
	if err != nil {
		return nil, err
	}
	dropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radio_frames_dropped_total",
		Help: "Total number of received frames discarded without a reply.",
	}), "radio_frames_dropped_total")
	if err != nil {
		return nil, err
	}
	capture, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radio_capture_frames_total",
		Help: "Total number of frames written to capture sinks.",
	}), "radio_capture_frames_total")
	if err != nil {
		return nil, err
	}
	rssi, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radio_rssi_dbm",
		Help: "Most recent signal strength measurement in dBm.",
	}), "radio_rssi_dbm")
	if err != nil {
		return nil, err
	}
	rounds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_linktest_rounds_total",
		Help: "Total number of link-test rounds, labeled by outcome.",
	}, []string{"outcome"})
	rounds, err = registerCounterVec(reg, rounds, "radio_linktest_rounds_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		FramesTransmitted: framesTx,
		BytesTransmitted:  bytesTx,
		FramesReceived:    framesRx,
		BytesReceived:     bytesRx,
		FramesDropped:     dropped,
		CaptureFrames:     capture,
		RSSI:              rssi,
		LinkTestRounds:    rounds,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordRound counts one link-test round under its outcome label.
func (c *Collector) RecordRound(received bool) {
	if c == nil || c.LinkTestRounds == nil {
		return
	}
	outcome := "lost"
	if received {
		outcome = "ok"
	}
	c.LinkTestRounds.WithLabelValues(outcome).Inc()
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
