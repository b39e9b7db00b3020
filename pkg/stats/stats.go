// Package stats provides a streaming mean/variance accumulator for signal
// measurements. Values are folded in one at a time and the moments can be
// read at any point; no sample history is retained.
package stats

import (
	"encoding/json"
	"fmt"
	"math"
)

// Stats accumulates count, min, max, mean, and variance over a stream of
// samples using Welford's recurrence. The zero value is an empty
// accumulator ready for use. Empty is a valid terminal state meaning no
// data was observed.
type Stats struct {
	count    uint64
	min, max float64
	mean, m2 float64
}

// Update folds one sample into the accumulator.
func (s *Stats) Update(v float64) {
	s.count++
	if s.count == 1 {
		s.min, s.max = v, v
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	delta := v - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (v - s.mean)
}

// Count returns the number of samples observed.
func (s *Stats) Count() uint64 { return s.count }

// Min returns the smallest sample, or NaN if the accumulator is empty.
func (s *Stats) Min() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.min
}

// Max returns the largest sample, or NaN if the accumulator is empty.
func (s *Stats) Max() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.max
}

// Mean returns the arithmetic mean, or NaN if the accumulator is empty.
func (s *Stats) Mean() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.mean
}

// Variance returns the sample variance. It is zero until two samples have
// been observed.
func (s *Stats) Variance() float64 {
	if s.count < 2 {
		return 0
	}
	return s.m2 / float64(s.count-1)
}

// StdDev returns the sample standard deviation.
func (s *Stats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Stats) String() string {
	if s.count == 0 {
		return "no samples"
	}
	return fmt.Sprintf("count=%d min=%.1f max=%.1f mean=%.1f std-dev=%.2f",
		s.count, s.min, s.max, s.mean, s.StdDev())
}

type statsJSON struct {
	Count  uint64   `json:"count"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	StdDev *float64 `json:"std_dev,omitempty"`
}

// MarshalJSON renders the accumulator as its summary moments. An empty
// accumulator marshals as {"count":0}.
func (s Stats) MarshalJSON() ([]byte, error) {
	out := statsJSON{Count: s.count}
	if s.count > 0 {
		min, max, mean, dev := s.min, s.max, s.mean, s.StdDev()
		out.Min, out.Max, out.Mean, out.StdDev = &min, &max, &mean, &dev
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores an accumulator from its summary moments. The
// restored value reports the same count, min, max, mean, and standard
// deviation that were marshaled; it remains usable for further updates.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var in statsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Stats{count: in.Count}
	if in.Count == 0 {
		return nil
	}
	if in.Min == nil || in.Max == nil || in.Mean == nil {
		return fmt.Errorf("stats: summary with count=%d is missing moments", in.Count)
	}
	s.min, s.max, s.mean = *in.Min, *in.Max, *in.Mean
	if in.StdDev != nil && in.Count > 1 {
		s.m2 = *in.StdDev * *in.StdDev * float64(in.Count-1)
	}
	return nil
}
