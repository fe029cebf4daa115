// Package capsense implements the capacitive touch-off sensor: per-axis
// RC charge/discharge timing through a large series resistor, a fixed
// digital low-pass filter, and averaged readings used by the motion
// controller for conductive homing.
package capsense

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
)

// Pin is the capability surface capsense needs from a GPIO line: drive
// it low or high, release it to input with a given pull, and read its
// current level. periph.io/x/conn/v3/gpio.PinIO satisfies it structurally.
type Pin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Out(l gpio.Level) error
	Read() gpio.Level
}

// Channel is one send/receive plate pair.
type Channel struct {
	Send Pin
	Recv Pin
}

// Axis identifies one of the three machine axes.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// ErrTimedOut is returned when a receive pin fails to cross the logic
// threshold within the configured timeout, meaning the channel is open
// or disconnected.
var ErrTimedOut = errors.New("capsense: timed out")

// loopTimingFactor is the empirical constant from the original firmware
// relating the busy-wait loop's iteration rate to CPU frequency.
const loopTimingFactor = 310

// DefaultSamples is the sample count used by the original firmware for
// both G31 reporting and homing's baseline/step reads.
const DefaultSamples = 50

// Sensor owns the shared filter state and the per-channel pin wiring for
// the three axis probes plus the end-mill conductivity probe.
type Sensor struct {
	axes    [3]Channel
	endMill Channel
	timeout int
	filter  filterState
	average float64
}

// NewSensor derives the measurement timeout from cpuHz the way the
// original firmware's cc_init does, and wires the three axis channels
// plus the end-mill channel.
func NewSensor(cpuHz float64, axes [3]Channel, endMill Channel) *Sensor {
	timeout := int((2000 * loopTimingFactor * cpuHz) / 16_000_000)
	return &Sensor{
		axes:    axes,
		endMill: endMill,
		timeout: timeout,
	}
}

// Timeout reports the loop-iteration count at which a channel is
// declared open/disconnected.
func (s *Sensor) Timeout() int {
	return s.timeout
}

// LastAverage reports the most recently computed averaged value, the
// capAverage side channel from the original firmware, kept only for
// diagnostics — callers should use the return value of AxisAverage /
// EndMillAverage instead of reading this.
func (s *Sensor) LastAverage() float64 {
	return s.average
}

// measureChannel runs one full RC charge/discharge cycle on ch and, on
// success, folds the resulting count through the low-pass filter.
func (s *Sensor) measureChannel(ch Channel) (float64, error) {
	count := 0

	// Both plates start at a known 0V with no stray charge: send driven
	// low, receive driven low then released to input with no pull-up.
	if err := ch.Send.Out(gpio.Low); err != nil {
		return 0, err
	}
	if err := ch.Recv.Out(gpio.Low); err != nil {
		return 0, err
	}
	if err := ch.Recv.In(gpio.Float, gpio.NoEdge); err != nil {
		return 0, err
	}

	if err := ch.Send.Out(gpio.High); err != nil {
		return 0, err
	}
	for ch.Recv.Read() == gpio.Low {
		count++
		if count >= s.timeout {
			return 0, ErrTimedOut
		}
	}

	// Finish charging past the logic threshold.
	if err := ch.Recv.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return 0, err
	}
	if err := ch.Recv.In(gpio.Float, gpio.NoEdge); err != nil {
		return 0, err
	}

	if err := ch.Send.Out(gpio.Low); err != nil {
		return 0, err
	}
	for ch.Recv.Read() == gpio.High {
		count++
		if count >= s.timeout {
			return 0, ErrTimedOut
		}
	}

	return s.filter.sample(count), nil
}

// AxisAverage resets the filter, discards six warm-up samples, then
// averages numSamples readings from axis. It reports ErrTimedOut if any
// underlying cycle — warm-up or averaged — times out.
//
// axis takes a plain int (0=X, 1=Y, 2=Z) rather than Axis so that
// *Sensor structurally satisfies motion.Sampler without motion needing
// to import this package.
func (s *Sensor) AxisAverage(axis int, numSamples int) (float64, error) {
	return s.sampleAverage(s.axes[Axis(axis)], numSamples)
}

// EndMillAverage is AxisAverage for the end-mill conductivity channel.
func (s *Sensor) EndMillAverage(numSamples int) (float64, error) {
	return s.sampleAverage(s.endMill, numSamples)
}

func (s *Sensor) sampleAverage(ch Channel, numSamples int) (float64, error) {
	s.filter.reset()
	for i := 0; i < filterWarmup; i++ {
		if _, err := s.measureChannel(ch); err != nil {
			return 0, err
		}
	}
	sum := 0.0
	for i := 0; i < numSamples; i++ {
		v, err := s.measureChannel(ch)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	mean := sum / float64(numSamples)
	s.average = mean
	return mean, nil
}
