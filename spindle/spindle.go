// Package spindle drives the mill's spindle motor: on/off/direction with
// a fixed spin-up and spin-down dwell, plus pause/resume around external
// power events.
package spindle

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// SpinUpDown is the fixed delay observed after each spindle state
// change, the original firmware's MOTOR_SPIN_UP_AND_DOWN_TIME.
const SpinUpDown = 1 * time.Second

// Direction is the spindle rotation direction.
type Direction int

const (
	Stopped Direction = 0
	CW      Direction = 1
	CCW     Direction = -1
)

// Clock abstracts the spin-up/down delay so tests don't block on real
// time, the way a hardware collaborator is abstracted behind an
// interface elsewhere in this module.
type Clock interface {
	Sleep(time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Pin is the capability Controller needs from the enable line.
// periph.io/x/conn/v3/gpio.PinOut satisfies it structurally.
type Pin interface {
	Out(l gpio.Level) error
}

// Controller drives the spindle enable line.
type Controller struct {
	Enable Pin
	Clock  Clock

	enabled   bool
	direction Direction
	rpm       int
}

// New returns a Controller driving pin, sleeping on the real clock.
func New(pin Pin) *Controller {
	return &Controller{Enable: pin, Clock: realClock{}}
}

// Run turns the spindle on in the given direction at rpm and blocks for
// SpinUpDown while it comes up to speed.
func (c *Controller) Run(dir Direction, rpm int) error {
	if err := c.Enable.Out(gpio.High); err != nil {
		return err
	}
	c.enabled = true
	c.direction = dir
	c.rpm = rpm
	c.Clock.Sleep(SpinUpDown)
	return nil
}

// Stop turns the spindle off and blocks for SpinUpDown while it spins
// down.
func (c *Controller) Stop() error {
	if err := c.Enable.Out(gpio.Low); err != nil {
		return err
	}
	c.enabled = false
	c.direction = Stopped
	c.rpm = 0
	c.Clock.Sleep(SpinUpDown)
	return nil
}

// Pause clears the enable line without resetting remembered direction
// or speed, so Resume can bring the spindle back up afterwards.
func (c *Controller) Pause() error {
	if err := c.Enable.Out(gpio.Low); err != nil {
		return err
	}
	c.Clock.Sleep(SpinUpDown)
	return nil
}

// Resume re-invokes Run with the last direction and speed. It is a
// no-op if the spindle was never running.
func (c *Controller) Resume() error {
	if !c.enabled {
		return nil
	}
	return c.Run(c.direction, c.rpm)
}
