//go:build !linux || !(arm || arm64)

package main

import (
	"log"

	"periph.io/x/conn/v3/gpio"

	"mezzomill.com/capsense"
	"mezzomill.com/spindle"
)

// newHardware stands in for the real GPIO binding on platforms without
// BCM283x hardware (a development laptop, CI). Every channel reports
// an always-open (disconnected) sensor and the spindle enable line is
// a no-op, so the interpreter can still be driven end to end over
// stdin for bench testing away from the mill.
func newHardware(cpuHz float64) (*capsense.Sensor, *spindle.Controller, error) {
	log.Println("millctl: no BCM283x hardware on this platform, using simulated pins")

	var axes [3]capsense.Channel
	for i := range axes {
		axes[i] = capsense.Channel{Send: &simPin{}, Recv: &simPin{}}
	}
	endMill := capsense.Channel{Send: &simPin{}, Recv: &simPin{}}
	sensor := capsense.NewSensor(cpuHz, axes, endMill)

	spin := spindle.New(&simPin{})

	return sensor, spin, nil
}

// simPin is a GPIO line that is always low and never connects — the
// capacitance reads it backs always time out, which is the safe
// default off real hardware.
type simPin struct{ level gpio.Level }

func (p *simPin) In(pull gpio.Pull, edge gpio.Edge) error { return nil }
func (p *simPin) Out(l gpio.Level) error                  { p.level = l; return nil }
func (p *simPin) Read() gpio.Level                        { return gpio.Low }
