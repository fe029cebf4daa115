// Package motion is the high-level motion controller: dwell, arc
// interpolation into line segments the planner can buffer, homing by
// capacitive probing, and origin redefinition. It knows nothing about
// G-code syntax or capacitance electronics — it only calls the small
// capability interfaces declared below.
package motion

import "time"

// Position is the interpreter's notion of where the tool is, X/Y/Z in
// millimetres.
type Position [3]float64

// Planner is the external collaborator this core hands Cartesian moves
// to. It buffers moves, answers synchronisation requests, and tracks
// its own acceleration-management state (spec.md §6).
type Planner interface {
	// BufferLine enqueues a Cartesian line move at rate mm/s (or, when
	// invertFeed is true, rate as 1/minutes for the whole move).
	BufferLine(x, y, z, rate float64, invertFeed bool)
	// RedefineCurrentPosition tells the planner its internal step
	// counters correspond to this mm coordinate, without motion.
	RedefineCurrentPosition(x, y, z float64)
	AccelerationManagerEnabled() bool
	SetAccelerationManagerEnabled(enabled bool)
	// Synchronize blocks until all previously queued motion has
	// physically completed.
	Synchronize()
}

// Sampler is the capability motion needs from the capacitive sensor:
// an averaged reading per axis or for the end-mill channel. It is
// deliberately the only dependency this package has on capsense, kept
// to exactly the two operations homing needs.
type Sampler interface {
	AxisAverage(axis int, numSamples int) (float64, error)
	EndMillAverage(numSamples int) (float64, error)
}

// Reporter is the outbound textual reporting capability homing needs.
type Reporter interface {
	TimesMoved(n int)
}

// Clock abstracts the dwell delay so tests don't block on real time.
type Clock interface {
	Sleep(time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Controller is MotionCtl: the collaborators it needs, held by field,
// never as package-level state.
type Controller struct {
	Planner  Planner
	Sampler  Sampler
	Reporter Reporter
	Clock    Clock

	// ArcSegmentLength is settings.mm_per_arc_segment, mm.
	ArcSegmentLength float64
	// Samples is the number of capacitance readings averaged per probe,
	// the original firmware's fixed 10*5.
	Samples int
}

// New returns a Controller with the real clock and the given
// collaborators wired in.
func New(planner Planner, sampler Sampler, reporter Reporter, arcSegmentLength float64, samples int) *Controller {
	return &Controller{
		Planner:          planner,
		Sampler:          sampler,
		Reporter:         reporter,
		Clock:            realClock{},
		ArcSegmentLength: arcSegmentLength,
		Samples:          samples,
	}
}

// Dwell synchronises with the planner, then sleeps for ms milliseconds.
// ms == 0 is a pure synchronisation request.
func (c *Controller) Dwell(ms float64) {
	c.Planner.Synchronize()
	if ms > 0 {
		c.Clock.Sleep(time.Duration(ms * float64(time.Millisecond)))
	}
}

// AccelOff disables the planner's acceleration manager.
func (c *Controller) AccelOff() {
	c.Planner.SetAccelerationManagerEnabled(false)
}

// AccelOn re-enables the planner's acceleration manager.
func (c *Controller) AccelOn() {
	c.Planner.SetAccelerationManagerEnabled(true)
}

// CurPosIsOrigin redefines the current physical location as origin.
// selection == -1 zeroes all three axes; 0/1/2 zeroes only that axis,
// preserving the others; any other value is a no-op.
func (c *Controller) CurPosIsOrigin(selection int, position *Position) {
	switch {
	case selection == -1:
		*position = Position{}
		c.Planner.RedefineCurrentPosition(0, 0, 0)
	case selection >= 0 && selection <= 2:
		position[selection] = 0
		c.redefine(position)
	}
}

func (c *Controller) redefine(position *Position) {
	c.Planner.RedefineCurrentPosition(position[0], position[1], position[2])
}

func (c *Controller) withAccelDisabled(fn func()) {
	wasEnabled := c.Planner.AccelerationManagerEnabled()
	if wasEnabled {
		c.Planner.SetAccelerationManagerEnabled(false)
	}
	fn()
	if wasEnabled {
		c.Planner.SetAccelerationManagerEnabled(true)
	}
}
