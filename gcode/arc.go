package gcode

import (
	"math"

	"mezzomill.com/motion"
)

// theta returns the angle of the vector (x, y) measured clockwise from
// the positive y-axis, the same convention gcode.c's theta()
// uses so that angularTravel below comes out with the right sign for
// both CW and CCW arcs.
func theta(x, y float64) float64 {
	t := math.Atan(x / math.Abs(y))
	switch {
	case y > 0:
		return t
	case t > 0:
		return math.Pi - t
	default:
		return -math.Pi - t
	}
}

// doArc resolves the IJK-offset or R-radius form of a G2/G3 word into
// the (theta0, angularTravel, radius, linearTravel) parameters
// motion.Controller.Arc needs, then hands off the interpolation and
// queues the final exact line to target the way the original firmware
// does to correct for the chord approximation's accumulated error.
//
// In radius mode, a negative discriminant means the requested radius is
// too small to reach target from the current position on this plane —
// there is no real circle through both points — and the line fails
// with FloatingPointError before any motion is queued.
func (interp *Interpreter) doArc(target motion.Position, radiusMode bool, r float64, offset [3]float64, inverseFeedRate float64) Code {
	a0, a1, a2 := interp.plane[0], interp.plane[1], interp.plane[2]
	start := interp.position

	if radiusMode {
		x := target[a0] - start[a0]
		y := target[a1] - start[a1]
		d2 := x*x + y*y
		h2 := 4*r*r - d2
		if h2 < 0 {
			return FloatingPointError
		}
		hX2divD := -math.Sqrt(h2) / math.Hypot(x, y)
		if interp.motionMode == CCWArc {
			hX2divD = -hX2divD
		}
		if r < 0 {
			hX2divD = -hX2divD
		}
		offset = [3]float64{}
		offset[a0] = (x - y*hX2divD) / 2
		offset[a1] = (y + x*hX2divD) / 2
	}

	thetaStart := theta(-offset[a0], -offset[a1])
	thetaEnd := theta(target[a0]-offset[a0]-start[a0], target[a1]-offset[a1]-start[a1])
	if thetaEnd < thetaStart {
		thetaEnd += 2 * math.Pi
	}
	angularTravel := thetaEnd - thetaStart
	if interp.motionMode == CCWArc {
		angularTravel -= 2 * math.Pi
	}

	radius := math.Hypot(offset[a0], offset[a1])
	linearTravel := target[a2] - start[a2]

	feedRate := interp.feedRate
	if interp.inverseFeedRateMode {
		feedRate = inverseFeedRate
	}

	interp.Motion.Arc(thetaStart, angularTravel, radius, linearTravel, a0, a1, a2, feedRate, interp.inverseFeedRateMode, &interp.position)
	interp.Motion.Planner.BufferLine(target[0], target[1], target[2], feedRate, interp.inverseFeedRateMode)
	return OK
}
