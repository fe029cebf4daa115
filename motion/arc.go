package motion

import "math"

// Arc traces a circular or helical arc from the current position as a
// sequence of straight line segments, each no longer than
// ArcSegmentLength. theta0 is the start angle (radians, clockwise from
// the positive y-axis), angularTravel the signed angle to sweep
// (positive clockwise), radius the circle radius, linearTravel the
// total motion along axisLinear over the whole arc. planeAxis0/
// planeAxis1 select the two axes forming the arc plane; axisLinear is
// the remaining axis, used for helical motion.
//
// The planner's acceleration manager is disabled for the duration and
// restored on return, mirroring mc_arc's chord-segment approximation: a
// step-accurate DDA would duplicate the planner's own trapezoidal
// velocity profiler.
func (c *Controller) Arc(theta0, angularTravel, radius, linearTravel float64, planeAxis0, planeAxis1, axisLinear int, feedRate float64, invertFeed bool, position *Position) {
	c.withAccelDisabled(func() {
		mm := math.Hypot(angularTravel*radius, math.Abs(linearTravel))
		if mm == 0 {
			return
		}
		segments := int(math.Ceil(mm / c.ArcSegmentLength))
		if segments < 1 {
			segments = 1
		}
		if invertFeed {
			feedRate *= float64(segments)
		}

		thetaStep := angularTravel / float64(segments)
		linearStep := linearTravel / float64(segments)

		cx := position[planeAxis0] - math.Sin(theta0)*radius
		cy := position[planeAxis1] - math.Cos(theta0)*radius

		theta := theta0
		linear := position[axisLinear]
		var target Position
		for i := 1; i <= segments; i++ {
			linear += linearStep
			theta += thetaStep
			target[planeAxis0] = cx + math.Sin(theta)*radius
			target[planeAxis1] = cy + math.Cos(theta)*radius
			target[axisLinear] = linear
			c.Planner.BufferLine(target[0], target[1], target[2], feedRate, invertFeed)
		}
	})
}
