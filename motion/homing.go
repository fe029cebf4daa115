package motion

// HomeAxis approaches a conductive target on one axis in fixed steps,
// stopping when the filtered capacitance reading exceeds threshold, when
// the sensor times out, or when maxIters is exhausted. The axis is
// continuously rezeroed during the approach so the planner only ever
// sees a step-sized move, not an ever-growing absolute target.
func (c *Controller) HomeAxis(axis int, feedRate, step, threshold float64, maxIters int, position *Position) {
	c.withAccelDisabled(func() {
		c.homeLoop(maxIters, threshold,
			func() (float64, error) { return c.Sampler.AxisAverage(axis, c.Samples) },
			func(target *Position) { target[axis] = step },
			axis, feedRate, position,
		)
	})
}

// HomeMill is HomeAxis for the end-mill conductivity probe; the homed
// axis is always Z.
func (c *Controller) HomeMill(feedRate, step, threshold float64, maxIters int, position *Position) {
	const axisZ = 2
	c.withAccelDisabled(func() {
		c.homeLoop(maxIters, threshold,
			func() (float64, error) { return c.Sampler.EndMillAverage(c.Samples) },
			func(target *Position) { target[axisZ] = step },
			axisZ, feedRate, position,
		)
	})
}

// homeLoop implements the shared closed loop: synchronise, take a
// baseline reading, then step-and-resample until the reading crosses
// threshold, the sensor times out, or maxIters is reached.
func (c *Controller) homeLoop(maxIters int, threshold float64, sample func() (float64, error), setStep func(*Position), axis int, feedRate float64, position *Position) {
	c.Planner.Synchronize()

	lastAverage, err := sample()
	timedOut := err != nil

	timesMoved := 0
	for !timedOut && timesMoved < maxIters && lastAverage < threshold {
		c.Planner.Synchronize()

		position[axis] = 0
		c.redefine(position)

		target := *position
		setStep(&target)
		c.Planner.BufferLine(target[0], target[1], target[2], feedRate, false)

		c.Planner.Synchronize()
		v, err := sample()
		if err != nil {
			timedOut = true
		} else {
			lastAverage = v
		}
		timesMoved++
	}

	position[axis] = 0
	c.redefine(position)

	if c.Reporter != nil {
		c.Reporter.TimesMoved(timesMoved)
	}
}
