// Package gcode implements GCodeParser: a two-pass RS-274/NGC style
// modal interpreter that tokenizes one line at a time and dispatches
// into MotionCtl, CapSense and SpindleCtl. It holds all of the
// interpreter's modal state (current position, feed rates, plane
// selection, units, program flow) the way the original firmware's
// single global `gc` struct did, but as fields on a value its caller
// owns and can construct fresh per connection.
package gcode

import (
	"math"

	"mezzomill.com/capsense"
	"mezzomill.com/motion"
	"mezzomill.com/report"
	"mezzomill.com/settings"
	"mezzomill.com/spindle"
)

const mmPerInch = 25.4

// Interpreter is GCodeParser: modal state plus the collaborators it
// dispatches physical actions to.
type Interpreter struct {
	Motion   *motion.Controller
	CapSense *capsense.Sensor
	Spindle  *spindle.Controller
	Settings *settings.Snapshot
	Report   *report.Sink

	motionMode          MotionMode
	inverseFeedRateMode bool
	inchesMode          bool
	absoluteMode        bool
	programFlow         ProgramFlow
	spindleDirection    spindle.Direction
	feedRate            float64 // mm/s
	seekRate            float64 // mm/s
	spindleSpeed        float64
	tool                int
	position            motion.Position
	plane               [3]int // axis0, axis1, axis2 indices into X/Y/Z

	// Per-line latches, set during pass 1 and consumed by pass2AndExecute.
	nextAction       nextAction
	absoluteOverride bool
	spindleChanged   bool
}

// New returns an Interpreter in the reset state the original firmware's
// gc_init establishes: absolute, millimetres, plane XY, feed/seek rates
// from settings.
func New(m *motion.Controller, c *capsense.Sensor, sp *spindle.Controller, st *settings.Snapshot, r *report.Sink) *Interpreter {
	return &Interpreter{
		Motion:       m,
		CapSense:     c,
		Spindle:      sp,
		Settings:     st,
		Report:       r,
		absoluteMode: true,
		feedRate:     st.DefaultFeedRate() / 60,
		seekRate:     st.DefaultSeekRate() / 60,
		plane:        [3]int{0, 1, 2},
	}
}

// Position reports the interpreter's current notion of tool position.
func (interp *Interpreter) Position() motion.Position { return interp.position }

// ProgramFlow reports whether the program is still running, paused by
// M0/M1, or ended by M2/M30/M60.
func (interp *Interpreter) ProgramFlow() ProgramFlow { return interp.programFlow }

func (interp *Interpreter) toMillimeters(v float64) float64 {
	if interp.inchesMode {
		return v * mmPerInch
	}
	return v
}

// Execute tokenizes and runs one line of input, already stripped of its
// trailing newline and upper-cased by the caller (spec.md §6 — framing
// and casing are the serial transport's job, not this parser's).
//
// A line whose first non-block-delete character is "(" is a full-line
// comment and returns OK without tokenizing any further, the way the
// original firmware's line[0]=='(' short-circuit in gcode.c does.
func (interp *Interpreter) Execute(line string) Code {
	if len(line) > 0 && line[0] == '$' {
		return interp.executeSetting(line)
	}

	// Per-line latches are stack-local in the original firmware; reset
	// them here, before pass1 can set them, so a line that fails partway
	// through pass1 never leaves a latch for the next Execute call to
	// pick up.
	interp.nextAction = actionDefault
	interp.absoluteOverride = false
	interp.spindleChanged = false

	start := 0
	if len(line) > 0 && line[0] == '/' {
		start = 1
	}

	if start < len(line) && line[start] == '(' {
		return OK
	}

	if status := interp.pass1(line, start); status != OK {
		return status
	}
	return interp.pass2AndExecute(line, start)
}

// pass1 scans the whole line for G/M/T commands, setting modal state
// and latching any non-modal action. Once a token sets a non-OK status
// the rest of the line is still tokenized, so the tokenizer's position
// ends up clean, but no further token is allowed to change state.
func (interp *Interpreter) pass1(line string, start int) Code {
	status := OK
	failed := false
	pos := start

	for {
		letter, value, newPos, ok, err := nextStatement(line, pos)
		if err != nil {
			return err.(Code)
		}
		if !ok {
			break
		}
		pos = newPos
		if failed {
			continue
		}

		intValue := int(math.Trunc(value))
		switch letter {
		case 'G':
			status = interp.pass1G(intValue)
		case 'M':
			status = interp.pass1M(intValue)
		case 'T':
			interp.tool = intValue
		}
		if status != OK {
			failed = true
		}
	}
	return status
}

func (interp *Interpreter) pass1G(code int) Code {
	switch code {
	case 0:
		interp.motionMode = Seek
	case 1:
		interp.motionMode = Linear
	case 2:
		interp.motionMode = CWArc
	case 3:
		interp.motionMode = CCWArc
	case 4:
		interp.nextAction = actionDwell
	case 17:
		interp.plane = [3]int{0, 1, 2}
	case 18:
		interp.plane = [3]int{0, 2, 1}
	case 19:
		interp.plane = [3]int{1, 2, 0}
	case 20:
		interp.inchesMode = true
	case 21:
		interp.inchesMode = false
	case 28:
		interp.nextAction = actionHomeAxis
	case 30:
		interp.nextAction = actionHomeMill
	case 31:
		interp.nextAction = actionMeasureCap
	case 34:
		interp.nextAction = actionCurPosIsOrigin
	case 35:
		interp.nextAction = actionAccelOff
	case 36:
		interp.nextAction = actionAccelOn
	case 53:
		interp.absoluteOverride = true
	case 80:
		interp.motionMode = MotionCancel
	case 90:
		interp.absoluteMode = true
	case 91:
		interp.absoluteMode = false
	case 93:
		interp.inverseFeedRateMode = true
	case 94:
		interp.inverseFeedRateMode = false
	default:
		return UnsupportedStatement
	}
	return OK
}

func (interp *Interpreter) pass1M(code int) Code {
	switch code {
	case 0, 1:
		interp.programFlow = Paused
	case 2, 30, 60:
		interp.programFlow = Completed
	case 3:
		interp.spindleDirection = spindle.CW
		interp.spindleChanged = true
	case 5:
		interp.spindleDirection = spindle.Stopped
		interp.spindleChanged = true
	default:
		return UnsupportedStatement
	}
	return OK
}

// pass2AndExecute re-scans the line from the start for parameter words,
// accumulating a target position and the non-modal action's arguments,
// then dispatches the resulting motion or action. The per-line latches
// were already reset by Execute before pass1 ran; this just reads the
// values pass1 left in them. position is only advanced on success: a
// FloatingPointError from arc geometry returns before the interpreter's
// position field is touched, exactly as the original firmware's FAIL
// macro does.
func (interp *Interpreter) pass2AndExecute(line string, start int) Code {
	action := interp.nextAction
	absoluteOverride := interp.absoluteOverride
	spindleChanged := interp.spindleChanged

	target := interp.position
	var offset [3]float64
	var p, r, homingThreshold float64
	seenP := false
	homingDistToMove := 0.0
	homingMaxIters := 0
	homingFeedRate := interp.feedRate
	inverseFeedRate := 0.0
	radiusMode := false

	pos := start
	for {
		letter, value, newPos, ok, err := nextStatement(line, pos)
		if err != nil {
			return err.(Code)
		}
		if !ok {
			break
		}
		pos = newPos

		unitConverted := interp.toMillimeters(value)
		switch letter {
		case 'F':
			switch {
			case interp.inverseFeedRateMode:
				inverseFeedRate = unitConverted
			case action == actionHomeAxis || action == actionHomeMill:
				homingFeedRate = unitConverted / 60
			case interp.motionMode == Seek:
				interp.seekRate = unitConverted / 60
			default:
				interp.feedRate = unitConverted / 60
			}
		case 'I', 'J', 'K':
			offset[letter-'I'] = unitConverted
		case 'P':
			p = value
			seenP = true
		case 'R':
			r = unitConverted
			radiusMode = true
		case 'S':
			interp.spindleSpeed = value
		case 'X', 'Y', 'Z':
			idx := int(letter - 'X')
			if interp.absoluteMode || absoluteOverride {
				target[idx] = unitConverted
			} else {
				target[idx] += unitConverted
			}
		case 'A':
			homingDistToMove = unitConverted
		case 'B':
			homingThreshold = value
		case 'C':
			homingMaxIters = int(math.Trunc(value))
		}
	}

	if spindleChanged {
		interp.Motion.Dwell(0)
		if interp.spindleDirection == spindle.Stopped {
			_ = interp.Spindle.Stop()
		} else {
			_ = interp.Spindle.Run(interp.spindleDirection, int(interp.spindleSpeed))
		}
	}

	switch action {
	case actionDwell:
		interp.Motion.Dwell(math.Trunc(p * 1000))
		return OK
	case actionHomeAxis:
		if !seenP {
			return UnsupportedStatement
		}
		axis := int(math.Trunc(p))
		if axis < 0 || axis > 2 {
			return UnsupportedStatement
		}
		interp.Motion.HomeAxis(axis, homingFeedRate, homingDistToMove, homingThreshold, homingMaxIters, &interp.position)
		interp.position[axis] = 0
		return OK
	case actionHomeMill:
		interp.Motion.Dwell(0)
		interp.Motion.HomeMill(homingFeedRate, homingDistToMove, homingThreshold, homingMaxIters, &interp.position)
		interp.position[2] = 0
		return OK
	case actionMeasureCap:
		if !seenP {
			return UnsupportedStatement
		}
		interp.measureCap(int(math.Trunc(p)))
		return OK
	case actionCurPosIsOrigin:
		if !seenP {
			return UnsupportedStatement
		}
		interp.Motion.CurPosIsOrigin(int(math.Trunc(p)), &interp.position)
		return OK
	case actionAccelOff:
		interp.Motion.AccelOff()
		return OK
	case actionAccelOn:
		interp.Motion.AccelOn()
		return OK
	}

	switch interp.motionMode {
	case MotionCancel:
		// No motion queued; target is discarded.
	case Seek:
		interp.Motion.Planner.BufferLine(target[0], target[1], target[2], interp.seekRate, false)
		interp.position = target
	case Linear:
		rate := interp.feedRate
		if interp.inverseFeedRateMode {
			rate = inverseFeedRate
		}
		interp.Motion.Planner.BufferLine(target[0], target[1], target[2], rate, interp.inverseFeedRateMode)
		interp.position = target
	case CWArc, CCWArc:
		status := interp.doArc(target, radiusMode, r, offset, inverseFeedRate)
		if status != OK {
			return status
		}
		interp.position = target
	}
	return OK
}

func (interp *Interpreter) measureCap(selection int) {
	if selection == 0 || selection == -2 {
		interp.reportAxis("X", 0)
	}
	if selection == 1 || selection == -2 {
		interp.reportAxis("Y", 1)
	}
	if selection == 2 || selection == -2 {
		interp.reportAxis("Z", 2)
	}
	if selection == -1 || selection == -2 {
		v, err := interp.CapSense.EndMillAverage(capsense.DefaultSamples)
		if err != nil {
			interp.Report.TimedOut()
		} else {
			interp.Report.EndMillValue(v)
		}
	}
}

func (interp *Interpreter) reportAxis(label string, axis int) {
	v, err := interp.CapSense.AxisAverage(axis, capsense.DefaultSamples)
	if err != nil {
		interp.Report.TimedOut()
	} else {
		interp.Report.AxisValue(label, v)
	}
}

// executeSetting handles the `$` configuration sub-language: bare `$`
// dumps every numbered setting, `$$` prints the mill info banner, and
// `$N=V` stores V into setting N.
func (interp *Interpreter) executeSetting(line string) Code {
	if len(line) == 1 {
		interp.Report.Text(interp.Settings.Dump())
		return OK
	}
	if line[1] == '$' {
		interp.Report.Text(interp.Settings.MillInfo())
		return OK
	}

	rest := line[1:]
	n, consumed, err := readDouble(rest)
	if err != nil {
		return UnsupportedStatement
	}
	if consumed >= len(rest) || rest[consumed] != '=' {
		return UnsupportedStatement
	}
	v, consumed2, err := readDouble(rest[consumed+1:])
	if err != nil {
		return UnsupportedStatement
	}
	if consumed+1+consumed2 != len(rest) {
		return UnsupportedStatement
	}
	interp.Settings.Store(int(n), v)
	return OK
}
