package gcode

// MotionMode is the interpreter's persistent G0/G1/G2/G3/G80 modal
// group, carried across lines until a later command changes it.
type MotionMode int

const (
	Seek MotionMode = iota
	Linear
	CWArc
	CCWArc
	MotionCancel
)

// ProgramFlow tracks M0/M1 (paused) and M2/M30/M60 (completed) against
// the otherwise-implicit "still running" state.
type ProgramFlow int

const (
	Running ProgramFlow = iota
	Paused
	Completed
)

// nextAction is the non-modal G-code (G4, G28, G30, G31, G34, G35, G36)
// latched during pass 1 and consumed once, after pass 2, by
// pass2AndExecute.
type nextAction int

const (
	actionDefault nextAction = iota
	actionDwell
	actionHomeAxis
	actionHomeMill
	actionMeasureCap
	actionCurPosIsOrigin
	actionAccelOff
	actionAccelOn
)
