// Package report is the outbound half of the serial protocol: plain
// textual lines written to whatever collaborator owns the wire, the way
// the original firmware's printString/printFloat/print_newline calls
// write straight to the UART.
package report

import (
	"fmt"
	"io"
)

// Sink writes the textual reports the interpreter core produces.
// Nothing downstream of the serial line (byte framing, baud rate) is
// this package's concern — it only ever formats and writes lines.
type Sink struct {
	w io.Writer
}

// New wraps w as a Sink.
func New(w io.Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) line(format string, args ...any) {
	fmt.Fprintf(s.w, format+"\n", args...)
}

// AxisValue reports a successful capacitance reading for one of the
// three machine axes.
func (s *Sink) AxisValue(axis string, value float64) {
	s.line("%s Axis Val: %v", axis, value)
}

// EndMillValue reports a successful end-mill conductivity reading.
func (s *Sink) EndMillValue(value float64) {
	s.line("End Mill Val: %v", value)
}

// TimedOut reports a capacitance channel that failed to settle within
// its timeout.
func (s *Sink) TimedOut() {
	s.line("timed out")
}

// TimesMoved reports how many step increments a homing-by-probing loop
// took before it stopped.
func (s *Sink) TimesMoved(n int) {
	s.line("TimesMoved = %d", n)
}

// StatusCode reports the integer status code of a completed line, the
// contract the supervising serial protocol maps to "ok" or an error
// token (spec.md §7).
func (s *Sink) StatusCode(code int) {
	s.line("%d", code)
}

// Text writes a pre-formatted block (settings dumps, mill info) verbatim.
func (s *Sink) Text(text string) {
	fmt.Fprint(s.w, text)
}
