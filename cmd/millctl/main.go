// command millctl is the serial-line front end for the mill's G-code
// interpreter: it owns the hardware wiring, reassembles newline-framed
// lines off the wire, and feeds them to gcode.Interpreter one at a
// time.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/tarm/serial"

	"mezzomill.com/capsense"
	"mezzomill.com/gcode"
	"mezzomill.com/motion"
	"mezzomill.com/report"
	"mezzomill.com/settings"
)

var (
	serialDev = flag.String("device", "", "serial device (empty uses stdin/stdout)")
	baudRate  = flag.Int("baud", 115200, "serial baud rate")
	cpuHz     = flag.Float64("cpu-hz", 16_000_000, "capacitance sensor loop clock, Hz")
	samples   = flag.Int("samples", capsense.DefaultSamples, "capacitance samples per averaged homing read (G31 always uses capsense.DefaultSamples)")
	motorDev  = flag.String("motor-uart", "", "serial device for the TMC2209 axis driver bus (empty skips driver setup)")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "millctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	conn, err := openConnection()
	if err != nil {
		return fmt.Errorf("millctl: %w", err)
	}
	defer conn.Close()

	sensor, spin, err := newHardware(*cpuHz)
	if err != nil {
		return fmt.Errorf("millctl: %w", err)
	}

	if *motorDev != "" {
		if err := configureAxisDrivers(*motorDev); err != nil {
			return fmt.Errorf("millctl: %w", err)
		}
		log.Println("millctl: axis drivers configured")
	}

	st := settings.NewDefault()
	r := report.New(conn)
	mc := motion.New(loggingPlanner{}, sampler{sensor}, r, st.MMPerArcSegment(), *samples)
	interp := gcode.New(mc, sensor, spin, &st, r)

	log.Println("millctl: ready")
	return serve(conn, interp, r)
}

// serve reads newline-framed lines off conn, removes all whitespace and
// upper-cases them (G-code letters are case-insensitive but the
// interpreter only recognizes whitespace-free, upper-case lines), and
// feeds each to interp, reporting the resulting status code.
func serve(conn io.Reader, interp *gcode.Interpreter, r *report.Sink) error {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.ToUpper(strings.Join(strings.Fields(scanner.Text()), ""))
		if line == "" {
			continue
		}
		status := interp.Execute(line)
		r.StatusCode(int(status))
	}
	return scanner.Err()
}

func openConnection() (io.ReadWriteCloser, error) {
	if *serialDev == "" {
		return stdConn{}, nil
	}
	return serial.OpenPort(&serial.Config{Name: *serialDev, Baud: *baudRate})
}

// stdConn adapts stdin/stdout to io.ReadWriteCloser for bench testing
// without a serial cable attached.
type stdConn struct{}

func (stdConn) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdConn) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdConn) Close() error                { return nil }

// sampler adapts *capsense.Sensor to motion.Sampler; both already share
// the same two method shapes, this just names the seam.
type sampler struct{ s *capsense.Sensor }

func (a sampler) AxisAverage(axis, n int) (float64, error) { return a.s.AxisAverage(axis, n) }
func (a sampler) EndMillAverage(n int) (float64, error)    { return a.s.EndMillAverage(n) }

// loggingPlanner stands in for the real-time step-pulse planner, which
// this core treats as an external, opaque collaborator (spec.md §1):
// the step ISR and trapezoidal velocity profiler live in a separate
// real-time component this process talks to over its own channel in a
// full deployment. Until that wiring exists, queued moves are logged so
// millctl is runnable and observable end to end on a bench.
type loggingPlanner struct{}

func (loggingPlanner) BufferLine(x, y, z, rate float64, invertFeed bool) {
	log.Printf("planner: line x=%.4f y=%.4f z=%.4f rate=%.4f invertFeed=%v", x, y, z, rate, invertFeed)
}

func (loggingPlanner) RedefineCurrentPosition(x, y, z float64) {
	log.Printf("planner: redefine x=%.4f y=%.4f z=%.4f", x, y, z)
}

func (loggingPlanner) AccelerationManagerEnabled() bool { return true }

func (loggingPlanner) SetAccelerationManagerEnabled(enabled bool) {
	log.Printf("planner: acceleration manager enabled=%v", enabled)
}

func (loggingPlanner) Synchronize() {}
