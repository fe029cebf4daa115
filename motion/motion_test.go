package motion

import (
	"errors"
	"math"
	"testing"
	"time"
)

// fakePlanner records every call, a hand-written fake rather than a
// mocking framework.
type fakePlanner struct {
	lines        [][5]float64 // x, y, z, rate, invertFeed(0/1)
	redefines    [][3]float64
	accelEnabled bool
	syncCount    int
}

func (p *fakePlanner) BufferLine(x, y, z, rate float64, invertFeed bool) {
	f := 0.0
	if invertFeed {
		f = 1
	}
	p.lines = append(p.lines, [5]float64{x, y, z, rate, f})
}

func (p *fakePlanner) RedefineCurrentPosition(x, y, z float64) {
	p.redefines = append(p.redefines, [3]float64{x, y, z})
}

func (p *fakePlanner) AccelerationManagerEnabled() bool     { return p.accelEnabled }
func (p *fakePlanner) SetAccelerationManagerEnabled(e bool) { p.accelEnabled = e }
func (p *fakePlanner) Synchronize()                         { p.syncCount++ }

type fakeSampler struct {
	values []float64
	errs   []error
	calls  int
}

func (s *fakeSampler) AxisAverage(axis int, n int) (float64, error) {
	return s.next()
}

func (s *fakeSampler) EndMillAverage(n int) (float64, error) {
	return s.next()
}

func (s *fakeSampler) next() (float64, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return 0, s.errs[i]
	}
	if i < len(s.values) {
		return s.values[i], nil
	}
	return s.values[len(s.values)-1], nil
}

type fakeReporter struct{ last int }

func (r *fakeReporter) TimesMoved(n int) { r.last = n }

type discardClock struct{}

func (discardClock) Sleep(time.Duration) {}

func newController(p *fakePlanner, s *fakeSampler, r *fakeReporter) *Controller {
	return &Controller{
		Planner:          p,
		Sampler:          s,
		Reporter:         r,
		Clock:            discardClock{},
		ArcSegmentLength: 1,
		Samples:          10,
	}
}

func TestHomeAxisStopsAtThreshold(t *testing.T) {
	p := &fakePlanner{}
	// baseline 0, then strictly increasing, crossing 5.0 on the 3rd call.
	s := &fakeSampler{values: []float64{0, 2, 4, 6}}
	r := &fakeReporter{}
	c := newController(p, s, r)

	pos := Position{1, 2, 3}
	c.HomeAxis(0, 10, -5, 5.0, 100, &pos)

	if pos[0] != 0 {
		t.Fatalf("position[0] = %v, want 0", pos[0])
	}
	if r.last != 3 {
		t.Fatalf("TimesMoved reported %d, want 3", r.last)
	}
	if len(p.lines) != 3 {
		t.Fatalf("buffered %d lines, want 3", len(p.lines))
	}
	for _, l := range p.lines {
		if l[0] != -5 {
			t.Fatalf("line x = %v, want -5 (the step)", l[0])
		}
	}
}

func TestHomeAxisBaselineTimeout(t *testing.T) {
	p := &fakePlanner{}
	s := &fakeSampler{errs: []error{errors.New("timed out")}}
	r := &fakeReporter{}
	c := newController(p, s, r)

	pos := Position{1, 1, 1}
	c.HomeAxis(1, 10, 5, 5.0, 100, &pos)

	if len(p.lines) != 0 {
		t.Fatalf("buffered %d lines, want 0 on baseline timeout", len(p.lines))
	}
	if pos[1] != 0 {
		t.Fatalf("position[1] = %v, want 0", pos[1])
	}
	if r.last != 0 {
		t.Fatalf("TimesMoved reported %d, want 0", r.last)
	}
}

func TestHomeAxisMaxIters(t *testing.T) {
	p := &fakePlanner{}
	s := &fakeSampler{values: []float64{0, 0, 0, 0}}
	r := &fakeReporter{}
	c := newController(p, s, r)

	pos := Position{}
	c.HomeAxis(2, 10, 1, 1000, 2, &pos)

	if r.last != 2 {
		t.Fatalf("TimesMoved reported %d, want 2 (max_iters)", r.last)
	}
}

func TestArcFullCircleClosesWithinSegmentTolerance(t *testing.T) {
	p := &fakePlanner{}
	s := &fakeSampler{}
	r := &fakeReporter{}
	c := newController(p, s, r)

	pos := Position{10, 0, 0}
	c.Arc(0, 2*math.Pi, 5, 0, 0, 1, 2, 300, false, &pos)

	if len(p.lines) == 0 {
		t.Fatal("expected buffered segments")
	}
	last := p.lines[len(p.lines)-1]
	dx := last[0] - pos[0]
	dy := last[1] - pos[1]
	if math.Hypot(dx, dy) > c.ArcSegmentLength*1.01 {
		t.Fatalf("last segment endpoint %v,%v not within tolerance of start %v,%v", last[0], last[1], pos[0], pos[1])
	}
}

func TestArcZeroTravelIsNoop(t *testing.T) {
	p := &fakePlanner{}
	c := newController(p, &fakeSampler{}, &fakeReporter{})
	pos := Position{0, 0, 0}
	c.Arc(0, 0, 0, 0, 0, 1, 2, 100, false, &pos)
	if len(p.lines) != 0 {
		t.Fatalf("buffered %d lines, want 0", len(p.lines))
	}
}

func TestCurPosIsOriginAll(t *testing.T) {
	p := &fakePlanner{}
	c := newController(p, &fakeSampler{}, &fakeReporter{})
	pos := Position{7, 3, -4}
	c.CurPosIsOrigin(-1, &pos)
	if pos != (Position{}) {
		t.Fatalf("position = %v, want zero", pos)
	}
	if len(p.redefines) != 1 || p.redefines[0] != [3]float64{0, 0, 0} {
		t.Fatalf("redefines = %v, want one (0,0,0)", p.redefines)
	}
}

func TestCurPosIsOriginSingleAxis(t *testing.T) {
	p := &fakePlanner{}
	c := newController(p, &fakeSampler{}, &fakeReporter{})
	pos := Position{7, 3, -4}
	c.CurPosIsOrigin(1, &pos)
	if pos != (Position{7, 0, -4}) {
		t.Fatalf("position = %v, want (7,0,-4)", pos)
	}
}

func TestCurPosIsOriginOutOfRangeIsNoop(t *testing.T) {
	p := &fakePlanner{}
	c := newController(p, &fakeSampler{}, &fakeReporter{})
	pos := Position{7, 3, -4}
	c.CurPosIsOrigin(5, &pos)
	if pos != (Position{7, 3, -4}) {
		t.Fatalf("position = %v, want unchanged", pos)
	}
	if len(p.redefines) != 0 {
		t.Fatalf("redefines = %v, want none", p.redefines)
	}
}
