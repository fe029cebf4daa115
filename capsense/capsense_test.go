package capsense

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
)

// fakePin is a hand-written fake implementing Pin rather than a
// mocking framework.
type fakePin struct {
	level gpio.Level
}

func (p *fakePin) In(pull gpio.Pull, edge gpio.Edge) error { return nil }

func (p *fakePin) Out(l gpio.Level) error {
	p.level = l
	return nil
}

func (p *fakePin) Read() gpio.Level {
	return p.level
}

// simChannel simulates an RC plate pair: the receive pin tracks the
// send pin's drive phase and flips level after a fixed number of reads,
// the way a real capacitive load flips after enough charge/discharge
// cycles have elapsed.
type simChannel struct {
	chargeReads, dischargeReads int

	phase int // 0 idle, 1 charging, 2 discharging
	reads int
}

type simSend struct{ s *simChannel }
type simRecv struct{ s *simChannel }

func (p *simSend) In(pull gpio.Pull, edge gpio.Edge) error { return nil }
func (p *simSend) Read() gpio.Level                        { return gpio.Low }
func (p *simSend) Out(l gpio.Level) error {
	switch {
	case l == gpio.High:
		p.s.phase, p.s.reads = 1, 0
	case p.s.phase == 1:
		p.s.phase, p.s.reads = 2, 0
	default:
		p.s.phase, p.s.reads = 0, 0
	}
	return nil
}

func (p *simRecv) In(pull gpio.Pull, edge gpio.Edge) error { return nil }
func (p *simRecv) Out(l gpio.Level) error                  { return nil }
func (p *simRecv) Read() gpio.Level {
	switch p.s.phase {
	case 1:
		p.s.reads++
		if p.s.reads > p.s.chargeReads {
			return gpio.High
		}
		return gpio.Low
	case 2:
		p.s.reads++
		if p.s.reads > p.s.dischargeReads {
			return gpio.Low
		}
		return gpio.High
	default:
		return gpio.Low
	}
}

func newFastChannel(chargeReads, dischargeReads int) Channel {
	s := &simChannel{chargeReads: chargeReads, dischargeReads: dischargeReads}
	return Channel{Send: &simSend{s}, Recv: &simRecv{s}}
}

func TestAxisAverageFastChannel(t *testing.T) {
	s := NewSensor(16_000_000, [3]Channel{
		newFastChannel(3, 3),
		{Send: &fakePin{}, Recv: &fakePin{}},
		{Send: &fakePin{}, Recv: &fakePin{}},
	}, Channel{Send: &fakePin{}, Recv: &fakePin{}})

	mean, err := s.AxisAverage(int(X), 10)
	if err != nil {
		t.Fatalf("AxisAverage: %v", err)
	}
	if mean <= 0 {
		t.Fatalf("expected positive averaged value, got %v", mean)
	}
	if got := s.LastAverage(); got != mean {
		t.Fatalf("LastAverage() = %v, want %v", got, mean)
	}
}

func TestAxisAverageTimeout(t *testing.T) {
	send := &fakePin{}
	// recv never releases high, so the charge phase always times out.
	recv := &fakePin{}
	// A tiny cpuHz keeps the derived timeout small so the test is fast.
	s := NewSensor(1000, [3]Channel{
		{Send: send, Recv: recv},
	}, Channel{})

	if _, err := s.AxisAverage(int(X), 5); err != ErrTimedOut {
		t.Fatalf("AxisAverage err = %v, want ErrTimedOut", err)
	}
	if s.LastAverage() != 0 {
		t.Fatalf("LastAverage() = %v, want 0 (unchanged on timeout)", s.LastAverage())
	}
}

func TestFilterZeroInputFixedPoint(t *testing.T) {
	var f filterState
	var last float64
	for i := 0; i < filterWarmup; i++ {
		last = f.sample(0)
	}
	if last != 0 {
		t.Fatalf("yv[5] after warmup with zero input = %v, want 0", last)
	}
}

func TestTimeoutDerivation(t *testing.T) {
	s := NewSensor(16_000_000, [3]Channel{}, Channel{})
	// (2000 * 310 * 16e6) / 16e6 == 2000 * 310.
	if got, want := s.Timeout(), 2000*loopTimingFactor; got != want {
		t.Fatalf("Timeout() = %d, want %d", got, want)
	}
}
