package gpio

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// SimulatorMaxPin is the highest Broadcom pin the simulated board exposes.
const SimulatorMaxPin = 53

// Call records one operation received by the Simulator.
type Call struct {
	Op    string
	Pin   int
	Value int
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d, %d)", c.Op, c.Pin, c.Value)
}

// Simulator is an in-memory Backend. It keeps pin state, records every call
// and logs it instead of touching hardware.
type Simulator struct {
	mu     sync.Mutex
	log    *zap.SugaredLogger
	modes  map[int]Mode
	pulls  map[int]Pull
	levels map[int]Level
	servos map[int]int
	joined map[int]int
	calls  []Call
	failOn map[string]Status
}

// NewSimulator creates a simulated board. A nil logger disables logging.
func NewSimulator(logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		log:    logger.Named("gpio").Sugar(),
		modes:  make(map[int]Mode),
		pulls:  make(map[int]Pull),
		levels: make(map[int]Level),
		servos: make(map[int]int),
		joined: make(map[int]int),
		failOn: make(map[string]Status),
	}
}

func (s *Simulator) record(op string, pin int, value int) error {
	s.calls = append(s.calls, Call{Op: op, Pin: pin, Value: value})
	if pin < 0 || pin > SimulatorMaxPin {
		s.log.Warnw("rejected pin", "op", op, "pin", pin)
		return NewError(op, pin, StatusBadPin)
	}
	if status, ok := s.failOn[op]; ok {
		s.log.Warnw("injected failure", "op", op, "pin", pin, "status", status)
		return NewError(op, pin, status)
	}
	s.log.Infow(op, "pin", pin, "value", value)
	return nil
}

func (s *Simulator) SetPinMode(pin int, mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("set_mode", pin, int(mode)); err != nil {
		return err
	}
	if mode != ModeInput && mode != ModeOutput {
		return NewError("set_mode", pin, StatusBadMode)
	}
	s.modes[pin] = mode
	return nil
}

func (s *Simulator) SetPull(pin int, pull Pull) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("set_pull", pin, int(pull)); err != nil {
		return err
	}
	s.pulls[pin] = pull
	if _, ok := s.levels[pin]; !ok && pull == PullUp {
		s.levels[pin] = High
	}
	return nil
}

func (s *Simulator) DigitalWrite(pin int, level Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("write", pin, int(level)); err != nil {
		return err
	}
	if level != Low && level != High {
		return NewError("write", pin, StatusBadLevel)
	}
	s.levels[pin] = level
	return nil
}

func (s *Simulator) DigitalRead(pin int) (Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("read", pin, 0); err != nil {
		return Low, err
	}
	if other, ok := s.joined[pin]; ok {
		if level, driven := s.levels[other]; driven && level == Low {
			return Low, nil
		}
	}
	return s.levels[pin], nil
}

func (s *Simulator) SetServoPulseWidth(pin int, width int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("servo", pin, width); err != nil {
		return err
	}
	if width != 0 && (width < 500 || width > 2500) {
		return NewError("servo", pin, StatusBadLevel)
	}
	s.servos[pin] = width
	return nil
}

// SetInput drives an input pin from outside, as a pressed button would.
// It is not recorded in the call log.
func (s *Simulator) SetInput(pin int, level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[pin] = level
}

// Join connects input pin in to pin out, like a closed key switch in a
// matrix: reads of in see Low whenever out is driven Low.
func (s *Simulator) Join(in, out int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined[in] = out
}

// Release undoes Join for input pin in.
func (s *Simulator) Release(in int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joined, in)
}

// FailOn makes every later call of op fail with status.
func (s *Simulator) FailOn(op string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = status
}

// Calls returns a copy of the call log.
func (s *Simulator) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Reset clears the call log without touching pin state.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Mode reports the configured mode of pin.
func (s *Simulator) Mode(pin int) (Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modes[pin]
	return m, ok
}

// PullOf reports the configured pull of pin.
func (s *Simulator) PullOf(pin int) Pull {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulls[pin]
}

// Level reports the current level of pin.
func (s *Simulator) Level(pin int) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[pin]
}

// ServoWidth reports the last pulse width sent to pin.
func (s *Simulator) ServoWidth(pin int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servos[pin]
}
