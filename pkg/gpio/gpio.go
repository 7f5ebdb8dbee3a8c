package gpio

import (
	"fmt"

	"github.com/pkg/errors"
)

// Mode selects the direction of a pin.
type Mode int

const (
	ModeInput Mode = iota
	ModeOutput
)

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeOutput:
		return "output"
	default:
		return fmt.Sprintf("mode_%d", int(m))
	}
}

// Pull selects the internal resistor attached to an input pin.
type Pull int

const (
	PullOff Pull = iota
	PullDown
	PullUp
)

func (p Pull) String() string {
	switch p {
	case PullOff:
		return "off"
	case PullDown:
		return "down"
	case PullUp:
		return "up"
	default:
		return fmt.Sprintf("pull_%d", int(p))
	}
}

// Level is a logic level on a pin.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return fmt.Sprintf("level_%d", int(l))
	}
}

// Status is the outcome reported by a backend for a single operation.
type Status int

const (
	StatusOK Status = iota
	StatusBadPin
	StatusBadLevel
	StatusBadMode
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBadPin:
		return "bad_pin"
	case StatusBadLevel:
		return "bad_level"
	case StatusBadMode:
		return "bad_mode"
	default:
		return fmt.Sprintf("status_%d", int(s))
	}
}

// Backend is the capability the interpreter drives hardware through.
// Implementations return an *Error carrying a non-OK Status on failure.
type Backend interface {
	SetPinMode(pin int, mode Mode) error
	SetPull(pin int, pull Pull) error
	DigitalWrite(pin int, level Level) error
	DigitalRead(pin int) (Level, error)
}

// ServoDriver is implemented by backends able to generate servo pulses.
// A width of 0 stops the pulse train.
type ServoDriver interface {
	SetServoPulseWidth(pin int, width int) error
}

// Error reports a backend failure for one pin operation.
type Error struct {
	Op     string
	Pin    int
	Status Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("gpio: %s pin %d: %s", e.Op, e.Pin, e.Status)
}

// NewError builds a backend failure.
func NewError(op string, pin int, status Status) *Error {
	return &Error{Op: op, Pin: pin, Status: status}
}

// StatusOf extracts the backend status from err. A nil error is StatusOK;
// errors that carry no status are reported as StatusBadPin.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Status
	}
	return StatusBadPin
}

// ErrServoUnsupported is returned when a backend cannot drive servos.
var ErrServoUnsupported = errors.New("gpio: backend does not support servo pulses")

// SetServoPulseWidth forwards to b when it implements ServoDriver.
func SetServoPulseWidth(b Backend, pin int, width int) error {
	driver, ok := b.(ServoDriver)
	if !ok {
		return errors.Wrapf(ErrServoUnsupported, "servo pin %d", pin)
	}
	return driver.SetServoPulseWidth(pin, width)
}
