package runtime

import (
	"learnpi/interpreter-go/pkg/gpio"
)

// Valid pin numbers for device declarations.
const (
	MinPin = 0
	MaxPin = 50
)

var expectedPins = map[Kind]int{
	KindLED:           1,
	KindButton:        1,
	KindKeypad:        8,
	KindBuzzer:        1,
	KindServo:         1,
	KindDisplay1Digit: 7,
	KindDisplayLCD:    0,
	KindThermistor:    0,
	KindPhotoresistor: 0,
	KindRFID:          0,
}

// ExpectedPins returns how many pins a device kind is declared with.
func ExpectedPins(kind Kind) (int, bool) {
	n, ok := expectedPins[kind]
	return n, ok
}

// KeypadRows is the number of row pins of a keypad; the remaining pins are
// columns.
const KeypadRows = 4

// MakeDevice validates pins for kind and initializes the hardware through
// backend. No backend call happens unless every pin is valid.
func MakeDevice(kind Kind, pins []int64, backend gpio.Backend) (DeviceValue, error) {
	want, ok := ExpectedPins(kind)
	if !ok {
		return DeviceValue{}, Errorf(ErrTypeMismatch, "%s is not a device type", kind)
	}
	if len(pins) != want {
		return DeviceValue{}, Errorf(ErrArityMismatch, "%s expects %d pin(s), got %d", kind, want, len(pins))
	}
	owned := make([]int, len(pins))
	for i := 0; i < len(pins); i++ {
		pin := pins[i]
		if pin < MinPin || pin > MaxPin {
			return DeviceValue{}, Errorf(ErrInvalidPin, "%s pin %d out of range [%d, %d]", kind, pin, MinPin, MaxPin)
		}
		owned[i] = int(pin)
	}
	if err := initDevice(kind, owned, backend); err != nil {
		return DeviceValue{}, Wrap(ErrHardwareInit, err, "initializing %s", kind)
	}
	return DeviceValue{Device: kind, Pins: owned}, nil
}

func initDevice(kind Kind, pins []int, backend gpio.Backend) error {
	if len(pins) == 0 {
		return nil
	}
	if backend == nil {
		return gpio.NewError("init", pins[0], gpio.StatusBadPin)
	}
	switch kind {
	case KindLED, KindServo:
		return backend.SetPinMode(pins[0], gpio.ModeOutput)
	case KindButton:
		return initInput(backend, pins[0])
	case KindBuzzer:
		return initOutput(backend, pins[0], gpio.Low)
	case KindKeypad:
		for _, pin := range pins[:KeypadRows] {
			if err := initInput(backend, pin); err != nil {
				return err
			}
		}
		for _, pin := range pins[KeypadRows:] {
			if err := initOutput(backend, pin, gpio.High); err != nil {
				return err
			}
		}
	case KindDisplay1Digit:
		for _, pin := range pins {
			if err := initOutput(backend, pin, gpio.Low); err != nil {
				return err
			}
		}
	}
	return nil
}

func initInput(backend gpio.Backend, pin int) error {
	if err := backend.SetPinMode(pin, gpio.ModeInput); err != nil {
		return err
	}
	return backend.SetPull(pin, gpio.PullUp)
}

func initOutput(backend gpio.Backend, pin int, level gpio.Level) error {
	if err := backend.SetPinMode(pin, gpio.ModeOutput); err != nil {
		return err
	}
	return backend.DigitalWrite(pin, level)
}
