package interpreter

import (
	"fmt"
	"math"
	"sort"
	"time"

	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/gpio"
	"learnpi/interpreter-go/pkg/runtime"
)

type builtinFunc func(args []runtime.Value) (runtime.Value, error)

type builtin struct {
	name  string
	arity int
	impl  builtinFunc
}

// Servo pulse widths in microseconds.
const (
	servoMinPulse = 500
	servoMaxPulse = 2500
	servoMaxAngle = 180
)

// maxDelayMillis is the longest delay a time.Duration can hold.
const maxDelayMillis = math.MaxInt64 / int64(time.Millisecond)

// keypadLayout maps [row][column] of a 4x4 membrane keypad to its label.
var keypadLayout = [4][4]string{
	{"1", "2", "3", "A"},
	{"4", "5", "6", "B"},
	{"7", "8", "9", "C"},
	{"*", "0", "#", "D"},
}

func (i *Interpreter) builtinTable() map[string]builtin {
	table := []builtin{
		{name: "print", arity: 1, impl: i.builtinPrint},
		{name: "sqrt", arity: 1, impl: builtinSqrt},
		{name: "led_on", arity: 1, impl: i.writeDevice(runtime.KindLED, gpio.High)},
		{name: "led_off", arity: 1, impl: i.writeDevice(runtime.KindLED, gpio.Low)},
		{name: "is_button_pressed", arity: 1, impl: i.builtinIsButtonPressed},
		{name: "get_pressed_key", arity: 1, impl: i.builtinGetPressedKey},
		{name: "buzz_start", arity: 1, impl: i.writeDevice(runtime.KindBuzzer, gpio.High)},
		{name: "buzz_stop", arity: 1, impl: i.writeDevice(runtime.KindBuzzer, gpio.Low)},
		{name: "move_servo", arity: 2, impl: i.builtinMoveServo},
		{name: "move_servo_infinitely", arity: 2, impl: i.builtinMoveServoInfinitely},
		{name: "servo_stop", arity: 1, impl: i.builtinServoStop},
		{name: "delay", arity: 1, impl: i.builtinDelay},
	}
	out := make(map[string]builtin, len(table))
	for _, b := range table {
		out[b.name] = b
	}
	return out
}

// BuiltinNames lists the builtin functions in sorted order.
func (i *Interpreter) BuiltinNames() []string {
	names := make([]string, 0, len(i.builtins))
	for name := range i.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (i *Interpreter) evaluateBuiltinCall(call *ast.BuiltinCall) (runtime.Value, error) {
	b, ok := i.builtins[call.Name]
	if !ok {
		return nil, runtime.Errorf(runtime.ErrNameNotFound, "unknown builtin %q", call.Name)
	}
	if len(call.Args) != b.arity {
		return nil, runtime.Errorf(runtime.ErrArityMismatch, "%s expects %d argument(s), got %d", b.name, b.arity, len(call.Args))
	}
	args, err := i.evaluateArgs(call.Args)
	if err != nil {
		return nil, err
	}
	return b.impl(args)
}

func expectDevice(name string, v runtime.Value, kind runtime.Kind) (runtime.DeviceValue, error) {
	dev, ok := v.(runtime.DeviceValue)
	if !ok || dev.Device != kind {
		return runtime.DeviceValue{}, runtime.Errorf(runtime.ErrTypeMismatch, "%s expects %s, got %s", name, kind, runtime.TypeOf(v))
	}
	return dev, nil
}

func expectNumber(name string, v runtime.Value) (float64, error) {
	if !runtime.TypeOf(v).IsNumeric() {
		return 0, runtime.Errorf(runtime.ErrTypeMismatch, "%s expects Integer or Decimal, got %s", name, runtime.TypeOf(v))
	}
	return toFloat(v), nil
}

func hardwareIO(name string, err error) error {
	return runtime.Wrap(runtime.ErrHardwareIO, err, "%s", name)
}

//-----------------------------------------------------------------------------
// Utilities
//-----------------------------------------------------------------------------

func (i *Interpreter) builtinPrint(args []runtime.Value) (runtime.Value, error) {
	if _, err := fmt.Fprintln(i.stdout, runtime.FormatValue(args[0])); err != nil {
		return nil, runtime.Wrap(runtime.ErrHardwareIO, err, "print")
	}
	return nil, nil
}

func builtinSqrt(args []runtime.Value) (runtime.Value, error) {
	x, err := expectNumber("sqrt", args[0])
	if err != nil {
		return nil, err
	}
	if x < 0 {
		return nil, runtime.Errorf(runtime.ErrInvalidArgument, "sqrt of negative number %s", runtime.FormatValue(args[0]))
	}
	return runtime.MakeDecimal(math.Sqrt(x)), nil
}

func (i *Interpreter) builtinDelay(args []runtime.Value) (runtime.Value, error) {
	ms, ok := args[0].(runtime.IntegerValue)
	if !ok {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "delay expects Integer milliseconds, got %s", runtime.TypeOf(args[0]))
	}
	if ms.Val < 0 || ms.Val > maxDelayMillis {
		return nil, runtime.Errorf(runtime.ErrInvalidArgument, "delay of %d ms", ms.Val)
	}
	i.sleep(time.Duration(ms.Val) * time.Millisecond)
	return nil, nil
}

//-----------------------------------------------------------------------------
// Digital devices
//-----------------------------------------------------------------------------

func (i *Interpreter) writeDevice(kind runtime.Kind, level gpio.Level) builtinFunc {
	return func(args []runtime.Value) (runtime.Value, error) {
		dev, err := expectDevice(kind.String(), args[0], kind)
		if err != nil {
			return nil, err
		}
		if err := i.backend.DigitalWrite(dev.Pins[0], level); err != nil {
			return nil, hardwareIO(fmt.Sprintf("%s write %s", kind, level), err)
		}
		return nil, nil
	}
}

// builtinIsButtonPressed reads a pulled-up button: pressed pulls the pin low.
func (i *Interpreter) builtinIsButtonPressed(args []runtime.Value) (runtime.Value, error) {
	dev, err := expectDevice("is_button_pressed", args[0], runtime.KindButton)
	if err != nil {
		return nil, err
	}
	level, err := i.backend.DigitalRead(dev.Pins[0])
	if err != nil {
		return nil, hardwareIO("is_button_pressed", err)
	}
	return runtime.MakeBit(level == gpio.Low), nil
}

// builtinGetPressedKey scans the keypad matrix one column at a time: the
// column is driven low and a pressed key pulls its row low with it. Every
// column is left high again. An empty string means no key is down.
func (i *Interpreter) builtinGetPressedKey(args []runtime.Value) (runtime.Value, error) {
	dev, err := expectDevice("get_pressed_key", args[0], runtime.KindKeypad)
	if err != nil {
		return nil, err
	}
	rows, cols := dev.Pins[:runtime.KeypadRows], dev.Pins[runtime.KeypadRows:]
	for c, col := range cols {
		key, err := i.scanColumn(rows, col, c)
		if err != nil {
			return nil, err
		}
		if key != "" {
			return runtime.MakeString(key), nil
		}
	}
	return runtime.MakeString(""), nil
}

func (i *Interpreter) scanColumn(rows []int, col int, c int) (key string, err error) {
	if err := i.backend.DigitalWrite(col, gpio.Low); err != nil {
		return "", hardwareIO("get_pressed_key", err)
	}
	defer func() {
		if restoreErr := i.backend.DigitalWrite(col, gpio.High); restoreErr != nil && err == nil {
			key, err = "", hardwareIO("get_pressed_key", restoreErr)
		}
	}()
	for r, row := range rows {
		level, err := i.backend.DigitalRead(row)
		if err != nil {
			return "", hardwareIO("get_pressed_key", err)
		}
		if level == gpio.Low {
			return keypadLayout[r][c], nil
		}
	}
	return "", nil
}

//-----------------------------------------------------------------------------
// Servos
//-----------------------------------------------------------------------------

func (i *Interpreter) setServo(name string, dev runtime.DeviceValue, width int) error {
	if err := gpio.SetServoPulseWidth(i.backend, dev.Pins[0], width); err != nil {
		return hardwareIO(name, err)
	}
	return nil
}

// builtinMoveServo maps an angle in [0, 180] linearly onto the pulse range.
func (i *Interpreter) builtinMoveServo(args []runtime.Value) (runtime.Value, error) {
	dev, err := expectDevice("move_servo", args[0], runtime.KindServo)
	if err != nil {
		return nil, err
	}
	angle, err := expectNumber("move_servo", args[1])
	if err != nil {
		return nil, err
	}
	if math.IsNaN(angle) || angle < 0 || angle > servoMaxAngle {
		return nil, runtime.Errorf(runtime.ErrInvalidArgument, "servo angle %s outside [0, %d]", runtime.FormatValue(args[1]), servoMaxAngle)
	}
	width := servoMinPulse + int(math.Round(angle*(servoMaxPulse-servoMinPulse)/servoMaxAngle))
	return nil, i.setServo("move_servo", dev, width)
}

// builtinMoveServoInfinitely spins a continuous-rotation servo: a
// non-negative direction turns clockwise, a negative one counter-clockwise.
func (i *Interpreter) builtinMoveServoInfinitely(args []runtime.Value) (runtime.Value, error) {
	dev, err := expectDevice("move_servo_infinitely", args[0], runtime.KindServo)
	if err != nil {
		return nil, err
	}
	dir, ok := args[1].(runtime.IntegerValue)
	if !ok {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "move_servo_infinitely expects Integer direction, got %s", runtime.TypeOf(args[1]))
	}
	width := servoMaxPulse
	if dir.Val < 0 {
		width = servoMinPulse
	}
	return nil, i.setServo("move_servo_infinitely", dev, width)
}

func (i *Interpreter) builtinServoStop(args []runtime.Value) (runtime.Value, error) {
	dev, err := expectDevice("servo_stop", args[0], runtime.KindServo)
	if err != nil {
		return nil, err
	}
	return nil, i.setServo("servo_stop", dev, 0)
}
