package interpreter

import (
	"errors"
	"math"
	"testing"
	"time"

	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/gpio"
	"learnpi/interpreter-go/pkg/runtime"
)

func TestPrintFormatsValues(t *testing.T) {
	h := newTestHarness()
	mustEval(t, h.interp, ast.Seq(
		ast.Builtin("print", ast.Str("hello")),
		ast.Builtin("print", ast.Int(42)),
		ast.Builtin("print", ast.Dec(2)),
		ast.Builtin("print", ast.Bit(true)),
		ast.Device("led", "LED", ast.Pins(17)...),
		ast.Builtin("print", ast.ID("led")),
	))
	want := "hello\n42\n2.0\ntrue\nLED(17)\n"
	if got := h.stdout.String(); got != want {
		t.Fatalf("stdout mismatch\n got: %q\nwant: %q", got, want)
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestPrintWriteFailureIsNotFatal(t *testing.T) {
	sim := gpio.NewSimulator(nil)
	interp := New(Config{Backend: sim, Stdout: brokenWriter{}})
	program := ast.Prog(
		ast.AtLine(1, ast.Builtin("print", ast.Int(1))),
		ast.AtLine(2, ast.DeclAssign("x", "Integer", ast.Int(2))),
	)
	result, err := interp.Run(program)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Statements != 2 {
		t.Fatalf("expected 2 statements, got %d", result.Statements)
	}
	if len(result.Diagnostics) != 1 || !errors.Is(result.Diagnostics[0].Err, runtime.HardwareIO) {
		t.Fatalf("unexpected diagnostics %v", result.Diagnostics)
	}
	if val := mustLookup(t, interp, "x"); val != runtime.Value(runtime.MakeInteger(2)) {
		t.Fatalf("x = %#v", val)
	}
}

func TestBuiltinArityAndNames(t *testing.T) {
	h := newTestHarness()
	mustFail(t, h.interp, ast.Builtin("print"), runtime.ArityMismatch)
	mustFail(t, h.interp, ast.Builtin("led_on"), runtime.ArityMismatch)
	mustFail(t, h.interp, ast.Builtin("teleport", ast.Int(1)), runtime.NameNotFound)
	mustFail(t, h.interp, ast.Builtin("print", ast.While(ast.Bit(false), nil)), runtime.TypeMismatch)
	if names := h.interp.BuiltinNames(); len(names) != 12 || names[0] != "buzz_start" {
		t.Fatalf("unexpected builtin table %v", names)
	}
}

func TestSqrt(t *testing.T) {
	h := newTestHarness()
	if val := mustEval(t, h.interp, ast.Builtin("sqrt", ast.Int(16))); val != runtime.Value(runtime.MakeDecimal(4)) {
		t.Fatalf("sqrt(16) = %#v", val)
	}
	if val := mustEval(t, h.interp, ast.Builtin("sqrt", ast.Dec(2.25))); val != runtime.Value(runtime.MakeDecimal(1.5)) {
		t.Fatalf("sqrt(2.25) = %#v", val)
	}
	mustFail(t, h.interp, ast.Builtin("sqrt", ast.Int(-1)), runtime.InvalidArgument)
	mustFail(t, h.interp, ast.Builtin("sqrt", ast.Str("4")), runtime.TypeMismatch)
}

func TestLEDAndBuzzer(t *testing.T) {
	h := newTestHarness()
	mustEval(t, h.interp, ast.Seq(
		ast.Device("led", "LED", ast.Pins(17)...),
		ast.Device("buzzer", "Buzzer", ast.Pins(22)...),
		ast.Builtin("led_on", ast.ID("led")),
		ast.Builtin("buzz_start", ast.ID("buzzer")),
	))
	if h.sim.Level(17) != gpio.High || h.sim.Level(22) != gpio.High {
		t.Fatalf("expected led and buzzer high, got %v and %v", h.sim.Level(17), h.sim.Level(22))
	}
	mustEval(t, h.interp, ast.Seq(
		ast.Builtin("led_off", ast.ID("led")),
		ast.Builtin("buzz_stop", ast.ID("buzzer")),
	))
	if h.sim.Level(17) != gpio.Low || h.sim.Level(22) != gpio.Low {
		t.Fatalf("expected led and buzzer low")
	}
	mustFail(t, h.interp, ast.Builtin("led_on", ast.ID("buzzer")), runtime.TypeMismatch)
	mustFail(t, h.interp, ast.Builtin("buzz_start", ast.Int(22)), runtime.TypeMismatch)

	h.sim.FailOn("write", gpio.StatusBadLevel)
	err := mustFail(t, h.interp, ast.Builtin("led_on", ast.ID("led")), runtime.HardwareIO)
	if gpio.StatusOf(err) != gpio.StatusBadLevel {
		t.Fatalf("expected bad_level status, got %v", gpio.StatusOf(err))
	}
}

func TestIsButtonPressed(t *testing.T) {
	h := newTestHarness()
	mustEval(t, h.interp, ast.Device("btn", "Button", ast.Pins(4)...))
	if val := mustEval(t, h.interp, ast.Builtin("is_button_pressed", ast.ID("btn"))); val != runtime.Value(runtime.MakeBit(false)) {
		t.Fatalf("released button read as %#v", val)
	}
	h.sim.SetInput(4, gpio.Low)
	if val := mustEval(t, h.interp, ast.Builtin("is_button_pressed", ast.ID("btn"))); val != runtime.Value(runtime.MakeBit(true)) {
		t.Fatalf("pressed button read as %#v", val)
	}
}

func TestGetPressedKey(t *testing.T) {
	h := newTestHarness()
	mustEval(t, h.interp, ast.Device("pad", "Keypad", ast.Pins(2, 3, 4, 5, 6, 7, 8, 9)...))
	if val := mustEval(t, h.interp, ast.Builtin("get_pressed_key", ast.ID("pad"))); val != runtime.Value(runtime.MakeString("")) {
		t.Fatalf("idle keypad read %#v", val)
	}

	// row 2 (pin 4) joined to column 1 (pin 7) is the "8" key
	h.sim.Join(4, 7)
	if val := mustEval(t, h.interp, ast.Builtin("get_pressed_key", ast.ID("pad"))); val != runtime.Value(runtime.MakeString("8")) {
		t.Fatalf("expected key 8, got %#v", val)
	}
	for _, col := range []int{6, 7, 8, 9} {
		if h.sim.Level(col) != gpio.High {
			t.Fatalf("column %d left low after scan", col)
		}
	}
	h.sim.Release(4)

	// row 3 (pin 5) joined to column 3 (pin 9) is "D"
	h.sim.Join(5, 9)
	if val := mustEval(t, h.interp, ast.Builtin("get_pressed_key", ast.ID("pad"))); val != runtime.Value(runtime.MakeString("D")) {
		t.Fatalf("expected key D, got %#v", val)
	}
}

func TestServoBuiltins(t *testing.T) {
	h := newTestHarness()
	mustEval(t, h.interp, ast.Device("arm", "Servo", ast.Pins(18)...))

	cases := []struct {
		angle ast.Node
		want  int
	}{
		{ast.Int(0), 500},
		{ast.Int(90), 1500},
		{ast.Int(180), 2500},
		{ast.Dec(45), 1000},
	}
	for _, tc := range cases {
		mustEval(t, h.interp, ast.Builtin("move_servo", ast.ID("arm"), tc.angle))
		if got := h.sim.ServoWidth(18); got != tc.want {
			t.Fatalf("angle %v: width %d, want %d", tc.angle, got, tc.want)
		}
	}
	mustFail(t, h.interp, ast.Builtin("move_servo", ast.ID("arm"), ast.Int(181)), runtime.InvalidArgument)
	mustFail(t, h.interp, ast.Builtin("move_servo", ast.ID("arm"), ast.Dec(math.NaN())), runtime.InvalidArgument)
	if got := h.sim.ServoWidth(18); got != 1000 {
		t.Fatalf("rejected angle changed width to %d", got)
	}

	mustEval(t, h.interp, ast.Builtin("move_servo_infinitely", ast.ID("arm"), ast.Int(1)))
	if got := h.sim.ServoWidth(18); got != 2500 {
		t.Fatalf("clockwise width %d", got)
	}
	mustEval(t, h.interp, ast.Builtin("move_servo_infinitely", ast.ID("arm"), ast.Int(-1)))
	if got := h.sim.ServoWidth(18); got != 500 {
		t.Fatalf("counter-clockwise width %d", got)
	}
	mustEval(t, h.interp, ast.Builtin("servo_stop", ast.ID("arm")))
	if got := h.sim.ServoWidth(18); got != 0 {
		t.Fatalf("stopped width %d", got)
	}
}

type digitalOnly struct{ gpio.Backend }

func TestServoWithoutCapability(t *testing.T) {
	sim := gpio.NewSimulator(nil)
	interp := New(Config{Backend: digitalOnly{sim}})
	mustEval(t, interp, ast.Device("arm", "Servo", ast.Pins(18)...))
	mustFail(t, interp, ast.Builtin("servo_stop", ast.ID("arm")), runtime.HardwareIO)
}

func TestDelayUsesSleeper(t *testing.T) {
	h := newTestHarness()
	mustEval(t, h.interp, ast.Builtin("delay", ast.Int(250)))
	if len(h.slept) != 1 || h.slept[0] != 250*time.Millisecond {
		t.Fatalf("unexpected sleeps %v", h.slept)
	}
	mustFail(t, h.interp, ast.Builtin("delay", ast.Int(-1)), runtime.InvalidArgument)
	mustFail(t, h.interp, ast.Builtin("delay", ast.Int(10_000_000_000_000)), runtime.InvalidArgument)
	if len(h.slept) != 1 {
		t.Fatalf("rejected delays slept %v", h.slept[1:])
	}
	mustFail(t, h.interp, ast.Builtin("delay", ast.Dec(1)), runtime.TypeMismatch)
}
