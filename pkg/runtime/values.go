package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the runtime value category. Device kinds double as the
// declared types of hardware variables.
type Kind int

const (
	KindNone Kind = iota
	KindBit
	KindInteger
	KindDecimal
	KindString
	KindLED
	KindButton
	KindKeypad
	KindBuzzer
	KindServo
	KindDisplay1Digit
	KindDisplayLCD
	KindThermistor
	KindPhotoresistor
	KindRFID
)

var kindNames = map[Kind]string{
	KindNone:          "None",
	KindBit:           "Bit",
	KindInteger:       "Integer",
	KindDecimal:       "Decimal",
	KindString:        "String",
	KindLED:           "LED",
	KindButton:        "Button",
	KindKeypad:        "Keypad",
	KindBuzzer:        "Buzzer",
	KindServo:         "Servo",
	KindDisplay1Digit: "Display1Digit",
	KindDisplayLCD:    "DisplayLCD",
	KindThermistor:    "Thermistor",
	KindPhotoresistor: "Photoresistor",
	KindRFID:          "RFID",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown_kind_%d", int(k))
}

// IsDevice reports whether k names a hardware peripheral.
func (k Kind) IsDevice() bool {
	return k >= KindLED && k <= KindRFID
}

// IsNumeric reports whether k is Integer or Decimal.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindDecimal
}

// ParseTypeName maps a type keyword such as "Integer" or "LED" to its kind.
// Keywords are case-sensitive.
func ParseTypeName(name string) (Kind, bool) {
	for kind, kindName := range kindNames {
		if kind != KindNone && kindName == name {
			return kind, true
		}
	}
	return KindNone, false
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
	Clone() Value
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type BitValue struct {
	Val bool
}

func (v BitValue) Kind() Kind   { return KindBit }
func (v BitValue) Clone() Value { return v }

type IntegerValue struct {
	Val int64
}

func (v IntegerValue) Kind() Kind   { return KindInteger }
func (v IntegerValue) Clone() Value { return v }

type DecimalValue struct {
	Val float64
}

func (v DecimalValue) Kind() Kind   { return KindDecimal }
func (v DecimalValue) Clone() Value { return v }

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind   { return KindString }
func (v StringValue) Clone() Value { return v }

func MakeBit(b bool) BitValue            { return BitValue{Val: b} }
func MakeInteger(n int64) IntegerValue   { return IntegerValue{Val: n} }
func MakeDecimal(f float64) DecimalValue { return DecimalValue{Val: f} }
func MakeString(s string) StringValue    { return StringValue{Val: s} }

//-----------------------------------------------------------------------------
// Devices
//-----------------------------------------------------------------------------

// DeviceValue binds a peripheral kind to the pins it occupies. Pins is owned
// by the value; Clone copies it.
type DeviceValue struct {
	Device Kind
	Pins   []int
}

func (v DeviceValue) Kind() Kind { return v.Device }

func (v DeviceValue) Clone() Value {
	return DeviceValue{Device: v.Device, Pins: append([]int(nil), v.Pins...)}
}

//-----------------------------------------------------------------------------
// Helpers
//-----------------------------------------------------------------------------

// TypeOf returns the kind of v; a missing value is KindNone.
func TypeOf(v Value) Kind {
	if v == nil {
		return KindNone
	}
	return v.Kind()
}

// CloneValue copies v, tolerating nil.
func CloneValue(v Value) Value {
	if v == nil {
		return nil
	}
	return v.Clone()
}

// ZeroValue returns the value a declaration without initializer receives.
// Device kinds have no zero value.
func ZeroValue(kind Kind) (Value, bool) {
	switch kind {
	case KindBit:
		return MakeBit(false), true
	case KindInteger:
		return MakeInteger(0), true
	case KindDecimal:
		return MakeDecimal(0), true
	case KindString:
		return MakeString(""), true
	default:
		return nil, false
	}
}

// FormatValue renders v the way print shows it.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<none>"
	case BitValue:
		if val.Val {
			return "true"
		}
		return "false"
	case IntegerValue:
		return strconv.FormatInt(val.Val, 10)
	case DecimalValue:
		s := strconv.FormatFloat(val.Val, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case StringValue:
		return val.Val
	case DeviceValue:
		pins := make([]string, len(val.Pins))
		for i, pin := range val.Pins {
			pins[i] = strconv.Itoa(pin)
		}
		return fmt.Sprintf("%s(%s)", val.Device, strings.Join(pins, ", "))
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}
