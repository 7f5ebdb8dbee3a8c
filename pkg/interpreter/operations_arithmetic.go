package interpreter

import (
	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/runtime"
)

// Sum adds two numbers or concatenates two strings.
func Sum(a, b runtime.Value) (runtime.Value, error) {
	if as, ok := a.(runtime.StringValue); ok {
		bs, ok := b.(runtime.StringValue)
		if !ok {
			return nil, operandMismatch(ast.OpAdd, a, b)
		}
		return runtime.MakeString(as.Val + bs.Val), nil
	}
	return numeric(ast.OpAdd, a, b,
		func(x, y int64) int64 { return x + y },
		func(x, y float64) float64 { return x + y })
}

func Subtract(a, b runtime.Value) (runtime.Value, error) {
	return numeric(ast.OpSubtract, a, b,
		func(x, y int64) int64 { return x - y },
		func(x, y float64) float64 { return x - y })
}

func Multiply(a, b runtime.Value) (runtime.Value, error) {
	return numeric(ast.OpMultiply, a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Divide fails on a zero divisor before dividing. Integer operands give an
// Integer only when the division is exact.
func Divide(a, b runtime.Value) (runtime.Value, error) {
	if !runtime.TypeOf(a).IsNumeric() || !runtime.TypeOf(b).IsNumeric() {
		return nil, operandMismatch(ast.OpDivide, a, b)
	}
	if isZero(b) {
		return nil, runtime.Errorf(runtime.ErrDivisionByZero, "%s / 0", runtime.FormatValue(a))
	}
	ai, aInt := a.(runtime.IntegerValue)
	bi, bInt := b.(runtime.IntegerValue)
	if aInt && bInt {
		if ai.Val%bi.Val == 0 {
			return runtime.MakeInteger(ai.Val / bi.Val), nil
		}
		return runtime.MakeDecimal(float64(ai.Val) / float64(bi.Val)), nil
	}
	return runtime.MakeDecimal(toFloat(a) / toFloat(b)), nil
}

// AbsoluteValue is defined on Integer and Decimal only.
func AbsoluteValue(v runtime.Value) (runtime.Value, error) {
	switch val := v.(type) {
	case runtime.IntegerValue:
		if val.Val < 0 {
			return runtime.MakeInteger(-val.Val), nil
		}
		return val, nil
	case runtime.DecimalValue:
		if val.Val < 0 {
			return runtime.MakeDecimal(-val.Val), nil
		}
		return val, nil
	default:
		return nil, unsupportedOperand(ast.OpAbs, v)
	}
}

// Negate is defined on Integer and Decimal only.
func Negate(v runtime.Value) (runtime.Value, error) {
	switch val := v.(type) {
	case runtime.IntegerValue:
		return runtime.MakeInteger(-val.Val), nil
	case runtime.DecimalValue:
		return runtime.MakeDecimal(-val.Val), nil
	default:
		return nil, unsupportedOperand(ast.OpNegate, v)
	}
}

func numeric(op ast.Operator, a, b runtime.Value, ints func(int64, int64) int64, floats func(float64, float64) float64) (runtime.Value, error) {
	if !runtime.TypeOf(a).IsNumeric() || !runtime.TypeOf(b).IsNumeric() {
		return nil, operandMismatch(op, a, b)
	}
	ai, aInt := a.(runtime.IntegerValue)
	bi, bInt := b.(runtime.IntegerValue)
	if aInt && bInt {
		return runtime.MakeInteger(ints(ai.Val, bi.Val)), nil
	}
	return runtime.MakeDecimal(floats(toFloat(a), toFloat(b))), nil
}

func toFloat(v runtime.Value) float64 {
	switch val := v.(type) {
	case runtime.IntegerValue:
		return float64(val.Val)
	case runtime.DecimalValue:
		return val.Val
	default:
		return 0
	}
}

func isZero(v runtime.Value) bool {
	switch val := v.(type) {
	case runtime.IntegerValue:
		return val.Val == 0
	case runtime.DecimalValue:
		return val.Val == 0
	default:
		return false
	}
}

func operandMismatch(op ast.Operator, a, b runtime.Value) error {
	return runtime.Errorf(runtime.ErrTypeMismatch, "cannot apply %s to %s and %s", op, runtime.TypeOf(a), runtime.TypeOf(b))
}

func unsupportedOperand(op ast.Operator, v runtime.Value) error {
	return runtime.Errorf(runtime.ErrUnsupportedType, "%s is not defined on %s", op, runtime.TypeOf(v))
}
