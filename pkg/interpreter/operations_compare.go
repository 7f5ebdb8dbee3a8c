package interpreter

import (
	"strings"

	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/runtime"
)

// LogicalAnd and LogicalOr require two Bits.
func LogicalAnd(a, b runtime.Value) (runtime.Value, error) {
	x, y, err := bitOperands(ast.OpAnd, a, b)
	if err != nil {
		return nil, err
	}
	return runtime.MakeBit(x && y), nil
}

func LogicalOr(a, b runtime.Value) (runtime.Value, error) {
	x, y, err := bitOperands(ast.OpOr, a, b)
	if err != nil {
		return nil, err
	}
	return runtime.MakeBit(x || y), nil
}

func LogicalNot(v runtime.Value) (runtime.Value, error) {
	bit, ok := v.(runtime.BitValue)
	if !ok {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "not requires Bit, got %s", runtime.TypeOf(v))
	}
	return runtime.MakeBit(!bit.Val), nil
}

func bitOperands(op ast.Operator, a, b runtime.Value) (bool, bool, error) {
	x, okA := a.(runtime.BitValue)
	y, okB := b.(runtime.BitValue)
	if !okA || !okB {
		return false, false, operandMismatch(op, a, b)
	}
	return x.Val, y.Val, nil
}

// Compare applies a relational operator. The result is always a Bit.
func Compare(op ast.Operator, a, b runtime.Value) (runtime.Value, error) {
	if !op.IsRelational() {
		return nil, runtime.Errorf(runtime.ErrInternal, "%q is not a relational operator", op)
	}
	ka, kb := runtime.TypeOf(a), runtime.TypeOf(b)
	switch {
	case ka.IsNumeric() && kb.IsNumeric():
		ai, aInt := a.(runtime.IntegerValue)
		bi, bInt := b.(runtime.IntegerValue)
		if aInt && bInt {
			return runtime.MakeBit(comparisonOp(op, compareInts(ai.Val, bi.Val))), nil
		}
		return runtime.MakeBit(compareFloats(op, toFloat(a), toFloat(b))), nil
	case ka == runtime.KindString && kb == runtime.KindString:
		cmp := strings.Compare(a.(runtime.StringValue).Val, b.(runtime.StringValue).Val)
		return runtime.MakeBit(comparisonOp(op, cmp)), nil
	case ka == runtime.KindBit && kb == runtime.KindBit && (op == ast.OpEqual || op == ast.OpNotEqual):
		same := a.(runtime.BitValue).Val == b.(runtime.BitValue).Val
		return runtime.MakeBit(same == (op == ast.OpEqual)), nil
	default:
		return nil, operandMismatch(op, a, b)
	}
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareFloats uses IEEE ordering: NaN is unordered, so only != holds.
func compareFloats(op ast.Operator, a, b float64) bool {
	switch op {
	case ast.OpGreater:
		return a > b
	case ast.OpLess:
		return a < b
	case ast.OpGreaterEqual:
		return a >= b
	case ast.OpLessEqual:
		return a <= b
	case ast.OpEqual:
		return a == b
	case ast.OpNotEqual:
		return a != b
	default:
		return false
	}
}

func comparisonOp(op ast.Operator, cmp int) bool {
	switch op {
	case ast.OpGreater:
		return cmp > 0
	case ast.OpLess:
		return cmp < 0
	case ast.OpGreaterEqual:
		return cmp >= 0
	case ast.OpLessEqual:
		return cmp <= 0
	case ast.OpEqual:
		return cmp == 0
	case ast.OpNotEqual:
		return cmp != 0
	default:
		return false
	}
}
