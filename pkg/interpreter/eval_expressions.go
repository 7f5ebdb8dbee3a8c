package interpreter

import (
	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateIdentifier(id *ast.Identifier) (runtime.Value, error) {
	sym, ok := i.scopes.Lookup(id.Name)
	if !ok {
		return nil, runtime.Errorf(runtime.ErrNameNotFound, "%q is not defined", id.Name)
	}
	if sym.IsFunction() {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "%q is a function, not a value", id.Name)
	}
	return runtime.CloneValue(sym.Value), nil
}

func (i *Interpreter) evaluateDeletion(del *ast.Deletion) (runtime.Value, error) {
	sym, ok := i.scopes.Lookup(del.Name)
	if !ok {
		return nil, runtime.Errorf(runtime.ErrNameNotFound, "%q is not defined", del.Name)
	}
	if sym.IsFunction() {
		return nil, runtime.Errorf(runtime.ErrImmutableTarget, "cannot delete function %q", del.Name)
	}
	sym.Value = nil
	if err := i.scopes.Delete(del.Name); err != nil {
		return nil, err
	}
	i.log.Debugw("deleted", "name", del.Name)
	return nil, nil
}

// evaluateAssignment replaces the value of an existing primitive variable.
// The new value must have the variable's current kind.
func (i *Interpreter) evaluateAssignment(assign *ast.Assignment) (runtime.Value, error) {
	val, err := i.evaluateValue(assign.Value, "right-hand side of assignment")
	if err != nil {
		return nil, err
	}
	sym, ok := i.scopes.Lookup(assign.Name)
	if !ok {
		return nil, runtime.Errorf(runtime.ErrNameNotFound, "%q is not defined", assign.Name)
	}
	if sym.IsFunction() {
		return nil, runtime.Errorf(runtime.ErrImmutableTarget, "cannot assign to function %q", assign.Name)
	}
	current := runtime.TypeOf(sym.Value)
	if current.IsDevice() {
		return nil, runtime.Errorf(runtime.ErrImmutableTarget, "%s %q cannot be reassigned", current, assign.Name)
	}
	if val.Kind() != current {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "cannot assign %s to %s %q", val.Kind(), current, assign.Name)
	}
	sym.Value = val.Clone()
	return val, nil
}

// evaluateBinaryExpression always evaluates both operands, left first.
func (i *Interpreter) evaluateBinaryExpression(expr *ast.BinaryExpression) (runtime.Value, error) {
	left, err := i.evaluateValue(expr.Left, "left operand of "+string(expr.Operator))
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateValue(expr.Right, "right operand of "+string(expr.Operator))
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case ast.OpAdd:
		return Sum(left, right)
	case ast.OpSubtract:
		return Subtract(left, right)
	case ast.OpMultiply:
		return Multiply(left, right)
	case ast.OpDivide:
		return Divide(left, right)
	case ast.OpAnd:
		return LogicalAnd(left, right)
	case ast.OpOr:
		return LogicalOr(left, right)
	default:
		return Compare(expr.Operator, left, right)
	}
}

func (i *Interpreter) evaluateUnaryExpression(expr *ast.UnaryExpression) (runtime.Value, error) {
	operand, err := i.evaluateValue(expr.Operand, "operand of "+string(expr.Operator))
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case ast.OpAbs:
		return AbsoluteValue(operand)
	case ast.OpNegate:
		return Negate(operand)
	case ast.OpNot:
		return LogicalNot(operand)
	default:
		return nil, runtime.Errorf(runtime.ErrInternal, "unsupported unary operator %q", expr.Operator)
	}
}
