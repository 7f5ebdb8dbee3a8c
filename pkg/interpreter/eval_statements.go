package interpreter

import (
	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateCondition(node ast.Node) (bool, error) {
	val, err := i.Evaluate(node)
	if err != nil {
		return false, err
	}
	bit, ok := val.(runtime.BitValue)
	if !ok {
		err := runtime.Errorf(runtime.ErrInvalidCondition, "condition must be Bit, got %s", runtime.TypeOf(val))
		return false, runtime.WithLine(err, lineOf(node))
	}
	return bit.Val, nil
}

func (i *Interpreter) evaluateIfStatement(stmt *ast.IfStatement) (runtime.Value, error) {
	cond, err := i.evaluateCondition(stmt.Condition)
	if err != nil {
		return nil, err
	}
	if cond {
		return i.Evaluate(stmt.Then)
	}
	return i.Evaluate(stmt.Else)
}

func (i *Interpreter) evaluateWhileLoop(loop *ast.WhileLoop) (runtime.Value, error) {
	var result runtime.Value
	for {
		cond, err := i.evaluateCondition(loop.Condition)
		if err != nil {
			return nil, err
		}
		if !cond {
			return result, nil
		}
		val, err := i.Evaluate(loop.Body)
		if err != nil {
			return nil, err
		}
		result = val
	}
}

func (i *Interpreter) evaluateDoWhileLoop(loop *ast.DoWhileLoop) (runtime.Value, error) {
	result, err := i.Evaluate(loop.Body)
	if err != nil {
		return nil, err
	}
	for {
		cond, err := i.evaluateCondition(loop.Condition)
		if err != nil {
			return nil, err
		}
		if !cond {
			return result, nil
		}
		if result, err = i.Evaluate(loop.Body); err != nil {
			return nil, err
		}
	}
}

func (i *Interpreter) evaluateStatementList(list *ast.StatementList) (runtime.Value, error) {
	first, err := i.Evaluate(list.First)
	if err != nil {
		return nil, err
	}
	if list.Rest == nil {
		return first, nil
	}
	return i.Evaluate(list.Rest)
}

func (i *Interpreter) evaluateBlock(block *ast.Block) (runtime.Value, error) {
	i.scopes.EnterScope()
	defer i.scopes.ExitScope()
	return i.Evaluate(block.Body)
}

//-----------------------------------------------------------------------------
// Declarations
//-----------------------------------------------------------------------------

func declaredKind(name, typeName string) (runtime.Kind, error) {
	kind, ok := runtime.ParseTypeName(typeName)
	if !ok {
		return runtime.KindNone, runtime.Errorf(runtime.ErrTypeMismatch, "unknown type %q for %q", typeName, name)
	}
	return kind, nil
}

// evaluateDeclaration binds name to the zero value of a primitive type.
func (i *Interpreter) evaluateDeclaration(decl *ast.Declaration) (runtime.Value, error) {
	kind, err := declaredKind(decl.Name, decl.TypeName)
	if err != nil {
		return nil, err
	}
	zero, ok := runtime.ZeroValue(kind)
	if !ok {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "%s %q must be declared with its pins", kind, decl.Name)
	}
	sym, err := i.scopes.Insert(decl.Name)
	if err != nil {
		return nil, err
	}
	sym.Value = zero
	return nil, nil
}

func (i *Interpreter) evaluateDeclarationAssign(decl *ast.DeclarationAssign) (runtime.Value, error) {
	kind, err := declaredKind(decl.Name, decl.TypeName)
	if err != nil {
		return nil, err
	}
	if kind.IsDevice() {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "%s %q must be declared with its pins", kind, decl.Name)
	}
	val, err := i.evaluateValue(decl.Value, "initializer of "+decl.Name)
	if err != nil {
		return nil, err
	}
	if val.Kind() != kind {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "cannot initialize %s %q with %s", kind, decl.Name, val.Kind())
	}
	sym, err := i.scopes.Insert(decl.Name)
	if err != nil {
		return nil, err
	}
	sym.Value = val.Clone()
	return val, nil
}

// evaluateDeviceDeclaration builds a device from its pin arguments. The
// name is checked before any pin is configured so a duplicate never touches
// hardware.
func (i *Interpreter) evaluateDeviceDeclaration(decl *ast.DeviceDeclaration) (runtime.Value, error) {
	kind, err := declaredKind(decl.Name, decl.TypeName)
	if err != nil {
		return nil, err
	}
	if !kind.IsDevice() {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "%s is not a device type", kind)
	}
	if _, exists := i.scopes.Current().Lookup(decl.Name); exists {
		return nil, runtime.Errorf(runtime.ErrAlreadyDefined, "%q is already defined in this scope", decl.Name)
	}
	pins := make([]int64, 0, len(decl.Args))
	for idx, arg := range decl.Args {
		val, err := i.evaluateValue(arg, "pin argument")
		if err != nil {
			return nil, err
		}
		pin, ok := val.(runtime.IntegerValue)
		if !ok {
			err := runtime.Errorf(runtime.ErrTypeMismatch, "pin %d of %q must be Integer, got %s", idx+1, decl.Name, val.Kind())
			return nil, runtime.WithLine(err, lineOf(arg))
		}
		pins = append(pins, pin.Val)
	}
	device, err := runtime.MakeDevice(kind, pins, i.backend)
	if err != nil {
		return nil, err
	}
	sym, err := i.scopes.Insert(decl.Name)
	if err != nil {
		return nil, err
	}
	sym.Value = device
	i.log.Debugw("device ready", "name", decl.Name, "kind", kind.String(), "pins", device.Pins)
	return device.Clone(), nil
}

func (i *Interpreter) evaluateFunctionDefinition(def *ast.FunctionDefinition) (runtime.Value, error) {
	if _, err := i.scopes.DefineFunction(def.Name, def.Params, def.Body); err != nil {
		return nil, err
	}
	return nil, nil
}

//-----------------------------------------------------------------------------
// Calls
//-----------------------------------------------------------------------------

// evaluateFunctionCall evaluates arguments in the caller's scope, then runs
// the body in a fresh scope holding the parameters.
func (i *Interpreter) evaluateFunctionCall(call *ast.FunctionCall) (runtime.Value, error) {
	sym, ok := i.scopes.Lookup(call.Name)
	if !ok {
		return nil, runtime.Errorf(runtime.ErrNameNotFound, "function %q is not defined", call.Name)
	}
	if !sym.IsFunction() {
		return nil, runtime.Errorf(runtime.ErrTypeMismatch, "%q is not a function", call.Name)
	}
	fn := sym.Function
	if len(call.Args) != len(fn.Params) {
		return nil, runtime.Errorf(runtime.ErrArityMismatch, "function %q expects %d argument(s), got %d", call.Name, len(fn.Params), len(call.Args))
	}
	args, err := i.evaluateArgs(call.Args)
	if err != nil {
		return nil, err
	}
	if i.callDepth >= maxCallDepth {
		return nil, runtime.Errorf(runtime.ErrInternal, "call depth exceeded %d in %q", maxCallDepth, call.Name)
	}
	i.callDepth++
	defer func() { i.callDepth-- }()

	i.scopes.EnterScope()
	defer i.scopes.ExitScope()
	for idx, param := range fn.Params {
		paramSym, err := i.scopes.Insert(param)
		if err != nil {
			return nil, err
		}
		paramSym.Value = args[idx]
	}
	return i.Evaluate(fn.Body)
}

func (i *Interpreter) evaluateArgs(nodes []ast.Node) ([]runtime.Value, error) {
	args := make([]runtime.Value, 0, len(nodes))
	for idx, node := range nodes {
		val, err := i.Evaluate(node)
		if err != nil {
			return nil, err
		}
		if val == nil {
			err := runtime.Errorf(runtime.ErrTypeMismatch, "argument %d has no value", idx+1)
			return nil, runtime.WithLine(err, lineOf(node))
		}
		args = append(args, val)
	}
	return args, nil
}
