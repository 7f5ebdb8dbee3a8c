package interpreter

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/gpio"
	"learnpi/interpreter-go/pkg/runtime"
)

// maxCallDepth bounds nested user-function calls; exceeding it is fatal.
const maxCallDepth = 10000

// Config customises an Interpreter. Zero values select the defaults: a
// simulated board, a no-op logger, os.Stdout and time.Sleep.
type Config struct {
	Backend    gpio.Backend
	Logger     *zap.Logger
	Stdout     io.Writer
	Sleep      func(time.Duration)
	MaxSymbols int
}

// Interpreter evaluates LearnPi ASTs against its own scope stack.
type Interpreter struct {
	scopes    *runtime.ScopeStack
	backend   gpio.Backend
	log       *zap.SugaredLogger
	stdout    io.Writer
	sleep     func(time.Duration)
	builtins  map[string]builtin
	callDepth int
}

// New returns an interpreter with an empty global scope.
func New(cfg Config) *Interpreter {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := cfg.Backend
	if backend == nil {
		backend = gpio.NewSimulator(logger)
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	i := &Interpreter{
		scopes:  runtime.NewScopeStack(cfg.MaxSymbols),
		backend: backend,
		log:     logger.Named("interpreter").Sugar(),
		stdout:  stdout,
		sleep:   sleep,
	}
	i.builtins = i.builtinTable()
	return i
}

// Scopes exposes the scope stack, mainly for inspection in tests and tools.
func (i *Interpreter) Scopes() *runtime.ScopeStack {
	return i.scopes
}

// Backend returns the GPIO backend devices are driven through.
func (i *Interpreter) Backend() gpio.Backend {
	return i.backend
}

// Lookup returns the value bound to name in the innermost visible scope.
func (i *Interpreter) Lookup(name string) (runtime.Value, bool) {
	sym, ok := i.scopes.Lookup(name)
	if !ok || sym.IsFunction() {
		return nil, false
	}
	return runtime.CloneValue(sym.Value), true
}

// Evaluate evaluates node and returns its value, or nil when the node yields
// no value. Errors carry the line of the innermost failing node.
func (i *Interpreter) Evaluate(node ast.Node) (runtime.Value, error) {
	if node == nil {
		return nil, nil
	}
	val, err := i.evaluate(node)
	if err != nil {
		return nil, runtime.WithLine(err, node.Line())
	}
	return val, nil
}

func (i *Interpreter) evaluate(node ast.Node) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.BitLiteral:
		return runtime.MakeBit(n.Value), nil
	case *ast.IntegerLiteral:
		return runtime.MakeInteger(n.Value), nil
	case *ast.DecimalLiteral:
		return runtime.MakeDecimal(n.Value), nil
	case *ast.StringLiteral:
		return runtime.MakeString(n.Value), nil
	case *ast.Identifier:
		return i.evaluateIdentifier(n)
	case *ast.Deletion:
		return i.evaluateDeletion(n)
	case *ast.Assignment:
		return i.evaluateAssignment(n)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(n)
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(n)
	case *ast.IfStatement:
		return i.evaluateIfStatement(n)
	case *ast.WhileLoop:
		return i.evaluateWhileLoop(n)
	case *ast.DoWhileLoop:
		return i.evaluateDoWhileLoop(n)
	case *ast.StatementList:
		return i.evaluateStatementList(n)
	case *ast.Block:
		return i.evaluateBlock(n)
	case *ast.Declaration:
		return i.evaluateDeclaration(n)
	case *ast.DeclarationAssign:
		return i.evaluateDeclarationAssign(n)
	case *ast.DeviceDeclaration:
		return i.evaluateDeviceDeclaration(n)
	case *ast.FunctionDefinition:
		return i.evaluateFunctionDefinition(n)
	case *ast.BuiltinCall:
		return i.evaluateBuiltinCall(n)
	case *ast.FunctionCall:
		return i.evaluateFunctionCall(n)
	default:
		return nil, runtime.Errorf(runtime.ErrInternal, "unsupported node type: %s", node.NodeType())
	}
}

// evaluateValue evaluates node and requires it to produce a value.
func (i *Interpreter) evaluateValue(node ast.Node, what string) (runtime.Value, error) {
	val, err := i.Evaluate(node)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, runtime.WithLine(runtime.Errorf(runtime.ErrTypeMismatch, "%s has no value", what), lineOf(node))
	}
	return val, nil
}

func lineOf(node ast.Node) int {
	if node == nil {
		return 0
	}
	return node.Line()
}
