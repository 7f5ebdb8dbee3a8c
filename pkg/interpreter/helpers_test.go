package interpreter

import (
	"bytes"
	"errors"
	"time"

	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/gpio"
	"learnpi/interpreter-go/pkg/runtime"
)

type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

type testHarness struct {
	interp *Interpreter
	sim    *gpio.Simulator
	stdout *bytes.Buffer
	slept  []time.Duration
}

func newTestHarness() *testHarness {
	h := &testHarness{sim: gpio.NewSimulator(nil), stdout: &bytes.Buffer{}}
	h.interp = New(Config{
		Backend: h.sim,
		Stdout:  h.stdout,
		Sleep:   func(d time.Duration) { h.slept = append(h.slept, d) },
	})
	return h
}

func mustEval(t testingT, interp *Interpreter, node ast.Node) runtime.Value {
	t.Helper()
	val, err := interp.Evaluate(node)
	if err != nil {
		t.Fatalf("evaluate %s: %v", node.NodeType(), err)
	}
	return val
}

func mustFail(t testingT, interp *Interpreter, node ast.Node, want error) error {
	t.Helper()
	_, err := interp.Evaluate(node)
	if err == nil {
		t.Fatalf("expected %v, got success", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	return err
}

func mustLookup(t testingT, interp *Interpreter, name string) runtime.Value {
	t.Helper()
	val, ok := interp.Lookup(name)
	if !ok {
		t.Fatalf("expected %q to be bound", name)
	}
	return val
}
