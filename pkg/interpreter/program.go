package interpreter

import (
	"fmt"

	"learnpi/interpreter-go/pkg/ast"
	"learnpi/interpreter-go/pkg/runtime"
)

// Diagnostic is a non-fatal error that aborted one top-level statement.
type Diagnostic struct {
	Line int
	Err  error
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %v", d.Line, d.Err)
	}
	return d.Err.Error()
}

// RunResult summarises a program run.
type RunResult struct {
	// Value of the last top-level statement that completed, if any.
	Last        runtime.Value
	Statements  int
	Diagnostics []Diagnostic
}

// OK reports whether every statement completed.
func (r *RunResult) OK() bool {
	return len(r.Diagnostics) == 0
}

// Run evaluates the top-level statements of program in order. A statement
// that fails with a non-fatal error is recorded and skipped; a fatal error
// stops the run and is returned alongside the partial result.
func (i *Interpreter) Run(program *ast.Program) (*RunResult, error) {
	result := &RunResult{}
	if program == nil {
		return result, nil
	}
	for _, top := range program.Body {
		for _, stmt := range ast.Flatten(top) {
			val, err := i.runStatement(stmt)
			result.Statements++
			if err == nil {
				result.Last = val
				continue
			}
			if runtime.IsFatal(err) || runtime.KindOf(err) == 0 {
				i.log.Errorw("fatal error", "line", runtime.LineOf(err), "error", err)
				return result, err
			}
			diag := Diagnostic{Line: runtime.LineOf(err), Err: err}
			i.log.Warnw("statement failed", "line", diag.Line, "error", err)
			result.Diagnostics = append(result.Diagnostics, diag)
		}
	}
	return result, nil
}

// runStatement evaluates one top-level statement and checks that every
// scope it opened was released.
func (i *Interpreter) runStatement(stmt ast.Node) (runtime.Value, error) {
	val, err := i.Evaluate(stmt)
	if depth := i.scopes.Depth(); depth != 1 {
		leak := runtime.Errorf(runtime.ErrInternal, "scope depth %d after top-level statement", depth)
		return nil, runtime.WithLine(leak, lineOf(stmt))
	}
	return val, err
}

// Preload evaluates library modules into the global scope ahead of the
// entry program. Any error is returned as-is, since a broken library leaves
// the program without the definitions it expects.
func (i *Interpreter) Preload(modules ...*ast.Program) error {
	for _, module := range modules {
		result, err := i.Run(module)
		if err != nil {
			return err
		}
		if !result.OK() {
			return result.Diagnostics[0].Err
		}
	}
	return nil
}
