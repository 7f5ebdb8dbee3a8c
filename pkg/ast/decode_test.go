package ast

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const blinkJSON = `{
  "type": "Program",
  "body": [
    {"type": "DeviceDeclaration", "line": 1, "name": "led", "declared_type": "LED",
     "args": [{"type": "IntegerLiteral", "value": 17}]},
    {"type": "DeclarationAssign", "line": 2, "name": "n", "declared_type": "Integer",
     "value": {"type": "IntegerLiteral", "value": 3}},
    {"type": "WhileLoop", "line": 3,
     "condition": {"type": "BinaryExpression", "operator": ">",
                   "left": {"type": "Identifier", "name": "n"},
                   "right": {"type": "IntegerLiteral", "value": 0}},
     "body": {"type": "StatementList",
              "first": {"type": "BuiltinCall", "name": "led_on", "args": [{"type": "Identifier", "name": "led"}]},
              "rest": {"type": "Assignment", "name": "n",
                       "value": {"type": "BinaryExpression", "operator": "-",
                                 "left": {"type": "Identifier", "name": "n"},
                                 "right": {"type": "IntegerLiteral", "value": 1}}}}}
  ]
}`

func TestDecodeJSONProgram(t *testing.T) {
	program, err := DecodeJSON([]byte(blinkJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(program.Body) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(program.Body))
	}
	device, ok := program.Body[0].(*DeviceDeclaration)
	if !ok {
		t.Fatalf("expected DeviceDeclaration, got %T", program.Body[0])
	}
	if device.Name != "led" || device.TypeName != "LED" || device.Line() != 1 {
		t.Fatalf("unexpected device declaration %+v", device)
	}
	if lit, ok := device.Args[0].(*IntegerLiteral); !ok || lit.Value != 17 {
		t.Fatalf("expected pin literal 17, got %#v", device.Args[0])
	}
	loop, ok := program.Body[2].(*WhileLoop)
	if !ok {
		t.Fatalf("expected WhileLoop, got %T", program.Body[2])
	}
	if loop.Line() != 3 {
		t.Fatalf("expected line 3, got %d", loop.Line())
	}
	body := Flatten(loop.Body)
	if len(body) != 2 {
		t.Fatalf("expected 2 loop statements, got %d", len(body))
	}
	if _, ok := body[1].(*Assignment); !ok {
		t.Fatalf("expected Assignment, got %T", body[1])
	}
}

func TestDecodeYAMLMatchesJSON(t *testing.T) {
	doc := `
type: Program
body:
  - type: DeclarationAssign
    line: 1
    name: ratio
    declared_type: Decimal
    value: {type: DecimalLiteral, value: 2}
  - type: IfStatement
    line: 2
    condition: {type: BitLiteral, value: true}
    then: {type: BuiltinCall, name: print, args: [{type: StringLiteral, value: hi}]}
`
	program, err := DecodeYAML([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Prog(
		AtLine(1, DeclAssign("ratio", "Decimal", Dec(2))),
		AtLine(2, If(Bit(true), Builtin("print", Str("hi")), nil)),
	)
	if !reflect.DeepEqual(program, want) {
		t.Fatalf("decoded program mismatch\n got: %#v\nwant: %#v", program, want)
	}
}

func TestDecodeRejectsUnknownNodes(t *testing.T) {
	cases := map[string]string{
		"unknown type":     `{"type": "Program", "body": [{"type": "Teleport"}]}`,
		"missing type":     `{"type": "Program", "body": [{"name": "x"}]}`,
		"bad operator":     `{"type": "BinaryExpression", "operator": "%", "left": {"type": "IntegerLiteral", "value": 1}, "right": {"type": "IntegerLiteral", "value": 2}}`,
		"fractional int":   `{"type": "IntegerLiteral", "value": 1.5}`,
		"missing operand":  `{"type": "UnaryExpression", "operator": "abs"}`,
		"args not a list":  `{"type": "BuiltinCall", "name": "print", "args": 3}`,
		"missing declared": `{"type": "Declaration", "name": "x"}`,
		"second document":  `{"type": "Program", "body": []} {"type": "Program", "body": []}`,
		"trailing garbage": `{"type": "Program", "body": []} ]`,
	}
	for name, doc := range cases {
		if _, err := DecodeJSON([]byte(doc)); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestDecodeJSONAllowsTrailingWhitespace(t *testing.T) {
	program, err := DecodeJSON([]byte("{\"type\": \"Program\", \"body\": []}\n\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(program.Body) != 0 {
		t.Fatalf("expected empty body, got %d statements", len(program.Body))
	}
}

func TestDecodeWrapsBareStatement(t *testing.T) {
	program, err := DecodeJSON([]byte(`{"type": "StatementList", "line": 4,
		"first": {"type": "Declaration", "name": "a", "declared_type": "Bit"},
		"rest": {"type": "Declaration", "name": "b", "declared_type": "Bit"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(program.Body) != 2 {
		t.Fatalf("expected flattened body of 2, got %d", len(program.Body))
	}
	if program.Line() != 4 {
		t.Fatalf("expected program line 4, got %d", program.Line())
	}
}

func TestLoadProgramByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "main.json")
	if err := os.WriteFile(jsonPath, []byte(`{"type": "Program", "body": [{"type": "Declaration", "name": "x", "declared_type": "Integer"}]}`), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}
	yamlPath := filepath.Join(dir, "main.yml")
	if err := os.WriteFile(yamlPath, []byte("type: Program\nbody:\n  - {type: Declaration, name: x, declared_type: Integer}\n"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	fromJSON, err := LoadProgram(jsonPath)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	fromYAML, err := LoadProgram(yamlPath)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if !reflect.DeepEqual(fromJSON, fromYAML) {
		t.Fatalf("json and yaml programs differ: %#v vs %#v", fromJSON, fromYAML)
	}
	if _, err := LoadProgram(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSeqAndFlatten(t *testing.T) {
	a, b, c := Decl("a", "Bit"), Decl("b", "Bit"), Decl("c", "Bit")
	seq := Seq(a, b, c)
	got := Flatten(seq)
	if len(got) != 3 || got[0] != Node(a) || got[2] != Node(c) {
		t.Fatalf("unexpected flatten result %#v", got)
	}
	if Seq(a) != Node(a) {
		t.Fatalf("single statement should not be wrapped")
	}
	if Flatten(nil) != nil {
		t.Fatalf("expected nil for empty sequence")
	}
}
