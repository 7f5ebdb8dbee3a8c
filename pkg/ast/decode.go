package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadProgram reads an AST document from path. Files ending in .yml or
// .yaml are read as YAML, everything else as JSON.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ast: read %s: %w", path, err)
	}
	var program *Program
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		program, err = DecodeYAML(data)
	default:
		program, err = DecodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("ast: %s: %w", path, err)
	}
	return program, nil
}

// DecodeJSON decodes a JSON AST document.
func DecodeJSON(data []byte) (*Program, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected content after document")
		}
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return DecodeProgram(raw)
}

// DecodeYAML decodes a YAML AST document.
func DecodeYAML(data []byte) (*Program, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return DecodeProgram(raw)
}

// DecodeProgram converts a generic document into a Program. A document whose
// root is a single statement rather than a Program is wrapped in one.
func DecodeProgram(raw map[string]any) (*Program, error) {
	if raw == nil {
		return nil, fmt.Errorf("empty document")
	}
	node, err := DecodeNode(raw)
	if err != nil {
		return nil, err
	}
	if program, ok := node.(*Program); ok {
		return program, nil
	}
	program := NewProgram(Flatten(node))
	program.SourceLine = node.Line()
	return program, nil
}

// DecodeNode converts one generic map, as produced by encoding/json or
// yaml.v3, into an AST node.
func DecodeNode(node map[string]any) (Node, error) {
	decoded, err := decodeNode(node)
	if err != nil {
		return nil, err
	}
	if line, ok, err := optionalInt(node, "line"); err != nil {
		return nil, err
	} else if ok {
		SetLine(decoded, int(line))
	}
	return decoded, nil
}

func decodeNode(node map[string]any) (Node, error) {
	typ, _ := node["type"].(string)
	switch NodeType(typ) {
	case NodeProgram:
		body, err := decodeList(node, "body")
		if err != nil {
			return nil, err
		}
		return NewProgram(body), nil
	case NodeBitLiteral:
		val, ok := node["value"].(bool)
		if !ok {
			return nil, fmt.Errorf("BitLiteral: value must be a boolean")
		}
		return NewBitLiteral(val), nil
	case NodeIntegerLiteral:
		val, ok, err := optionalInt(node, "value")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("IntegerLiteral: missing value")
		}
		return NewIntegerLiteral(val), nil
	case NodeDecimalLiteral:
		val, err := requireFloat(node, "value")
		if err != nil {
			return nil, err
		}
		return NewDecimalLiteral(val), nil
	case NodeStringLiteral:
		val, _ := node["value"].(string)
		return NewStringLiteral(val), nil
	case NodeIdentifier:
		name, err := requireString(node, "name")
		if err != nil {
			return nil, err
		}
		return NewIdentifier(name), nil
	case NodeDeletion:
		name, err := requireString(node, "name")
		if err != nil {
			return nil, err
		}
		return NewDeletion(name), nil
	case NodeAssignment:
		name, err := requireString(node, "name")
		if err != nil {
			return nil, err
		}
		value, err := requireChild(node, "value")
		if err != nil {
			return nil, err
		}
		return NewAssignment(name, value), nil
	case NodeBinaryExpression:
		op, _ := node["operator"].(string)
		operator := Operator(op)
		if !operator.IsArithmetic() && !operator.IsLogical() && !operator.IsRelational() {
			return nil, fmt.Errorf("BinaryExpression: unknown operator %q", op)
		}
		left, err := requireChild(node, "left")
		if err != nil {
			return nil, err
		}
		right, err := requireChild(node, "right")
		if err != nil {
			return nil, err
		}
		return NewBinaryExpression(operator, left, right), nil
	case NodeUnaryExpression:
		op, _ := node["operator"].(string)
		operator := Operator(op)
		if !operator.IsUnary() {
			return nil, fmt.Errorf("UnaryExpression: unknown operator %q", op)
		}
		operand, err := requireChild(node, "operand")
		if err != nil {
			return nil, err
		}
		return NewUnaryExpression(operator, operand), nil
	case NodeIfStatement:
		cond, err := requireChild(node, "condition")
		if err != nil {
			return nil, err
		}
		then, err := optionalChild(node, "then")
		if err != nil {
			return nil, err
		}
		els, err := optionalChild(node, "else")
		if err != nil {
			return nil, err
		}
		return NewIfStatement(cond, then, els), nil
	case NodeWhileLoop, NodeDoWhileLoop:
		cond, err := requireChild(node, "condition")
		if err != nil {
			return nil, err
		}
		body, err := optionalChild(node, "body")
		if err != nil {
			return nil, err
		}
		if NodeType(typ) == NodeWhileLoop {
			return NewWhileLoop(cond, body), nil
		}
		return NewDoWhileLoop(body, cond), nil
	case NodeStatementList:
		first, err := optionalChild(node, "first")
		if err != nil {
			return nil, err
		}
		rest, err := optionalChild(node, "rest")
		if err != nil {
			return nil, err
		}
		return NewStatementList(first, rest), nil
	case NodeBlock:
		body, err := optionalChild(node, "body")
		if err != nil {
			return nil, err
		}
		return NewBlock(body), nil
	case NodeDeclaration:
		name, typeName, err := declarationHead(node)
		if err != nil {
			return nil, err
		}
		return NewDeclaration(name, typeName), nil
	case NodeDeclarationAssign:
		name, typeName, err := declarationHead(node)
		if err != nil {
			return nil, err
		}
		value, err := requireChild(node, "value")
		if err != nil {
			return nil, err
		}
		return NewDeclarationAssign(name, typeName, value), nil
	case NodeDeviceDeclaration:
		name, typeName, err := declarationHead(node)
		if err != nil {
			return nil, err
		}
		args, err := decodeList(node, "args")
		if err != nil {
			return nil, err
		}
		return NewDeviceDeclaration(name, typeName, args), nil
	case NodeFunctionDefinition:
		name, err := requireString(node, "name")
		if err != nil {
			return nil, err
		}
		params, err := stringList(node, "params")
		if err != nil {
			return nil, err
		}
		body, err := optionalChild(node, "body")
		if err != nil {
			return nil, err
		}
		return NewFunctionDefinition(name, params, body), nil
	case NodeBuiltinCall, NodeFunctionCall:
		name, err := requireString(node, "name")
		if err != nil {
			return nil, err
		}
		args, err := decodeList(node, "args")
		if err != nil {
			return nil, err
		}
		if NodeType(typ) == NodeBuiltinCall {
			return NewBuiltinCall(name, args), nil
		}
		return NewFunctionCall(name, args), nil
	case "":
		return nil, fmt.Errorf("node missing type")
	default:
		return nil, fmt.Errorf("unsupported node type %q", typ)
	}
}

func declarationHead(node map[string]any) (string, string, error) {
	name, err := requireString(node, "name")
	if err != nil {
		return "", "", err
	}
	typeName, err := requireString(node, "declared_type")
	if err != nil {
		return "", "", err
	}
	return name, typeName, nil
}

func requireString(node map[string]any, key string) (string, error) {
	val, ok := node[key].(string)
	if !ok || val == "" {
		return "", fmt.Errorf("%v: missing %s", node["type"], key)
	}
	return val, nil
}

func stringList(node map[string]any, key string) ([]string, error) {
	raw, ok := node[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%v: %s must be a list", node["type"], key)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%v: %s[%d] must be a string", node["type"], key, i)
		}
		out = append(out, str)
	}
	return out, nil
}

func requireChild(node map[string]any, key string) (Node, error) {
	child, err := optionalChild(node, key)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("%v: missing %s", node["type"], key)
	}
	return child, nil
}

func optionalChild(node map[string]any, key string) (Node, error) {
	raw, ok := node[key]
	if !ok || raw == nil {
		return nil, nil
	}
	child, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%v: %s must be a node, got %T", node["type"], key, raw)
	}
	decoded, err := DecodeNode(child)
	if err != nil {
		return nil, fmt.Errorf("%v.%s: %w", node["type"], key, err)
	}
	return decoded, nil
}

func decodeList(node map[string]any, key string) ([]Node, error) {
	raw, ok := node[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%v: %s must be a list", node["type"], key)
	}
	out := make([]Node, 0, len(items))
	for i, item := range items {
		child, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%v: %s[%d] must be a node, got %T", node["type"], key, i, item)
		}
		decoded, err := DecodeNode(child)
		if err != nil {
			return nil, fmt.Errorf("%v.%s[%d]: %w", node["type"], key, i, err)
		}
		out = append(out, decoded)
	}
	return out, nil
}

func optionalInt(node map[string]any, key string) (int64, bool, error) {
	raw, ok := node[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, false, fmt.Errorf("%v: %s out of range", node["type"], key)
		}
		return int64(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, fmt.Errorf("%v: %s must be an integer", node["type"], key)
		}
		return int64(v), true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%v: %s must be an integer: %w", node["type"], key, err)
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("%v: %s must be an integer, got %T", node["type"], key, raw)
	}
}

func requireFloat(node map[string]any, key string) (float64, error) {
	switch v := node[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%v: %s must be a number: %w", node["type"], key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%v: %s must be a number, got %T", node["type"], key, node[key])
	}
}
