package ast

// Declaration introduces a variable with the zero value of TypeName.
type Declaration struct {
	nodeImpl

	Name     string `json:"name"`
	TypeName string `json:"declared_type"`
}

func NewDeclaration(name, typeName string) *Declaration {
	return &Declaration{nodeImpl: newNodeImpl(NodeDeclaration), Name: name, TypeName: typeName}
}

// DeclarationAssign introduces a variable bound to the value of Value.
type DeclarationAssign struct {
	nodeImpl

	Name     string `json:"name"`
	TypeName string `json:"declared_type"`
	Value    Node   `json:"value"`
}

func NewDeclarationAssign(name, typeName string, value Node) *DeclarationAssign {
	return &DeclarationAssign{nodeImpl: newNodeImpl(NodeDeclarationAssign), Name: name, TypeName: typeName, Value: value}
}

// DeviceDeclaration introduces a hardware variable; Args evaluate to the
// pin numbers.
type DeviceDeclaration struct {
	nodeImpl

	Name     string `json:"name"`
	TypeName string `json:"declared_type"`
	Args     []Node `json:"args"`
}

func NewDeviceDeclaration(name, typeName string, args []Node) *DeviceDeclaration {
	return &DeviceDeclaration{nodeImpl: newNodeImpl(NodeDeviceDeclaration), Name: name, TypeName: typeName, Args: args}
}

type FunctionDefinition struct {
	nodeImpl

	Name   string   `json:"name"`
	Params []string `json:"params"`
	Body   Node     `json:"body,omitempty"`
}

func NewFunctionDefinition(name string, params []string, body Node) *FunctionDefinition {
	return &FunctionDefinition{nodeImpl: newNodeImpl(NodeFunctionDefinition), Name: name, Params: params, Body: body}
}

// BuiltinCall invokes one of the fixed hardware or utility functions.
type BuiltinCall struct {
	nodeImpl

	Name string `json:"name"`
	Args []Node `json:"args"`
}

func NewBuiltinCall(name string, args []Node) *BuiltinCall {
	return &BuiltinCall{nodeImpl: newNodeImpl(NodeBuiltinCall), Name: name, Args: args}
}

// FunctionCall invokes a user-defined function.
type FunctionCall struct {
	nodeImpl

	Name string `json:"name"`
	Args []Node `json:"args"`
}

func NewFunctionCall(name string, args []Node) *FunctionCall {
	return &FunctionCall{nodeImpl: newNodeImpl(NodeFunctionCall), Name: name, Args: args}
}
