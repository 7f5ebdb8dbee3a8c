package ast

type NodeType string

const (
	NodeProgram            NodeType = "Program"
	NodeBitLiteral         NodeType = "BitLiteral"
	NodeIntegerLiteral     NodeType = "IntegerLiteral"
	NodeDecimalLiteral     NodeType = "DecimalLiteral"
	NodeStringLiteral      NodeType = "StringLiteral"
	NodeIdentifier         NodeType = "Identifier"
	NodeDeletion           NodeType = "Deletion"
	NodeAssignment         NodeType = "Assignment"
	NodeBinaryExpression   NodeType = "BinaryExpression"
	NodeUnaryExpression    NodeType = "UnaryExpression"
	NodeIfStatement        NodeType = "IfStatement"
	NodeWhileLoop          NodeType = "WhileLoop"
	NodeDoWhileLoop        NodeType = "DoWhileLoop"
	NodeStatementList      NodeType = "StatementList"
	NodeBlock              NodeType = "Block"
	NodeDeclaration        NodeType = "Declaration"
	NodeDeclarationAssign  NodeType = "DeclarationAssign"
	NodeDeviceDeclaration  NodeType = "DeviceDeclaration"
	NodeFunctionDefinition NodeType = "FunctionDefinition"
	NodeBuiltinCall        NodeType = "BuiltinCall"
	NodeFunctionCall       NodeType = "FunctionCall"
)

type Node interface {
	NodeType() NodeType
	// Line is the 1-based source line, or 0 when unknown.
	Line() int
	isNode()
}

type nodeImpl struct {
	Type       NodeType `json:"type"`
	SourceLine int      `json:"line,omitempty"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Line() int          { return n.SourceLine }
func (nodeImpl) isNode()              {}

func (n *nodeImpl) setLine(line int) { n.SourceLine = line }

// SetLine annotates node with its source line.
func SetLine(node Node, line int) {
	if node == nil {
		return
	}
	if setter, ok := node.(interface{ setLine(int) }); ok {
		setter.setLine(line)
	}
}

// AtLine sets the line on node and returns it, for building trees inline.
func AtLine[T Node](line int, node T) T {
	SetLine(node, line)
	return node
}

//-----------------------------------------------------------------------------
// Program
//-----------------------------------------------------------------------------

// Program is the root produced by the parser: the top-level statements in
// source order.
type Program struct {
	nodeImpl

	Body []Node `json:"body"`
}

func NewProgram(body []Node) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Body: body}
}

//-----------------------------------------------------------------------------
// Constants
//-----------------------------------------------------------------------------

type BitLiteral struct {
	nodeImpl

	Value bool `json:"value"`
}

func NewBitLiteral(value bool) *BitLiteral {
	return &BitLiteral{nodeImpl: newNodeImpl(NodeBitLiteral), Value: value}
}

type IntegerLiteral struct {
	nodeImpl

	Value int64 `json:"value"`
}

func NewIntegerLiteral(value int64) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

type DecimalLiteral struct {
	nodeImpl

	Value float64 `json:"value"`
}

func NewDecimalLiteral(value float64) *DecimalLiteral {
	return &DecimalLiteral{nodeImpl: newNodeImpl(NodeDecimalLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

//-----------------------------------------------------------------------------
// Names
//-----------------------------------------------------------------------------

// Identifier reads the value bound to Name.
type Identifier struct {
	nodeImpl

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Deletion removes the binding of Name.
type Deletion struct {
	nodeImpl

	Name string `json:"name"`
}

func NewDeletion(name string) *Deletion {
	return &Deletion{nodeImpl: newNodeImpl(NodeDeletion), Name: name}
}

// Assignment replaces the value of an existing variable.
type Assignment struct {
	nodeImpl

	Name  string `json:"name"`
	Value Node   `json:"value"`
}

func NewAssignment(name string, value Node) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Name: name, Value: value}
}

//-----------------------------------------------------------------------------
// Operators
//-----------------------------------------------------------------------------

type Operator string

const (
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
	OpMultiply Operator = "*"
	OpDivide   Operator = "/"

	OpAnd Operator = "and"
	OpOr  Operator = "or"

	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="

	OpAbs    Operator = "abs"
	OpNegate Operator = "neg"
	OpNot    Operator = "not"
)

// IsArithmetic reports whether op is + - * or /.
func (op Operator) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return true
	}
	return false
}

// IsLogical reports whether op is and/or.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsRelational reports whether op compares its operands.
func (op Operator) IsRelational() bool {
	switch op {
	case OpGreater, OpLess, OpEqual, OpNotEqual, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// IsUnary reports whether op takes a single operand.
func (op Operator) IsUnary() bool {
	switch op {
	case OpAbs, OpNegate, OpNot:
		return true
	}
	return false
}

type BinaryExpression struct {
	nodeImpl

	Operator Operator `json:"operator"`
	Left     Node     `json:"left"`
	Right    Node     `json:"right"`
}

func NewBinaryExpression(op Operator, left, right Node) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: op, Left: left, Right: right}
}

type UnaryExpression struct {
	nodeImpl

	Operator Operator `json:"operator"`
	Operand  Node     `json:"operand"`
}

func NewUnaryExpression(op Operator, operand Node) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: op, Operand: operand}
}

//-----------------------------------------------------------------------------
// Control flow
//-----------------------------------------------------------------------------

// IfStatement runs Then or Else depending on a Bit condition. Either
// branch may be nil.
type IfStatement struct {
	nodeImpl

	Condition Node `json:"condition"`
	Then      Node `json:"then,omitempty"`
	Else      Node `json:"else,omitempty"`
}

func NewIfStatement(cond, then, els Node) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Condition: cond, Then: then, Else: els}
}

type WhileLoop struct {
	nodeImpl

	Condition Node `json:"condition"`
	Body      Node `json:"body,omitempty"`
}

func NewWhileLoop(cond, body Node) *WhileLoop {
	return &WhileLoop{nodeImpl: newNodeImpl(NodeWhileLoop), Condition: cond, Body: body}
}

type DoWhileLoop struct {
	nodeImpl

	Body      Node `json:"body,omitempty"`
	Condition Node `json:"condition"`
}

func NewDoWhileLoop(body, cond Node) *DoWhileLoop {
	return &DoWhileLoop{nodeImpl: newNodeImpl(NodeDoWhileLoop), Body: body, Condition: cond}
}

// StatementList is a right-leaning sequence: First runs for effect, Rest
// provides the value.
type StatementList struct {
	nodeImpl

	First Node `json:"first"`
	Rest  Node `json:"rest,omitempty"`
}

func NewStatementList(first, rest Node) *StatementList {
	return &StatementList{nodeImpl: newNodeImpl(NodeStatementList), First: first, Rest: rest}
}

// Block evaluates Body inside a fresh scope.
type Block struct {
	nodeImpl

	Body Node `json:"body,omitempty"`
}

func NewBlock(body Node) *Block {
	return &Block{nodeImpl: newNodeImpl(NodeBlock), Body: body}
}

// Flatten unrolls a right-leaning StatementList chain into its statements.
// Any other node is returned as a single statement.
func Flatten(node Node) []Node {
	var out []Node
	for node != nil {
		list, ok := node.(*StatementList)
		if !ok {
			return append(out, node)
		}
		if list.First != nil {
			out = append(out, list.First)
		}
		node = list.Rest
	}
	return out
}
