package ast

// Literal and name helpers.

func Bit(value bool) *BitLiteral {
	return NewBitLiteral(value)
}

func Int(value int64) *IntegerLiteral {
	return NewIntegerLiteral(value)
}

func Dec(value float64) *DecimalLiteral {
	return NewDecimalLiteral(value)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Del(name string) *Deletion {
	return NewDeletion(name)
}

func Assign(name string, value Node) *Assignment {
	return NewAssignment(name, value)
}

// Operator helpers.

func Bin(op Operator, left, right Node) *BinaryExpression {
	return NewBinaryExpression(op, left, right)
}

func Un(op Operator, operand Node) *UnaryExpression {
	return NewUnaryExpression(op, operand)
}

// Control flow helpers.

func If(cond, then, els Node) *IfStatement {
	return NewIfStatement(cond, then, els)
}

func While(cond, body Node) *WhileLoop {
	return NewWhileLoop(cond, body)
}

func DoWhile(body, cond Node) *DoWhileLoop {
	return NewDoWhileLoop(body, cond)
}

// Seq chains statements into a right-leaning StatementList. A single
// statement is returned unchanged.
func Seq(stmts ...Node) Node {
	switch len(stmts) {
	case 0:
		return nil
	case 1:
		return stmts[0]
	}
	return NewStatementList(stmts[0], Seq(stmts[1:]...))
}

func Scope(stmts ...Node) *Block {
	return NewBlock(Seq(stmts...))
}

// Declaration helpers.

func Decl(name, typeName string) *Declaration {
	return NewDeclaration(name, typeName)
}

func DeclAssign(name, typeName string, value Node) *DeclarationAssign {
	return NewDeclarationAssign(name, typeName, value)
}

func Device(name, typeName string, pins ...Node) *DeviceDeclaration {
	return NewDeviceDeclaration(name, typeName, pins)
}

// Pins turns integers into IntegerLiteral arguments for Device.
func Pins(pins ...int64) []Node {
	out := make([]Node, len(pins))
	for i, pin := range pins {
		out[i] = Int(pin)
	}
	return out
}

func Fn(name string, params []string, body ...Node) *FunctionDefinition {
	return NewFunctionDefinition(name, params, Seq(body...))
}

func Builtin(name string, args ...Node) *BuiltinCall {
	return NewBuiltinCall(name, args)
}

func Call(name string, args ...Node) *FunctionCall {
	return NewFunctionCall(name, args)
}

func Prog(stmts ...Node) *Program {
	return NewProgram(stmts)
}
