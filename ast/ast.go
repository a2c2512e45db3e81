package ast

import (
	"pythoc/report"
	"pythoc/typing"
)

// Node is the abstract interface for all AST nodes.  The core operates on an
// already-parsed AST: the host syntax parser is an external collaborator that
// produces these nodes.
type Node interface {
	// Position returns the text position of the node.  Nodes synthesized by
	// AST transforms carry the position of the construct that produced them.
	Position() *report.TextPosition
}

// NodeBase is a utility base struct for all AST nodes.
type NodeBase struct {
	Pos *report.TextPosition
}

// NewNodeBaseOn creates a new node base at the given position.
func NewNodeBaseOn(pos *report.TextPosition) NodeBase {
	return NodeBase{Pos: pos}
}

func (nb *NodeBase) Position() *report.TextPosition {
	return nb.Pos
}

// -----------------------------------------------------------------------------

// Expr is the interface for all expression nodes.
type Expr interface {
	Node

	// Type returns the resolved data type of the expression.  It is nil until
	// the semantic walker has visited the expression.
	Type() typing.DataType

	// SetType sets the resolved data type of the expression.
	SetType(typing.DataType)
}

// ExprBase is the base struct for all expression nodes.
type ExprBase struct {
	NodeBase

	typ typing.DataType
}

func NewExprBaseOn(pos *report.TextPosition) ExprBase {
	return ExprBase{NodeBase: NewNodeBaseOn(pos)}
}

func (eb *ExprBase) Type() typing.DataType {
	return eb.typ
}

func (eb *ExprBase) SetType(typ typing.DataType) {
	eb.typ = typ
}

// -----------------------------------------------------------------------------

// Stmt is the interface for all statement nodes.
type Stmt interface {
	Node

	stmtNode()
}

// StmtBase is the base struct for all statement nodes.
type StmtBase struct {
	NodeBase
}

func NewStmtBaseOn(pos *report.TextPosition) StmtBase {
	return StmtBase{NodeBase: NewNodeBaseOn(pos)}
}

func (sb *StmtBase) stmtNode() {}
