package ast

import "cinder/typing"

// Stmt is the parent interface of all statements.
type Stmt interface {
	stmtNode()
}

// StmtBase is the base struct embedded in all statements.
type StmtBase struct{}

func (sb *StmtBase) stmtNode() {}

// -----------------------------------------------------------------------------

// Block is an ordered sequence of statements with its own scope.
type Block struct {
	StmtBase

	Stmts []Stmt
}

// VarDecl declares a local variable.  All local variables are lowered as
// stack cells regardless of whether their address is ever taken: converting
// never-addressed cells back into temporaries is the job of the external
// promotion pass.
type VarDecl struct {
	StmtBase

	Name string
	Type typing.DataType

	// Init is the initializer expression.  If nil, the variable starts zeroed.
	Init Expr
}

// Assign stores the value of Rhs into the location denoted by Lhs.  Lhs must
// be assignable: an identifier, a field access, or a dereference.
type Assign struct {
	StmtBase

	Lhs Expr
	Rhs Expr
}

// If is a two-way conditional.  Else may be nil.
type If struct {
	StmtBase

	Cond Expr
	Then Stmt
	Else Stmt
}

// While is a pre-tested loop.
type While struct {
	StmtBase

	Cond Expr
	Body Stmt
}

// Return exits the enclosing function.  Value is nil for unit functions.
type Return struct {
	StmtBase

	Value Expr
}

// Throw raises an exception object inside an exception-aware function.  The
// operand must evaluate to a pointer to a class instance.
type Throw struct {
	StmtBase

	Value Expr
}

// TryCatch runs Body and dispatches any exception it propagates against the
// catch clauses in declaration order.
type TryCatch struct {
	StmtBase

	Body    Stmt
	Catches []CatchClause
}

// CatchClause is a single handler arm of a TryCatch.  A nil Class is a
// catch-all and matches unconditionally.
type CatchClause struct {
	// Class is the target class of the handler, compared using the `is-a`
	// classification walk.
	Class *typing.ClassType

	// Name binds the caught exception pointer inside the handler body.  It
	// may be empty if the handler does not inspect the exception.
	Name string

	Body Stmt
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	StmtBase

	Expr Expr
}

// Delete releases the storage of a class instance through the external
// allocator.  There is no automatic lifetime tracking in this model.
type Delete struct {
	StmtBase

	Operand Expr
}
