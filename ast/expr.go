package ast

import "cinder/typing"

// Expr is the parent interface of all expressions.  Trees arrive already
// typed: every node carries its result type.
type Expr interface {
	Type() typing.DataType
}

// ExprBase is the base struct embedded in all expressions.
type ExprBase struct {
	Typ typing.DataType
}

func (eb *ExprBase) Type() typing.DataType {
	return eb.Typ
}

// NewExprBase creates a new expression base with the given type.
func NewExprBase(typ typing.DataType) ExprBase {
	return ExprBase{Typ: typ}
}

// -----------------------------------------------------------------------------

// Literal is a primitive literal.  The value is stored as source text and
// converted during lowering.
type Literal struct {
	ExprBase

	Value string
}

// Null is the null pointer constant for its pointer type.
type Null struct {
	ExprBase
}

// Identifier references a local variable, parameter, or global by name.
type Identifier struct {
	ExprBase

	Name string
}

// SelfRef references the implicit instance parameter inside a method body.
type SelfRef struct {
	ExprBase
}

// FieldAccess reads a data field through a pointer to a class or aggregate
// instance.
type FieldAccess struct {
	ExprBase

	Instance  Expr
	FieldName string
}

// Call invokes a free function by name.  For calls to variadic functions,
// ArgTypes restates the full parameter-type signature at the call site since
// the declared type is incomplete.
type Call struct {
	ExprBase

	FuncName string
	Args     []Expr

	// ArgTypes is only set for variadic call sites.
	ArgTypes []typing.DataType
}

// MethodCall invokes a method on a class instance.  Whether the call is
// direct or dispatched through the vtable is decided by the object model
// builder from the method's declaration, not by the call site.
type MethodCall struct {
	ExprBase

	Instance   Expr
	MethodName string
	Args       []Expr
}

// New allocates and default-constructs an instance of a class, yielding a
// pointer to it.  Allocation goes through the external allocator; a failed
// allocation yields its null sentinel unconstructed.
type New struct {
	ExprBase

	Class *typing.ClassType
}

// CastKind enumerates the six distinct conversion operations.  Each kind is
// its own operation: the lowering engine never infers which variant to use
// from a generic "convert" request.
type CastKind int

const (
	CastBit     = iota // Bitwise reinterpretation; requires equal storage size.
	CastZeroExt        // Unsigned widen; upper bits cleared.
	CastSignExt        // Signed widen; upper bits replicate the sign bit.
	CastTrunc          // Integral narrow; identical for signed and unsigned.
	CastFPExt          // Floating-point widen.
	CastFPTrunc        // Floating-point narrow.
)

// Cast converts Src to the expression's type using the given kind.
type Cast struct {
	ExprBase

	Kind CastKind
	Src  Expr
}

// BaseRef reinterprets a pointer to a class instance as a pointer to one of
// its base classes, adjusting by the base's sub-region offset.
type BaseRef struct {
	ExprBase

	Instance Expr
	Base     *typing.ClassType
}

// Oper enumerates the binary operators.
type Oper int

const (
	OpAdd = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNeq
	OpLt
	OpGt
)

// Binary applies a binary operator to two operands of identical type.  The
// signed, unsigned, or floating variant of the operation is selected from the
// operand type during lowering.
type Binary struct {
	ExprBase

	Op  Oper
	Lhs Expr
	Rhs Expr
}

// IsA classifies an instance against a target class identity by walking the
// instance's vtable parent chain.  Its type is always bool.
type IsA struct {
	ExprBase

	Instance Expr
	Target   *typing.ClassType
}
