// Package ast defines the structured statement trees that make up function
// bodies in a Cinder declaration set.  There is no parser: trees are built
// directly by the embedding toolchain and handed to the backend in memory.
package ast

import "cinder/typing"

// Def represents a top-level definition in a declaration set.
type Def interface {
	// Names returns the list of global names this definition declares.
	Names() []string
}

// -----------------------------------------------------------------------------

// FuncParam is a single parameter to a function or method.
type FuncParam struct {
	Name string
	Type typing.DataType

	// Constant indicates the parameter is never reassigned inside the body.
	// Constant parameters may stay in register-like temporaries; mutable ones
	// are demoted to stack cells by the lowering engine.
	Constant bool
}

// FuncDef is a free function definition.
type FuncDef struct {
	Name      string
	Params    []*FuncParam
	Signature *typing.FuncType

	// Body is the function body.  A nil body declares an external function.
	Body Stmt
}

func (fd *FuncDef) Names() []string {
	return []string{fd.Name}
}

// MethodDef supplies the body for a method declared on a class.  The method's
// signature and dispatch kind live on the class declaration itself.
type MethodDef struct {
	Class  *typing.ClassType
	Name   string
	Params []*FuncParam

	// Body is the method body.  A nil body declares the method as externally
	// provided (its vtable slot still references the mangled symbol).
	Body Stmt
}

func (md *MethodDef) Names() []string {
	return []string{md.Class.Name() + "." + md.Name}
}

// GlobalVarDecl is a global variable declaration.  Globals are always
// zero-initialized; running initializers belongs to the out-of-scope runtime.
type GlobalVarDecl struct {
	Name string
	Type typing.DataType
}

func (gvd *GlobalVarDecl) Names() []string {
	return []string{gvd.Name}
}
