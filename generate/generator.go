package generate

import (
	"fmt"

	"cinder/ast"
	"cinder/layout"
	"cinder/object"
	"cinder/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// LLVMIdent is the type used for LLVM identifiers.  It stores the value as
// well as whether or not the value has to be loaded explicitly to be used.
type LLVMIdent struct {
	Val     value.Value
	Mutable bool
}

// excHandler is one active exception handler target.  A call to a throwing
// function inside its region stores the received exception pointer into Slot
// and branches to Block instead of propagating outward.
type excHandler struct {
	Slot  value.Value
	Block *ir.Block
}

// -----------------------------------------------------------------------------

// Generator is responsible for converting a Cinder declaration set into an
// LLVM module.  Each compilation unit converts to a single module.
type Generator struct {
	// eng is the layout engine holding the unit's computed shapes.
	eng *layout.Engine

	// builder is the object model builder holding vtable and ctor plans.
	builder *object.Builder

	// classes is the unit's class list in declaration order.
	classes []*typing.ClassType

	// defs is the unit's list of top-level definitions.
	defs []ast.Def

	// mod is the LLVM module being generated.
	mod *ir.Module

	// classTypes maps each class to its LLVM struct type definition.
	classTypes map[*typing.ClassType]*types.StructType

	// structTypes caches the LLVM types of plain aggregates.
	structTypes map[*typing.StructType]types.Type

	// funcs maps mangled global names to their declared LLVM functions.
	funcs map[string]*ir.Func

	// funcDefs maps mangled global names back to their declaration, used to
	// resolve call-site signatures.
	funcDefs map[string]*ast.FuncDef

	// vtGlobals maps each polymorphic class to its emitted vtable constant.
	vtGlobals map[*typing.ClassType]*ir.Global

	// tokenGlobals maps each class to its identity token constant: the
	// private global holding the class name.
	tokenGlobals map[*typing.ClassType]*ir.Global

	// globalScope contains all global values.
	globalScope map[string]LLVMIdent

	// localScopes is the stack of local scopes used during generation.
	localScopes []map[string]LLVMIdent

	// enclosingFunc is the function enclosing the block being compiled.
	enclosingFunc *ir.Func

	// enclosingThrows indicates the enclosing function is exception-aware.
	enclosingThrows bool

	// outParam is the result output parameter of the enclosing function when
	// it is exception-aware and returns a value.
	outParam value.Value

	// selfParam is the implicit instance parameter inside a method body.
	selfParam value.Value

	// handlers is the stack of active exception handler targets.
	handlers []excHandler

	// block stores the current block being generated.
	block *ir.Block

	// entryBlock is the entry block of the enclosing function.  All stack
	// cells are allocated there, never at their point of use.
	entryBlock *ir.Block

	// runtime holds the external runtime collaborator declarations.
	runtime runtimeDecls
}

// NewGenerator creates a new generator for a unit's declarations.  The object
// models of all classes in the list must already be built.
func NewGenerator(eng *layout.Engine, builder *object.Builder, classes []*typing.ClassType, defs []ast.Def) *Generator {
	return &Generator{
		eng:          eng,
		builder:      builder,
		classes:      classes,
		defs:         defs,
		mod:          ir.NewModule(),
		classTypes:   make(map[*typing.ClassType]*types.StructType),
		structTypes:  make(map[*typing.StructType]types.Type),
		funcs:        make(map[string]*ir.Func),
		funcDefs:     make(map[string]*ast.FuncDef),
		vtGlobals:    make(map[*typing.ClassType]*ir.Global),
		tokenGlobals: make(map[*typing.ClassType]*ir.Global),
		globalScope:  make(map[string]LLVMIdent),
	}
}

// Generate runs the main generation algorithm for the declaration set.  This
// process is assumed to always succeed once the layout and object model
// phases have completed: any errors here are considered fatal.
func (g *Generator) Generate() *ir.Module {
	// declare the external runtime collaborators and the classification
	// helper before anything that may reference them
	g.declareRuntime()

	// define the struct type of every class before any signature uses one
	for _, ct := range g.classes {
		g.defineClassType(ct)
	}

	// declare every function header (methods, constructors, free functions)
	// so that vtable constants and call sites can reference them in any order
	for _, ct := range g.classes {
		g.declareClassFuncs(ct)
	}

	for _, def := range g.defs {
		if fd, ok := def.(*ast.FuncDef); ok {
			g.declareFunc(fd)
		}
	}

	// emit identity tokens and vtable constants
	for _, ct := range g.classes {
		g.genClassConstants(ct)
	}

	// emit constructor and method bodies
	for _, ct := range g.classes {
		g.genCtor(ct)
	}

	// emit global variables and function bodies
	for _, def := range g.defs {
		switch v := def.(type) {
		case *ast.GlobalVarDecl:
			g.genGlobalVar(v)
		case *ast.FuncDef:
			g.genFuncBody(v)
		case *ast.MethodDef:
			g.genMethodBody(v)
		}
	}

	g.emitIsAHelper()

	return g.mod
}

// -----------------------------------------------------------------------------

// pushScope pushes a new local scope onto the scope stack.
func (g *Generator) pushScope() {
	g.localScopes = append(g.localScopes, make(map[string]LLVMIdent))
}

// popScope pops a local scope off of the local scope stack.
func (g *Generator) popScope() {
	g.localScopes = g.localScopes[:len(g.localScopes)-1]
}

// defineLocal defines a local variable.
func (g *Generator) defineLocal(name string, val value.Value, mutable bool) {
	g.localScopes[len(g.localScopes)-1][name] = LLVMIdent{val, mutable}
}

// lookup looks up a symbol.  The returned boolean indicates if the returned
// value is mutable (ie. wrapped in a stack cell).
func (g *Generator) lookup(name string) (value.Value, bool, bool) {
	// iterate through scopes in reverse order to implement shadowing
	for i := len(g.localScopes) - 1; i >= 0; i-- {
		if ident, ok := g.localScopes[i][name]; ok {
			return ident.Val, ident.Mutable, true
		}
	}

	if ident, ok := g.globalScope[name]; ok {
		return ident.Val, ident.Mutable, true
	}

	return nil, false, false
}

// -----------------------------------------------------------------------------

// appendBlock adds a new basic block to the current function.  It does *not*
// set the current block to this new block.
func (g *Generator) appendBlock() *ir.Block {
	return g.enclosingFunc.NewBlock(fmt.Sprintf("bb%d", len(g.enclosingFunc.Blocks)))
}

// allocaInEntry allocates a stack cell in the enclosing function's entry
// block.  Cells allocated where they are first needed would re-allocate on
// every iteration when that point sits inside a loop, and the external
// memory-to-register promotion pass only considers entry-block allocas.
func (g *Generator) allocaInEntry(elemType types.Type) *ir.InstAlloca {
	return g.entryBlock.NewAlloca(elemType)
}

// pushHandler pushes an active exception handler target.
func (g *Generator) pushHandler(h excHandler) {
	g.handlers = append(g.handlers, h)
}

// popHandler pops the innermost exception handler target.
func (g *Generator) popHandler() {
	g.handlers = g.handlers[:len(g.handlers)-1]
}

// currentHandler returns the innermost active handler, if any.
func (g *Generator) currentHandler() (excHandler, bool) {
	if len(g.handlers) == 0 {
		return excHandler{}, false
	}

	return g.handlers[len(g.handlers)-1], true
}

// -----------------------------------------------------------------------------
// Mangling scheme for the global symbols synthesized from class declarations.

// mangleMethod returns the global symbol of a method implementation.
func mangleMethod(ct *typing.ClassType, name string) string {
	return ct.Name() + "." + name
}

// mangleCtor returns the global symbol of a class's default constructor.
func mangleCtor(ct *typing.ClassType) string {
	return ct.Name() + ".$ctor"
}

// mangleVTable returns the global symbol of a class's vtable constant.
func mangleVTable(ct *typing.ClassType) string {
	return ct.Name() + ".$vtable"
}

// mangleToken returns the global symbol of a class's identity token constant.
func mangleToken(ct *typing.ClassType) string {
	return ct.Name() + ".$name"
}
