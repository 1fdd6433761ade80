package generate

import (
	"cinder/ast"
	"cinder/report"
	"cinder/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// declareFunc declares the header of a free function.
func (g *Generator) declareFunc(fd *ast.FuncDef) {
	sig := g.convFuncType(fd.Signature, nil)

	var params []*ir.Param
	n := 0

	if fd.Signature.Throws && !typing.Equals(fd.Signature.ReturnType, typing.PrimType(typing.PrimUnit)) {
		params = append(params, ir.NewParam("out", sig.Params[0]))
		n++
	}

	for _, declared := range fd.Params {
		params = append(params, ir.NewParam(declared.Name, sig.Params[n]))
		n++
	}

	f := g.mod.NewFunc(fd.Name, sig.RetType, params...)
	f.Sig.Variadic = sig.Variadic

	g.funcs[fd.Name] = f
	g.funcDefs[fd.Name] = fd
}

// genGlobalVar generates a global variable declaration.  Globals are
// zero-initialized; running initializer code belongs to the out-of-scope
// runtime startup.
func (g *Generator) genGlobalVar(gvd *ast.GlobalVarDecl) {
	glob := g.mod.NewGlobal(gvd.Name, g.convType(gvd.Type))
	glob.Init = g.zeroValue(gvd.Type)

	g.globalScope[gvd.Name] = LLVMIdent{Val: glob, Mutable: true}
}

// -----------------------------------------------------------------------------

// genFuncBody generates the body of a free function.  A nil body leaves the
// function as an external declaration.
func (g *Generator) genFuncBody(fd *ast.FuncDef) {
	if fd.Body == nil {
		return
	}

	f := g.funcs[fd.Name]
	g.startFunc(f, fd.Signature, nil)

	g.pushScope()
	defer g.popScope()

	g.bindParams(f, fd.Signature, fd.Params, 0)

	g.genStmt(fd.Body)
	g.terminateFunc(fd.Signature)
}

// genMethodBody generates the body of a method declared on a class.
func (g *Generator) genMethodBody(md *ast.MethodDef) {
	owner, method := md.Class.FindMethod(md.Name)
	if method == nil || owner != md.Class {
		panic(report.Raise(report.ErrKindSymbol, md.Class.Name(),
			"method body supplied for undeclared method `%s`", md.Name))
	}

	if md.Body == nil {
		return
	}

	f := g.funcs[mangleMethod(md.Class, md.Name)]
	g.startFunc(f, method.Signature, f.Params[0])

	g.pushScope()
	defer g.popScope()

	g.bindParams(f, method.Signature, md.Params, 1)

	g.genStmt(md.Body)
	g.terminateFunc(method.Signature)
}

// -----------------------------------------------------------------------------

// startFunc positions the generator at a fresh entry block of a function and
// records its exception convention state.
func (g *Generator) startFunc(f *ir.Func, sig *typing.FuncType, self value.Value) {
	g.enclosingFunc = f
	g.enclosingThrows = sig.Throws
	g.selfParam = self
	g.outParam = nil
	g.handlers = nil

	if sig.Throws && !typing.Equals(sig.ReturnType, typing.PrimType(typing.PrimUnit)) {
		if self != nil {
			g.outParam = f.Params[1]
		} else {
			g.outParam = f.Params[0]
		}
	}

	g.block = f.NewBlock("entry")
	g.entryBlock = g.block
}

// bindParams declares the function's parameters as local variables.  Mutable
// parameters are demoted to stack cells unconditionally; the external
// promotion pass is responsible for lifting the ones that are never
// address-taken back into temporaries.
func (g *Generator) bindParams(f *ir.Func, sig *typing.FuncType, declared []*ast.FuncParam, offset int) {
	if g.outParam != nil {
		offset++
	}

	for i, param := range declared {
		llParam := f.Params[offset+i]

		if param.Constant {
			g.defineLocal(param.Name, llParam, false)
		} else {
			cell := g.allocaInEntry(llParam.Type())
			g.block.NewStore(llParam, cell)
			g.defineLocal(param.Name, cell, true)
		}
	}
}

// terminateFunc closes the final block of a function with its implicit
// return if control may still fall off the end.  No block is ever left
// without an explicit terminator.
func (g *Generator) terminateFunc(sig *typing.FuncType) {
	if g.block.Term != nil {
		return
	}

	switch {
	case sig.Throws:
		g.block.NewRet(constant.NewNull(excPtrLLType))
	case typing.Equals(sig.ReturnType, typing.PrimType(typing.PrimUnit)):
		g.block.NewRet(nil)
	default:
		g.block.NewRet(g.zeroValue(sig.ReturnType))
	}
}

// zeroValue produces the zero constant of a type.
func (g *Generator) zeroValue(typ typing.DataType) constant.Constant {
	switch v := typ.(type) {
	case typing.PrimType:
		if v.IsFloating() {
			return constant.NewFloat(convPrimType(v).(*types.FloatType), 0)
		}

		return constant.NewInt(convPrimType(v).(*types.IntType), 0)
	case *typing.PointerType:
		return constant.NewNull(g.convType(v).(*types.PointerType))
	}

	return constant.NewZeroInitializer(g.convType(typ))
}
