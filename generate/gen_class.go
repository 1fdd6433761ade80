package generate

import (
	"fmt"

	"cinder/object"
	"cinder/report"
	"cinder/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

// defineClassType defines the LLVM struct type of a class from its flattened
// shape.  Classes referenced by value from another class's fields are defined
// on demand.
func (g *Generator) defineClassType(ct *typing.ClassType) *types.StructType {
	if llTyp, ok := g.classTypes[ct]; ok {
		return llTyp
	}

	model, ok := g.builder.ModelOf(ct)
	if !ok {
		report.ReportICE("class `%s` was not built before generation", ct.Name())
	}

	fieldTypes := make([]types.Type, len(model.Shape.Fields))
	for i, field := range model.Shape.Fields {
		if field.IsVTable {
			fieldTypes[i] = vtablePtrLLType
		} else if fieldClass, ok := field.Type.(*typing.ClassType); ok {
			fieldTypes[i] = g.defineClassType(fieldClass)
		} else {
			fieldTypes[i] = g.convType(field.Type)
		}
	}

	llTyp := types.NewStruct(fieldTypes...)
	g.mod.NewTypeDef(ct.Name(), llTyp)
	g.classTypes[ct] = llTyp
	return llTyp
}

// declareClassFuncs declares the headers of a class's constructor and of
// every method the class itself declares.  Bodies are attached later so that
// vtable constants and call sites may reference the functions in any order.
func (g *Generator) declareClassFuncs(ct *typing.ClassType) {
	selfType := types.NewPointer(g.classTypes[ct])

	ctorName := mangleCtor(ct)
	g.funcs[ctorName] = g.mod.NewFunc(ctorName, types.Void, ir.NewParam("self", selfType))

	for _, method := range ct.Methods {
		name := mangleMethod(ct, method.Name)

		sig := g.convFuncType(method.Signature, selfType)
		params := []*ir.Param{ir.NewParam("self", selfType)}
		for i, paramType := range sig.Params[1:] {
			params = append(params, ir.NewParam(paramName(method.Signature, i), paramType))
		}

		f := g.mod.NewFunc(name, sig.RetType, params...)
		f.Sig.Variadic = sig.Variadic
		g.funcs[name] = f
	}
}

// paramName names the i-th lowered parameter after the implicit self: the
// result output parameter of a throwing signature comes first, then the
// declared parameters.
func paramName(sig *typing.FuncType, i int) string {
	if sig.Throws && !typing.Equals(sig.ReturnType, typing.PrimType(typing.PrimUnit)) {
		if i == 0 {
			return "out"
		}

		i--
	}

	return fmt.Sprintf("p%d", i)
}

// -----------------------------------------------------------------------------

// genClassConstants emits a class's identity token constant and, when the
// class is polymorphic, its vtable constant.
func (g *Generator) genClassConstants(ct *typing.ClassType) {
	// the identity token is the address of a private constant holding the
	// class name; uniqueness of these addresses is assumed not to be broken
	// by constant merging in the surrounding toolchain
	token := g.mod.NewGlobalDef(mangleToken(ct), constant.NewCharArrayFromString(ct.Name()+"\x00"))
	token.Linkage = enum.LinkageInternal
	token.Immutable = true
	g.tokenGlobals[ct] = token

	model, _ := g.builder.ModelOf(ct)
	if model.VTable == nil {
		return
	}

	vt := model.VTable
	entries := make([]constant.Constant, 0, len(vt.Slots)+2)

	// slot 0: the immediate non-virtual parent's vtable, null for a root
	if vt.Parent != nil {
		entries = append(entries, constant.NewBitCast(g.vtGlobals[vt.Parent.Class], types.I8Ptr))
	} else {
		entries = append(entries, constant.NewNull(types.I8Ptr))
	}

	// slot 1: the class's identity token
	entries = append(entries, g.tokenConst(ct))

	// slots 2..N: the virtual method entries in first-declared order
	for _, slot := range vt.Slots {
		impl := g.funcs[mangleMethod(slot.Impl, slot.Name)]
		entries = append(entries, constant.NewBitCast(impl, types.I8Ptr))
	}

	arrType := types.NewArray(uint64(len(entries)), types.I8Ptr)
	vtGlobal := g.mod.NewGlobalDef(mangleVTable(ct), constant.NewArray(arrType, entries...))
	vtGlobal.Linkage = enum.LinkageInternal
	vtGlobal.Immutable = true
	g.vtGlobals[ct] = vtGlobal
}

// tokenConst returns a class's identity token as an `i8*` constant.
func (g *Generator) tokenConst(ct *typing.ClassType) constant.Constant {
	token := g.tokenGlobals[ct]
	return constant.NewGetElementPtr(token.ContentType, token,
		constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 0))
}

// vtableConst returns a class's vtable reference as an `i8**` constant.
func (g *Generator) vtableConst(ct *typing.ClassType) constant.Constant {
	return constant.NewBitCast(g.vtGlobals[ct], vtablePtrLLType)
}

// -----------------------------------------------------------------------------

// genCtor emits a class's synthesized default constructor from its flattened
// plan: every vtable slot receives its region's vtable reference and every
// data field takes its declared default.
func (g *Generator) genCtor(ct *typing.ClassType) {
	model, _ := g.builder.ModelOf(ct)
	f := g.funcs[mangleCtor(ct)]
	self := f.Params[0]

	g.enclosingFunc = f
	g.block = f.NewBlock("entry")
	g.entryBlock = g.block

	llTyp := g.classTypes[ct]

	for _, step := range model.Ctor {
		switch step.Kind {
		case object.CtorInstallVT:
			slotAddr := g.block.NewGetElementPtr(llTyp, self,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(step.Field.Index)))
			g.block.NewStore(g.vtableConst(step.Field.Origin), slotAddr)
		case object.CtorInitField:
			fieldAddr := g.block.NewGetElementPtr(llTyp, self,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(step.Field.Index)))

			// a class stored by value is default-constructed in place
			if fieldClass, ok := step.Field.Type.(*typing.ClassType); ok {
				g.block.NewCall(g.funcs[mangleCtor(fieldClass)], fieldAddr)
				continue
			}

			if init := g.fieldDefault(step.Field.Type, step.Field.Default); init != nil {
				g.block.NewStore(init, fieldAddr)
			}
		}
	}

	g.block.NewRet(nil)
}

// fieldDefault converts a declared field default into a constant of the
// field's type.  Aggregate fields with no declared default return nil: the
// instance arrives zero-filled from the allocator's contract.
func (g *Generator) fieldDefault(typ typing.DataType, def *typing.ConstValue) constant.Constant {
	switch v := typ.(type) {
	case typing.PrimType:
		if v.IsFloating() {
			var x float64
			if def != nil {
				x = def.FloatVal
			}

			return constant.NewFloat(convPrimType(v).(*types.FloatType), x)
		}

		var x int64
		if def != nil {
			x = def.IntVal
		}

		return constant.NewInt(convPrimType(v).(*types.IntType), x)
	case *typing.PointerType:
		return constant.NewNull(g.convType(v).(*types.PointerType))
	}

	return nil
}
