package generate

import (
	"cinder/report"
	"cinder/typing"

	"github.com/llir/llvm/ir/types"
)

// vtablePtrLLType is the LLVM type of a stored vtable pointer.  Vtable slots
// are stored as opaque `i8*` entries, so the pointer itself is `i8**`.
var vtablePtrLLType = types.NewPointer(types.I8Ptr)

// excPtrLLType is the LLVM type of a propagated exception pointer.  The
// pointee class is not statically known along the propagation path, so the
// convention carries exceptions as `i8*` and reinterprets them at handlers.
var excPtrLLType = types.I8Ptr

func (g *Generator) convType(typ typing.DataType) types.Type {
	switch v := typ.(type) {
	case typing.PrimType:
		return convPrimType(v)
	case *typing.PointerType:
		return types.NewPointer(g.convType(v.ElemType))
	case *typing.StructType:
		return g.convStructType(v)
	case *typing.ClassType:
		if llTyp, ok := g.classTypes[v]; ok {
			return llTyp
		}

		report.ReportICE("class `%s` referenced before its type was defined", v.Name())
		return nil
	case *typing.FuncType:
		return types.NewPointer(g.convFuncType(v, nil))
	}

	report.ReportICE("no LLVM conversion for type `%s`", typ.Repr())
	return nil
}

func convPrimType(pt typing.PrimType) types.Type {
	switch pt {
	case typing.PrimI8, typing.PrimU8:
		return types.I8
	case typing.PrimI16, typing.PrimU16:
		return types.I16
	case typing.PrimI32, typing.PrimU32:
		return types.I32
	case typing.PrimI64, typing.PrimU64:
		return types.I64
	case typing.PrimF32:
		return types.Float
	case typing.PrimF64:
		return types.Double
	case typing.PrimBool:
		return types.I1
	}

	// PrimUnit
	return types.Void
}

// convStructType converts a plain aggregate.  Opaque aggregates convert to
// opaque LLVM struct types: usable behind pointers, never by value.
func (g *Generator) convStructType(st *typing.StructType) types.Type {
	if llTyp, ok := g.structTypes[st]; ok {
		return llTyp
	}

	var llTyp types.Type
	if st.Opaque {
		llTyp = g.mod.NewTypeDef(st.Name(), &types.StructType{Opaque: true})
	} else {
		fieldTypes := make([]types.Type, len(st.Fields))
		for i, field := range st.Fields {
			fieldTypes[i] = g.convType(field.Type)
		}

		llTyp = g.mod.NewTypeDef(st.Name(), types.NewStruct(fieldTypes...))
	}

	g.structTypes[st] = llTyp
	return llTyp
}

// convFuncType converts a function signature to its lowered LLVM form.  For
// exception-aware signatures, the declared result moves to a leading output
// parameter and the return type becomes the exception pointer.  A non-nil
// selfType prepends the implicit instance parameter of a method.
func (g *Generator) convFuncType(ft *typing.FuncType, selfType types.Type) *types.FuncType {
	var params []types.Type

	if selfType != nil {
		params = append(params, selfType)
	}

	retType := g.convType(ft.ReturnType)
	if ft.Throws {
		if !retType.Equal(types.Void) {
			params = append(params, types.NewPointer(retType))
		}

		retType = excPtrLLType
	}

	for _, paramType := range ft.ParamTypes {
		params = append(params, g.convType(paramType))
	}

	llFt := types.NewFunc(retType, params...)
	llFt.Variadic = ft.Variadic
	return llFt
}
