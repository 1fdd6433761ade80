package generate

import (
	"strconv"

	"cinder/ast"
	"cinder/report"
	"cinder/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// genExpr generates an expression into the current block and returns its
// value.
func (g *Generator) genExpr(expr ast.Expr) value.Value {
	switch v := expr.(type) {
	case *ast.Literal:
		return g.genLiteral(v)
	case *ast.Null:
		return constant.NewNull(g.convType(v.Type()).(*types.PointerType))
	case *ast.Identifier:
		{
			val, mutable, ok := g.lookup(v.Name)
			if !ok {
				panic(report.Raise(report.ErrKindSymbol, v.Name,
					"reference to undeclared symbol `%s`", v.Name))
			}

			if mutable {
				// stack cells are always wrapped in pointers
				return g.block.NewLoad(val.Type().(*types.PointerType).ElemType, val)
			}

			return val
		}
	case *ast.SelfRef:
		return g.selfParam
	case *ast.FieldAccess:
		{
			addr, elemType := g.genFieldAddr(v)
			return g.block.NewLoad(elemType, addr)
		}
	case *ast.Call:
		return g.genCall(v)
	case *ast.MethodCall:
		return g.genMethodCall(v)
	case *ast.New:
		return g.genNew(v)
	case *ast.Cast:
		return g.genCast(v)
	case *ast.BaseRef:
		return g.genBaseRef(v)
	case *ast.Binary:
		return g.genBinary(v)
	case *ast.IsA:
		{
			vt := g.loadVTablePtr(g.block.NewBitCast(g.genExpr(v.Instance), types.I8Ptr))
			return g.block.NewCall(g.runtime.isa, vt, g.tokenConst(v.Target))
		}
	}

	report.ReportICE("expression lowering not implemented for %T", expr)
	return nil
}

// genLValue generates the address of an assignable expression.
func (g *Generator) genLValue(expr ast.Expr) value.Value {
	switch v := expr.(type) {
	case *ast.Identifier:
		{
			val, mutable, ok := g.lookup(v.Name)
			if !ok {
				panic(report.Raise(report.ErrKindSymbol, v.Name,
					"reference to undeclared symbol `%s`", v.Name))
			}

			if !mutable {
				report.ReportICE("assignment to immutable binding `%s`", v.Name)
			}

			return val
		}
	case *ast.FieldAccess:
		addr, _ := g.genFieldAddr(v)
		return addr
	}

	report.ReportICE("expression is not assignable: %T", expr)
	return nil
}

// genFieldAddr computes the address of a field accessed through a pointer to
// a class or aggregate instance, returning the address and the field's
// element type.
func (g *Generator) genFieldAddr(fa *ast.FieldAccess) (value.Value, types.Type) {
	instance := g.genExpr(fa.Instance)

	ptrType, ok := fa.Instance.Type().(*typing.PointerType)
	if !ok {
		report.ReportICE("field access through non-pointer type `%s`", fa.Instance.Type().Repr())
	}

	switch owner := ptrType.ElemType.(type) {
	case *typing.ClassType:
		{
			model, _ := g.builder.ModelOf(owner)
			field, ok := model.Shape.ResolveField(fa.FieldName)
			if !ok {
				panic(report.Raise(report.ErrKindSymbol, owner.Name(),
					"class `%s` has no field `%s`", owner.Name(), fa.FieldName))
			}

			addr := g.block.NewGetElementPtr(g.classTypes[owner], instance,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(field.Index)))
			return addr, g.convType(field.Type)
		}
	case *typing.StructType:
		{
			index, ok := owner.FieldsByName[fa.FieldName]
			if !ok {
				panic(report.Raise(report.ErrKindSymbol, owner.Name(),
					"aggregate `%s` has no field `%s`", owner.Name(), fa.FieldName))
			}

			addr := g.block.NewGetElementPtr(g.convStructType(owner), instance,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(index)))
			return addr, g.convType(owner.Fields[index].Type)
		}
	}

	report.ReportICE("field access through non-aggregate type `%s`", ptrType.Repr())
	return nil, nil
}

// -----------------------------------------------------------------------------

// genCall generates a call to a free function, including the exception check
// mandated by the propagation convention for exception-aware callees.
func (g *Generator) genCall(call *ast.Call) value.Value {
	fd, ok := g.funcDefs[call.FuncName]
	if !ok {
		panic(report.Raise(report.ErrKindSymbol, call.FuncName,
			"call to undeclared function `%s`", call.FuncName))
	}

	sig := fd.Signature
	if sig.Variadic && len(call.ArgTypes) < len(sig.ParamTypes) {
		report.ReportICE("variadic call to `%s` must restate the full signature at the call site", call.FuncName)
	}

	var args []value.Value
	for _, arg := range call.Args {
		args = append(args, g.genExpr(arg))
	}

	return g.genLoweredCall(g.funcs[call.FuncName], sig, nil, args)
}

// genLoweredCall emits a call under the lowered convention: self first (for
// methods), then the result output pointer (for throwing non-unit callees),
// then the declared arguments.  For exception-aware callees, the returned
// exception pointer is compared against null immediately; the caller never
// proceeds in the propagating state.
func (g *Generator) genLoweredCall(callee value.Value, sig *typing.FuncType, self value.Value, args []value.Value) value.Value {
	var loweredArgs []value.Value
	if self != nil {
		loweredArgs = append(loweredArgs, self)
	}

	if !sig.Throws {
		loweredArgs = append(loweredArgs, args...)
		return g.block.NewCall(callee, loweredArgs...)
	}

	hasResult := !typing.Equals(sig.ReturnType, typing.PrimType(typing.PrimUnit))

	var outSlot value.Value
	if hasResult {
		outSlot = g.allocaInEntry(g.convType(sig.ReturnType))
		loweredArgs = append(loweredArgs, outSlot)
	}

	loweredArgs = append(loweredArgs, args...)

	exc := g.block.NewCall(callee, loweredArgs...)
	g.checkExc(exc)

	if hasResult {
		return g.block.NewLoad(g.convType(sig.ReturnType), outSlot)
	}

	return nil
}

// genMethodCall generates a method call, compiling it to either a direct call
// (with the instance pointer adjusted to the declaring base's sub-region) or
// an indirect call through the vtable (with the original instance pointer, so
// an overriding method always sees the full derived instance).
func (g *Generator) genMethodCall(call *ast.MethodCall) value.Value {
	ptrType, ok := call.Instance.Type().(*typing.PointerType)
	if !ok {
		report.ReportICE("method call through non-pointer type `%s`", call.Instance.Type().Repr())
	}

	static, ok := ptrType.ElemType.(*typing.ClassType)
	if !ok {
		report.ReportICE("method call on non-class type `%s`", ptrType.ElemType.Repr())
	}

	target, err := g.builder.ResolveCall(static, call.MethodName)
	if err != nil {
		panic(err)
	}

	instance := g.genExpr(call.Instance)

	var args []value.Value
	for _, arg := range call.Args {
		args = append(args, g.genExpr(arg))
	}

	if !target.Virtual {
		self := g.adjustPtr(instance, target.RegionOffset, types.NewPointer(g.classTypes[target.Owner]))
		return g.genLoweredCall(g.funcs[mangleMethod(target.Owner, call.MethodName)], target.Method.Signature, self, args)
	}

	// virtual dispatch: load the vtable pointer from field 0, load the method
	// reference from its fixed slot, invoke indirectly
	vt := g.loadVTablePtr(g.block.NewBitCast(instance, types.I8Ptr))

	entryAddr := g.block.NewGetElementPtr(types.I8Ptr, vt,
		constant.NewInt(types.I64, int64(target.Slot.Index+2)))
	entryRaw := g.block.NewLoad(types.I8Ptr, entryAddr)

	declType := types.NewPointer(g.classTypes[target.Slot.Decl])
	fnType := g.convFuncType(target.Slot.Signature, declType)
	fn := g.block.NewBitCast(entryRaw, types.NewPointer(fnType))

	self := g.block.NewBitCast(instance, declType)
	return g.genLoweredCall(fn, target.Slot.Signature, self, args)
}

// genNew generates an allocation plus default construction.  A failed
// allocation yields the allocator's null sentinel unconstructed.
func (g *Generator) genNew(n *ast.New) value.Value {
	model, ok := g.builder.ModelOf(n.Class)
	if !ok {
		report.ReportICE("new of unbuilt class `%s`", n.Class.Name())
	}

	instanceType := types.NewPointer(g.classTypes[n.Class])

	raw := g.block.NewCall(g.runtime.alloc, constant.NewInt(types.I64, int64(model.Shape.Size)))

	allocBlock := g.block
	ctorBlock := g.appendBlock()
	endBlock := g.appendBlock()

	isNull := g.block.NewICmp(enum.IPredEQ, raw, constant.NewNull(types.I8Ptr))
	g.block.NewCondBr(isNull, endBlock, ctorBlock)

	g.block = ctorBlock
	instance := g.block.NewBitCast(raw, instanceType)
	g.block.NewCall(g.funcs[mangleCtor(n.Class)], instance)
	g.block.NewBr(endBlock)

	g.block = endBlock
	return g.block.NewPhi(
		ir.NewIncoming(constant.NewNull(instanceType), allocBlock),
		ir.NewIncoming(instance, ctorBlock),
	)
}

// genBaseRef reinterprets a class instance pointer as a pointer to one of its
// base classes by adjusting to the base's sub-region offset.
func (g *Generator) genBaseRef(br *ast.BaseRef) value.Value {
	ptrType, ok := br.Instance.Type().(*typing.PointerType)
	if !ok {
		report.ReportICE("base reference through non-pointer type `%s`", br.Instance.Type().Repr())
	}

	derived, ok := ptrType.ElemType.(*typing.ClassType)
	if !ok {
		report.ReportICE("base reference on non-class type `%s`", ptrType.ElemType.Repr())
	}

	model, _ := g.builder.ModelOf(derived)
	offset, ok := model.Shape.Region(br.Base)
	if !ok {
		panic(report.Raise(report.ErrKindSymbol, derived.Name(),
			"class `%s` does not inherit from `%s`", derived.Name(), br.Base.Name()))
	}

	return g.adjustPtr(g.genExpr(br.Instance), offset, types.NewPointer(g.classTypes[br.Base]))
}

// -----------------------------------------------------------------------------

// genBinary generates a binary operation, selecting the signed, unsigned, or
// floating variant of the instruction from the operand type.
func (g *Generator) genBinary(bin *ast.Binary) value.Value {
	lhs := g.genExpr(bin.Lhs)
	rhs := g.genExpr(bin.Rhs)

	pt, isPrim := bin.Lhs.Type().(typing.PrimType)

	if isPrim && pt.IsFloating() {
		switch bin.Op {
		case ast.OpAdd:
			return g.block.NewFAdd(lhs, rhs)
		case ast.OpSub:
			return g.block.NewFSub(lhs, rhs)
		case ast.OpMul:
			return g.block.NewFMul(lhs, rhs)
		case ast.OpDiv:
			return g.block.NewFDiv(lhs, rhs)
		case ast.OpEq:
			return g.block.NewFCmp(enum.FPredOEQ, lhs, rhs)
		case ast.OpNeq:
			return g.block.NewFCmp(enum.FPredONE, lhs, rhs)
		case ast.OpLt:
			return g.block.NewFCmp(enum.FPredOLT, lhs, rhs)
		case ast.OpGt:
			return g.block.NewFCmp(enum.FPredOGT, lhs, rhs)
		}
	}

	signed := isPrim && pt.IsSigned()

	switch bin.Op {
	case ast.OpAdd:
		return g.block.NewAdd(lhs, rhs)
	case ast.OpSub:
		return g.block.NewSub(lhs, rhs)
	case ast.OpMul:
		return g.block.NewMul(lhs, rhs)
	case ast.OpDiv:
		if signed {
			return g.block.NewSDiv(lhs, rhs)
		}

		return g.block.NewUDiv(lhs, rhs)
	case ast.OpEq:
		return g.block.NewICmp(enum.IPredEQ, lhs, rhs)
	case ast.OpNeq:
		return g.block.NewICmp(enum.IPredNE, lhs, rhs)
	case ast.OpLt:
		if signed {
			return g.block.NewICmp(enum.IPredSLT, lhs, rhs)
		}

		return g.block.NewICmp(enum.IPredULT, lhs, rhs)
	case ast.OpGt:
		if signed {
			return g.block.NewICmp(enum.IPredSGT, lhs, rhs)
		}

		return g.block.NewICmp(enum.IPredUGT, lhs, rhs)
	}

	report.ReportICE("binary operator lowering not implemented for %d", bin.Op)
	return nil
}

// genLiteral generates a primitive literal constant.
func (g *Generator) genLiteral(lit *ast.Literal) value.Value {
	pt, ok := lit.Type().(typing.PrimType)
	if !ok {
		report.ReportICE("literal of non-primitive type `%s`", lit.Type().Repr())
	}

	switch pt {
	case typing.PrimBool:
		return constant.NewBool(lit.Value == "true")
	case typing.PrimF32, typing.PrimF64:
		{
			// should always succeed: values are validated at declaration time
			x, _ := strconv.ParseFloat(lit.Value, 64)
			return constant.NewFloat(convPrimType(pt).(*types.FloatType), x)
		}
	default:
		{
			x, _ := strconv.ParseInt(lit.Value, 0, 64)
			return constant.NewInt(convPrimType(pt).(*types.IntType), x)
		}
	}
}
