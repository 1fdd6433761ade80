package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

// runtimeDecls holds the external runtime collaborators the lowered code
// calls into.  All of them are opaque, pre-existing routines supplied by the
// surrounding toolchain; the backend only declares them.
type runtimeDecls struct {
	// alloc is `cinder_alloc(size) -> address`.  It reports failure through
	// its null sentinel; checking it is the caller's responsibility.
	alloc *ir.Func

	// release is `cinder_release(address)`.
	release *ir.Func

	// memcopy is `cinder_memcopy(dst, src, size)`, a raw byte copy.
	memcopy *ir.Func

	// unhandled is `cinder_unhandled(exc)`: the toolchain's terminal handler
	// for an exception that escapes a function compiled without propagation.
	unhandled *ir.Func

	// isa is the emitted classification helper: it walks a vtable's parent
	// chain comparing identity tokens.
	isa *ir.Func
}

// declareRuntime declares the external runtime collaborators and the header
// of the classification helper.
func (g *Generator) declareRuntime() {
	g.runtime.alloc = g.mod.NewFunc("cinder_alloc", types.I8Ptr, ir.NewParam("size", types.I64))
	g.runtime.release = g.mod.NewFunc("cinder_release", types.Void, ir.NewParam("addr", types.I8Ptr))
	g.runtime.memcopy = g.mod.NewFunc("cinder_memcopy", types.Void,
		ir.NewParam("dst", types.I8Ptr), ir.NewParam("src", types.I8Ptr), ir.NewParam("size", types.I64))
	g.runtime.unhandled = g.mod.NewFunc("cinder_unhandled", types.Void, ir.NewParam("exc", excPtrLLType))

	g.runtime.isa = g.mod.NewFunc("cinder.isa", types.I1,
		ir.NewParam("vt", vtablePtrLLType), ir.NewParam("token", types.I8Ptr))
	g.runtime.isa.Linkage = enum.LinkageInternal
}

// emitIsAHelper emits the body of the classification helper:
//
//	is_a(vt, token):
//	    while vt != null:
//	        if vt[1] == token: return true
//	        vt = vt[0]
//	    return false
//
// Slot 0 of a vtable is the parent table reference and slot 1 is the class's
// identity token, so the loop walks the ancestry chain comparing tokens.
func (g *Generator) emitIsAHelper() {
	f := g.runtime.isa
	vtParam := f.Params[0]
	tokenParam := f.Params[1]

	entry := f.NewBlock("entry")
	loop := f.NewBlock("loop")
	check := f.NewBlock("check")
	next := f.NewBlock("next")
	found := f.NewBlock("found")
	missed := f.NewBlock("missed")

	entry.NewBr(loop)

	vtPhi := loop.NewPhi(ir.NewIncoming(vtParam, entry))
	isNull := loop.NewICmp(enum.IPredEQ, vtPhi, constant.NewNull(vtablePtrLLType))
	loop.NewCondBr(isNull, missed, check)

	tokenAddr := check.NewGetElementPtr(types.I8Ptr, vtPhi, constant.NewInt(types.I64, 1))
	storedToken := check.NewLoad(types.I8Ptr, tokenAddr)
	tokenEq := check.NewICmp(enum.IPredEQ, storedToken, tokenParam)
	check.NewCondBr(tokenEq, found, next)

	parentAddr := next.NewGetElementPtr(types.I8Ptr, vtPhi, constant.NewInt(types.I64, 0))
	parentRaw := next.NewLoad(types.I8Ptr, parentAddr)
	parent := next.NewBitCast(parentRaw, vtablePtrLLType)
	next.NewBr(loop)

	vtPhi.Incs = append(vtPhi.Incs, ir.NewIncoming(parent, next))

	found.NewRet(constant.True)
	missed.NewRet(constant.False)
}
