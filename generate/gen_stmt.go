package generate

import (
	"cinder/ast"
	"cinder/report"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// genStmt generates a statement into the current block.
func (g *Generator) genStmt(stmt ast.Stmt) {
	switch v := stmt.(type) {
	case *ast.Block:
		g.pushScope()
		for _, inner := range v.Stmts {
			// statements after a terminator are unreachable and not emitted
			if g.block.Term != nil {
				break
			}

			g.genStmt(inner)
		}
		g.popScope()
	case *ast.VarDecl:
		g.genVarDecl(v)
	case *ast.Assign:
		addr := g.genLValue(v.Lhs)
		g.block.NewStore(g.genExpr(v.Rhs), addr)
	case *ast.If:
		g.genIf(v)
	case *ast.While:
		g.genWhile(v)
	case *ast.Return:
		g.genReturn(v)
	case *ast.Throw:
		exc := g.block.NewBitCast(g.genExpr(v.Value), excPtrLLType)
		g.raiseExc(exc)
	case *ast.TryCatch:
		g.genTryCatch(v)
	case *ast.ExprStmt:
		g.genExpr(v.Expr)
	case *ast.Delete:
		raw := g.block.NewBitCast(g.genExpr(v.Operand), types.I8Ptr)
		g.block.NewCall(g.runtime.release, raw)
	default:
		report.ReportICE("statement lowering not implemented for %T", stmt)
	}
}

// genVarDecl lowers a local variable declaration.  Every local is allocated
// as a stack cell unconditionally, whether or not its address is ever taken:
// tracking definition dominance in the emitter is traded away in favor of the
// external memory-to-register promotion pass.
func (g *Generator) genVarDecl(vd *ast.VarDecl) {
	cell := g.allocaInEntry(g.convType(vd.Type))

	if vd.Init != nil {
		g.block.NewStore(g.genExpr(vd.Init), cell)
	} else {
		g.block.NewStore(g.zeroValue(vd.Type), cell)
	}

	g.defineLocal(vd.Name, cell, true)
}

// genIf lowers a two-way conditional.  Both arms branch to a common end
// block; no block falls through implicitly.
func (g *Generator) genIf(stmt *ast.If) {
	thenBlock := g.appendBlock()
	endBlock := g.appendBlock()

	elseBlock := endBlock
	if stmt.Else != nil {
		elseBlock = g.appendBlock()
	}

	cond := g.genExpr(stmt.Cond)
	g.block.NewCondBr(cond, thenBlock, elseBlock)

	g.block = thenBlock
	g.genStmt(stmt.Then)
	if g.block.Term == nil {
		g.block.NewBr(endBlock)
	}

	if stmt.Else != nil {
		g.block = elseBlock
		g.genStmt(stmt.Else)
		if g.block.Term == nil {
			g.block.NewBr(endBlock)
		}
	}

	g.block = endBlock
}

// genWhile lowers a pre-tested loop.  The condition lives in its own header
// block so the back edge re-evaluates only the condition.
func (g *Generator) genWhile(stmt *ast.While) {
	headerBlock := g.appendBlock()
	bodyBlock := g.appendBlock()
	endBlock := g.appendBlock()

	g.block.NewBr(headerBlock)

	g.block = headerBlock
	cond := g.genExpr(stmt.Cond)
	g.block.NewCondBr(cond, bodyBlock, endBlock)

	g.block = bodyBlock
	g.genStmt(stmt.Body)
	if g.block.Term == nil {
		g.block.NewBr(headerBlock)
	}

	g.block = endBlock
}

// genReturn lowers a return statement.  In an exception-aware function the
// declared result is delivered through the output parameter and the returned
// value is the null exception pointer signalling success.
func (g *Generator) genReturn(stmt *ast.Return) {
	if g.enclosingThrows {
		if stmt.Value != nil {
			g.block.NewStore(g.genExpr(stmt.Value), g.outParam)
		}

		g.block.NewRet(constant.NewNull(excPtrLLType))
		return
	}

	if stmt.Value != nil {
		g.block.NewRet(g.genExpr(stmt.Value))
	} else {
		g.block.NewRet(nil)
	}
}

// -----------------------------------------------------------------------------

// raiseExc routes a live exception pointer out of the current block: into the
// innermost handler if one is active, else out of the enclosing function if
// it is exception-aware, else into the toolchain's terminal handler.  The
// current block is terminated in all three cases.
//
// No cleanup code runs along this path: any local needing cleanup must have
// explicit release calls inserted by the body before the raising operation.
func (g *Generator) raiseExc(exc value.Value) {
	if handler, ok := g.currentHandler(); ok {
		g.block.NewStore(exc, handler.Slot)
		g.block.NewBr(handler.Block)
		return
	}

	if g.enclosingThrows {
		g.block.NewRet(exc)
		return
	}

	g.block.NewCall(g.runtime.unhandled, exc)
	g.block.NewUnreachable()
}

// checkExc emits the mandatory null test after a call to an exception-aware
// function.  A non-null exception pointer transitions the caller into the
// propagating state; generation resumes in the continuation block taken on
// null.
func (g *Generator) checkExc(exc value.Value) {
	raiseBlock := g.appendBlock()
	contBlock := g.appendBlock()

	isNull := g.block.NewICmp(enum.IPredEQ, exc, constant.NewNull(excPtrLLType))
	g.block.NewCondBr(isNull, contBlock, raiseBlock)

	g.block = raiseBlock
	g.raiseExc(exc)

	g.block = contBlock
}

// genTryCatch lowers a try/catch statement.  The body's calls store any
// received exception into the handler slot and branch to the dispatch block,
// which classifies the exception against the catch clauses in declaration
// order and takes the first match.
func (g *Generator) genTryCatch(stmt *ast.TryCatch) {
	slot := g.allocaInEntry(excPtrLLType)
	dispatchBlock := g.appendBlock()
	endBlock := g.appendBlock()

	g.pushHandler(excHandler{Slot: slot, Block: dispatchBlock})
	g.genStmt(stmt.Body)
	g.popHandler()

	if g.block.Term == nil {
		g.block.NewBr(endBlock)
	}

	// dispatch: classify the caught exception against each clause
	g.block = dispatchBlock
	exc := g.block.NewLoad(excPtrLLType, slot)

	matched := false
	for _, clause := range stmt.Catches {
		bodyBlock := g.appendBlock()

		if clause.Class == nil {
			// catch-all matches unconditionally
			g.block.NewBr(bodyBlock)
			matched = true
		} else {
			nextBlock := g.appendBlock()

			vt := g.loadVTablePtr(exc)
			isMatch := g.block.NewCall(g.runtime.isa, vt, g.tokenConst(clause.Class))
			g.block.NewCondBr(isMatch, bodyBlock, nextBlock)

			g.block = nextBlock
		}

		unmatchedBlock := g.block

		g.block = bodyBlock
		g.pushScope()
		if clause.Name != "" {
			bindType := excPtrLLType
			if clause.Class != nil {
				bindType = types.NewPointer(g.classTypes[clause.Class])
			}

			cell := g.allocaInEntry(bindType)
			g.block.NewStore(g.block.NewBitCast(exc, bindType), cell)
			g.defineLocal(clause.Name, cell, true)
		}
		g.genStmt(clause.Body)
		g.popScope()

		if g.block.Term == nil {
			g.block.NewBr(endBlock)
		}

		g.block = unmatchedBlock

		if matched {
			break
		}
	}

	// no clause matched: the exception keeps propagating
	if !matched {
		g.raiseExc(exc)
	}

	g.block = endBlock
}

// loadVTablePtr loads the vtable pointer stored at field 0 of an instance
// referenced through an opaque exception pointer.
func (g *Generator) loadVTablePtr(exc value.Value) value.Value {
	vtAddr := g.block.NewBitCast(exc, types.NewPointer(vtablePtrLLType))
	return g.block.NewLoad(vtablePtrLLType, vtAddr)
}
