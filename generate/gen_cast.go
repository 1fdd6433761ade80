package generate

import (
	"cinder/ast"
	"cinder/report"

	"github.com/llir/llvm/ir/value"
)

// genCast generates one of the six distinct conversion operations.  The six
// are deliberately separate operations rather than one polymorphic "convert":
// widening a signed value with a zero-extension silently produces a wrong
// result, so the choice of variant is part of the input, never inferred here.
func (g *Generator) genCast(cast *ast.Cast) value.Value {
	src := g.genExpr(cast.Src)
	dstType := g.convType(cast.Type())

	switch cast.Kind {
	case ast.CastBit:
		g.checkBitCastSizes(cast)
		return g.block.NewBitCast(src, dstType)
	case ast.CastZeroExt:
		return g.block.NewZExt(src, dstType)
	case ast.CastSignExt:
		return g.block.NewSExt(src, dstType)
	case ast.CastTrunc:
		// identical for signed and unsigned: storage is two's-complement
		return g.block.NewTrunc(src, dstType)
	case ast.CastFPExt:
		return g.block.NewFPExt(src, dstType)
	case ast.CastFPTrunc:
		return g.block.NewFPTrunc(src, dstType)
	}

	report.ReportICE("cast lowering not implemented for kind %d", cast.Kind)
	return nil
}

// checkBitCastSizes verifies a bitwise reinterpretation relates types of
// equal storage size.
func (g *Generator) checkBitCastSizes(cast *ast.Cast) {
	srcLay, err := g.eng.Of(cast.Src.Type())
	if err != nil {
		panic(err)
	}

	dstLay, err := g.eng.Of(cast.Type())
	if err != nil {
		panic(err)
	}

	if srcLay.Size != dstLay.Size {
		report.ReportICE("bitwise reinterpretation between `%s` and `%s` of unequal sizes %d and %d",
			cast.Src.Type().Repr(), cast.Type().Repr(), srcLay.Size, dstLay.Size)
	}
}
