package generate

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// adjustPtr reinterprets a pointer at a byte offset from its address.  The
// offsets come from the layout engine's flattened shapes; this is the pointer
// arithmetic through which every inheritance path to a collapsed base
// resolves to its single stored instance.
func (g *Generator) adjustPtr(ptr value.Value, offset int, to types.Type) value.Value {
	if offset == 0 {
		if ptr.Type().Equal(to) {
			return ptr
		}

		return g.block.NewBitCast(ptr, to)
	}

	raw := g.block.NewBitCast(ptr, types.I8Ptr)
	adjusted := g.block.NewGetElementPtr(types.I8, raw, constant.NewInt(types.I64, int64(offset)))
	return g.block.NewBitCast(adjusted, to)
}
