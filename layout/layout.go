// Package layout implements the type layout engine: it computes the concrete
// in-memory shape (size, alignment, field offsets) of every type in a
// declaration set, including the flattening of inherited fields and the
// collapse of virtually inherited bases.
package layout

import (
	"cinder/report"
	"cinder/typing"
)

// Layout describes the computed shape of a type.
type Layout struct {
	// Size is the total size of the type in bytes, rounded up to Align.
	Size int

	// Align is the natural alignment of the type in bytes.
	Align int

	// FieldOffsets gives the byte offset of each field for aggregate types.
	// It is empty for scalars.
	FieldOffsets []int
}

// Engine computes and caches type layouts for one compilation unit.  A class
// shape is computed at most once; base classes are always laid out before any
// class that inherits from them.
type Engine struct {
	// ptrSize is the target pointer size in bytes.
	ptrSize int

	// shapes caches the computed shape of each class.
	shapes map[*typing.ClassType]*ClassShape

	// inProgress tracks classes whose layout has started but not finished.
	// A class rediscovered while in progress means the base graph is cyclic.
	inProgress map[*typing.ClassType]bool
}

// NewEngine creates a new layout engine for the given pointer size.
func NewEngine(ptrSize int) *Engine {
	return &Engine{
		ptrSize:    ptrSize,
		shapes:     make(map[*typing.ClassType]*ClassShape),
		inProgress: make(map[*typing.ClassType]bool),
	}
}

// Of computes the layout of a type.  It fails with a layout error if the type
// is an opaque aggregate (which has no size), with a cycle error if a class's
// base graph is cyclic, and with an inheritance error if virtual-base
// collapse is impossible.
func (e *Engine) Of(typ typing.DataType) (lay *Layout, err error) {
	defer catchLayoutError(&err)
	return e.layoutOf(typ), nil
}

// ShapeOf computes the full flattened shape of a class.  The error conditions
// are the same as for Of.
func (e *Engine) ShapeOf(ct *typing.ClassType) (shape *ClassShape, err error) {
	defer catchLayoutError(&err)
	return e.shapeOf(ct), nil
}

// PtrSize returns the engine's target pointer size in bytes.
func (e *Engine) PtrSize() int {
	return e.ptrSize
}

// -----------------------------------------------------------------------------

// layoutOf is the internal, panicking implementation of Of.
func (e *Engine) layoutOf(typ typing.DataType) *Layout {
	switch v := typ.(type) {
	case typing.PrimType:
		size := v.StorageSize()

		align := size
		if align == 0 {
			align = 1
		}

		return &Layout{Size: size, Align: align}
	case *typing.PointerType:
		return &Layout{Size: e.ptrSize, Align: e.ptrSize}
	case *typing.StructType:
		return e.layoutStruct(v)
	case *typing.ClassType:
		shape := e.shapeOf(v)

		offsets := make([]int, len(shape.Fields))
		for i, field := range shape.Fields {
			offsets[i] = field.Offset
		}

		return &Layout{Size: shape.Size, Align: shape.Align, FieldOffsets: offsets}
	case *typing.FuncType:
		// function values are only ever manipulated through pointers
		return &Layout{Size: e.ptrSize, Align: e.ptrSize}
	}

	report.ReportICE("layout requested for unknown type %s", typ.Repr())
	return nil
}

// layoutStruct computes the layout of a plain aggregate: each field's offset
// is the running cursor rounded up to the field's alignment, and the final
// size is the cursor rounded up to the aggregate's alignment.
func (e *Engine) layoutStruct(st *typing.StructType) *Layout {
	if st.Opaque {
		raise(report.ErrKindLayout, st.Name(),
			"opaque type `%s` used by value: opaque types may only be referenced through pointers", st.Name())
	}

	cursor := 0
	maxAlign := 1
	offsets := make([]int, len(st.Fields))

	for i, field := range st.Fields {
		fieldLay := e.layoutOf(e.checkComplete(field.Type, st.Name()))

		cursor = alignUp(cursor, fieldLay.Align)
		offsets[i] = cursor
		cursor += fieldLay.Size

		if fieldLay.Align > maxAlign {
			maxAlign = fieldLay.Align
		}
	}

	return &Layout{
		Size:         alignUp(cursor, maxAlign),
		Align:        maxAlign,
		FieldOffsets: offsets,
	}
}

// checkComplete raises a layout error if a by-value field type is incomplete.
func (e *Engine) checkComplete(typ typing.DataType, decl string) typing.DataType {
	if st, ok := typ.(*typing.StructType); ok && st.Opaque {
		raise(report.ErrKindLayout, decl,
			"opaque type `%s` used by value: opaque types may only be referenced through pointers", st.Name())
	}

	return typ
}

// -----------------------------------------------------------------------------

// alignUp rounds n up to the next multiple of align.
func alignUp(n, align int) int {
	rem := n % align
	if rem == 0 {
		return n
	}

	return n + align - rem
}

// raise panics with a new build error; the panic is converted back into an
// ordinary error at the engine's API boundary.
func raise(kind int, decl, msg string, args ...interface{}) {
	panic(report.Raise(kind, decl, msg, args...))
}

// catchLayoutError recovers a raised build error into *err.  Any other panic
// continues to propagate.
func catchLayoutError(err *error) {
	if x := recover(); x != nil {
		if berr, ok := x.(*report.BuildError); ok {
			*err = berr
			return
		}

		panic(x)
	}
}
