package object

import (
	"cinder/typing"
)

// CallTarget describes how a method call site compiles.
type CallTarget struct {
	// Virtual indicates dispatch through the instance's vtable; otherwise the
	// call compiles to a direct reference to the target function.
	Virtual bool

	// Slot is the vtable entry for virtual targets.
	Slot *Slot

	// Owner is the class declaring the method: the mangled symbol for direct
	// calls belongs to it.
	Owner *typing.ClassType

	Method *typing.Method

	// RegionOffset is the byte adjustment applied to the instance pointer for
	// direct calls dispatched as a base.  Virtual calls always receive the
	// original instance pointer so an overriding method sees the full derived
	// instance; their adjustment is always zero.
	RegionOffset int
}

// ResolveCall resolves a method call against the static class of the instance
// pointer at the call site.  It fails with an unresolved symbol error when no
// such method is declared anywhere on the class or its bases.
func (b *Builder) ResolveCall(static *typing.ClassType, name string) (target *CallTarget, err error) {
	defer func() {
		if x := recover(); x != nil {
			if berr, ok := x.(error); ok {
				err = berr
				return
			}
			panic(x)
		}
	}()

	owner, method := static.FindMethod(name)
	if method == nil {
		raiseSymbol(static.Name(), "class `%s` has no method `%s`", static.Name(), name)
	}

	if method.Virtual {
		model, ok := b.models[static]
		if !ok || model.VTable == nil {
			raiseSymbol(static.Name(), "virtual call to `%s` before class `%s` was built", name, static.Name())
		}

		slot, ok := model.VTable.SlotOf(name)
		if !ok {
			raiseSymbol(static.Name(), "virtual method `%s` has no slot in the vtable of `%s`", name, static.Name())
		}

		return &CallTarget{Virtual: true, Slot: slot, Owner: owner, Method: method}, nil
	}

	offset := 0
	if owner != static {
		model, ok := b.models[static]
		if !ok {
			raiseSymbol(static.Name(), "call to `%s.%s` before class `%s` was built", owner.Name(), name, static.Name())
		}

		offset, _ = model.Shape.Region(owner)
	}

	return &CallTarget{Owner: owner, Method: method, RegionOffset: offset}, nil
}
