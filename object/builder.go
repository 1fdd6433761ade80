// Package object implements the object model builder: given laid-out class
// shapes, it assigns vtable slots, plans default constructors, and resolves
// method calls to direct or vtable-dispatched targets.
//
// A derived table extends only its primary (leftmost non-virtual) parent's
// table, and no thunks are generated.  A non-primary polymorphic base's
// sub-region therefore keeps the base's own table at rest: dispatch through a
// pointer typed as that base reaches the base's implementations, and any
// overrides the derived class installs are visible only through the derived
// static type.
package object

import (
	"cinder/layout"
	"cinder/report"
	"cinder/typing"
)

// VTable is the plan for a class's constant dispatch table.  The emitted
// constant stores the parent table reference at slot 0 and the class's
// identity token at slot 1; method entries follow at slot index + 2.
type VTable struct {
	Class *typing.ClassType

	// Parent is the immediate non-virtual parent's vtable, nil for a root.
	Parent *VTable

	// Slots holds the virtual method entries in first-declared order.  A
	// derived table is always a prefix-compatible extension of its parent's:
	// overriding replaces a slot's implementation, never its index.
	Slots []Slot
}

// Slot is a single virtual method entry.
type Slot struct {
	// Index is the method entry's position, stable across the hierarchy.
	Index int

	Name string

	// Decl is the class that first declared the virtual method and so fixed
	// the slot's index.
	Decl *typing.ClassType

	// Impl is the class providing the implementation currently occupying the
	// slot.
	Impl *typing.ClassType

	Signature *typing.FuncType
}

// SlotOf returns the table's slot for the named method, if any.
func (vt *VTable) SlotOf(name string) (*Slot, bool) {
	for i := range vt.Slots {
		if vt.Slots[i].Name == name {
			return &vt.Slots[i], true
		}
	}

	return nil, false
}

// -----------------------------------------------------------------------------

// Model is the complete build product for one class.
type Model struct {
	Class *typing.ClassType
	Shape *layout.ClassShape

	// VTable is nil for classes that never participate in virtual dispatch.
	VTable *VTable

	// Ctor is the synthesized default constructor plan.
	Ctor []CtorStep
}

// Enumeration of constructor step kinds.
const (
	CtorInstallVT = iota // Store a vtable reference into a vtable slot.
	CtorInitField        // Initialize a flattened field to its declared default.
)

// CtorStep is one step of a synthesized default constructor.  The plan is
// fully flattened: it never delegates to base constructors, since a collapsed
// virtual-base region no longer matches the base's standalone image and a
// nested constructor call would initialize it at the wrong offset.
type CtorStep struct {
	Kind int

	// Field is the target slot or field of the step.
	Field *layout.FlatField
}

// -----------------------------------------------------------------------------

// Builder builds object models for one compilation unit.
type Builder struct {
	eng *layout.Engine

	models  map[*typing.ClassType]*Model
	vtables map[*typing.ClassType]*VTable
}

// NewBuilder creates a new object model builder on top of a layout engine.
func NewBuilder(eng *layout.Engine) *Builder {
	return &Builder{
		eng:     eng,
		models:  make(map[*typing.ClassType]*Model),
		vtables: make(map[*typing.ClassType]*VTable),
	}
}

// Build produces the object model for a class: its vtable plan, constructor
// plan, and dispatch metadata.  Layout errors from the underlying engine
// propagate unchanged.
func (b *Builder) Build(ct *typing.ClassType) (*Model, error) {
	shape, err := b.eng.ShapeOf(ct)
	if err != nil {
		return nil, err
	}

	if model, ok := b.models[ct]; ok {
		return model, nil
	}

	// bases must be modeled before the classes that inherit from them
	for _, base := range ct.Bases {
		if _, err := b.Build(base.Class); err != nil {
			return nil, err
		}
	}

	model := &Model{Class: ct, Shape: shape}

	if shape.HasVTable {
		model.VTable = b.buildVTable(ct)
	}

	model.Ctor = b.planCtor(shape)

	b.models[ct] = model
	return model, nil
}

// ModelOf returns the already built model for a class.
func (b *Builder) ModelOf(ct *typing.ClassType) (*Model, bool) {
	model, ok := b.models[ct]
	return model, ok
}

// -----------------------------------------------------------------------------

// primaryParent returns the class's immediate non-virtual parent: the
// leftmost base inherited through a non-virtual edge.  The returned class is
// the one whose vtable the derived table extends.
func primaryParent(ct *typing.ClassType) *typing.ClassType {
	for _, base := range ct.Bases {
		if !base.Virtual {
			return base.Class
		}
	}

	return nil
}

// buildVTable assigns vtable slots for a class.  Slots inherited from the
// primary parent keep their original indices; virtual methods contributed by
// other bases and by the class itself are appended in first-declared order.
func (b *Builder) buildVTable(ct *typing.ClassType) *VTable {
	if vt, ok := b.vtables[ct]; ok {
		return vt
	}

	vt := &VTable{Class: ct}

	if parent := primaryParent(ct); parent != nil && parent.IsPolymorphic() {
		vt.Parent = b.vtables[parent]
		vt.Slots = append(vt.Slots, vt.Parent.Slots...)
	}

	// virtual methods of non-primary polymorphic bases receive fresh slots in
	// this table; their original slots remain live in the base's own table,
	// which the base's sub-region continues to carry
	for i, base := range ct.Bases {
		if i == 0 && !base.Virtual {
			continue
		}

		if base.Class.IsPolymorphic() {
			for _, inherited := range b.vtables[base.Class].Slots {
				if _, ok := vt.SlotOf(inherited.Name); !ok {
					inherited.Index = len(vt.Slots)
					vt.Slots = append(vt.Slots, inherited)
				}
			}
		}
	}

	for _, method := range ct.Methods {
		if !method.Virtual {
			continue
		}

		if slot, ok := vt.SlotOf(method.Name); ok {
			// override: replace the implementation in place, never the index
			slot.Impl = ct
			slot.Signature = method.Signature
		} else {
			vt.Slots = append(vt.Slots, Slot{
				Index:     len(vt.Slots),
				Name:      method.Name,
				Decl:      ct,
				Impl:      ct,
				Signature: method.Signature,
			})
		}
	}

	b.vtables[ct] = vt
	return vt
}

// planCtor synthesizes the default constructor plan for a shape.  Every
// flattened member is visited once in storage order, so each collapsed
// virtual base is initialized exactly once and a freshly constructed instance
// always observes its own class's vtable, not a base's.
func (b *Builder) planCtor(shape *layout.ClassShape) []CtorStep {
	var steps []CtorStep

	for i := range shape.Fields {
		field := &shape.Fields[i]

		if field.IsVTable {
			steps = append(steps, CtorStep{Kind: CtorInstallVT, Field: field})
		} else {
			steps = append(steps, CtorStep{Kind: CtorInitField, Field: field})
		}
	}

	return steps
}

// -----------------------------------------------------------------------------

// IsA reports the build-time classification result for an exact pair of
// classes: whether instances of `class` are classified as `target` by the
// runtime identity walk.  It mirrors the emitted parent-chain comparison.
func IsA(class, target *typing.ClassType) bool {
	for c := class; c != nil; c = primaryParent(c) {
		if c == target {
			return true
		}
	}

	return false
}

// raiseSymbol raises an unresolved symbol error.
func raiseSymbol(decl, msg string, args ...interface{}) {
	panic(report.Raise(report.ErrKindSymbol, decl, msg, args...))
}
