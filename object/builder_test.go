package object

import (
	"testing"

	"cinder/layout"
	"cinder/report"
	"cinder/typing"
)

var (
	i32Type  = typing.PrimType(typing.PrimI32)
	unitType = typing.PrimType(typing.PrimUnit)
)

func newClass(name string, bases []typing.ClassBase, fields ...typing.ClassField) *typing.ClassType {
	ct := typing.NewClassType(name)
	ct.Bases = bases
	ct.Fields = fields
	return ct
}

func addMethod(ct *typing.ClassType, name string, virtual bool) {
	ct.Methods = append(ct.Methods, &typing.Method{
		Name:      name,
		Signature: &typing.FuncType{ReturnType: unitType},
		Virtual:   virtual,
	})
}

// -----------------------------------------------------------------------------

func TestVTableSlotIndicesStable(t *testing.T) {
	base := newClass("Shape", nil)
	addMethod(base, "draw", true)
	addMethod(base, "area", true)

	derived := newClass("Circle", []typing.ClassBase{{Class: base}})
	addMethod(derived, "area", true)
	addMethod(derived, "scale", true)

	b := NewBuilder(layout.NewEngine(8))
	model, err := b.Build(derived)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	wantSlots := []struct {
		name string
		decl *typing.ClassType
		impl *typing.ClassType
	}{
		{"draw", base, base},
		{"area", base, derived},
		{"scale", derived, derived},
	}

	if len(model.VTable.Slots) != len(wantSlots) {
		t.Fatalf("got %d slots, want %d", len(model.VTable.Slots), len(wantSlots))
	}

	for i, want := range wantSlots {
		slot := model.VTable.Slots[i]

		if slot.Index != i {
			t.Errorf("slot `%s` at index %d, want %d", slot.Name, slot.Index, i)
		}

		if slot.Name != want.name || slot.Decl != want.decl || slot.Impl != want.impl {
			t.Errorf("slot %d is `%s` declared by `%s` implemented by `%s`, want `%s`/`%s`/`%s`",
				i, slot.Name, slot.Decl.Name(), slot.Impl.Name(),
				want.name, want.decl.Name(), want.impl.Name())
		}
	}

	// an override never disturbs the base's own table
	baseModel, _ := b.ModelOf(base)
	if slot, _ := baseModel.VTable.SlotOf("area"); slot.Impl != base {
		t.Errorf("base table's `area` implemented by `%s`, want `Shape`", slot.Impl.Name())
	}
}

func TestCtorPlanCoversFlattenedShape(t *testing.T) {
	base := newClass("Base", nil,
		typing.ClassField{Name: "a", Type: i32Type, Default: &typing.ConstValue{IntVal: 3}})
	addMethod(base, "draw", true)

	derived := newClass("Derived",
		[]typing.ClassBase{{Class: base}},
		typing.ClassField{Name: "b", Type: i32Type})

	b := NewBuilder(layout.NewEngine(8))
	model, err := b.Build(derived)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if len(model.Ctor) != 3 {
		t.Fatalf("got %d ctor steps, want 3", len(model.Ctor))
	}

	// the shared slot is installed with the derived class's own vtable
	if model.Ctor[0].Kind != CtorInstallVT || model.Ctor[0].Field.Origin != derived {
		t.Errorf("first step does not install the derived class's vtable")
	}

	if model.Ctor[1].Kind != CtorInitField || model.Ctor[1].Field.Name != "a" {
		t.Errorf("second step does not initialize inherited field `a`")
	}
	if model.Ctor[1].Field.Default == nil || model.Ctor[1].Field.Default.IntVal != 3 {
		t.Errorf("inherited field `a` lost its declared default")
	}

	if model.Ctor[2].Kind != CtorInitField || model.Ctor[2].Field.Name != "b" {
		t.Errorf("third step does not initialize own field `b`")
	}
}

func TestCtorPlanInitializesVirtualBaseOnce(t *testing.T) {
	v := newClass("V", nil, typing.ClassField{Name: "v", Type: i32Type})
	a := newClass("A", []typing.ClassBase{{Class: v, Virtual: true}})
	b := newClass("B", []typing.ClassBase{{Class: v, Virtual: true}})
	d := newClass("D", []typing.ClassBase{{Class: a}, {Class: b}})

	builder := NewBuilder(layout.NewEngine(8))
	model, err := builder.Build(d)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	inits := 0
	for _, step := range model.Ctor {
		if step.Kind == CtorInitField && step.Field.Origin == v {
			inits++
		}
	}

	if inits != 1 {
		t.Errorf("collapsed virtual base initialized %d times, want exactly once", inits)
	}
}

// -----------------------------------------------------------------------------

func TestResolveCallDirectAdjustsToBaseRegion(t *testing.T) {
	left := newClass("Left", nil, typing.ClassField{Name: "a", Type: i32Type})
	right := newClass("Right", nil, typing.ClassField{Name: "b", Type: i32Type})
	addMethod(right, "touch", false)

	derived := newClass("Both", []typing.ClassBase{{Class: left}, {Class: right}})

	b := NewBuilder(layout.NewEngine(8))
	model, err := b.Build(derived)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	target, err := b.ResolveCall(derived, "touch")
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if target.Virtual {
		t.Fatal("non-virtual method resolved to virtual dispatch")
	}

	rightRegion, _ := model.Shape.Region(right)
	if target.Owner != right || target.RegionOffset != rightRegion {
		t.Errorf("target owned by `%s` at offset %d, want `Right` at %d",
			target.Owner.Name(), target.RegionOffset, rightRegion)
	}
}

func TestResolveCallVirtualKeepsInstancePointer(t *testing.T) {
	base := newClass("Shape", nil)
	addMethod(base, "area", true)

	derived := newClass("Circle", []typing.ClassBase{{Class: base}})
	addMethod(derived, "area", true)

	b := NewBuilder(layout.NewEngine(8))
	if _, err := b.Build(derived); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	target, err := b.ResolveCall(derived, "area")
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if !target.Virtual {
		t.Fatal("virtual method resolved to a direct call")
	}

	// the override occupies the slot its declaration fixed, and virtual
	// dispatch always receives the unadjusted instance pointer
	if target.Slot.Index != 0 || target.Slot.Impl != derived {
		t.Errorf("slot index %d implemented by `%s`, want 0 implemented by `Circle`",
			target.Slot.Index, target.Slot.Impl.Name())
	}

	if target.RegionOffset != 0 {
		t.Errorf("virtual call adjusts the instance pointer by %d, want 0", target.RegionOffset)
	}
}

func TestSecondaryBaseKeepsOwnImplementations(t *testing.T) {
	left := newClass("Left", nil, typing.ClassField{Name: "a", Type: i32Type})

	right := newClass("Right", nil, typing.ClassField{Name: "b", Type: i32Type})
	addMethod(right, "ping", true)

	derived := newClass("Both", []typing.ClassBase{{Class: left}, {Class: right}})
	addMethod(derived, "ping", true)

	b := NewBuilder(layout.NewEngine(8))
	if _, err := b.Build(derived); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	// the derived static type sees the override in the fresh derived slot
	target, err := b.ResolveCall(derived, "ping")
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if !target.Virtual || target.Slot.Impl != derived {
		t.Errorf("`ping` through `Both` implemented by `%s`, want `Both`",
			target.Slot.Impl.Name())
	}

	// the non-primary base's static type still resolves into the base's own
	// table, which the base's sub-region carries at rest: the derived
	// override is not visible through it
	target, err = b.ResolveCall(right, "ping")
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if !target.Virtual || target.Slot.Impl != right {
		t.Errorf("`ping` through `Right` implemented by `%s`, want `Right`",
			target.Slot.Impl.Name())
	}
}

func TestResolveCallUnknownMethodFails(t *testing.T) {
	ct := newClass("Plain", nil)

	b := NewBuilder(layout.NewEngine(8))
	if _, err := b.Build(ct); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	_, err := b.ResolveCall(ct, "missing")
	if err == nil {
		t.Fatal("expected an error, got none")
	}

	if berr, ok := err.(*report.BuildError); !ok || berr.Kind != report.ErrKindSymbol {
		t.Errorf("expected an unresolved symbol error, got %s", err.Error())
	}
}

func TestIsAFollowsPrimaryChain(t *testing.T) {
	root := newClass("Object", nil)
	addMethod(root, "describe", true)

	mid := newClass("Widget", []typing.ClassBase{{Class: root}})
	leaf := newClass("Button", []typing.ClassBase{{Class: mid}})

	other := newClass("Error", nil)
	addMethod(other, "describe", true)

	if !IsA(leaf, leaf) || !IsA(leaf, mid) || !IsA(leaf, root) {
		t.Error("class not classified as its own primary ancestors")
	}

	if IsA(root, leaf) {
		t.Error("base classified as its descendant")
	}

	if IsA(leaf, other) {
		t.Error("class classified as an unrelated class")
	}
}
