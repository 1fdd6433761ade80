package layout

import (
	"testing"

	"cinder/report"
	"cinder/typing"
)

// Primitive shorthands used throughout the tests.
var (
	u8Type   = typing.PrimType(typing.PrimU8)
	u32Type  = typing.PrimType(typing.PrimU32)
	i32Type  = typing.PrimType(typing.PrimI32)
	f64Type  = typing.PrimType(typing.PrimF64)
	unitType = typing.PrimType(typing.PrimUnit)
)

// newClass builds a class declaration for testing.
func newClass(name string, bases []typing.ClassBase, fields ...typing.ClassField) *typing.ClassType {
	ct := typing.NewClassType(name)
	ct.Bases = bases
	ct.Fields = fields
	return ct
}

// addVirtualMethod declares a virtual method on a class, making it
// polymorphic.
func addVirtualMethod(ct *typing.ClassType, name string) {
	ct.Methods = append(ct.Methods, &typing.Method{
		Name:      name,
		Signature: &typing.FuncType{ReturnType: unitType},
		Virtual:   true,
	})
}

// wantBuildError asserts that an error is a build error of the given kind.
func wantBuildError(t *testing.T, err error, kind int) {
	t.Helper()

	if err == nil {
		t.Fatal("expected an error, got none")
	}

	berr, ok := err.(*report.BuildError)
	if !ok {
		t.Fatalf("expected a build error, got %T: %s", err, err.Error())
	}

	if berr.Kind != kind {
		t.Fatalf("expected error kind %d, got %d: %s", kind, berr.Kind, berr.Message)
	}
}

// -----------------------------------------------------------------------------

func TestStructFieldOffsets(t *testing.T) {
	testCases := []struct {
		name        string
		fields      []typing.StructField
		wantOffsets []int
		wantSize    int
		wantAlign   int
	}{
		{
			"padding between narrow and wide fields",
			[]typing.StructField{
				{Name: "a", Type: u8Type},
				{Name: "b", Type: u32Type},
				{Name: "c", Type: u8Type},
			},
			[]int{0, 4, 8},
			12,
			4,
		},
		{
			"wide field dominates alignment",
			[]typing.StructField{
				{Name: "a", Type: u32Type},
				{Name: "b", Type: f64Type},
			},
			[]int{0, 8},
			16,
			8,
		},
		{
			"packed order needs no padding",
			[]typing.StructField{
				{Name: "a", Type: u32Type},
				{Name: "b", Type: u8Type},
				{Name: "c", Type: u8Type},
			},
			[]int{0, 4, 5},
			8,
			4,
		},
	}

	eng := NewEngine(8)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := typing.NewStructType("S", tc.fields...)

			lay, err := eng.Of(st)
			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if lay.Size != tc.wantSize || lay.Align != tc.wantAlign {
				t.Errorf("got size %d align %d, want size %d align %d",
					lay.Size, lay.Align, tc.wantSize, tc.wantAlign)
			}

			for i, want := range tc.wantOffsets {
				if lay.FieldOffsets[i] != want {
					t.Errorf("field %d at offset %d, want %d", i, lay.FieldOffsets[i], want)
				}
			}
		})
	}
}

func TestPointerFieldUsesTargetWordSize(t *testing.T) {
	st := typing.NewStructType("S",
		typing.StructField{Name: "p", Type: &typing.PointerType{ElemType: u8Type}},
		typing.StructField{Name: "n", Type: u32Type},
	)

	eng4 := NewEngine(4)
	lay, err := eng4.Of(st)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if lay.FieldOffsets[1] != 4 || lay.Size != 8 {
		t.Errorf("got offset %d size %d on a 4-byte target, want 4 and 8", lay.FieldOffsets[1], lay.Size)
	}

	eng8 := NewEngine(8)
	lay, err = eng8.Of(st)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if lay.FieldOffsets[1] != 8 || lay.Size != 16 {
		t.Errorf("got offset %d size %d on an 8-byte target, want 8 and 16", lay.FieldOffsets[1], lay.Size)
	}
}

func TestInheritedFieldsPrecedeOwn(t *testing.T) {
	base := newClass("Base", nil, typing.ClassField{Name: "a", Type: i32Type})
	derived := newClass("Derived",
		[]typing.ClassBase{{Class: base}},
		typing.ClassField{Name: "b", Type: i32Type})

	eng := NewEngine(8)
	shape, err := eng.ShapeOf(derived)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	a, ok := shape.FieldOf(base, "a")
	if !ok || a.Offset != 0 {
		t.Errorf("inherited field `a` not found at offset 0")
	}

	b, ok := shape.FieldOf(derived, "b")
	if !ok || b.Offset != 4 {
		t.Errorf("own field `b` not found at offset 4")
	}

	if offset, ok := shape.Region(base); !ok || offset != 0 {
		t.Errorf("base region at offset %d, want 0", offset)
	}

	if shape.Size != 8 {
		t.Errorf("got size %d, want 8", shape.Size)
	}
}

func TestPolymorphicClassLeadsWithVTableSlot(t *testing.T) {
	ct := newClass("Widget", nil, typing.ClassField{Name: "w", Type: i32Type})
	addVirtualMethod(ct, "draw")

	eng := NewEngine(8)
	shape, err := eng.ShapeOf(ct)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if !shape.HasVTable {
		t.Fatal("expected a vtable slot on a polymorphic class")
	}

	slots := shape.VTableSlots()
	if len(slots) != 1 || slots[0].Offset != 0 {
		t.Fatalf("expected a single vtable slot at offset 0, got %d slots", len(slots))
	}

	w, _ := shape.FieldOf(ct, "w")
	if w.Offset != 8 {
		t.Errorf("field `w` at offset %d, want 8 behind the vtable slot", w.Offset)
	}
}

func TestDerivedSharesPrimaryVTableSlot(t *testing.T) {
	base := newClass("Base", nil, typing.ClassField{Name: "a", Type: i32Type})
	addVirtualMethod(base, "draw")

	derived := newClass("Derived",
		[]typing.ClassBase{{Class: base}},
		typing.ClassField{Name: "b", Type: i32Type})

	eng := NewEngine(8)
	shape, err := eng.ShapeOf(derived)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	// the derived class reuses the slot its primary base placed at offset 0
	slots := shape.VTableSlots()
	if len(slots) != 1 || slots[0].Offset != 0 {
		t.Fatalf("expected a single shared vtable slot at offset 0, got %d slots", len(slots))
	}

	if slots[0].Origin != derived {
		t.Errorf("shared slot belongs to `%s`, want `Derived`", slots[0].Origin.Name())
	}

	if offset, _ := shape.Region(base); offset != 0 {
		t.Errorf("base region at offset %d, want 0 including the shared slot", offset)
	}

	a, _ := shape.FieldOf(base, "a")
	b, _ := shape.FieldOf(derived, "b")
	if a.Offset != 8 || b.Offset != 12 {
		t.Errorf("got offsets a=%d b=%d, want 8 and 12", a.Offset, b.Offset)
	}
}

func TestNonPrimaryPolymorphicBaseKeepsOwnSlot(t *testing.T) {
	left := newClass("Left", nil, typing.ClassField{Name: "a", Type: i32Type})
	addVirtualMethod(left, "draw")

	right := newClass("Right", nil, typing.ClassField{Name: "b", Type: i32Type})
	addVirtualMethod(right, "area")

	derived := newClass("Both",
		[]typing.ClassBase{{Class: left}, {Class: right}},
		typing.ClassField{Name: "c", Type: i32Type})

	eng := NewEngine(8)
	shape, err := eng.ShapeOf(derived)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	slots := shape.VTableSlots()
	if len(slots) != 2 {
		t.Fatalf("expected two vtable slots, got %d", len(slots))
	}

	if slots[0].Offset != 0 || slots[0].Origin != derived {
		t.Errorf("leading slot at offset %d owned by `%s`, want 0 owned by `Both`",
			slots[0].Offset, slots[0].Origin.Name())
	}

	rightRegion, _ := shape.Region(right)
	if slots[1].Offset != rightRegion || slots[1].Origin != right {
		t.Errorf("secondary slot at offset %d owned by `%s`, want the `Right` region at %d",
			slots[1].Offset, slots[1].Origin.Name(), rightRegion)
	}

	if leftRegion, _ := shape.Region(left); leftRegion != 0 {
		t.Errorf("left region at offset %d, want 0", leftRegion)
	}
}

func TestBaseRegionMatchesStandaloneLayout(t *testing.T) {
	// a narrow first base leaves the cursor misaligned for the second base,
	// whose region must still start at its own alignment so every inherited
	// field sits at region + standalone offset
	small := newClass("Small", nil, typing.ClassField{Name: "c", Type: u32Type})
	base := newClass("Base", nil,
		typing.ClassField{Name: "a", Type: u8Type},
		typing.ClassField{Name: "b", Type: f64Type})

	derived := newClass("Derived",
		[]typing.ClassBase{{Class: small}, {Class: base}})

	eng := NewEngine(8)
	shape, err := eng.ShapeOf(derived)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	baseShape, err := eng.ShapeOf(base)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	region, ok := shape.Region(base)
	if !ok {
		t.Fatal("`Base` region not recorded")
	}
	if region != 8 {
		t.Errorf("`Base` region at offset %d, want 8", region)
	}

	for _, standalone := range baseShape.Fields {
		field, ok := shape.FieldOf(base, standalone.Name)
		if !ok {
			t.Fatalf("inherited field `%s` not found", standalone.Name)
		}

		if field.Offset != region+standalone.Offset {
			t.Errorf("inherited field `%s` at offset %d, want region %d + %d",
				standalone.Name, field.Offset, region, standalone.Offset)
		}
	}
}

func TestVirtualDiamondCollapses(t *testing.T) {
	v := newClass("V", nil, typing.ClassField{Name: "v", Type: i32Type})
	a := newClass("A",
		[]typing.ClassBase{{Class: v, Virtual: true}},
		typing.ClassField{Name: "a", Type: i32Type})
	b := newClass("B",
		[]typing.ClassBase{{Class: v, Virtual: true}},
		typing.ClassField{Name: "b", Type: i32Type})
	d := newClass("D",
		[]typing.ClassBase{{Class: a}, {Class: b}},
		typing.ClassField{Name: "d", Type: i32Type})

	eng := NewEngine(8)
	shape, err := eng.ShapeOf(d)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	// exactly one stored copy of the virtual base's field
	copies := 0
	for _, field := range shape.Fields {
		if field.Origin == v {
			copies++
		}
	}
	if copies != 1 {
		t.Fatalf("virtual base stored %d times, want exactly once", copies)
	}

	if len(shape.VirtualBases) != 1 || shape.VirtualBases[0] != v {
		t.Errorf("virtual inheritance set is %d entries, want just `V`", len(shape.VirtualBases))
	}

	if shape.Size != 16 {
		t.Errorf("got size %d, want 16", shape.Size)
	}
}

func TestRepeatedNonVirtualBaseIsDuplicated(t *testing.T) {
	v := newClass("V", nil, typing.ClassField{Name: "v", Type: i32Type})
	a := newClass("A", []typing.ClassBase{{Class: v}})
	b := newClass("B", []typing.ClassBase{{Class: v}})
	d := newClass("D", []typing.ClassBase{{Class: a}, {Class: b}})

	eng := NewEngine(8)
	shape, err := eng.ShapeOf(d)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	copies := 0
	for _, field := range shape.Fields {
		if field.Origin == v {
			copies++
		}
	}
	if copies != 2 {
		t.Fatalf("repeated non-virtual base stored %d times, want two distinct copies", copies)
	}

	// name resolution deterministically selects the first stored copy
	field, ok := shape.ResolveField("v")
	if !ok {
		t.Fatal("field `v` did not resolve")
	}
	if field.Offset != 0 {
		t.Errorf("resolved `v` at offset %d, want the first copy at 0", field.Offset)
	}
}

func TestEmptyClassOccupiesOneByte(t *testing.T) {
	eng := NewEngine(8)

	shape, err := eng.ShapeOf(newClass("Empty", nil))
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if shape.Size != 1 {
		t.Errorf("got size %d, want 1", shape.Size)
	}
}

// -----------------------------------------------------------------------------

func TestOpaqueByValueFails(t *testing.T) {
	opaque := typing.NewOpaqueType("Handle")
	eng := NewEngine(8)

	_, err := eng.Of(opaque)
	wantBuildError(t, err, report.ErrKindLayout)

	st := typing.NewStructType("S", typing.StructField{Name: "h", Type: opaque})
	_, err = eng.Of(st)
	wantBuildError(t, err, report.ErrKindLayout)

	ct := newClass("C", nil, typing.ClassField{Name: "h", Type: opaque})
	_, err = eng.ShapeOf(ct)
	wantBuildError(t, err, report.ErrKindLayout)
}

func TestOpaqueBehindPointerSucceeds(t *testing.T) {
	opaque := typing.NewOpaqueType("Handle")
	st := typing.NewStructType("S",
		typing.StructField{Name: "h", Type: &typing.PointerType{ElemType: opaque}})

	eng := NewEngine(8)
	lay, err := eng.Of(st)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if lay.Size != 8 {
		t.Errorf("got size %d, want 8", lay.Size)
	}
}

func TestBaseGraphCycleFails(t *testing.T) {
	a := newClass("A", nil)
	b := newClass("B", []typing.ClassBase{{Class: a}})
	a.Bases = []typing.ClassBase{{Class: b}}

	eng := NewEngine(8)
	_, err := eng.ShapeOf(a)
	wantBuildError(t, err, report.ErrKindCycle)
}

func TestConflictingVirtualBasesFail(t *testing.T) {
	// two distinct declarations sharing one name cannot collapse into a
	// single stored instance
	v1 := newClass("V", nil, typing.ClassField{Name: "x", Type: i32Type})
	v2 := newClass("V", nil, typing.ClassField{Name: "y", Type: f64Type})

	a := newClass("A", []typing.ClassBase{{Class: v1, Virtual: true}})
	b := newClass("B", []typing.ClassBase{{Class: v2, Virtual: true}})
	d := newClass("D", []typing.ClassBase{{Class: a}, {Class: b}})

	eng := NewEngine(8)
	_, err := eng.ShapeOf(d)
	wantBuildError(t, err, report.ErrKindInheritance)
}
