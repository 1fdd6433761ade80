package layout

import (
	"cinder/report"
	"cinder/typing"
)

// ClassShape is the fully flattened shape of a class: every field an instance
// stores, in order, with concrete offsets.  Inherited fields appear as
// anonymous leading members in left-to-right base order, followed by the
// class's own declared fields.
type ClassShape struct {
	Class *typing.ClassType

	// HasVTable indicates instances carry a vtable pointer at field 0.
	HasVTable bool

	// Fields is the flattened field list, including vtable slots.
	Fields []FlatField

	// Size and Align are the class's total storage size and alignment.
	Size  int
	Align int

	// VirtualBases is the class's VirtualInheritanceSet: every base reachable
	// through at least one virtual edge.  Each member is stored exactly once.
	VirtualBases []*typing.ClassType

	// baseRegions maps every inherited base to the byte offset of its
	// sub-region.  For a base whose storage appears more than once (repeated
	// non-virtual inheritance), the first region in walk order is recorded.
	baseRegions map[*typing.ClassType]int
}

// FlatField is a single member of a flattened class shape.
type FlatField struct {
	// Name is the field's declared name, or empty for vtable slots.
	Name string

	Type typing.DataType

	// Origin is the class that declared the field.  For vtable slots it is
	// the class whose vtable the slot holds at rest.
	Origin *typing.ClassType

	// Default is the declared default value, nil for zero.
	Default *typing.ConstValue

	// Offset is the field's byte offset from the start of the instance.
	Offset int

	// Index is the field's position in the flattened field list.
	Index int

	// IsVTable marks vtable pointer slots.
	IsVTable bool
}

// Region returns the byte offset of a base class's sub-region within the
// shape.  The boolean reports whether the base is actually inherited.
func (cs *ClassShape) Region(base *typing.ClassType) (int, bool) {
	offset, ok := cs.baseRegions[base]
	return offset, ok
}

// FieldOf finds the flattened field declared by `origin` under the given
// name.  When the same base is stored more than once, the first stored copy
// is returned.
func (cs *ClassShape) FieldOf(origin *typing.ClassType, name string) (*FlatField, bool) {
	for i := range cs.Fields {
		field := &cs.Fields[i]
		if field.Origin == origin && field.Name == name && !field.IsVTable {
			return field, true
		}
	}

	return nil, false
}

// ResolveField finds the flattened field with the given name, searching the
// class itself first and then its bases in walk order.
func (cs *ClassShape) ResolveField(name string) (*FlatField, bool) {
	if field, ok := cs.FieldOf(cs.Class, name); ok {
		return field, ok
	}

	for i := range cs.Fields {
		field := &cs.Fields[i]
		if field.Name == name && !field.IsVTable {
			return field, true
		}
	}

	return nil, false
}

// VTableSlots returns the shape's vtable pointer slots in storage order.  The
// first slot, when present, is always at offset 0 and holds the class's own
// vtable; later slots belong to polymorphic non-primary base regions.
func (cs *ClassShape) VTableSlots() []*FlatField {
	var slots []*FlatField
	for i := range cs.Fields {
		if cs.Fields[i].IsVTable {
			slots = append(slots, &cs.Fields[i])
		}
	}

	return slots
}

// -----------------------------------------------------------------------------

// vtablePtrType is the type of a stored vtable pointer: a pointer to an array
// of opaque pointers, stored as **u8.
var vtablePtrType typing.DataType = &typing.PointerType{
	ElemType: &typing.PointerType{ElemType: typing.PrimType(typing.PrimU8)},
}

// shapeOf is the internal, panicking implementation of ShapeOf.
func (e *Engine) shapeOf(ct *typing.ClassType) *ClassShape {
	if shape, ok := e.shapes[ct]; ok {
		return shape
	}

	if e.inProgress[ct] {
		raise(report.ErrKindCycle, ct.Name(),
			"class `%s` appears in a cycle in the base-class graph", ct.Name())
	}

	e.inProgress[ct] = true
	defer delete(e.inProgress, ct)

	// a class cannot be laid out until all of its bases have been
	for _, base := range ct.Bases {
		e.shapeOf(base.Class)
	}

	shape := &ClassShape{
		Class:       ct,
		HasVTable:   ct.IsPolymorphic(),
		baseRegions: make(map[*typing.ClassType]int),
	}

	f := &flattener{
		engine:        e,
		shape:         shape,
		virtualSet:    collectVirtualSet(ct),
		placedVirtual: make(map[*typing.ClassType]bool),
	}
	f.walk(ct, 0, false)
	f.finish()

	shape.VirtualBases = sortedVirtualBases(ct, f.virtualSet)

	e.shapes[ct] = shape
	return shape
}

// flattener accumulates the flattened fields of one class during the
// deterministic left-to-right, depth-first walk of its inheritance graph.
type flattener struct {
	engine *Engine
	shape  *ClassShape

	// virtualSet is the set of classes reachable through a virtual edge.
	virtualSet map[*typing.ClassType]bool

	// placedVirtual tracks which virtual bases have already been stored.
	placedVirtual map[*typing.ClassType]bool

	cursor   int
	maxAlign int
}

// walk flattens one class of the inheritance graph into the shape.  start is
// the byte offset where the class's region begins; sharesVT indicates the
// region begins at an already placed vtable slot (the leftmost polymorphic
// chain shares the slot at the start of its region).
func (f *flattener) walk(ct *typing.ClassType, start int, sharesVT bool) {
	// a polymorphic class that does not share an enclosing slot stores its
	// own vtable pointer at the start of its region
	if ct.IsPolymorphic() && !sharesVT {
		f.placeField(FlatField{Type: vtablePtrType, Origin: ct, IsVTable: true})
	}

	for i, base := range ct.Bases {
		if f.virtualSet[base.Class] {
			if f.placedVirtual[base.Class] {
				// diamond collapse: every later path resolves to the single
				// stored instance placed by the first path
				continue
			}

			f.placedVirtual[base.Class] = true
		}

		baseSharesVT := i == 0 && !base.Virtual &&
			ct.IsPolymorphic() && base.Class.IsPolymorphic()

		// a base that shares the leading slot continues the enclosing region;
		// any other base's region begins at the base's own alignment so that
		// each of its members lands at region + standalone offset
		baseStart := start
		if !baseSharesVT {
			f.cursor = alignUp(f.cursor, f.engine.shapes[base.Class].Align)
			baseStart = f.cursor
		}

		f.recordRegion(base.Class, baseStart)
		f.walk(base.Class, baseStart, baseSharesVT)
	}

	for _, field := range ct.Fields {
		f.engine.checkComplete(field.Type, ct.Name())

		f.placeField(FlatField{
			Name:    field.Name,
			Type:    field.Type,
			Origin:  ct,
			Default: field.Default,
		})
	}
}

// placeField appends one field, assigning its offset and index.
func (f *flattener) placeField(field FlatField) {
	lay := f.engine.layoutOf(field.Type)

	f.cursor = alignUp(f.cursor, lay.Align)
	field.Offset = f.cursor
	field.Index = len(f.shape.Fields)
	f.cursor += lay.Size

	if lay.Align > f.maxAlign {
		f.maxAlign = lay.Align
	}

	f.shape.Fields = append(f.shape.Fields, field)
}

// recordRegion records where a base's sub-region begins.  Transitive bases
// are recorded as the walk reaches them, so every region reflects where the
// base's members were actually stored.
func (f *flattener) recordRegion(base *typing.ClassType, offset int) {
	if _, ok := f.shape.baseRegions[base]; ok {
		return
	}

	f.shape.baseRegions[base] = offset
}

// finish rounds the total size up to the final alignment.
func (f *flattener) finish() {
	if f.maxAlign == 0 {
		f.maxAlign = 1
	}

	f.shape.Size = alignUp(f.cursor, f.maxAlign)
	f.shape.Align = f.maxAlign

	// empty classes still occupy one addressable byte
	if f.shape.Size == 0 {
		f.shape.Size = 1
	}
}

// -----------------------------------------------------------------------------

// collectVirtualSet computes the VirtualInheritanceSet of a class: every base
// reachable through at least one virtual-inheritance edge.  It fails with an
// inheritance error if two distinct class declarations sharing one name both
// appear in the set: collapsing them would require merging incompatible field
// sets.
func collectVirtualSet(ct *typing.ClassType) map[*typing.ClassType]bool {
	set := make(map[*typing.ClassType]bool)
	byName := make(map[string]*typing.ClassType)

	var visit func(c *typing.ClassType)
	visit = func(c *typing.ClassType) {
		for _, base := range c.Bases {
			if base.Virtual {
				if prev, ok := byName[base.Class.Name()]; ok && prev != base.Class {
					raise(report.ErrKindInheritance, ct.Name(),
						"virtual base `%s` is declared with conflicting shapes across inheritance paths",
						base.Class.Name())
				}

				byName[base.Class.Name()] = base.Class
				set[base.Class] = true
			}

			visit(base.Class)
		}
	}

	visit(ct)
	return set
}

// sortedVirtualBases returns the virtual set in deterministic first-reached
// walk order.
func sortedVirtualBases(ct *typing.ClassType, set map[*typing.ClassType]bool) []*typing.ClassType {
	var ordered []*typing.ClassType
	seen := make(map[*typing.ClassType]bool)

	var visit func(c *typing.ClassType)
	visit = func(c *typing.ClassType) {
		for _, base := range c.Bases {
			if set[base.Class] && !seen[base.Class] {
				seen[base.Class] = true
				ordered = append(ordered, base.Class)
			}

			visit(base.Class)
		}
	}

	visit(ct)
	return ordered
}
