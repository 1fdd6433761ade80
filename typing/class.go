package typing

import "sync/atomic"

// classIDCounter is used to assign each class a unique, monotonically
// increasing ID at declaration time.  Identity tokens in emitted code are
// addresses of per-class name constants; the ID exists so classification does
// not have to rely on string-literal address uniqueness.
var classIDCounter uint64

// ClassType represents a class: an aggregate type extended with inheritance
// and methods.  A class's concrete shape is not known until it has been
// processed by the layout engine.
type ClassType struct {
	name string

	// ID is the unique ID assigned to this class at declaration.
	ID uint64

	// Bases is the ordered list of direct base classes.  Base order is
	// significant: bases contribute their fields in left-to-right order.
	Bases []ClassBase

	// Fields enumerates the class's own declared fields (not inherited ones)
	// in order.
	Fields []ClassField

	// Methods enumerates the class's declared methods in order.
	Methods []*Method
}

// ClassBase is a single direct base-class edge.
type ClassBase struct {
	Class *ClassType

	// Virtual marks the edge as virtual inheritance: the base's storage is
	// shared among all paths that reach it.
	Virtual bool
}

// ClassField is a single declared data field of a class.
type ClassField struct {
	Name string
	Type DataType

	// Default is the field's declared default value.  If nil, the field
	// defaults to zero.
	Default *ConstValue
}

// ConstValue is a literal constant used as a field default.
type ConstValue struct {
	IntVal   int64
	FloatVal float64
	IsFloat  bool
}

// Method is a single method declaration on a class.  The method's body, if
// any, is supplied separately as part of the declaration set.
type Method struct {
	Name      string
	Signature *FuncType

	// Virtual indicates the method is dispatched through the class vtable.
	// Non-virtual methods compile to ordinary functions taking an implicit
	// first `self` parameter.
	Virtual bool
}

// NewClassType creates a new class type with a fresh class ID.
func NewClassType(name string) *ClassType {
	return &ClassType{
		name: name,
		ID:   atomic.AddUint64(&classIDCounter, 1),
	}
}

func (ct *ClassType) Name() string {
	return ct.name
}

func (ct *ClassType) Repr() string {
	return ct.name
}

func (ct *ClassType) equals(other DataType) bool {
	if oct, ok := other.(*ClassType); ok {
		return ct == oct
	}

	return false
}

// -----------------------------------------------------------------------------

// FindMethod returns the declaration of the named method on this class or any
// of its bases, along with the class that declares it.  The search walks the
// inheritance graph depth first, left to right, so a redeclaration in a
// derived class shadows its base's.
func (ct *ClassType) FindMethod(name string) (*ClassType, *Method) {
	for _, method := range ct.Methods {
		if method.Name == name {
			return ct, method
		}
	}

	for _, base := range ct.Bases {
		if owner, method := base.Class.FindMethod(name); method != nil {
			return owner, method
		}
	}

	return nil, nil
}

// IsPolymorphic returns whether instances of this class carry a vtable
// pointer: true if the class declares any virtual method or has any
// polymorphic ancestor.
func (ct *ClassType) IsPolymorphic() bool {
	for _, method := range ct.Methods {
		if method.Virtual {
			return true
		}
	}

	for _, base := range ct.Bases {
		if base.Class.IsPolymorphic() {
			return true
		}
	}

	return false
}

// DescendsFrom returns whether `ancestor` is reachable from this class
// through any chain of inheritance edges (including the class itself).
func (ct *ClassType) DescendsFrom(ancestor *ClassType) bool {
	if ct == ancestor {
		return true
	}

	for _, base := range ct.Bases {
		if base.Class.DescendsFrom(ancestor) {
			return true
		}
	}

	return false
}
