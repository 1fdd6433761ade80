package typing

import "strings"

// DataType is the parent interface for all types in Cinder.
type DataType interface {
	// Repr returns a representative string of the type for purposes of error
	// reporting.
	Repr() string

	// equals is the internal, type-specific implementation of Equals.  It
	// should NEVER be called directly except by Equals.
	equals(DataType) bool
}

// Equals returns whether two types are exactly equal.
func Equals(a, b DataType) bool {
	return a.equals(b)
}

// -----------------------------------------------------------------------------

// PrimType represents a primitive type.  It should be one of the enumerated
// primitive types.
type PrimType int

// Enumeration of different primitive types.  The ordering of the integral
// types is significant: unsigned types precede signed types, and within each
// group the types are ordered by width.
const (
	PrimU8 = iota
	PrimU16
	PrimU32
	PrimU64
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimF32
	PrimF64
	PrimBool
	PrimUnit
)

func (pt PrimType) Repr() string {
	switch pt {
	case PrimU8:
		return "u8"
	case PrimU16:
		return "u16"
	case PrimU32:
		return "u32"
	case PrimU64:
		return "u64"
	case PrimI8:
		return "i8"
	case PrimI16:
		return "i16"
	case PrimI32:
		return "i32"
	case PrimI64:
		return "i64"
	case PrimF32:
		return "f32"
	case PrimF64:
		return "f64"
	case PrimBool:
		return "bool"
	default:
		// PrimUnit
		return "unit"
	}
}

func (pt PrimType) equals(other DataType) bool {
	if opt, ok := other.(PrimType); ok {
		return pt == opt
	}

	return false
}

// IsSigned returns whether a primitive type is a signed integral type.
func (pt PrimType) IsSigned() bool {
	return PrimI8 <= pt && pt <= PrimI64
}

// IsFloating returns whether a primitive type is a floating-point type.
func (pt PrimType) IsFloating() bool {
	return pt == PrimF32 || pt == PrimF64
}

// IsIntegral returns whether a primitive type is an integral type.
func (pt PrimType) IsIntegral() bool {
	return pt <= PrimI64
}

// StorageSize returns the size in bytes of a primitive's storage.  Signedness
// does not affect storage: an i32 and a u32 occupy the same four bytes.
func (pt PrimType) StorageSize() int {
	switch pt {
	case PrimU8, PrimI8, PrimBool:
		return 1
	case PrimU16, PrimI16:
		return 2
	case PrimU32, PrimI32, PrimF32:
		return 4
	case PrimU64, PrimI64, PrimF64:
		return 8
	default:
		// PrimUnit
		return 0
	}
}

// -----------------------------------------------------------------------------

// PointerType is a pointer to another type.  Pointers are the only legal way
// to refer to opaque aggregates.
type PointerType struct {
	ElemType DataType
}

func (pt *PointerType) Repr() string {
	return "*" + pt.ElemType.Repr()
}

func (pt *PointerType) equals(other DataType) bool {
	if opt, ok := other.(*PointerType); ok {
		return Equals(pt.ElemType, opt.ElemType)
	}

	return false
}

// -----------------------------------------------------------------------------

// StructType represents a plain aggregate type: an ordered sequence of named
// fields.  Field order is fixed at declaration and determines offset
// computation.
type StructType struct {
	name string

	// Fields enumerates the fields of the struct in order.
	Fields []StructField

	// FieldsByName is an auxilliary map used to look up structure fields by
	// name instead of by position.
	FieldsByName map[string]int

	// Opaque indicates the aggregate's fields are unknown.  Opaque aggregates
	// have no size and may only be referenced through pointers.
	Opaque bool
}

// StructField is a single field within an aggregate type.
type StructField struct {
	Name string
	Type DataType
}

// NewStructType creates a new aggregate type with the given ordered fields.
func NewStructType(name string, fields ...StructField) *StructType {
	byName := make(map[string]int)
	for i, field := range fields {
		byName[field.Name] = i
	}

	return &StructType{name: name, Fields: fields, FieldsByName: byName}
}

// NewOpaqueType creates a new opaque aggregate type.
func NewOpaqueType(name string) *StructType {
	return &StructType{name: name, Opaque: true}
}

func (st *StructType) Name() string {
	return st.name
}

func (st *StructType) Repr() string {
	return st.name
}

// equals for named aggregates need only compare identity: two distinct
// declarations cannot share a name within one unit.
func (st *StructType) equals(other DataType) bool {
	if ost, ok := other.(*StructType); ok {
		return st == ost
	}

	return false
}

// -----------------------------------------------------------------------------

// FuncType represents a function signature.
type FuncType struct {
	ParamTypes []DataType
	ReturnType DataType

	// Variadic indicates the function accepts additional arguments beyond its
	// declared parameters.  Calls to variadic functions must restate the full
	// signature at the call site since the declared type is incomplete.
	Variadic bool

	// Throws indicates the function participates in the exception propagation
	// convention: it returns an exception pointer (null on success) and
	// delivers its declared result through an output parameter.
	Throws bool
}

func (ft *FuncType) Repr() string {
	sb := strings.Builder{}

	sb.WriteRune('(')

	for i, param := range ft.ParamTypes {
		sb.WriteString(param.Repr())

		if i < len(ft.ParamTypes)-1 {
			sb.WriteString(", ")
		}
	}

	if ft.Variadic {
		sb.WriteString(", ...")
	}

	sb.WriteString(") -> ")
	sb.WriteString(ft.ReturnType.Repr())

	if ft.Throws {
		sb.WriteString(" throws")
	}

	return sb.String()
}

func (ft *FuncType) equals(other DataType) bool {
	if oft, ok := other.(*FuncType); ok {
		if len(ft.ParamTypes) != len(oft.ParamTypes) {
			return false
		}

		for i, param := range ft.ParamTypes {
			if !Equals(param, oft.ParamTypes[i]) {
				return false
			}
		}

		return Equals(ft.ReturnType, oft.ReturnType) &&
			ft.Variadic == oft.Variadic && ft.Throws == oft.Throws
	}

	return false
}
