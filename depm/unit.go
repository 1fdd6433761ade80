// Package depm manages compilation units: it loads and validates the TOML
// unit manifest and decodes the manifest's declaration tables into the typed
// declaration surface the backend consumes.
package depm

import (
	"cinder/ast"
	"cinder/typing"
)

// Unit is a loaded compilation unit: one declaration set compiled into one
// output module.
type Unit struct {
	// Name is the unit's declared name.
	Name string

	// AbsPath is the absolute path to the unit directory.
	AbsPath string

	// WordSize is the target pointer size in bytes (4 or 8).
	WordSize int

	// OutputPath is the path the emitted module is written to, relative to
	// the unit directory unless absolute.
	OutputPath string

	// Aggregates lists the unit's plain aggregate types in declaration order.
	Aggregates []*typing.StructType

	// Classes lists the unit's classes in declaration order.  Validation
	// guarantees every base precedes the classes derived from it.
	Classes []*typing.ClassType

	// Defs lists the unit's top-level definitions.  Definitions decoded from
	// the manifest are always external declarations; bodies are attached by
	// the embedding toolchain before generation.
	Defs []ast.Def
}

// AddDef appends a definition supplied by the embedding toolchain, such as a
// function with a body built in memory.
func (u *Unit) AddDef(def ast.Def) {
	u.Defs = append(u.Defs, def)
}

// ClassByName finds a declared class by name.
func (u *Unit) ClassByName(name string) (*typing.ClassType, bool) {
	for _, ct := range u.Classes {
		if ct.Name() == name {
			return ct, true
		}
	}

	return nil, false
}
