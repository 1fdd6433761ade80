package depm

import (
	"testing"

	"cinder/ast"
	"cinder/report"
	"cinder/typing"

	"github.com/pelletier/go-toml"
)

// decodeManifest unmarshals a manifest literal and decodes its declarations.
func decodeManifest(t *testing.T, manifest string) (*Unit, error) {
	t.Helper()

	tu := &tomlUnit{}
	if err := toml.Unmarshal([]byte(manifest), tu); err != nil {
		t.Fatalf("manifest literal does not parse: %s", err.Error())
	}

	unit := &Unit{Name: tu.Name}
	return unit, decodeDecls(unit, tu)
}

// wantDecodeError asserts decoding fails with a build error of the given kind.
func wantDecodeError(t *testing.T, manifest string, kind int) {
	t.Helper()

	_, err := decodeManifest(t, manifest)
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

const fullManifest = `
name = "demo"

[[aggregates]]
name = "Point"

[[aggregates.fields]]
name = "x"
type = "f64"

[[aggregates.fields]]
name = "y"
type = "f64"

[[aggregates]]
name = "Handle"
opaque = true

[[classes]]
name = "Shape"

[[classes.fields]]
name = "id"
type = "u32"
default = 7

[[classes.methods]]
name = "area"
returns = "f64"
virtual = true

[[classes]]
name = "Circle"

[[classes.bases]]
name = "Shape"

[[classes.fields]]
name = "radius"
type = "f64"
default = 1.5

[[classes.fields]]
name = "origin"
type = "*Point"

[[classes.methods]]
name = "area"
returns = "f64"
virtual = true

[[functions]]
name = "printf"
params = ["*u8"]
returns = "i32"
variadic = true

[[functions]]
name = "parse"
params = ["*u8"]
returns = "i64"
throws = true
`

func TestDecodeFullManifest(t *testing.T) {
	unit, err := decodeManifest(t, fullManifest)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if len(unit.Aggregates) != 2 || len(unit.Classes) != 2 || len(unit.Defs) != 2 {
		t.Fatalf("got %d aggregates, %d classes, %d defs; want 2, 2, 2",
			len(unit.Aggregates), len(unit.Classes), len(unit.Defs))
	}

	point := unit.Aggregates[0]
	if len(point.Fields) != 2 || point.FieldsByName["y"] != 1 {
		t.Error("aggregate `Point` fields did not decode")
	}

	if !unit.Aggregates[1].Opaque {
		t.Error("aggregate `Handle` is not opaque")
	}

	shape := unit.Classes[0]
	if shape.Fields[0].Default == nil || shape.Fields[0].Default.IntVal != 7 {
		t.Error("integer field default did not decode")
	}
	if len(shape.Methods) != 1 || !shape.Methods[0].Virtual {
		t.Error("virtual method `area` did not decode")
	}

	circle := unit.Classes[1]
	if len(circle.Bases) != 1 || circle.Bases[0].Class != shape {
		t.Fatal("base `Shape` did not resolve")
	}

	radius := circle.Fields[0]
	if radius.Default == nil || !radius.Default.IsFloat || radius.Default.FloatVal != 1.5 {
		t.Error("floating field default did not decode")
	}

	origin, ok := circle.Fields[1].Type.(*typing.PointerType)
	if !ok || !typing.Equals(origin.ElemType, point) {
		t.Error("pointer field `origin` did not resolve to `*Point`")
	}

	printf, ok := unit.Defs[0].(*ast.FuncDef)
	if !ok || printf.Name != "printf" || !printf.Signature.Variadic {
		t.Error("variadic function `printf` did not decode")
	}

	parse, ok := unit.Defs[1].(*ast.FuncDef)
	if !ok || parse.Name != "parse" || !parse.Signature.Throws {
		t.Error("throwing function `parse` did not decode")
	}
}

func TestDecodeRejectsUndeclaredType(t *testing.T) {
	wantDecodeError(t, `
name = "demo"

[[classes]]
name = "C"

[[classes.fields]]
name = "x"
type = "Missing"
`, report.ErrKindSymbol)
}

func TestDecodeRejectsForwardBase(t *testing.T) {
	// bases must be declared before the classes derived from them
	wantDecodeError(t, `
name = "demo"

[[classes]]
name = "Derived"

[[classes.bases]]
name = "Base"

[[classes]]
name = "Base"
`, report.ErrKindUnit)
}

func TestDecodeRejectsDuplicateName(t *testing.T) {
	wantDecodeError(t, `
name = "demo"

[[classes]]
name = "C"

[[classes]]
name = "C"
`, report.ErrKindUnit)
}

func TestDecodeRejectsNonClassBase(t *testing.T) {
	wantDecodeError(t, `
name = "demo"

[[aggregates]]
name = "P"

[[classes]]
name = "C"

[[classes.bases]]
name = "P"
`, report.ErrKindUnit)
}

// -----------------------------------------------------------------------------

func TestValidateUnitDefaults(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	unit := &Unit{AbsPath: "/tmp/demo"}
	tu := &tomlUnit{Name: "demo"}

	if !validateUnit(unit, tu) {
		t.Fatal("valid manifest rejected")
	}

	if unit.WordSize != 8 {
		t.Errorf("got default word size %d, want 8", unit.WordSize)
	}

	if unit.OutputPath != "/tmp/demo/demo.ll" {
		t.Errorf("got output path `%s`, want `/tmp/demo/demo.ll`", unit.OutputPath)
	}
}

func TestValidateUnitRejectsBadWordSize(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	unit := &Unit{AbsPath: "/tmp/demo"}
	if validateUnit(unit, &tomlUnit{Name: "demo", WordSize: 3}) {
		t.Fatal("word size 3 accepted")
	}
}
