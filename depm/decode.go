package depm

import (
	"strings"

	"cinder/ast"
	"cinder/report"
	"cinder/typing"
)

// primTypeNames maps manifest type names to primitive types.
var primTypeNames = map[string]typing.PrimType{
	"u8":   typing.PrimU8,
	"u16":  typing.PrimU16,
	"u32":  typing.PrimU32,
	"u64":  typing.PrimU64,
	"i8":   typing.PrimI8,
	"i16":  typing.PrimI16,
	"i32":  typing.PrimI32,
	"i64":  typing.PrimI64,
	"f32":  typing.PrimF32,
	"f64":  typing.PrimF64,
	"bool": typing.PrimBool,
	"unit": typing.PrimUnit,
}

// decoder resolves manifest type names against the unit's declared types.
type decoder struct {
	unit  *Unit
	named map[string]typing.DataType
}

// decodeDecls decodes the manifest's declaration tables into the unit.  Named
// types are created in a first pass so fields and signatures may reference
// any declared type regardless of order; base lists, however, must refer to
// classes declared earlier, which also rules out declaration cycles at the
// manifest boundary.
func decodeDecls(unit *Unit, tu *tomlUnit) error {
	d := &decoder{unit: unit, named: make(map[string]typing.DataType)}

	for _, ta := range tu.Aggregates {
		if err := d.declareName(ta.Name); err != nil {
			return err
		}

		var st *typing.StructType
		if ta.Opaque {
			st = typing.NewOpaqueType(ta.Name)
		} else {
			st = typing.NewStructType(ta.Name)
		}

		d.named[ta.Name] = st
		unit.Aggregates = append(unit.Aggregates, st)
	}

	for _, tc := range tu.Classes {
		if err := d.declareName(tc.Name); err != nil {
			return err
		}

		ct := typing.NewClassType(tc.Name)
		d.named[tc.Name] = ct
		unit.Classes = append(unit.Classes, ct)
	}

	// second pass: fill in field lists, base lists, and signatures
	for i, ta := range tu.Aggregates {
		if ta.Opaque {
			continue
		}

		st := unit.Aggregates[i]
		for _, tf := range ta.Fields {
			fieldType, err := d.resolveType(tf.Type, ta.Name)
			if err != nil {
				return err
			}

			st.FieldsByName[tf.Name] = len(st.Fields)
			st.Fields = append(st.Fields, typing.StructField{Name: tf.Name, Type: fieldType})
		}
	}

	for i, tc := range tu.Classes {
		if err := d.decodeClass(unit.Classes[i], tc); err != nil {
			return err
		}
	}

	for _, tf := range tu.Functions {
		fd, err := d.decodeFunction(tf)
		if err != nil {
			return err
		}

		unit.Defs = append(unit.Defs, fd)
	}

	return nil
}

// declareName reserves a type name, rejecting duplicates.
func (d *decoder) declareName(name string) error {
	if name == "" {
		return report.Raise(report.ErrKindUnit, d.unit.Name, "declaration missing a name")
	}

	if _, ok := d.named[name]; ok {
		return report.Raise(report.ErrKindUnit, name, "type `%s` is declared more than once", name)
	}

	return nil
}

// decodeClass fills in one class declaration.
func (d *decoder) decodeClass(ct *typing.ClassType, tc tomlClass) error {
	for _, tb := range tc.Bases {
		baseType, ok := d.named[tb.Name]
		if !ok {
			return report.Raise(report.ErrKindSymbol, tc.Name,
				"base `%s` of class `%s` is not declared", tb.Name, tc.Name)
		}

		base, ok := baseType.(*typing.ClassType)
		if !ok {
			return report.Raise(report.ErrKindUnit, tc.Name,
				"base `%s` of class `%s` is not a class", tb.Name, tc.Name)
		}

		if !d.declaredBefore(base, ct) {
			return report.Raise(report.ErrKindUnit, tc.Name,
				"base `%s` must be declared before class `%s`", tb.Name, tc.Name)
		}

		ct.Bases = append(ct.Bases, typing.ClassBase{Class: base, Virtual: tb.Virtual})
	}

	for _, tf := range tc.Fields {
		fieldType, err := d.resolveType(tf.Type, tc.Name)
		if err != nil {
			return err
		}

		field := typing.ClassField{Name: tf.Name, Type: fieldType}

		switch v := tf.Default.(type) {
		case nil:
		case int64:
			field.Default = &typing.ConstValue{IntVal: v}
		case float64:
			field.Default = &typing.ConstValue{FloatVal: v, IsFloat: true}
		case bool:
			if v {
				field.Default = &typing.ConstValue{IntVal: 1}
			}
		default:
			return report.Raise(report.ErrKindUnit, tc.Name,
				"unsupported default value for field `%s`", tf.Name)
		}

		ct.Fields = append(ct.Fields, field)
	}

	for _, tm := range tc.Methods {
		sig, err := d.decodeSignature(tm.Params, tm.Returns, false, tm.Throws, tc.Name)
		if err != nil {
			return err
		}

		ct.Methods = append(ct.Methods, &typing.Method{
			Name:      tm.Name,
			Signature: sig,
			Virtual:   tm.Virtual,
		})
	}

	return nil
}

// decodeFunction decodes one external function declaration.
func (d *decoder) decodeFunction(tf tomlFunction) (*ast.FuncDef, error) {
	sig, err := d.decodeSignature(tf.Params, tf.Returns, tf.Variadic, tf.Throws, tf.Name)
	if err != nil {
		return nil, err
	}

	params := make([]*ast.FuncParam, len(sig.ParamTypes))
	for i, paramType := range sig.ParamTypes {
		params[i] = &ast.FuncParam{Name: "", Type: paramType, Constant: true}
	}

	return &ast.FuncDef{Name: tf.Name, Params: params, Signature: sig}, nil
}

// decodeSignature decodes a parameter list and return type.
func (d *decoder) decodeSignature(params []string, returns string, variadic, throws bool, decl string) (*typing.FuncType, error) {
	paramTypes := make([]typing.DataType, len(params))
	for i, param := range params {
		paramType, err := d.resolveType(param, decl)
		if err != nil {
			return nil, err
		}

		paramTypes[i] = paramType
	}

	retType := typing.DataType(typing.PrimType(typing.PrimUnit))
	if returns != "" {
		var err error
		if retType, err = d.resolveType(returns, decl); err != nil {
			return nil, err
		}
	}

	return &typing.FuncType{
		ParamTypes: paramTypes,
		ReturnType: retType,
		Variadic:   variadic,
		Throws:     throws,
	}, nil
}

// resolveType resolves a manifest type name: a primitive name, a declared
// named type, or any of those behind one or more `*` pointer markers.
func (d *decoder) resolveType(name, decl string) (typing.DataType, error) {
	if strings.HasPrefix(name, "*") {
		elem, err := d.resolveType(name[1:], decl)
		if err != nil {
			return nil, err
		}

		return &typing.PointerType{ElemType: elem}, nil
	}

	if pt, ok := primTypeNames[name]; ok {
		return pt, nil
	}

	if named, ok := d.named[name]; ok {
		return named, nil
	}

	return nil, report.Raise(report.ErrKindSymbol, decl, "reference to undeclared type `%s`", name)
}

// declaredBefore returns whether `base` appears before `derived` in the
// unit's class declaration order.
func (d *decoder) declaredBefore(base, derived *typing.ClassType) bool {
	for _, ct := range d.unit.Classes {
		if ct == base {
			return true
		}

		if ct == derived {
			return false
		}
	}

	return false
}
