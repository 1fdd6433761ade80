package cmd

import (
	"os"
	"path/filepath"

	"cinder/depm"
	"cinder/generate"
	"cinder/layout"
	"cinder/object"
	"cinder/report"
)

// Compiler represents the global state of the compiler.
type Compiler struct {
	// unitAbsPath is the absolute path to the unit being compiled.
	unitAbsPath string

	// unit is the loaded compilation unit.
	unit *depm.Unit

	// eng is the layout engine for the unit's target word size.
	eng *layout.Engine

	// builder is the object model builder for the unit's classes.
	builder *object.Builder
}

// NewCompiler creates a new compiler.
func NewCompiler(unitRelPath string) *Compiler {
	// calculate the absolute path to the unit
	unitAbsPath, err := filepath.Abs(unitRelPath)
	if err != nil {
		report.ReportFatal("error calculating absolute path: %s", err.Error())
		return nil
	}

	return &Compiler{unitAbsPath: unitAbsPath}
}

// Analyze runs the analysis phase of the compiler: the unit manifest is
// loaded, every declared type's layout is computed, and every class's object
// model (vtable and constructor plan) is built.
func (c *Compiler) Analyze() bool {
	// load the unit
	unit, ok := depm.LoadUnit(c.unitAbsPath)
	if !ok {
		return false
	}
	c.unit = unit

	c.eng = layout.NewEngine(unit.WordSize)
	c.builder = object.NewBuilder(c.eng)

	// build the object model of every class.  Building a class builds its
	// bases first, so declaration order alone covers the whole unit.
	for _, ct := range unit.Classes {
		if _, err := c.builder.Build(ct); err != nil {
			report.ReportBuildError(err.(*report.BuildError))
		}
	}

	// verify every non-opaque aggregate has a computable layout
	for _, st := range unit.Aggregates {
		if st.Opaque {
			continue
		}

		if _, err := c.eng.Of(st); err != nil {
			report.ReportBuildError(err.(*report.BuildError))
		}
	}

	return !report.AnyErrors()
}

// Generate runs the generation phase of the compiler and writes the emitted
// LLVM module to the unit's output path.  The analysis phase must be run
// before this.
func (c *Compiler) Generate() {
	defer report.CatchErrors()

	g := generate.NewGenerator(c.eng, c.builder, c.unit.Classes, c.unit.Defs)
	llMod := g.Generate()

	writeOutputFile(c.unit.OutputPath, llMod.String())
}

// writeOutputFile is used to quickly write an output file for the compiler.
func writeOutputFile(fpath, content string) {
	// open or create the file
	file, err := os.OpenFile(fpath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0777)
	if err != nil {
		report.ReportFatal("failed to open output file `%s`: %s", fpath, err.Error())
	}
	defer file.Close()

	// write the data
	_, err = file.WriteString(content)
	if err != nil {
		report.ReportFatal("failed to write output to file `%s`: %s", fpath, err.Error())
	}
}
