package depm

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"cinder/common"
	"cinder/report"

	"github.com/pelletier/go-toml"
)

// tomlUnit represents a compilation unit as it is encoded in TOML.
type tomlUnit struct {
	Name       string          `toml:"name"`
	WordSize   int             `toml:"word-size"`
	OutputPath string          `toml:"output-path"`
	Aggregates []tomlAggregate `toml:"aggregates"`
	Classes    []tomlClass     `toml:"classes"`
	Functions  []tomlFunction  `toml:"functions"`
}

type tomlAggregate struct {
	Name   string      `toml:"name"`
	Opaque bool        `toml:"opaque"`
	Fields []tomlField `toml:"fields"`
}

type tomlClass struct {
	Name    string       `toml:"name"`
	Bases   []tomlBase   `toml:"bases"`
	Fields  []tomlField  `toml:"fields"`
	Methods []tomlMethod `toml:"methods"`
}

type tomlBase struct {
	Name    string `toml:"name"`
	Virtual bool   `toml:"virtual"`
}

type tomlField struct {
	Name    string      `toml:"name"`
	Type    string      `toml:"type"`
	Default interface{} `toml:"default"`
}

type tomlMethod struct {
	Name    string   `toml:"name"`
	Params  []string `toml:"params"`
	Returns string   `toml:"returns"`
	Virtual bool     `toml:"virtual"`
	Throws  bool     `toml:"throws"`
}

type tomlFunction struct {
	Name     string   `toml:"name"`
	Params   []string `toml:"params"`
	Returns  string   `toml:"returns"`
	Variadic bool     `toml:"variadic"`
	Throws   bool     `toml:"throws"`
}

// LoadUnit loads and validates a compilation unit.  `abspath` is the absolute
// path to the unit directory.  This function returns the decoded unit and a
// success boolean.
func LoadUnit(abspath string) (*Unit, bool) {
	f, err := os.Open(filepath.Join(abspath, common.UnitFileName))
	if err != nil {
		report.ReportFatal("unable to open unit file at `%s`: %s", abspath, err.Error())
		return nil, false
	}
	defer f.Close()

	buff, err := ioutil.ReadAll(f)
	if err != nil {
		report.ReportFatal("error reading unit file at `%s`: %s", abspath, err.Error())
		return nil, false
	}

	tu := &tomlUnit{}
	if err := toml.Unmarshal(buff, tu); err != nil {
		report.ReportFatal("error parsing unit file at `%s`: %s", abspath, err.Error())
		return nil, false
	}

	unit := &Unit{AbsPath: abspath}
	if !validateUnit(unit, tu) {
		return nil, false
	}

	if err := decodeDecls(unit, tu); err != nil {
		report.ReportBuildError(err.(*report.BuildError))
		return nil, false
	}

	return unit, true
}

// validateUnit checks that the top-level unit manifest contents are valid and
// moves them onto the unit.
func validateUnit(unit *Unit, tu *tomlUnit) bool {
	if tu.Name == "" {
		report.ReportBuildError(report.Raise(report.ErrKindUnit,
			"<unit at `"+unit.AbsPath+"`>", "missing unit name"))
		return false
	}

	switch tu.WordSize {
	case 0:
		tu.WordSize = common.PointerSize
	case 4, 8:
	default:
		report.ReportBuildError(report.Raise(report.ErrKindUnit, tu.Name,
			"unsupported word size %d: must be 4 or 8", tu.WordSize))
		return false
	}

	if tu.OutputPath == "" {
		tu.OutputPath = tu.Name + common.OutputFileExt
	} else if filepath.Ext(tu.OutputPath) != common.OutputFileExt {
		report.ReportUnitWarning(tu.Name, "output path does not use the `"+common.OutputFileExt+"` extension")
	}

	unit.Name = tu.Name
	unit.WordSize = tu.WordSize

	if filepath.IsAbs(tu.OutputPath) {
		unit.OutputPath = tu.OutputPath
	} else {
		unit.OutputPath = filepath.Join(unit.AbsPath, tu.OutputPath)
	}

	return true
}
