package common

// CinderVersion is the current Cinder version as a string.
const CinderVersion string = "0.1.0"

// UnitFileName is the name for Cinder compilation-unit manifest files.
const UnitFileName string = "cinder-unit.toml"

// OutputFileExt is the extension used for emitted LLVM IR text files.
const OutputFileExt string = ".ll"

// PointerSize is the default target pointer size in bytes.  It may be
// overridden per unit by the `word-size` manifest key.
const PointerSize int = 8
