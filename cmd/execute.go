package cmd

import (
	"os"

	"cinder/common"
	"cinder/report"

	"github.com/ComedicChimera/olive"
)

// Execute is the main entry point for the `cinderc` CLI utility
func Execute() {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("cinderc", "cinderc is a backend for compiling Cinder units", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false, []string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	buildCmd := cli.AddSubcommand("build", "compile a unit", true)
	buildCmd.AddPrimaryArg("unit-path", "the path to the unit to build", true)

	cli.AddSubcommand("version", "print the Cinder version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.ReportFatal(err.Error())
	}

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		execBuildCommand(subResult, result.Arguments["loglevel"].(string))
	case "version":
		report.DisplayInfoMessage("Cinder Version", common.CinderVersion)
	}
}

// execBuildCommand executes the build subcommand and handles all errors
func execBuildCommand(result *olive.ArgParseResult, loglevel string) {
	// initialize the reporter
	report.InitReporter(logLevelFromString(loglevel))

	// get the primary argument: the unit path
	unitPath, _ := result.PrimaryArg()

	// create the compiler
	c := NewCompiler(unitPath)

	// run analysis
	if c.Analyze() {
		// if analysis succeeds, run generation
		c.Generate()
	}

	if !report.AnyErrors() {
		report.DisplayBuildFinished(c.unit.OutputPath)
	}
}

// logLevelFromString converts a log level selector value into a log level.
func logLevelFromString(loglevel string) int {
	switch loglevel {
	case "silent":
		return report.LogLevelSilent
	case "error":
		return report.LogLevelError
	case "warn":
		return report.LogLevelWarn
	default:
		return report.LogLevelVerbose
	}
}
