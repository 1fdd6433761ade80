package report

import (
	"fmt"

	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = SuccessColorFG
	InfoStyleBG    = SuccessStyleBG
)

// errorKindStrings maps build error kinds to their display labels.
var errorKindStrings = map[int]string{
	ErrKindLayout:      "Layout",
	ErrKindCycle:       "Cycle",
	ErrKindInheritance: "Inheritance",
	ErrKindSymbol:      "Symbol",
	ErrKindUnit:        "Unit",
}

// displayICE displays an internal compiler error message.
func displayICE(message string) {
	ErrorStyleBG.Print("Internal Error")
	ErrorColorFG.Println(" " + message)
	fmt.Print("This error was not supposed to happen: please open an issue on GitHub\n\n")
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	ErrorStyleBG.Print("Fatal Error")
	ErrorColorFG.Println(" " + message)
}

// displayBuildError displays a build error with its kind banner and the name
// of the offending declaration.
func displayBuildError(be *BuildError) {
	ErrorStyleBG.Print(errorKindStrings[be.Kind] + " Error")
	ErrorColorFG.Println(" " + be.Error())
}

// displayWarning displays a warning message tagged with its unit name.
func displayWarning(tag, msg string) {
	WarnStyleBG.Print(tag)
	WarnColorFG.Println(" " + msg)
}

// DisplayInfoMessage prints an informational message to the user.
func DisplayInfoMessage(tag, msg string) {
	InfoStyleBG.Print(tag)
	InfoColorFG.Println(" " + msg)
}

// DisplayBuildFinished prints the concluding message of a successful build.
func DisplayBuildFinished(outputPath string) {
	if rep.shows(LogLevelVerbose) {
		DisplayInfoMessage("Build Finished", outputPath)
	}
}
