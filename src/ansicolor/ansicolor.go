// Package ansicolor holds the escape sequences used for terminal output.
// All of them become empty strings when the output is not a terminal.
package ansicolor

import (
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
)

var Reset = "\033[0m"
var Bold = "\033[1m"
var Faint = "\033[2m"

var Red = "\033[31m"
var Green = "\033[32m"
var Yellow = "\033[33m"
var Blue = "\033[34m"
var Cyan = "\033[36m"
var Gray = "\033[37m"

var BgRed = "\033[41m"
var BgYellow = "\033[43m"
var BgBlue = "\033[44m"

func init() {
	if runtime.GOOS == "windows" || !isatty.IsTerminal(os.Stderr.Fd()) {
		Disable()
	}
}

// Blanks every escape sequence, e.g. for log files or tests.
func Disable() {
	for _, c := range []*string{
		&Reset, &Bold, &Faint,
		&Red, &Green, &Yellow, &Blue, &Cyan, &Gray,
		&BgRed, &BgYellow, &BgBlue,
	} {
		*c = ""
	}
}
