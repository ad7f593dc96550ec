// Package util holds the little platform glue needed around the console.
package util

import (
	"os"

	"golang.org/x/term"
)

// ReportFatal shows err in a modal dialog when stderr is not a terminal, so
// a user who double-clicked the executable still sees why it quit. It is a
// no-op on platforms without dialogs.
func ReportFatal(title string, err error) {
	if err == nil || term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	showDialog(title, err.Error())
}
