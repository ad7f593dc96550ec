//go:build windows

package main

import (
	"log/slog"
	"os"
	"slices"

	"github.com/overbind/overbind/internal/util"
)

// Double-clicking the executable runs the mapper with its defaults.
func init() {
	if !util.IsRunFromGUI() {
		return
	}
	if len(os.Args) >= 2 && slices.Contains([]string{"run", "bindings", "config"}, os.Args[1]) {
		return
	}
	slog.Info("Detected GUI startup, running with default settings")
	slog.Warn("Run from a terminal for more options!")
	os.Args = slices.Insert(os.Args, 1, "run")
}
