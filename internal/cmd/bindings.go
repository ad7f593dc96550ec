package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/overbind/overbind/internal/keybind"
)

// BindingsCommand groups bindings-file subcommands.
type BindingsCommand struct {
	Init BindingsInit `cmd:"" help:"Write a bindings file"`
}

// BindingsInit writes a bindings file from the given codes, or from A, D and
// Space when none are given.
type BindingsInit struct {
	Codes  []string `arg:"" optional:"" help:"Three hex key codes: left, right, up"`
	Output string   `help:"Destination file" default:"OverBind_conf.txt"`
	Force  bool     `help:"Overwrite if the file already exists"`
}

// defaultBinding is A, D and Space in the platform's key codes.
func defaultBinding() keybind.Binding {
	if runtime.GOOS == "linux" {
		return keybind.Binding{0x1e, 0x20, 0x39}
	}
	return keybind.Binding{0x41, 0x44, 0x20}
}

func (b *BindingsInit) Run(logger *slog.Logger) error {
	binding := defaultBinding()
	if len(b.Codes) > 0 {
		if len(b.Codes) != keybind.SlotCount {
			return fmt.Errorf("expected %d key codes, got %d", keybind.SlotCount, len(b.Codes))
		}
		var err error
		binding, err = keybind.Parse(strings.NewReader(strings.Join(b.Codes, "\n")))
		if err != nil {
			return err
		}
	}

	if !b.Force {
		if _, err := os.Stat(b.Output); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := os.WriteFile(b.Output, []byte(keybind.Format(binding)), 0o644); err != nil {
		return err
	}
	logger.Info("Wrote key bindings", "file", b.Output)
	return nil
}
