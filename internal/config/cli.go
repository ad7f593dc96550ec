// Package config declares the command line, which doubles as the schema of
// the optional JSON/YAML/TOML config files.
package config

import (
	"github.com/overbind/overbind/internal/cmd"
	"github.com/overbind/overbind/internal/log"
)

type CLI struct {
	ConfigFile string     `name:"config" help:"Config file to load before the default locations" env:"OVERBIND_CONFIG"`
	Log        log.Config `embed:"" prefix:"log."`

	Run      cmd.Run             `cmd:"" help:"Map the bound keys to a virtual controller until interrupted"`
	Bindings cmd.BindingsCommand `cmd:"" help:"Manage the key bindings file"`
	Config   cmd.ConfigCommand   `cmd:"" help:"Manage configuration files"`
}
