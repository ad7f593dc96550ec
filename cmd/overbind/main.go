package main

import (
	"io"
	"os"
	"strings"

	"github.com/overbind/overbind/internal/config"
	"github.com/overbind/overbind/internal/configpaths"
	"github.com/overbind/overbind/internal/log"
	"github.com/overbind/overbind/internal/util"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("overbind"),
		kong.Description("Drive a virtual gamepad's sticks from three keyboard keys"),
		kong.UsageOnError(),
		// Flags and env override config file values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeFiles, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		util.ReportFatal("OverBind", err)
		os.Exit(2)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	var reportOut io.Writer
	switch {
	case cli.Log.RawFile != "":
		f, err := os.OpenFile(cli.Log.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("Failed to open report log file", "file", cli.Log.RawFile, "error", err)
			break
		}
		reportOut = f
		closeFiles = append(closeFiles, f)
	case log.ParseLevel(cli.Log.Level) <= log.LevelTrace:
		reportOut = os.Stdout
	}

	ctx.Bind(logger)
	ctx.BindTo(log.NewReportLogger(reportOut), (*log.ReportLogger)(nil))

	if err := ctx.Run(); err != nil {
		logger.Error("OverBind stopped", "error", err)
		util.ReportFatal("OverBind", err)
		for _, c := range closeFiles {
			_ = c.Close()
		}
		ctx.FatalIfErrorf(err)
	}
}

func findUserConfig(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("OVERBIND_CONFIG")
}
