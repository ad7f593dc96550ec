package log

// Config holds the logging flags shared by every command.
type Config struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" enum:"trace,debug,info,warn,error" env:"OVERBIND_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"OVERBIND_LOG_FILE"`
	RawFile string `name:"raw-file" help:"Write a hex dump of every report sent to the controller to this file" env:"OVERBIND_LOG_RAW_FILE"`
}
