// config.go - command-line configuration, parsed with pflag the way the
// rest of the corpus favours a flag package with long-option support over
// hand-rolled os.Args scanning.

package main

import (
	"github.com/spf13/pflag"
)

// Config holds every flag the binary accepts.
type Config struct {
	DataDir    string
	Fullscreen bool
	EgaPal     bool
	Scene      int
	LogLevel   string
}

// ParseConfig parses args (pass os.Args[1:]) into a Config.
func ParseConfig(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("anotherworld", pflag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.DataDir, "data-dir", ".", "directory containing memlist.bin and bank files")
	fs.BoolVar(&cfg.Fullscreen, "fullscreen", false, "display in fullscreen")
	fs.BoolVar(&cfg.EgaPal, "ega-pal", false, "use EGA palettes instead of VGA")
	fs.IntVar(&cfg.Scene, "scene", 1, "start from the given scene number")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
