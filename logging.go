package main

import (
	"os"

	"github.com/charmbracelet/log"
)

// logger is the package-level structured logger every component writes
// warn/info/trace lines through. Built once in main from the parsed
// --log-level flag; defaults to Info so library callers (tests) get a
// reasonably quiet logger without having to call SetupLogging themselves.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
	Level:           log.InfoLevel,
})

// SetupLogging reconfigures the package logger's level from a CLI string
// ("debug", "info", "warn", "error"). Unknown levels fall back to Info.
func SetupLogging(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
}
