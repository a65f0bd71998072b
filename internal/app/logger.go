package app

import (
	"strings"

	"github.com/aurorasociety/clubhouse/pkg/logger"
)

// ConfigureLogging initialises the global logger from the configured level.
// Levels are matched case-insensitively and "warning" is accepted as an alias
// for "warn". An empty level means info.
func ConfigureLogging(level string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		level = "info"
	case "warning":
		level = "warn"
	}
	return logger.Init(level)
}
