package tool

import (
	"strings"

	"github.com/charmbracelet/log"
)

var DefaultLogger = log.Default()

// InitLogger configures the shared logger and applies the log mode:
// dev (debug), prod (info) or none (fatal only).
func InitLogger(mode string) {
	DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	DefaultLogger.SetReportCaller(true)
	switch strings.ToLower(mode) {
	case "", "dev":
		DefaultLogger.SetLevel(log.DebugLevel)
	case "prod":
		DefaultLogger.SetLevel(log.InfoLevel)
	case "none":
		DefaultLogger.SetLevel(log.FatalLevel)
	default:
		DefaultLogger.SetLevel(log.DebugLevel)
		DefaultLogger.Warnf("Unknown log mode %q, using debug level", mode)
	}
}
