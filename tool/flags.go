package tool

import (
	"flag"

	"github.com/mizuha/uploadq-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override API port")
	flag.StringVar(&cfg.UseSpoolFolder, "useSpoolFolder", "", "override spool folder for multipart enqueues")
	flag.StringVar(&cfg.UseDefaultEndpoint, "useDefaultEndpoint", "", "default upload endpoint when a command omits url")
	flag.Parse()
	return cfg
}
