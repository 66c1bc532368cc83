package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mizuha/uploadq-go/types"
)

var ConfigPath = "config.yaml" // be aware that it can be changed, default to ./config.yaml

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		Port:            53320,
		SpoolFolder:     "spool",
		DefaultMethod:   "POST",
		EventBufferSize: 256,
		TicksPerSecond:  10,
		InsecureTLS:     true, // receivers commonly run with self-signed certs
	}
}

// LoadConfig reads the yaml config at path, creating it with defaults when it
// does not exist yet. Missing fields fall back to their defaults.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if werr := SaveConfig(path, cfg); werr != nil {
			return cfg, fmt.Errorf("failed to write default config: %w", werr)
		}
		DefaultLogger.Infof("Created default config at %s", path)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultConfig().Port
	}
	if cfg.SpoolFolder == "" {
		cfg.SpoolFolder = defaultConfig().SpoolFolder
	}
	if cfg.DefaultMethod == "" {
		cfg.DefaultMethod = defaultConfig().DefaultMethod
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = defaultConfig().EventBufferSize
	}
	if cfg.TicksPerSecond <= 0 {
		cfg.TicksPerSecond = defaultConfig().TicksPerSecond
	}
	return cfg, nil
}

// SaveConfig writes the config back to disk.
func SaveConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
