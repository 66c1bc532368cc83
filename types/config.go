package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	Port            int     `yaml:"port"`
	SpoolFolder     string  `yaml:"spoolFolder"`
	DefaultEndpoint string  `yaml:"defaultEndpoint,omitempty"`
	DefaultMethod   string  `yaml:"defaultMethod"`
	EventBufferSize int     `yaml:"eventBufferSize"`
	TicksPerSecond  float64 `yaml:"ticksPerSecond"` // upload-progress tick rate per job
	InsecureTLS     bool    `yaml:"insecureTLS"`    // skip endpoint certificate verification
}

// Config holds runtime overrides from CLI flags.
type Config struct {
	Log                string
	UseConfigPath      string
	UsePort            int
	UseSpoolFolder     string
	UseDefaultEndpoint string
}
