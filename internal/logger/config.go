package logger

// LoggingConfig describes the outputs of a CentralLogger.
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" json:"default_level" mapstructure:"default_level"`
	Timezone     string            `yaml:"timezone" json:"timezone"` // "" or "Local" for the host zone
	Console      *ConsoleOutput    `yaml:"console" json:"console"`
	FileOutput   *FileOutput       `yaml:"file_output" json:"file_output" mapstructure:"file_output"`
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels" mapstructure:"module_levels"`
}

// ConsoleOutput is plain text on stdout.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Level   string `yaml:"level" json:"level"`
}

// FileOutput is JSON lines appended to Path.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Level   string `yaml:"level" json:"level"`
}

const (
	DefaultLogLevel = "info"
	DefaultLogPath  = "via2coco.log"
)

// applyConfigDefaults enables the console at the default level when it is
// not configured. The file output is never enabled here.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{Enabled: true, Level: cfg.DefaultLevel}
	}
	if cfg.FileOutput != nil && cfg.FileOutput.Enabled && cfg.FileOutput.Path == "" {
		cfg.FileOutput.Path = DefaultLogPath
	}
}
