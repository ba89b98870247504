// Package conf loads via2coco settings from defaults, an optional config
// file, the environment and command-line flags, in increasing precedence.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tphakala/via2coco/internal/errors"
	"github.com/tphakala/via2coco/internal/logger"
)

const (
	configName = "via2coco"
	envPrefix  = "VIA2COCO"
)

// Settings holds every configurable value.
type Settings struct {
	Debug bool // true to enable debug logging

	Convert ConvertSettings // conversion inputs

	Output OutputSettings // optional side outputs

	Log LogSettings // logging configuration

	Telemetry TelemetrySettings // error reporting
}

// ConvertSettings holds the conversion parameters that are not positional
// arguments.
type ConvertSettings struct {
	Categories      []string // ordered category names
	CategoriesFile  string   // file with one category per line, or a YAML list
	FirstCategoryID int      // id of the first category
}

// OutputSettings configures exports written next to the COCO file.
type OutputSettings struct {
	SQLite struct {
		Enabled bool   // true to export the dataset to SQLite
		Path    string // database file
	}
	Metrics struct {
		Enabled bool   // true to write Prometheus textfile metrics
		Path    string // textfile path
	}
}

// LogSettings configures console and file logging.
type LogSettings struct {
	Level    string // debug, info, warn or error
	File     string // JSON log file, empty for console only
	Timezone string // timezone of file log timestamps

	Modules map[string]string // per-module level overrides, e.g. imagemeta: debug
}

// TelemetrySettings configures opt-in Sentry error reporting.
type TelemetrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// Load reads settings. configFile overrides the search path when set; a
// missing file on the search path is not an error.
func Load(configFile string) (*Settings, error) {
	if err := initViper(configFile); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return Unmarshal()
}

// Unmarshal decodes the current viper state into validated settings. It is
// called again after command-line flags are parsed.
func Unmarshal() (*Settings, error) {
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	return settings, nil
}

// initViper registers defaults and environment bindings and reads the
// config file if one exists.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		// an explicit file must exist
		if _, err := os.Stat(configFile); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		for _, path := range DefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// DefaultConfigPaths lists the directories searched for via2coco.yaml.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", configName))
	}
	return append(paths, filepath.Join("/etc", configName))
}

// LoggingConfig maps the log settings onto the logger configuration.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Log.Level
	if s.Debug {
		level = string(logger.LogLevelDebug)
	}

	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Log.Timezone,
		ModuleLevels: s.Log.Modules,
		Console: &logger.ConsoleOutput{
			Enabled: true,
			Level:   level,
		},
	}
	if s.Log.File != "" {
		cfg.FileOutput = &logger.FileOutput{
			Enabled: true,
			Path:    s.Log.File,
			Level:   level,
		}
	}
	return cfg
}
