package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding maps a config key to an environment variable whose name does
// not follow the VIA2COCO_<KEY> pattern.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"convert.categories", "VIA2COCO_CATEGORIES", nil},
		{"convert.firstcategoryid", "VIA2COCO_FIRST_CATEGORY_ID", validateEnvInt},
		{"log.level", "VIA2COCO_LOG_LEVEL", validateEnvLogLevel},
		{"telemetry.dsn", "SENTRY_DSN", nil},
	}
}

// bindEnvVars binds the aliases and reports invalid values in one error.
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		// the generated name stays valid next to the alias
		generated := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(binding.ConfigKey, ".", "_"))
		if err := viper.BindEnv(binding.ConfigKey, generated, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvInt(value string) error {
	if _, err := strconv.Atoi(value); err != nil {
		return fmt.Errorf("must be an integer")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !isLogLevel(value) {
		return fmt.Errorf("must be one of %s", strings.Join(logLevels, ", "))
	}
	return nil
}
