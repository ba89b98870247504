package conf

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// ValidationError collects every problem found in the settings.
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings checks the settings that do not depend on the command
// being run.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateConvertSettings(&settings.Convert)...)
	ve.Errors = append(ve.Errors, validateOutputSettings(&settings.Output)...)
	ve.Errors = append(ve.Errors, validateLogSettings(&settings.Log)...)

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry is enabled but no DSN is set")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateConvertSettings(settings *ConvertSettings) []string {
	var errs []string

	for i, name := range settings.Categories {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Sprintf("category name %d is empty", i))
		}
	}
	if len(settings.Categories) > 0 && settings.CategoriesFile != "" {
		errs = append(errs, "categories and categories file are mutually exclusive")
	}

	return errs
}

func validateOutputSettings(settings *OutputSettings) []string {
	var errs []string

	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		errs = append(errs, "SQLite export is enabled but no path is set")
	}
	if settings.Metrics.Enabled && settings.Metrics.Path == "" {
		errs = append(errs, "metrics export is enabled but no path is set")
	}

	return errs
}

func validateLogSettings(settings *LogSettings) []string {
	var errs []string

	if !isLogLevel(settings.Level) {
		errs = append(errs, fmt.Sprintf("invalid log level %q, must be one of %s", settings.Level, strings.Join(logLevels, ", ")))
	}
	if tz := settings.Timezone; tz != "" && tz != "Local" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Sprintf("invalid log timezone %q", tz))
		}
	}
	for _, module := range slices.Sorted(maps.Keys(settings.Modules)) {
		if level := settings.Modules[module]; !isLogLevel(level) {
			errs = append(errs, fmt.Sprintf("invalid log level %q for module %s", level, module))
		}
	}

	return errs
}

func isLogLevel(level string) bool {
	return slices.Contains(logLevels, level)
}
