package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives errors as they are built.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter sends errors to Sentry as scrubbed events.
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter returns a reporter, inactive unless enabled.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{
		enabled: enabled,
	}
}

func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError captures ee once.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}
	sentry.CaptureEvent(newEvent(ee))
	ee.MarkReported()
}

// newEvent converts ee into a scrubbed event. Entry and region keys become
// searchable tags, other context values are attached as contexts.
func newEvent(ee *EnhancedError) *sentry.Event {
	title := generateErrorTitle(ee)
	message := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))

	event := sentry.NewEvent()
	event.Message = message
	event.Level = eventLevel(ee.Category)
	event.Fingerprint = []string{title, ee.Component, string(ee.Category)}
	event.Exception = []sentry.Exception{{Type: title, Value: message}}
	event.Tags = map[string]string{
		"error_title": title,
		"component":   ee.Component,
		"category":    string(ee.Category),
		"error_type":  fmt.Sprintf("%T", ee.Err),
	}

	for key, value := range ee.GetContext() {
		if str, ok := value.(string); ok {
			value = scrubMessageForPrivacy(str)
		}
		switch key {
		case ContextEntry, ContextRegion:
			event.Tags[key] = fmt.Sprint(value)
		default:
			event.Contexts[key] = sentry.Context{"value": value}
		}
	}

	return event
}

// generateErrorTitle builds titles such as "Via File Parsing Error".
func generateErrorTitle(ee *EnhancedError) string {
	var titleParts []string

	if ee.Component != "" && ee.Component != ComponentUnknown {
		titleParts = append(titleParts, titleCase(ee.Component))
	}

	if categoryTitle := formatCategoryForTitle(ee.Category); categoryTitle != "" {
		titleParts = append(titleParts, categoryTitle)
	}

	if len(titleParts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}

	return strings.Join(titleParts, " ")
}

func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryFileParsing:
		return "File Parsing Error"
	case CategoryImageDecode:
		return "Image Decode Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryDatabase:
		return "Database Error"
	case CategoryConversion:
		return "Conversion Error"
	default:
		return string(category)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func eventLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryFileIO:
		return sentry.LevelWarning // usually a wrong path on the command line
	default:
		return sentry.LevelError
	}
}

var (
	globalTelemetryReporter TelemetryReporter
	reporterMu              sync.RWMutex
)

// SetTelemetryReporter installs reporter for all later Build calls. Nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	globalTelemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	reporter := globalTelemetryReporter
	reporterMu.RUnlock()

	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

var (
	absPathRegex = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[\\/][^\\/\s:"']+)+[\\/]([^\\/\s:"']+)`)
	homeDirRegex = regexp.MustCompile(`~[\\/]\S+`)
	queryRegex   = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	tokenRegex   = regexp.MustCompile(`(?i)(api[_-]?key|token|auth)[=:]\S+`)
)

// scrubMessageForPrivacy strips directory components and credentials from messages.
// File base names are kept since they are needed to find the offending input.
func scrubMessageForPrivacy(message string) string {
	scrubbed := queryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = tokenRegex.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
	scrubbed = homeDirRegex.ReplaceAllString(scrubbed, "[PATH]")
	scrubbed = absPathRegex.ReplaceAllString(scrubbed, "[PATH]/$1")
	return scrubbed
}
