// Package errors attaches a component, a category and location context to
// via2coco errors, and forwards them to an optional telemetry reporter.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors by the stage that produced them.
type ErrorCategory string

// CategorizedError is implemented by errors that carry their own category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryImageDecode   ErrorCategory = "image-decode"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryDatabase      ErrorCategory = "database"
	CategoryConversion    ErrorCategory = "conversion"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// Context keys locating a problem inside an annotation file.
const (
	ContextEntry  = "entry"
	ContextRegion = "region"
)

// hasActiveReporting is true while a telemetry reporter is installed and enabled.
var hasActiveReporting atomic.Bool

// EnhancedError is an error annotated with where and when it happened.
type EnhancedError struct {
	Err       error          // wrapped cause
	Component string         // package that built the error
	Category  ErrorCategory  // stage that failed
	Context   map[string]any // entry, region, file name and similar
	Timestamp time.Time      // when Build ran
	reported  bool           // sent to telemetry
	mu        sync.RWMutex
}

// Error returns the message of the cause.
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, anything else by the cause.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// ErrorCategory returns the category, so an EnhancedError wrapped again keeps it.
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

// GetContext returns a copy of the context, nil when none was set.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}

	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// MarkReported flags the error as sent to telemetry.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported reports whether MarkReported was called.
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder collects the fields of an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts building an error around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf is New with a fmt.Errorf cause.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component names the package that builds the error.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the category. Without one, Build derives it from the cause.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context sets a context value.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Entry records the key of the annotation entry the error belongs to.
func (eb *ErrorBuilder) Entry(key string) *ErrorBuilder {
	return eb.Context(ContextEntry, key)
}

// Region records the key of the region inside the entry.
func (eb *ErrorBuilder) Region(key string) *ErrorBuilder {
	return eb.Context(ContextRegion, key)
}

// FileContext records the base name and extension of filePath, never the
// directory.
func (eb *ErrorBuilder) FileContext(filePath string) *ErrorBuilder {
	if filePath == "" {
		return eb
	}
	eb.Context("file_name", filepath.Base(filePath))
	eb.Context("file_extension", getFileExtension(filePath))
	return eb
}

// Build returns the error and reports it when a telemetry reporter is active.
// A cause that already went to telemetry is not reported again.
func (eb *ErrorBuilder) Build() *EnhancedError {
	if eb.category == "" {
		eb.category = detectCategory(eb.err)
	}
	if eb.component == "" {
		eb.component = ComponentUnknown
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}

	if hasActiveReporting.Load() && !wrapsReported(eb.err) {
		reportToTelemetry(ee)
	}

	return ee
}

func wrapsReported(err error) bool {
	var inner *EnhancedError
	return stderrors.As(err, &inner) && inner.IsReported()
}

// detectCategory inherits the category of a wrapped categorized error, or
// derives one from well-known standard library errors.
func detectCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}

	var (
		pathErr   *fs.PathError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case stderrors.As(err, &pathErr):
		return CategoryFileIO
	case stderrors.As(err, &syntaxErr), stderrors.As(err, &typeErr), stderrors.Is(err, io.ErrUnexpectedEOF):
		return CategoryFileParsing
	case stderrors.Is(err, image.ErrFormat):
		return CategoryImageDecode
	default:
		return CategoryGeneric
	}
}

// getFileExtension returns the lower-case extension without the dot.
func getFileExtension(path string) string {
	if ext := filepath.Ext(path); len(ext) > 1 {
		return strings.ToLower(ext[1:])
	}
	return "none"
}

// FileError builds a file-io error for filePath.
func FileError(err error, filePath string) *EnhancedError {
	return New(err).
		Category(CategoryFileIO).
		FileContext(filePath).
		Build()
}

// ValidationError builds a validation error with message.
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// The functions below mirror the standard errors package so callers need a
// single import.

// NewStd is errors.New from the standard library.
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap is errors.Unwrap.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// EntryOf returns the annotation entry recorded on err, if any.
func EntryOf(err error) (string, bool) {
	var enhancedErr *EnhancedError
	if !As(err, &enhancedErr) {
		return "", false
	}
	key, ok := enhancedErr.GetContext()[ContextEntry].(string)
	return key, ok
}

// IsCategory reports whether err wraps an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}
