package converter

import (
	"fmt"
	"strings"

	"github.com/tphakala/via2coco/internal/logger"
)

// Rejection describes a region that was skipped because its category is
// not in the category list.
type Rejection struct {
	Category  string
	ImageFile string
	RegionKey string
	Known     []string
}

// Message renders the rejection for operators.
func (r Rejection) Message() string {
	return fmt.Sprintf("Ignore because category_name %s from image_file_name %s not in category_names [%s]",
		r.Category, r.ImageFile, strings.Join(r.Known, ", "))
}

// Reporter receives rejected regions. Conversion continues after Reject
// returns.
type Reporter interface {
	Reject(r Rejection)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(r Rejection)

// Reject calls f(r).
func (f ReporterFunc) Reject(r Rejection) {
	f(r)
}

// LogReporter writes each rejection as a warning.
type LogReporter struct {
	log logger.Logger
}

// NewLogReporter returns a reporter logging through log.
func NewLogReporter(log logger.Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Reject implements Reporter.
func (lr *LogReporter) Reject(r Rejection) {
	lr.log.Warn(r.Message(),
		logger.String("category", r.Category),
		logger.String("image_file", r.ImageFile),
		logger.String("region", r.RegionKey),
		logger.Strings("known_categories", r.Known))
}

