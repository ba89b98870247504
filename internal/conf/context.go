package conf

import (
	"github.com/tphakala/via2coco/internal/buildinfo"
	"github.com/tphakala/via2coco/internal/logger"
)

// Context carries settings and process-wide services to commands.
type Context struct {
	Settings *Settings
	Build    *buildinfo.Context

	// Logger is set once settings are final, before a command runs.
	Logger logger.Logger
}

// NewContext returns a context with a discarding logger.
func NewContext(settings *Settings, build *buildinfo.Context) *Context {
	return &Context{
		Settings: settings,
		Build:    build,
		Logger:   logger.NewDiscard(),
	}
}
