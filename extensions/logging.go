package extensions

import (
	"time"

	"github.com/charmbracelet/log"

	closemap "github.com/closeable-fn/closemap-go"
)

// LoggingExtension logs close traversals and swallowed errors
type LoggingExtension struct {
	closemap.BaseExtension
	logger *log.Logger
}

// NewLoggingExtension creates a new logging extension. A nil logger falls
// back to the process default.
func NewLoggingExtension(logger *log.Logger) *LoggingExtension {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingExtension{
		BaseExtension: closemap.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) WrapClose(next func() error, m *closemap.Map) error {
	start := time.Now()
	e.logger.Debug("close starting", "entries", m.Len())

	err := next()

	duration := time.Since(start)
	if err != nil {
		e.logger.Error("close failed", "duration", duration, "err", err)
	} else {
		e.logger.Debug("close completed", "duration", duration)
	}
	return err
}

// OnCloseError logs errors swallowed by policy. It never claims the error
// so other extensions still see it.
func (e *LoggingExtension) OnCloseError(err *closemap.CloseError) bool {
	e.logger.Warn("close error swallowed",
		"path", err.Path,
		"stage", err.Stage,
		"err", err.Cause,
	)
	return false
}
