package shared

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// SetupLogger returns a console logger on stderr at the given level.
func SetupLogger(level log.Level) *log.Logger {
	return NewLogger(os.Stderr, level)
}

// NewLogger returns a timestamped logger writing to w.
func NewLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}
