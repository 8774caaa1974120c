package observability

import (
	"os"
	"sync"
)

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns the process-wide Logger used by packages that have no
// logger injected explicitly (the engine's internal warn/debug lines).
// It reads LOG_LEVEL and LOG_FORMAT once, the same env vars a configured
// deployment would set for NewLogger directly.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = NewLogger(LogConfig{
			Level:  os.Getenv("LOG_LEVEL"),
			Format: os.Getenv("LOG_FORMAT"),
		})
	})
	return defaultLogger
}
