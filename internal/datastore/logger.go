// Package datastore logging infrastructure for database operations
package datastore

import (
	"log/slog"
	"sync"

	"github.com/mkoivun/antdb-go/internal/logging"
)

var (
	datastoreLogger   *slog.Logger
	datastoreLevelVar = new(slog.LevelVar) // Dynamic level control
	loggerCloseFunc   func() error
	loggerOnce        sync.Once

	// logs/ is the project-wide location for per-component log files
	defaultLogPath = "logs/datastore.log"
)

// InitializeLogger initializes the datastore file logger. Safe to call more
// than once, initialization happens only the first time.
func InitializeLogger(logFilePath string) error {
	var initErr error

	loggerOnce.Do(func() {
		if logFilePath == "" {
			logFilePath = defaultLogPath
		}
		datastoreLevelVar.Set(slog.LevelInfo)

		var err error
		datastoreLogger, loggerCloseFunc, err = logging.NewFileLogger(logFilePath, "datastore", datastoreLevelVar)
		if err != nil {
			// Fall back to the service logger instead of failing outright
			datastoreLogger = logging.ForService("datastore")
			loggerCloseFunc = func() error { return nil }
			initErr = err
		}
	})

	return initErr
}

// SetLogLevel adjusts the datastore log level at runtime
func SetLogLevel(level slog.Level) {
	datastoreLevelVar.Set(level)
}

// CloseLogger releases the log file writer
func CloseLogger() error {
	if loggerCloseFunc != nil {
		return loggerCloseFunc()
	}
	return nil
}

// getLogger returns the datastore logger, falling back to the global
// structured logger when InitializeLogger has not run.
func getLogger() *slog.Logger {
	if datastoreLogger != nil {
		return datastoreLogger
	}
	if l := logging.ForService("datastore"); l != nil {
		return l
	}
	return slog.Default()
}
