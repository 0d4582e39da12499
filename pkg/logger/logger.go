// Package logger is the process-wide log sink: a file, optionally mirrored to stderr.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	globalLogger *log.Logger
	logFile      *os.File
	verbose      bool
	stderr       io.Writer = os.Stderr
	mu           sync.Mutex
)

// Init opens (appending) the log file at logPath, creating parent directories.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //#nosec G304 -- path from config
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	rebuild()
	return nil
}

// SetVerbose mirrors every record to stderr when on.
func SetVerbose(on bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = on
	rebuild()
}

// rebuild recreates globalLogger from the current sinks. Caller holds mu.
func rebuild() {
	var sinks []io.Writer
	if logFile != nil {
		sinks = append(sinks, logFile)
	}
	if verbose {
		sinks = append(sinks, stderr)
	}
	if len(sinks) == 0 {
		globalLogger = nil
		return
	}
	globalLogger = log.New(io.MultiWriter(sinks...), "", log.Ltime|log.Lmicroseconds)
}

// Close closes the log file. Stderr mirroring survives.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	rebuild()
}

func logf(level, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.Printf("["+level+"] "+format, v...)
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) { logf("INFO", format, v...) }

// Debug logs a debug message.
func Debug(format string, v ...interface{}) { logf("DEBUG", format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { logf("WARN", format, v...) }

// Error logs an error message.
func Error(format string, v ...interface{}) { logf("ERROR", format, v...) }

// GetWriter returns the log file for components that stream raw output (adb stderr).
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}
