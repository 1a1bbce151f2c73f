// Package logger provides verbose logging for the folio CLI.
// When verbose mode is enabled via the --verbose flag, pipeline stages
// (extraction, chunking, embedding, retrieval, generation) are traced to stderr.
// Errors are printed regardless of verbosity.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func printf(onlyVerbose bool, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if onlyVerbose && !verbose {
		return
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printf(true, "[DEBUG] ", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printf(true, "[INFO] ", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	printf(true, "[WARN] ", format, args...)
}

// Error always prints.
func Error(format string, args ...any) {
	printf(false, "[ERROR] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Elapsed logs how long a stage took. Use with defer:
//
//	defer logger.Elapsed("embedding", time.Now())
func Elapsed(stage string, start time.Time) {
	printf(true, "[DEBUG] ", "%s took %s", stage, time.Since(start).Round(time.Millisecond))
}
