// Package colors provides color output utilities.
package colors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Color constants
const (
	Red    = "\033[0;31m"
	Green  = "\033[0;32m"
	Yellow = "\033[1;33m"
	Blue   = "\033[0;34m"
	Cyan   = "\033[0;36m"
	Reset  = "\033[0m"
)

const checkmark = "✓"

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	mu           sync.RWMutex
	debugEnabled = envEnabled("URBANMD_DEBUG")
	quiet        bool
	logger       Logger
	stdout       io.Writer = os.Stdout
	stderr       io.Writer = os.Stderr
)

func envEnabled(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SetDebug enables or disables debug output.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugEnabled = enabled
}

// SetQuiet suppresses informational output. Errors and warnings are still printed.
func SetQuiet(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

// SetLogger sets the structured logger to mirror console output.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// SetOutput redirects console output. Nil writers discard output, which the
// dashboard uses while it owns the terminal.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	stdout = out
	stderr = errOut
}

// ResetOutput restores os.Stdout and os.Stderr.
func ResetOutput() {
	SetOutput(os.Stdout, os.Stderr)
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelSuccess
	levelWarning
	levelError
)

func emit(lvl level, msgs []string) {
	msg := strings.Join(msgs, " ")

	mu.RLock()
	l, out, errOut := logger, stdout, stderr
	dbg, q := debugEnabled, quiet
	mu.RUnlock()

	if l != nil {
		switch lvl {
		case levelDebug:
			l.Debug(msg)
		case levelInfo:
			l.Info(msg)
		case levelSuccess:
			l.Info(msg, "type", "success")
		case levelWarning:
			l.Warn(msg)
		case levelError:
			l.Error(msg)
		}
	}

	var err error
	switch lvl {
	case levelDebug:
		if !dbg {
			return
		}
		_, err = fmt.Fprintf(errOut, "%sDebug:%s %s\n", Cyan, Reset, msg)
	case levelInfo:
		if q {
			return
		}
		_, err = fmt.Fprintf(out, "%s%s%s\n", Blue, msg, Reset)
	case levelSuccess:
		if q {
			return
		}
		_, err = fmt.Fprintf(out, "%s%s%s %s\n", Green, checkmark, Reset, msg)
	case levelWarning:
		_, err = fmt.Fprintf(errOut, "%sWarning:%s %s\n", Yellow, Reset, msg)
	case levelError:
		_, err = fmt.Fprintf(errOut, "%sError:%s %s\n", Red, Reset, msg)
	}
	if err != nil {
		// Last resort; never recurse back into emit.
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
}

// Error outputs an error message to stderr.
func Error(msgs ...string) { emit(levelError, msgs) }

// Warning outputs a warning message to stderr.
func Warning(msgs ...string) { emit(levelWarning, msgs) }

// Info outputs an informational message to stdout.
func Info(msgs ...string) { emit(levelInfo, msgs) }

// Success outputs a success message to stdout.
func Success(msgs ...string) { emit(levelSuccess, msgs) }

// Debug outputs a debug message to stderr if debug is enabled.
func Debug(msgs ...string) { emit(levelDebug, msgs) }

// Plain writes msg to stdout without decoration, honoring quiet mode.
func Plain(msg string) {
	mu.RLock()
	out, q := stdout, quiet
	mu.RUnlock()
	if q {
		return
	}
	fmt.Fprintln(out, msg)
}
