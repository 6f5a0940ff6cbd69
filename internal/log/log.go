// Package log provides the namespace-prefixed, DEBUG-env-filtered logger
// every package in this module uses for its unhandled-error and trace
// output, styled after the teacher's pkg/log.
package log

import (
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/gookit/color"
)

var (
	// Debug globally enables/disables Debug-level output; false by default
	// so a library consumer doesn't get unsolicited trace noise.
	Debug  bool      = false
	Output io.Writer = os.Stderr
)

// Log is a colorized, namespace-filterable logger instance.
type Log struct {
	*log.Logger

	prefix    atomic.Pointer[string]
	namespace *regexp.Regexp
}

// New creates a logger for the given namespace (e.g. "sio:socket"). If the
// DEBUG environment variable is set, its comma-separated glob patterns ("*"
// expands to ".*") are compiled once and used to gate Debug output to
// namespaces matching any of them.
func New(prefix string) *Log {
	l := &Log{Logger: log.New(Output, "", 0)}
	l.SetPrefix(prefix)

	if pattern := os.Getenv("DEBUG"); pattern != "" {
		parts := strings.Split(pattern, ",")
		for i, p := range parts {
			parts[i] = strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSpace(p)), `\*`, ".*")
		}
		l.namespace = regexp.MustCompile("^(?:" + strings.Join(parts, "|") + ")$")
	}
	return l
}

func (l *Log) matches() bool {
	return l.namespace != nil && l.namespace.MatchString(l.Prefix())
}

func (l *Log) Prefix() string {
	if p := l.prefix.Load(); p != nil {
		return *p
	}
	return ""
}

func (l *Log) SetPrefix(prefix string) {
	l.prefix.Store(&prefix)
	l.Logger.SetPrefix(prefix + " ")
}

// Debug prints trace-level output, gated by the global Debug flag and the
// DEBUG environment pattern.
func (l *Log) Debug(message string, args ...any) {
	if Debug && l.matches() {
		l.Logger.Println(color.Debug.Sprintf(message, args...))
	}
}

// Error prints operator-visible error output. Used for the spec's "unhandled
// socket error" sink when no local `error` listener is registered.
func (l *Log) Error(message string, args ...any) {
	l.Logger.Println(color.Danger.Sprintf(message, args...))
}

// Warning prints operator-visible warnings.
func (l *Log) Warning(message string, args ...any) {
	l.Logger.Println(color.Warn.Sprintf(message, args...))
}
