// Package logging provides the structured logger used throughout wmtstiles.
package logging

import (
	"github.com/muesli/reflow/truncate"
)

// MaxValueWidth is the width long values such as URLs are truncated to by Short.
const MaxValueWidth = 120

type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Short truncates s for use as a log value.
func Short(s string) string {
	return truncate.StringWithTail(s, MaxValueWidth, "...")
}

type noOpLogger struct{}

var _ Logger = noOpLogger{}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return noOpLogger{}
}

func (noOpLogger) Debug(string, ...any) {}
func (noOpLogger) Info(string, ...any)  {}
func (noOpLogger) Warn(string, ...any)  {}
func (noOpLogger) Error(string, ...any) {}
