package log

import (
	"strings"

	"github.com/pressly/goose/v3"
)

// gooseLogger is a logger that implements goose.Logger interface,
// hardcoded to log messages as Debug level
type gooseLogger struct{}

var _ goose.Logger = (*gooseLogger)(nil)

func (*gooseLogger) Fatalf(format string, v ...any) { Fatalf(format, v...) }

// goose passes a trailing newline to Printf.
func (*gooseLogger) Printf(format string, v ...any) {
	Debugf(strings.TrimSuffix(format, "\n"), v...)
}

// GooseLogger provides access to a goose compatible logger,
// hardcoded to log messages as Debug level
func GooseLogger() goose.Logger { return &gooseLogger{} }
