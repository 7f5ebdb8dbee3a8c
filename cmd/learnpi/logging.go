package main

import (
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const (
	colorRed   = "\x1b[91m"
	colorReset = "\x1b[0m"
)

func logLevel(verbose, quiet bool) zapcore.Level {
	switch {
	case quiet:
		return zapcore.FatalLevel
	case verbose:
		return zapcore.DebugLevel
	default:
		return zapcore.ErrorLevel
	}
}

// newLogger builds the CLI logger writing console-formatted entries to w.
// Every entry carries a fresh run id so interleaved runs can be told apart.
func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level)
	return zap.New(core).With(zap.String("run_id", uuid.NewString()))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *cli) paint(color, text string) string {
	if !c.color {
		return text
	}
	return color + text + colorReset
}
