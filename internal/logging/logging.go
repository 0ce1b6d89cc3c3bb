// Package logging sets up structured logging and prints run summaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogger *slog.Logger
	defaultOnce   sync.Once
)

// Options configures the logger.
type Options struct {
	Level slog.Level
	// Output defaults to os.Stderr. Ignored when File is set.
	Output io.Writer
	JSON   bool
	// File, when set, writes to a size rotated log file instead.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func DefaultOptions() Options {
	return Options{
		Level:      slog.LevelInfo,
		Output:     os.Stderr,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

// New creates a logger. The returned closer releases the log file and is
// a no-op for plain writers.
func New(opts Options) (*slog.Logger, io.Closer) {
	var out io.Writer = opts.Output
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		out, closer = rotating, rotating
	}
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler), closer
}

// Default returns the process wide logger, text on stderr at info level
// unless SetDefault replaced it.
func Default() *slog.Logger {
	defaultOnce.Do(func() {
		defaultLogger, _ = New(DefaultOptions())
	})
	return defaultLogger
}

func SetDefault(l *slog.Logger) {
	defaultOnce.Do(func() {})
	defaultLogger = l
	slog.SetDefault(l)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

const (
	KeyPath     = "path"
	KeyAction   = "action"
	KeyWorker   = "worker"
	KeyUnit     = "unit"
	KeyStrategy = "strategy"
	KeyError    = "error"
)

func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
func Action(a string) slog.Attr { return slog.String(KeyAction, a) }
func Worker(i int) slog.Attr { return slog.Int(KeyWorker, i) }
func Unit(name string) slog.Attr { return slog.String(KeyUnit, name) }
func Strategy(name string) slog.Attr { return slog.String(KeyStrategy, name) }

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}
