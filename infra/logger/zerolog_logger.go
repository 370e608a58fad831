package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures every logger created after Setup.
type Options struct {
	// Level is debug, info, warn or error. LOG_LEVEL overrides it.
	Level string `json:"level"`
	// Format is json or console. APP_ENV=dev forces console.
	Format string `json:"format"`
	// File additionally writes JSON lines to a rotated file.
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

var (
	setupMu sync.RWMutex
	current Options
	fileOut *lumberjack.Logger
	stderr  io.Writer = os.Stderr
)

// Setup installs process-wide logging options and returns a closer for the
// log file, if any.
func Setup(o Options) io.Closer {
	setupMu.Lock()
	defer setupMu.Unlock()
	if fileOut != nil {
		_ = fileOut.Close()
		fileOut = nil
	}
	current = o
	if o.File != "" {
		fileOut = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
		}
		return fileOut
	}
	return nopCloser{}
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger tagged with the component field.
func NewZerologLogger(component string) Logger {
	setupMu.RLock()
	opts, file := current, fileOut
	setupMu.RUnlock()

	var out io.Writer = stderr
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" || opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	}
	if file != nil {
		out = zerolog.MultiLevelWriter(out, file)
	}
	z := zerolog.New(out).With().Timestamp().Str("component", component).Logger()

	name := opts.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		name = env
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return &ZerologLogger{log: z.Level(level)}
}

// With returns a child logger carrying an extra string field.
func (l *ZerologLogger) With(key, value string) Logger {
	return &ZerologLogger{log: l.log.With().Str(key, value).Logger()}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
