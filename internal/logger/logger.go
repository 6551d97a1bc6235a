package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mirkobrombin/dnsforge/internal/config"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
)

// Fields is a map of string keys to arbitrary values attached to every
// entry of a derived logger.
type Fields map[string]any

// Logger wraps a zerolog.Logger while exposing printf-style methods.
type Logger struct {
	base zerolog.Logger
	out  io.Writer
}

// SetOutput changes the output writer (stdout, file, etc.).
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
	l.base = l.base.Output(w)
}

// SetDebug toggles debug output for this logger.
func (l *Logger) SetDebug(enabled bool) {
	if enabled {
		l.base = l.base.Level(zerolog.DebugLevel)
	} else {
		l.base = l.base.Level(zerolog.InfoLevel)
	}
}

// WithFields returns a new Logger that includes the provided fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	newBase := l.base.With().Fields(map[string]any(fields)).Logger()
	return &Logger{
		base: newBase,
		out:  l.out,
	}
}

// ColoredConsoleWriter wraps an io.Writer to print colored logs.
func ColoredConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		FormatLevel: func(i any) string {
			level, _ := i.(string)
			switch level {
			case "info":
				return termenv.String("INFO").Foreground(termenv.ANSICyan).String()
			case "warn":
				return termenv.String("WARN").Foreground(termenv.ANSIYellow).String()
			case "error":
				return termenv.String("ERROR").Foreground(termenv.ANSIRed).String()
			case "debug":
				return termenv.String("DEBUG").Foreground(termenv.ANSIWhite).String()
			default:
				return level
			}
		},
	}
}

// Info logs a message at Info level.
func (l *Logger) Info(msg string) {
	l.base.Info().Msg(msg)
}

// Infof logs a formatted message at Info level.
func (l *Logger) Infof(format string, args ...any) {
	l.base.Info().Msgf(format, args...)
}

// Error logs a message at Error level.
func (l *Logger) Error(msg string) {
	l.base.Error().Msg(msg)
}

// Errorf logs a formatted message at Error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.base.Error().Msgf(format, args...)
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(msg string) {
	l.base.Debug().Msg(msg)
}

// Debugf logs a formatted message at Debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.base.Debug().Msgf(format, args...)
}

// Warn logs a message at Warn level.
func (l *Logger) Warn(msg string) {
	l.base.Warn().Msg(msg)
}

// Warnf logs a formatted message at Warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.base.Warn().Msgf(format, args...)
}

// logFile opens logs/<identifier>/YYYY/MM/DD[-suffix].log for appending.
func logFile(identifier, suffix string) (*os.File, error) {
	now := time.Now()
	logDir := filepath.Join(
		config.GetLogDir(),
		identifier,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
	)
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%02d.log", now.Day())
	if suffix != "" {
		name = fmt.Sprintf("%02d-%s.log", now.Day(), suffix)
	}
	return os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// NewLogger creates a new Logger that writes JSON to files and colored
// logs to stderr.
func NewLogger(identifier string, fields Fields) (*Logger, error) {
	file, err := logFile(identifier, "")
	if err != nil {
		return nil, err
	}

	multiWriter := io.MultiWriter(file, ColoredConsoleWriter(os.Stderr))

	base := zerolog.New(multiWriter).With().Timestamp().Logger().Level(zerolog.InfoLevel)

	l := &Logger{
		base: base,
		out:  multiWriter,
	}

	if fields != nil {
		l = l.WithFields(fields)
	}

	return l, nil
}

// NewConsoleLogger creates a logger that only prints colored output to w.
func NewConsoleLogger(w io.Writer) *Logger {
	out := ColoredConsoleWriter(w)
	return &Logger{
		base: zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel),
		out:  out,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop(), out: io.Discard}
}
