package logx

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wbdigital-chatbot/server/internal/core"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Level overrides the environment default when set ("debug", "info", ...).
	Level string
	// Writer defaults to stdout (JSON) or a console writer outside production.
	Writer io.Writer
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

func Init(opts ...LoggerOpts) {
	o := safe(opts...)

	level := zerolog.DebugLevel
	if o.Environment.IsProduction() {
		level = zerolog.InfoLevel
	}
	if o.Level != "" {
		if parsed, err := zerolog.ParseLevel(o.Level); err == nil {
			level = parsed
		}
	}

	w := o.Writer
	if w == nil {
		if o.Environment.IsProduction() {
			w = os.Stdout
		} else {
			w = zerolog.NewConsoleWriter()
		}
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if o.Environment.IsProduction() {
		log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(level)
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger().Level(level)
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// With returns a context whose logger carries key=value on every event.
func With(ctx context.Context, key, value string) context.Context {
	l := Ctx(ctx).With().Str(key, value).Logger()
	return l.WithContext(ctx)
}

// Ctx returns the logger bound to ctx, or the global logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
