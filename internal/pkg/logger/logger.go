package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/doeshing/dexter/internal/pkg/redact"
)

// Zerolog adapts zerolog to the ports.Logger field-map shape.
type Zerolog struct {
	zl zerolog.Logger
}

// New builds a console logger on stderr. When verbose is false nothing is written.
func New(verbose bool) *Zerolog {
	if !verbose {
		return NewWithWriter(io.Discard, zerolog.Disabled)
	}
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	return NewWithWriter(console, zerolog.DebugLevel)
}

// NewWithWriter builds a logger writing JSON lines (or whatever w formats) at level.
func NewWithWriter(w io.Writer, level zerolog.Level) *Zerolog {
	zl := zerolog.New(w).Level(level).With().
		Timestamp().
		Str("app", "dexter").
		Logger()
	return &Zerolog{zl: zl}
}

func (l *Zerolog) Debug(msg string, fields map[string]interface{}) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *Zerolog) Info(msg string, fields map[string]interface{}) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *Zerolog) Warn(msg string, fields map[string]interface{}) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *Zerolog) Error(msg string, err error, fields map[string]interface{}) {
	ev := l.zl.Error()
	if err != nil {
		ev = ev.Str("error", redact.String(err.Error()))
	}
	l.emit(ev, msg, fields)
}

func (l *Zerolog) emit(ev *zerolog.Event, msg string, fields map[string]interface{}) {
	if ev == nil {
		return
	}
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			ev = ev.Str(k, redact.String(val))
		case []string:
			ev = ev.Strs(k, redact.Strings(append([]string(nil), val...)))
		case error:
			ev = ev.Str(k, redact.String(val.Error()))
		default:
			ev = ev.Interface(k, val)
		}
	}
	ev.Msg(redact.String(msg))
}
