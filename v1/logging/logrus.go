package logging

import (
	"github.com/sirupsen/logrus"
)

// StandardLogger adapts a *logrus.Logger (or Entry) to the Logger
// interface, the way OPA's v1/logging package wraps logrus. Callers
// that want JSON output, a custom io.Writer, or hooks configure the
// underlying *logrus.Logger directly and pass it to New.
type StandardLogger struct {
	entry *logrus.Entry
}

// New wraps base in a StandardLogger. If base is nil, a fresh
// logrus.Logger with text formatting and LevelInfo is created.
func New(base *logrus.Logger) *StandardLogger {
	if base == nil {
		base = logrus.New()
		base.SetLevel(logrus.InfoLevel)
	}
	return &StandardLogger{entry: logrus.NewEntry(base)}
}

func (l *StandardLogger) Debug(format string, a ...any) { l.entry.Debugf(format, a...) }
func (l *StandardLogger) Info(format string, a ...any)  { l.entry.Infof(format, a...) }
func (l *StandardLogger) Warn(format string, a ...any)  { l.entry.Warnf(format, a...) }
func (l *StandardLogger) Error(format string, a ...any) { l.entry.Errorf(format, a...) }

func (l *StandardLogger) WithFields(fields Fields) Logger {
	return &StandardLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *StandardLogger) SetLevel(level Level) {
	l.entry.Logger.SetLevel(toLogrusLevel(level))
}

func (l *StandardLogger) GetLevel() Level {
	return fromLogrusLevel(l.entry.Logger.GetLevel())
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func fromLogrusLevel(level logrus.Level) Level {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.InfoLevel:
		return LevelInfo
	default:
		return LevelDebug
	}
}
