// Package xlog wraps go.uber.org/zap behind a small structured-logging
// call shape (Info("msg", "key", val, ...), Warn, Error, Crit) so every
// store's call sites stay uniform.
package xlog

import (
	"go.uber.org/zap"
)

// Logger is a named, structured, leveled logger. Store constructors take
// no logger argument; each derives its own named child from Root() (e.g.
// xlog.Root().Named("entity." + name)) and keeps it on the store.
type Logger struct {
	s *zap.SugaredLogger
}

var root *zap.Logger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	root = l
}

// Root returns the process-wide base logger, the only package-level state
// this package keeps; everything derived from it (Named) is what call
// sites actually hold and pass around.
func Root() Logger { return Logger{s: root.Sugar()} }

// Named returns a child logger tagged with name, e.g. xlog.Root().Named("entity").
func (l Logger) Named(name string) Logger {
	return Logger{s: l.s.Named(name)}
}

func (l Logger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l Logger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l Logger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l Logger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

// Crit logs at error level and is reserved for conditions fatal to the
// process; this package never calls os.Exit itself, callers decide.
func (l Logger) Crit(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

// Sync flushes buffered log entries; call before process exit.
func (l Logger) Sync() error { return l.s.Sync() }
