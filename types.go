package jwtguard

import (
	"go.uber.org/zap"
)

// Logger is the structured logger used across the guard. Arguments after
// the message are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to Logger. A nil logger uses zap.L().
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.L()
	}
	return zapLogger{s: l.Sugar()}
}

func (z zapLogger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z zapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z zapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z zapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

// DefaultLogger returns a Logger backed by the global zap logger.
// The global logger is a no-op until zap.ReplaceGlobals is called.
func DefaultLogger() Logger {
	return NewZapLogger(nil)
}
