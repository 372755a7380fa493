package telemetry

import "go.uber.org/zap"

type Logger interface {
	Info(msg string)
	Debug(msg string)
	Error(msg string, err error)
}

type NOPLogger struct {
}

func (n NOPLogger) Info(msg string) {
}
func (n NOPLogger) Debug(msg string) {
}
func (n NOPLogger) Error(msg string, err error) {
}

type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger sends log lines to a zap logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{l: l}
}

// NewDevelopmentLogger is a console logger, at debug level when verbose is set.
func NewDevelopmentLogger(verbose bool) (Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(l), nil
}

func (z zapLogger) Info(msg string) {
	z.l.Info(msg)
}
func (z zapLogger) Debug(msg string) {
	z.l.Debug(msg)
}
func (z zapLogger) Error(msg string, err error) {
	z.l.Error(msg, zap.Error(err))
}
