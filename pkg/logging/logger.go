package logging

import (
	"go.uber.org/zap"
)

var logger *zap.SugaredLogger

// InitLogging initializes logging. Gin's "release" mode gets the JSON
// production encoder, anything else the human readable development one.
func InitLogging(mode string) {
	var (
		base *zap.Logger
		err  error
	)
	if mode == "release" {
		base, err = zap.NewProduction(zap.AddCallerSkip(1))
	} else {
		base, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	}
	if err != nil {
		base = zap.NewNop()
	}
	logger = base.Sugar()
}

// Sync flushes buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	if logger != nil {
		logger.Infof(format, v...)
	}
}

// Warnf logs warn level messages
func Warnf(format string, v ...interface{}) {
	if logger != nil {
		logger.Warnf(format, v...)
	}
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	if logger != nil {
		logger.Errorf(format, v...)
	}
}
