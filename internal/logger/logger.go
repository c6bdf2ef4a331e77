package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar *zap.SugaredLogger

// Init builds the process-wide logger. Safe to call more than once; the
// last call wins. Packages that log before Init still get a working logger.
func Init() {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	sugar = l.Sugar()
}

func log() *zap.SugaredLogger {
	if sugar == nil {
		Init()
	}
	return sugar
}

func Info(msg string, keysAndValues ...interface{}) {
	log().Infow(msg, keysAndValues...)
}

func Infof(format string, v ...interface{}) {
	log().Infof(format, v...)
}

func Error(msg string, keysAndValues ...interface{}) {
	log().Errorw(msg, keysAndValues...)
}

func Errorf(format string, v ...interface{}) {
	log().Errorf(format, v...)
}

func Debug(msg string, keysAndValues ...interface{}) {
	log().Debugw(msg, keysAndValues...)
}

func Debugf(format string, v ...interface{}) {
	log().Debugf(format, v...)
}

func Fatal(msg string, keysAndValues ...interface{}) {
	log().Fatalw(msg, keysAndValues...)
}

func Fatalf(format string, v ...interface{}) {
	log().Fatalf(format, v...)
}

func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
