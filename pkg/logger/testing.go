package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Test returns a debug level Logger writing to the test log of tb.
func Test(tb testing.TB) Logger {
	tb.Helper()

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")

	return wrap(zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc), zaptest.NewTestingWriter(tb), zapcore.DebugLevel,
	)))
}

// TestObserved is Test plus an observer recording entries at lvl and above.
func TestObserved(tb testing.TB, lvl zapcore.Level) (Logger, *observer.ObservedLogs) {
	tb.Helper()

	core, logs := observer.New(lvl)
	tee := zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	})

	return wrap(zaptest.NewLogger(tb, zaptest.WrapOptions(tee, zap.AddCaller()))), logs
}
