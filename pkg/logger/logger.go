// Package logger is the structured logger passed to every component of the lottery scripts.
//
// Components receive a Logger and usually name it, e.g. lggr.Named("verification"). Use
// structured pairs for anything a reader may want to grep: tx hashes, addresses, blocks.
//
//	lggr.Infow("Deployed lottery", "address", addr.Hex(), "tx", tx.Hash().Hex())
//
// Levels: Error when a script step fails, Warn when a step continues in a degraded way (an RPC
// failing over), Info for step progress, Debug for dial attempts and receipt polls.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is implemented by a zap SugaredLogger.
type Logger interface {
	// Name returns the dot separated name of the logger.
	Name() string
	Named(name string) Logger

	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	Debugf(format string, values ...any)
	Infof(format string, values ...any)
	Warnf(format string, values ...any)
	Errorf(format string, values ...any)

	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	Sync() error
}

// Config selects the level and the encoding of a runtime logger. Output goes to stderr.
type Config struct {
	Level zapcore.Level
	// Console logs human readable lines instead of JSON.
	Console bool
}

// New returns a console logger at info level.
func New() (Logger, error) {
	return Config{Level: zapcore.InfoLevel, Console: true}.New()
}

// New builds the logger described by c.
func (c Config) New() (Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(c.Level)
	if c.Console {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return wrap(l), nil
}

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(s string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", s, err)
	}

	return lvl, nil
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return wrap(zap.NewNop())
}

type sugared struct {
	*zap.SugaredLogger
}

func wrap(l *zap.Logger) Logger {
	return sugared{l.Sugar()}
}

func (s sugared) Name() string {
	return s.Desugar().Name()
}

func (s sugared) Named(name string) Logger {
	return sugared{s.SugaredLogger.Named(name)}
}
