package status

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapUnderlying routes log lines to a zap logger so that long runs can be shipped as JSON.  The
// zap logger is thread-safe, so is this.

type ZapUnderlying struct {
	logger *zap.Logger
}

var _ = UnderlyingLogger((*ZapUnderlying)(nil))

func NewZapUnderlying(logger *zap.Logger) *ZapUnderlying {
	return &ZapUnderlying{logger: logger}
}

// NewJSONUnderlying builds a production zap logger writing JSON to stderr at `level` and above.

func NewJSONUnderlying(level LogLevel, component string) (*ZapUnderlying, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapUnderlying(logger.With(zap.String("component", component))), nil
}

func (z *ZapUnderlying) Debug(m string) error {
	z.logger.Debug(m)
	return nil
}

func (z *ZapUnderlying) Info(m string) error {
	z.logger.Info(m)
	return nil
}

func (z *ZapUnderlying) Warning(m string) error {
	z.logger.Warn(m)
	return nil
}

func (z *ZapUnderlying) Err(m string) error {
	z.logger.Error(m)
	return nil
}

// Crit must not exit, so it does not map to zap's Fatal.
func (z *ZapUnderlying) Crit(m string) error {
	z.logger.DPanic(m)
	return nil
}

func (z *ZapUnderlying) Sync() error {
	return z.logger.Sync()
}

func zapLevel(l LogLevel) zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarning:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.DPanicLevel
}
