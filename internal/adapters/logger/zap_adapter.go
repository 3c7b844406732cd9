package logger

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/web/storefront-state/internal/adapters/config"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/contextkeys"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements domain.Logger using Zap.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter creates a JSON logger at the configured level. Info and below go to stdout,
// errors and above to stderr.
func NewZapAdapter(cfgProvider config.Provider) (domain.Logger, error) {
	cfg := cfgProvider.Get()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	infoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapLevel && lvl < zapcore.ErrorLevel
	})
	errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapLevel && lvl >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stdout), infoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stderr), errorLevel),
	)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	zapLogger = zapLogger.With(
		zap.String("service", cfg.App.ServiceName),
		zap.String("version", cfg.App.Version),
	)
	return &ZapAdapter{logger: zapLogger}, nil
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(l *zap.Logger) domain.Logger {
	return &ZapAdapter{logger: l}
}

// NewNop returns a logger that discards everything. Used by tests and benchmarks.
func NewNop() domain.Logger {
	return &ZapAdapter{logger: zap.NewNop()}
}

var contextFields = []contextkeys.Key{
	contextkeys.RequestIDKey,
	contextkeys.UserIDKey,
	contextkeys.TokenFingerprintKey,
	contextkeys.OperationKey,
}

func (za *ZapAdapter) fields(ctx context.Context, args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+len(contextFields))
	if ctx != nil {
		for _, key := range contextFields {
			if v, ok := ctx.Value(key).(string); ok && v != "" {
				fields = append(fields, zap.String(key.String(), v))
			}
		}
	}
	return append(fields, pairs(args)...)
}

// pairs converts alternating key/value args into zap fields. A non-string key or a trailing
// value without a key is kept under a positional name so nothing is silently dropped.
func pairs(args []any) []zap.Field {
	out := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out = append(out, zap.Any(fmt.Sprintf("orphan_field_%d", i), args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			out = append(out, zap.Any(fmt.Sprintf("invalid_key_%d", i), args[i]))
			out = append(out, zap.Any(fmt.Sprintf("invalid_value_%d", i+1), args[i+1]))
			continue
		}
		out = append(out, zap.Any(key, args[i+1]))
	}
	return out
}

func (za *ZapAdapter) Debug(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	za.logger.Debug(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Info(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.InfoLevel) {
		return
	}
	za.logger.Info(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.WarnLevel) {
		return
	}
	za.logger.Warn(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Error(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.ErrorLevel) {
		return
	}
	za.logger.Error(msg, za.fields(ctx, args)...)
}

// Fatal logs and exits the process.
func (za *ZapAdapter) Fatal(ctx context.Context, msg string, args ...any) {
	za.logger.Fatal(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) With(args ...any) domain.Logger {
	return &ZapAdapter{logger: za.logger.With(pairs(args)...)}
}
