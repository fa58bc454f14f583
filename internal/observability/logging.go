package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/tenant-assistant/internal/config"
)

// NewLogger creates a structured zap.Logger. Production output is JSON for
// log aggregation; development gets a console encoder. Every entry carries
// the service name so assistant logs can be filtered out of a shared
// stream.
func NewLogger(cfg config.LoggerConfig, appEnv, service string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	development := appEnv != "production"
	encoding := "json"
	if development {
		encoding = "console"
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: development,
		Encoding:    encoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "message",
			LevelKey:   "level",
			TimeKey:    "ts",
			NameKey:    "logger",
			EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
				enc.AppendString(l.String())
			},
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		return nil, err
	}
	return logger, nil
}
