package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configura el logger.
type Config struct {
	// Env: "dev" (consola con colores, sin stacktraces) o "prod" (JSON). Default "dev".
	Env string

	// Level mínimo: "debug", "info", "warn", "error". Default "info".
	Level string

	// ServiceName se agrega como campo "service". Opcional.
	ServiceName string

	// NodeID identifica la réplica en cada línea, para seguir una llamada replicada
	// entre nodos.
	NodeID string
}

// level es compartido por el singleton; SetLevel lo cambia en caliente.
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// SetLevel cambia el nivel del logger global. Valores desconocidos = info.
func SetLevel(lvl string) { level.SetLevel(parseLevel(lvl)) }

func build(cfg Config) *zap.Logger {
	level.SetLevel(parseLevel(cfg.Level))
	prod := strings.EqualFold(strings.TrimSpace(cfg.Env), "prod")

	core := zapcore.NewCore(encoder(prod), zapcore.Lock(os.Stderr), level)
	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if prod {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		opts = append(opts, zap.Development())
	}

	l := zap.New(core, opts...)
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	if cfg.NodeID != "" {
		l = l.With(NodeID(cfg.NodeID))
	}
	return l
}

func encoder(prod bool) zapcore.Encoder {
	if prod {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
