// Package logging builds the zap logger shared by commands and the retrieve engine.
package logging

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"todoseq/internal/config"
)

// New creates a logger writing to w.
// debug forces the debug level; quiet raises the level to error.
// Unknown levels fall back to warn.
func New(w io.Writer, s config.LogSettings, debug, quiet bool) *zap.Logger {
	level := parseLevel(s.Level)
	switch {
	case debug:
		level = zapcore.DebugLevel
	case quiet && level < zapcore.ErrorLevel:
		level = zapcore.ErrorLevel
	}

	var enc zapcore.Encoder
	if strings.EqualFold(s.Encoding, "json") {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core)
}

func parseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.WarnLevel
	}
	return level
}
