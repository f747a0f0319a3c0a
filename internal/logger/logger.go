package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.Logger

// Init builds the process logger: production JSON encoding when APP_ENV is
// "production", colored development output otherwise.
func Init() *zap.Logger {
	var cfg zap.Config
	if os.Getenv("APP_ENV") == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	l, err := cfg.Build()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	global = l
	zap.ReplaceGlobals(l)
	return l
}

// L returns the process logger, initializing it on first use.
func L() *zap.Logger {
	if global == nil {
		return Init()
	}
	return global
}
