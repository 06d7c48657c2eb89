package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global       *zap.Logger
	fallbackOnce sync.Once
)

// Init builds the global logger. Production gets JSON at info level;
// everything else gets a colored console encoder at debug level.
func Init(env string) error {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	global = built
	return nil
}

// Get returns the global logger, building a development fallback exactly
// once if Init was never called (tests, scripts).
func Get() *zap.Logger {
	if global == nil {
		fallbackOnce.Do(func() {
			global, _ = zap.NewDevelopment()
		})
	}
	return global
}

// Named returns the global logger scoped to a component name, e.g.
// logger.Named("persist").
func Named(component string) *zap.Logger {
	return Get().Named(component)
}

// Sync flushes any buffered log entries
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
