// Package utils
package utils

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	once   sync.Once
)

// InitLogger builds the process logger. Only the first call has an effect;
// GetLogger falls back to a development logger if InitLogger was never called.
func InitLogger(production bool) *zap.SugaredLogger {
	once.Do(func() {
		var base *zap.Logger
		if production {
			base = zap.Must(zap.NewProduction())
		} else {
			config := zap.NewDevelopmentConfig()
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
			base = zap.Must(config.Build())
		}
		logger = base.Sugar()
	})
	return logger
}

func GetLogger() *zap.SugaredLogger {
	return InitLogger(false)
}
