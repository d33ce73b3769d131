package util

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger 按运行模式创建日志，release 使用生产配置
func NewLogger(mode string) (*zap.Logger, error) {
	var config zap.Config

	if mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build()
}

// Trace 记录一段操作的耗时，用法: defer util.Trace(logger, "segment")()
func Trace(logger *zap.Logger, msg string) func() {
	start := time.Now()
	return func() {
		logger.Info(msg, zap.Duration("cost", time.Since(start)))
	}
}
