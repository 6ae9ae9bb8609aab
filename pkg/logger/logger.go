package logger

import (
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	debugLevel = -1
	infoLevel  = 0
	warnLevel  = 1
	errorLevel = 2
)

func New() (*zap.Logger, error) {
	viper.SetDefault("LOG_LEVEL", infoLevel)
	viper.SetDefault("LOG_TIME_FORMAT", time.RFC3339Nano)
	viper.AutomaticEnv()

	level := viper.GetInt("LOG_LEVEL")
	timeFormat := viper.GetString("LOG_TIME_FORMAT")

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig = encoderCfg
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(level))

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return log, nil
}
