package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BuildLogger writes JSON to outputFilePath when set, and colored console
// output otherwise.
func BuildLogger(outputFilePath string) (*zap.Logger, error) {
	if outputFilePath != "" {
		return BuildProductionLogger(outputFilePath)
	}
	return BuildDevelopmentLogger()
}

func BuildDevelopmentLogger() (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return config.Build()
}

func BuildProductionLogger(outputFilePath string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{outputFilePath}
	cfg.ErrorOutputPaths = []string{outputFilePath}
	return cfg.Build()
}
