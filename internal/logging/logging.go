package logging

import "go.uber.org/zap"

// New builds the process logger. Debug switches to the development
// config with full output; otherwise console-encoded info-level logs,
// which is what CI job output wants.
func New(debug bool) *zap.SugaredLogger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Encoding = "console"
	logger, err := cfg.Build()
	if err != nil {
		panic("logger init: " + err.Error())
	}
	return logger.Sugar()
}
