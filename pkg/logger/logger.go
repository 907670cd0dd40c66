package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logLvlMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Init configures the global zap logger. Use zap.L() everywhere after this.
func Init(level string) error {
	lvl, ok := logLvlMap[level]
	if !ok {
		return fmt.Errorf("unsupported log lvl: %s", level)
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	c.OutputPaths = []string{"stdout"}
	c.ErrorOutputPaths = []string{"stderr"}

	logger, err := c.Build()
	if err != nil {
		return fmt.Errorf("unable to create zap logger, error: %w", err)
	}

	zap.ReplaceGlobals(logger)

	return nil
}
