package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Init builds the global zap logger for the given environment and installs it
// via zap.ReplaceGlobals, so the rest of the codebase can use zap.L().
func Init(environment string) error {
	var (
		lg  *zap.Logger
		err error
	)

	switch environment {
	case "production":
		lg, err = zap.NewProduction()
	default:
		lg, err = zap.NewDevelopment()
	}
	if err != nil {
		return fmt.Errorf("zap.New -> %w", err)
	}

	zap.ReplaceGlobals(lg)

	return nil
}
