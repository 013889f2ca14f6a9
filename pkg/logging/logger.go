package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process-wide logger. Local environments get the
// human-readable development encoder, everything else JSON at info level.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
