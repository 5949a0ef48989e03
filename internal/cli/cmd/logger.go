package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/common"
	"github.com/berrythewa/deskbridge/internal/config"
)

// SetupLogger builds the command logger. verbose forces debug level.
func SetupLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	if verbose {
		copied := *cfg
		copied.Log.Level = "debug"
		cfg = &copied
	}
	logger, err := common.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return logger, nil
}
