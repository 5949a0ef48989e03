package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/common"
	"github.com/berrythewa/deskbridge/internal/config"
	"github.com/berrythewa/deskbridge/internal/daemon"
)

func main() {
	configPath := flag.String("config", "", "config file (default is the platform config dir)")
	flag.Parse()

	// Load config first
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := common.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := daemon.Run(context.Background(), cfg, logger); err != nil {
		logger.Error("Host exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
