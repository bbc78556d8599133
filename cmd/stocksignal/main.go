package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"stocksignal/internal/cli"
	"stocksignal/internal/config"
	"stocksignal/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("STOCKSIGNAL_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.File = cfg.Logging.File
	logCfg.FilePath = filepath.Join(cfg.Dir, "logs", "stocksignal.log")
	logger := logging.NewLoggerWithConfig(logCfg)

	if err := cli.NewRootCmd(cfg, logger).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
