package main

import (
	"github.com/septivank/greenmove-rewards/internal/config"
	"github.com/septivank/greenmove-rewards/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
}
