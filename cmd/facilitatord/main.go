// Command facilitatord runs an x402 Hedera facilitator service.
//
// Configuration comes from the environment:
//
//	X402H_NETWORK      testnet or mainnet (default testnet)
//	X402H_OPERATOR_ID  fee-paying operator account (required)
//	X402H_OPERATOR_KEY operator private key (required for settlement)
//	X402H_LISTEN_ADDR  HTTP listen address (default :8402)
package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/mark3labs/x402-hedera-go/facilitator"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := facilitator.FromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	svc, err := facilitator.NewService(cfg, facilitator.WithLogger(logger))
	if err != nil {
		logger.Error("failed to start facilitator", "error", err)
		os.Exit(1)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	facilitator.RegisterRoutes(router, svc)

	logger.Info("facilitator listening",
		"addr", cfg.ListenAddr,
		"network", cfg.Network,
		"operator", cfg.OperatorAccountID)

	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
