// Package main rebuilds the materialized balance projection by replaying
// the full ledger. Safe to run at any time; the rebuild is idempotent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"unistock/internal/config"
	"unistock/internal/infrastructure/storage/postgres"
	"unistock/internal/infrastructure/storage/postgres/ledger_repo"
	"unistock/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Postgres.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	balances := ledger_repo.NewBalances(txManager)

	log.Info("rebuilding balances from ledger")
	if err := balances.Rebuild(ctx); err != nil {
		log.Fatalw("rebuild failed", "error", err)
	}
	log.Info("rebuild complete")
}
