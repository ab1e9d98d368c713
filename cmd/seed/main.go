// Package main provides a CLI tool for seeding the database with demo data:
// a small uniform catalog, one supplier and opening stock.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"unistock/internal/config"
	"unistock/internal/core/types"
	"unistock/internal/domain/catalog"
	"unistock/internal/domain/ledger"
	"unistock/internal/infrastructure/storage/postgres"
	"unistock/internal/infrastructure/storage/postgres/catalog_repo"
	"unistock/internal/infrastructure/storage/postgres/ledger_repo"
	"unistock/pkg/logger"
)

type seedVariant struct {
	size      string
	unitPrice types.MinorUnits
	unitCost  types.MinorUnits
	opening   types.Quantity
}

type seedItem struct {
	code     string
	name     string
	variants []seedVariant
}

var demoCatalog = []seedItem{
	{code: "POLO", name: "Polo Shirt", variants: []seedVariant{
		{size: "128", unitPrice: 2500, unitCost: 1400, opening: 20},
		{size: "140", unitPrice: 2500, unitCost: 1400, opening: 25},
		{size: "152", unitPrice: 2700, unitCost: 1500, opening: 15},
	}},
	{code: "TROUSERS", name: "School Trousers", variants: []seedVariant{
		{size: "128", unitPrice: 3900, unitCost: 2200, opening: 10},
		{size: "140", unitPrice: 3900, unitCost: 2200, opening: 12},
	}},
	{code: "CARDIGAN", name: "Knit Cardigan", variants: []seedVariant{
		{size: "140", unitPrice: 4500, unitCost: 2600, opening: 8},
	}},
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Postgres.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	catalogRepo := catalog_repo.NewRepo(txManager)
	catalogService := catalog.NewService(catalogRepo)
	ledgerStore := ledger_repo.NewStore(txManager)
	balances := ledger_repo.NewBalances(txManager)
	ledgerService := ledger.NewService(ledgerStore, balances, txManager)

	supplier := catalog.NewSupplier("SchoolWear Ltd")
	supplier.Contact = "orders@schoolwear.example"
	if err := catalogService.CreateSupplier(ctx, supplier); err != nil {
		log.Fatalw("failed to seed supplier", "error", err)
	}
	log.Infow("seeded supplier", "id", supplier.ID)

	for _, si := range demoCatalog {
		item := catalog.NewItem(si.code, si.name)
		if err := catalogService.CreateItem(ctx, item); err != nil {
			log.Fatalw("failed to seed item", "code", si.code, "error", err)
		}

		for _, sv := range si.variants {
			variant := catalog.NewVariant(item.ID, sv.size, sv.unitPrice, sv.unitCost)
			if err := catalogService.CreateVariant(ctx, variant); err != nil {
				log.Fatalw("failed to seed variant", "code", si.code, "size", sv.size, "error", err)
			}
			if sv.opening > 0 {
				if err := ledgerService.RecordOpeningStock(ctx, item.ID, variant.ID, sv.opening, "seed"); err != nil {
					log.Fatalw("failed to seed opening stock", "code", si.code, "size", sv.size, "error", err)
				}
			}
		}
		log.Infow("seeded item", "code", si.code, "variants", len(si.variants))
	}

	log.Info("seeding complete")
}
