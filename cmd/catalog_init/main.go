// Command catalog_init creates the MOI database and tables that tasks and
// reports are mirrored into, then loads the NL2SQL knowledge for them.
package main

import (
	"context"
	"flag"
	"log"

	"smart-check/internal/config"
	"smart-check/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

func main() {
	configFile := flag.String("config", "etc/config-dev.yaml", "config file")
	dbName := flag.String("database", "smart_check_analytics", "catalog database name")
	flag.Parse()

	logger.Init(config.LogConfig{Level: "info", Console: true})

	cfg := config.Load(*configFile)
	client, err := cfg.NewRawClient()
	if err != nil {
		log.Fatal(err)
	}
	if client == nil {
		log.Fatal("MOI_API_KEY is not set")
	}
	ctx := context.Background()
	catalogID := sdk.CatalogID(cfg.MOI.CatalogID)
	if catalogID == 0 {
		catalogID = 1
	}

	ids, err := initCatalog(ctx, client, catalogID, *dbName)
	if err != nil {
		log.Fatal("catalog init failed:", err)
	}

	if err := initKnowledge(ctx, client); err != nil {
		log.Fatal("knowledge init failed:", err)
	}

	// These go into moi.database_id, moi.tasks_table_id and moi.reports_table_id.
	logger.Info("done", "database_id", ids.database, "tasks_table_id", ids.tasks, "reports_table_id", ids.reports)
}
