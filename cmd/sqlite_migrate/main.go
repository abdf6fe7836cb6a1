package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"

	"github.com/jcarver/oddsparity/internal/config"
	"github.com/jcarver/oddsparity/internal/logging"
	sqlstore "github.com/jcarver/oddsparity/internal/storage/sqlite"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	action := flag.String("action", "create", "create | drop | clear | reset")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[sqlite-migrate] config: %v", err)
	}
	logging.SetLevel(cfg.Logging.Level)

	store, err := sqlstore.Open(cfg.Storage.SQLitePath)
	if err != nil {
		logging.Fatalf("[sqlite-migrate] open sqlite: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	switch *action {
	case "create":
		err = store.CreateTables(ctx)
	case "drop":
		err = store.DropTables(ctx)
	case "clear":
		err = store.ClearTables(ctx)
	case "reset":
		if err = store.DropTables(ctx); err == nil {
			err = store.CreateTables(ctx)
		}
	default:
		logging.Fatalf("[sqlite-migrate] unknown action %q", *action)
	}
	if err != nil {
		logging.Fatalf("[sqlite-migrate] %s: %v", *action, err)
	}
	logging.Infof("[sqlite-migrate] %s complete on %s", *action, store.Path())
}
