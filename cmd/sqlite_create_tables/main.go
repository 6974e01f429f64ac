package main

import (
	"context"
	"log"

	"github.com/hetulpatel/employees/internal/config"
	"github.com/hetulpatel/employees/internal/directory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	store, err := directory.OpenSQLite(ctx, cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("create tables: %v", err)
	}
	log.Printf("employees table ready at %s", cfg.Database.SQLitePath)
}
