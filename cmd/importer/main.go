package main

import (
	"context"
	"flag"
	"log"

	"github.com/vinco360/crm-replicator/internal/app/bootstrap"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the yaml config file")
	clientQuery := flag.String("clients", "SELECT IdCliente FROM VC_Cliente", "query selecting the client ids to backfill")
	flag.Parse()

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, *configPath)
	if err != nil {
		log.Fatalf("bootstrap runtime: %v", err)
	}
	if err := runtime.RunImport(ctx, *clientQuery); err != nil {
		log.Fatalf("run import: %v", err)
	}
}
