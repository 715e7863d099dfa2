package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiwihelp/visa-assistant/internal/bootstrap"
	"github.com/kiwihelp/visa-assistant/internal/config"
	"github.com/kiwihelp/visa-assistant/internal/observability/logging"
)

func main() {
	recreate := flag.Bool("recreate", false, "drop and rebuild the index instead of adding to it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("indexer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexer, err := bootstrap.NewIndexer(cfg, logger, *recreate)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	if err := indexer.Reindexer.Reindex(ctx); err != nil {
		log.Fatalf("reindex error: %v", err)
	}
	logger.Info("reindex finished", "corpus", cfg.CorpusPath)
}
