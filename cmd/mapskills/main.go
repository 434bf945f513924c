package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hungdynguyen/skillgraph-backend/internal/artifact"
	"github.com/hungdynguyen/skillgraph-backend/internal/config"
	"github.com/hungdynguyen/skillgraph-backend/internal/data/mappings"
	"github.com/hungdynguyen/skillgraph-backend/internal/encoder"
	"github.com/hungdynguyen/skillgraph-backend/internal/mapping"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
	"github.com/hungdynguyen/skillgraph-backend/internal/reranker"
)

// mapskills maps extracted course skills onto the taxonomy: dense retrieval
// against the embedding artifact, optional cross-encoder rerank, then the
// threshold decision. Results land as JSONL and, when postgres is configured,
// in the relational store.
func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/settings.yaml", "path to settings file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Mapping pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	queries, err := mapping.LoadQueries(cfg.Paths.CourseCatalogDir, log)
	if err != nil {
		return err
	}

	store := artifact.NewStore(cfg.Paths.EmbeddingsDir, log)

	newEncoder := func() (encoder.VectorEncoder, error) {
		return encoder.New(cfg.Encoder, log)
	}
	var newScorer func() (reranker.PairScorer, error)
	if cfg.Reranker.Enabled {
		newScorer = func() (reranker.PairScorer, error) {
			return reranker.NewONNXScorer(cfg.Reranker, log)
		}
	}

	pipeline := mapping.NewPipeline(cfg, store, newEncoder, newScorer, log)
	results, entries, err := pipeline.Run(ctx, queries)
	if err != nil {
		return err
	}

	records := mapping.Records(results, entries)
	if _, err := mapping.WriteRecords(cfg.Paths.MappingsDir, records, log); err != nil {
		return err
	}

	repo, err := mappings.NewFromEnv(log)
	if err != nil {
		return err
	}
	if repo == nil {
		log.Info("Postgres not configured; skipping relational persistence")
		return nil
	}
	if err := repo.Migrate(); err != nil {
		return err
	}
	if err := repo.ReplaceRun(ctx, records); err != nil {
		return err
	}
	mapped, err := repo.CountMapped(ctx)
	if err != nil {
		return err
	}
	log.Info("Relational store updated", "records", len(records), "mapped", mapped)
	return nil
}
