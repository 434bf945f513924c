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
	"github.com/hungdynguyen/skillgraph-backend/internal/encoder"
	"github.com/hungdynguyen/skillgraph-backend/internal/matcher"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
	"github.com/hungdynguyen/skillgraph-backend/internal/taxonomy"
	"github.com/hungdynguyen/skillgraph-backend/internal/vectorindex"
)

// indexskills encodes the taxonomy snapshot into the paired embedding
// artifact (metadata JSONL + dense matrix) the mapping pipeline loads, and
// optionally publishes the vectors to the search index.
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
		log.Error("Index pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	entries, err := taxonomy.Load(cfg.Paths.TaxonomySkills, log)
	if err != nil {
		return err
	}

	enc, err := encoder.New(cfg.Encoder, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := enc.Close(); cerr != nil {
			log.Warn("Encoder release failed", "error", cerr)
		}
	}()

	if err := encoder.CheckDim(enc, cfg.Encoder.VectorDim); err != nil {
		return err
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.EmbeddingText()
	}

	log.Info("Encoding taxonomy entries", "count", len(texts))
	vectors, err := enc.Encode(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(entries) {
		return fmt.Errorf("encoder returned %d vectors for %d entries", len(vectors), len(entries))
	}

	// Stored rows are unit-normalized, so loading them back yields cosine
	// similarities from plain dot products.
	vectors = matcher.NormalizeRows(vectors)

	store := artifact.NewStore(cfg.Paths.EmbeddingsDir, log)
	if err := store.Write(entries, vectors); err != nil {
		return err
	}

	if !cfg.VectorIndex.Enabled {
		return nil
	}
	publisher, err := vectorindex.NewPublisher(cfg.VectorIndex, log)
	if err != nil {
		return err
	}
	if err := publisher.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}
	return publisher.PublishSkills(ctx, entries, vectors)
}
