package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hungdynguyen/skillgraph-backend/internal/config"
	"github.com/hungdynguyen/skillgraph-backend/internal/data/graph"
	"github.com/hungdynguyen/skillgraph-backend/internal/mapping"
	"github.com/hungdynguyen/skillgraph-backend/internal/path"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/neo4jdb"
	"github.com/hungdynguyen/skillgraph-backend/internal/taxonomy"
)

// buildgraph loads mapping records, merges the skill/course graph into neo4j,
// levels the course dependency graph, and writes the learning-path levels
// back onto the course nodes.
func main() {
	var configPath, mappingsPath, courseSource string
	flag.StringVar(&configPath, "config", "config/settings.yaml", "path to settings file")
	flag.StringVar(&mappingsPath, "mappings", "", "mapping records file (defaults to the mappings dir output)")
	flag.StringVar(&courseSource, "source", "records", "course source for leveling: records (this run's mappings) or graph (re-read TEACHES/REQUIRES from neo4j)")
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

	if mappingsPath == "" {
		mappingsPath = mapping.MappingsPath(cfg.Paths.MappingsDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, mappingsPath, courseSource, log); err != nil {
		log.Error("Graph build failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, mappingsPath, courseSource string, log *logger.Logger) error {
	records, err := mapping.ReadRecords(mappingsPath)
	if err != nil {
		return err
	}
	entries, err := taxonomy.Load(cfg.Paths.TaxonomySkills, log)
	if err != nil {
		return err
	}

	client, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	store := graph.NewSkillGraphStore(
		client,
		cfg.Graph.BatchSize,
		cfg.Graph.MaxRetries,
		time.Duration(cfg.Graph.RetryBackoffMS)*time.Millisecond,
		log,
	)
	store.EnsureSchema(ctx)

	skillNodes, broaderEdges := graph.DeriveTaxonomyGraph(entries)
	if err := store.UpsertSkillNodes(ctx, skillNodes); err != nil {
		return err
	}
	if err := store.MergeBroaderEdges(ctx, broaderEdges); err != nil {
		return err
	}

	courseNodes, teachesEdges, requiresEdges := graph.DeriveCourseGraph(records)
	if err := store.UpsertCourseNodes(ctx, courseNodes); err != nil {
		return err
	}
	if err := store.MergeTeachesEdges(ctx, teachesEdges); err != nil {
		return err
	}
	if err := store.MergeRequiresEdges(ctx, requiresEdges); err != nil {
		return err
	}

	// Leveling can work off this run's records or off the merged graph, so a
	// rebuild can pick up edges written by earlier runs.
	var courses []path.Course
	switch courseSource {
	case "records":
		courses = path.FromRecords(records)
	case "graph":
		if courses, err = path.LoadCourses(ctx, client, log); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown course source %q (want records or graph)", courseSource)
	}
	result := path.Build(courses)
	if len(result.Remaining) > 0 {
		log.Warn("Courses stuck in dependency cycles appended at path end",
			"remaining", len(result.Remaining))
	}
	if err := store.WritePrerequisiteLevels(ctx, result.Levels); err != nil {
		return err
	}

	log.Info("Graph build complete",
		"skills", len(skillNodes),
		"broader_edges", len(broaderEdges),
		"courses", len(courseNodes),
		"teaches_edges", len(teachesEdges),
		"requires_edges", len(requiresEdges),
		"path_length", len(result.Path),
	)
	return nil
}
