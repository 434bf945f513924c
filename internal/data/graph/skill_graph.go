package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/neo4jdb"
)

// GraphWriteError reports a batch merge that kept failing after retries. The
// batch boundary is surfaced so a rerun can resume behind the already
// committed batches instead of reprocessing them.
type GraphWriteError struct {
	Operation  string
	BatchStart int
	BatchEnd   int
	Attempts   int
	Cause      error
}

func (e *GraphWriteError) Error() string {
	return fmt.Sprintf(
		"graph write failed (op=%s batch=[%d:%d] attempts=%d): %v",
		e.Operation, e.BatchStart, e.BatchEnd, e.Attempts, e.Cause,
	)
}

func (e *GraphWriteError) Unwrap() error { return e.Cause }

// SkillGraphStore merges skill/course nodes and BROADER/TEACHES/REQUIRES
// edges in independently committed batches. Every merge is keyed by natural
// IDs, so re-running a batch converges to the same end state.
type SkillGraphStore struct {
	client     *neo4jdb.Client
	batchSize  int
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger

	// run commits a single batch; the retry loop goes through it so tests can
	// substitute the session round-trip.
	run func(ctx context.Context, cypher string, batch []map[string]any) error
}

func NewSkillGraphStore(client *neo4jdb.Client, batchSize, maxRetries int, backoff time.Duration, log *logger.Logger) *SkillGraphStore {
	if batchSize < 1 {
		batchSize = 500
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	s := &SkillGraphStore{
		client:     client,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		backoff:    backoff,
		log:        log.With("service", "SkillGraphStore"),
	}
	s.run = s.runBatch
	return s
}

// EnsureSchema creates uniqueness constraints. Best-effort: restricted users
// may not be allowed to manage schema, and merges still work without it.
func (s *SkillGraphStore) EnsureSchema(ctx context.Context) {
	session := s.session(ctx)
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT skill_id_unique IF NOT EXISTS FOR (s:Skill) REQUIRE s.skill_id IS UNIQUE`,
		`CREATE CONSTRAINT course_id_unique IF NOT EXISTS FOR (c:Course) REQUIRE c.course_id IS UNIQUE`,
	} {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			s.log.Warn("Schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (s *SkillGraphStore) UpsertSkillNodes(ctx context.Context, nodes []domain.SkillNode) error {
	rows := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		rows[i] = map[string]any{
			"skill_id":           n.SkillID,
			"preferred_label":    n.PreferredLabel,
			"description":        n.Description,
			"skill_type":         n.SkillType,
			"alternative_labels": n.AlternateLabels,
		}
	}
	return s.mergeBatches(ctx, "upsert_skill_nodes", rows, `
UNWIND $batch AS row
MERGE (s:Skill {skill_id: row.skill_id})
SET s.preferred_label = row.preferred_label,
    s.description = row.description,
    s.skill_type = row.skill_type,
    s.alternative_labels = row.alternative_labels
`)
}

func (s *SkillGraphStore) MergeBroaderEdges(ctx context.Context, edges []domain.BroaderEdge) error {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{"child_id": e.ChildID, "parent_id": e.ParentID}
	}
	return s.mergeBatches(ctx, "merge_broader_edges", rows, `
UNWIND $batch AS row
MATCH (child:Skill {skill_id: row.child_id})
MATCH (parent:Skill {skill_id: row.parent_id})
MERGE (child)-[:BROADER]->(parent)
`)
}

func (s *SkillGraphStore) UpsertCourseNodes(ctx context.Context, nodes []domain.CourseNode) error {
	rows := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		rows[i] = map[string]any{
			"course_id":    n.CourseID,
			"course_title": n.CourseTitle,
			"category":     n.Category,
			"source_file":  n.SourceFile,
		}
	}
	return s.mergeBatches(ctx, "upsert_course_nodes", rows, `
UNWIND $batch AS row
MERGE (c:Course {course_id: row.course_id})
SET c.course_title = row.course_title,
    c.category = row.category,
    c.source_file = row.source_file
`)
}

func (s *SkillGraphStore) MergeTeachesEdges(ctx context.Context, edges []domain.TeachesEdge) error {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{
			"course_id":        e.CourseID,
			"skill_id":         e.SkillID,
			"similarity_score": e.SimilarityScore,
			"skill_type":       e.SkillType,
			"source":           e.Source,
		}
	}
	return s.mergeBatches(ctx, "merge_teaches_edges", rows, `
UNWIND $batch AS row
MATCH (c:Course {course_id: row.course_id})
MATCH (s:Skill {skill_id: row.skill_id})
MERGE (c)-[r:TEACHES]->(s)
SET r.similarity_score = row.similarity_score,
    r.skill_type = row.skill_type,
    r.source = row.source
`)
}

func (s *SkillGraphStore) MergeRequiresEdges(ctx context.Context, edges []domain.RequiresEdge) error {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{
			"course_id":  e.CourseID,
			"skill_id":   e.SkillID,
			"skill_type": e.SkillType,
			"source":     e.Source,
		}
	}
	return s.mergeBatches(ctx, "merge_requires_edges", rows, `
UNWIND $batch AS row
MATCH (c:Course {course_id: row.course_id})
MATCH (s:Skill {skill_id: row.skill_id})
MERGE (c)-[r:REQUIRES]->(s)
SET r.skill_type = row.skill_type,
    r.source = row.source
`)
}

// WritePrerequisiteLevels stores the computed learning-path levels back on
// the course nodes.
func (s *SkillGraphStore) WritePrerequisiteLevels(ctx context.Context, levels map[string]int) error {
	rows := make([]map[string]any, 0, len(levels))
	for courseID, level := range levels {
		rows = append(rows, map[string]any{"course_id": courseID, "level": int64(level)})
	}
	return s.mergeBatches(ctx, "write_prerequisite_levels", rows, `
UNWIND $batch AS row
MATCH (c:Course {course_id: row.course_id})
SET c.prerequisite_level = row.level
`)
}

// mergeBatches commits rows in independent batches, retrying each failed
// batch with backoff before surfacing its boundary.
func (s *SkillGraphStore) mergeBatches(ctx context.Context, op string, rows []map[string]any, cypher string) error {
	if len(rows) == 0 {
		return nil
	}

	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.mergeBatchWithRetry(ctx, op, cypher, rows[start:end], start, end); err != nil {
			return err
		}
	}

	s.log.Info("Graph merge complete", "op", op, "rows", len(rows))
	return nil
}

func (s *SkillGraphStore) mergeBatchWithRetry(ctx context.Context, op, cypher string, batch []map[string]any, start, end int) error {
	attempts := s.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = s.run(ctx, cypher, batch)
		if lastErr == nil {
			return nil
		}
		if attempt < attempts {
			wait := s.backoff * time.Duration(attempt)
			s.log.Warn("Graph batch failed; retrying",
				"op", op, "batch_start", start, "batch_end", end,
				"attempt", attempt, "backoff", wait.String(), "error", lastErr)
			select {
			case <-ctx.Done():
				return &GraphWriteError{Operation: op, BatchStart: start, BatchEnd: end, Attempts: attempt, Cause: ctx.Err()}
			case <-time.After(wait):
			}
		}
	}
	return &GraphWriteError{Operation: op, BatchStart: start, BatchEnd: end, Attempts: attempts, Cause: lastErr}
}

func (s *SkillGraphStore) runBatch(ctx context.Context, cypher string, batch []map[string]any) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"batch": batch})
		if err != nil {
			return nil, err
		}
		return nil, consume(ctx, res)
	})
	return err
}

func consume(ctx context.Context, res neo4j.ResultWithContext) error {
	_, err := res.Consume(ctx)
	return err
}

func (s *SkillGraphStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}
