package path

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/neo4jdb"
)

// LoadCourses reads every course with its taught and required skill IDs from
// the graph store. Courses come back ordered by course_id so the builder's
// input order is stable across runs.
func LoadCourses(ctx context.Context, client *neo4jdb.Client, log *logger.Logger) ([]Course, error) {
	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Course)
OPTIONAL MATCH (c)-[:TEACHES]->(t:Skill)
OPTIONAL MATCH (c)-[:REQUIRES]->(r:Skill)
RETURN c.course_id AS course_id,
       collect(DISTINCT t.skill_id) AS taught,
       collect(DISTINCT r.skill_id) AS required
ORDER BY course_id
`, nil)
		if err != nil {
			return nil, err
		}

		var courses []Course
		for res.Next(ctx) {
			rec := res.Record()
			courseID, _ := rec.Get("course_id")
			id, ok := courseID.(string)
			if !ok || id == "" {
				continue
			}
			c := Course{CourseID: id}
			if taught, ok := recList(rec, "taught"); ok {
				c.TaughtSkillIDs = taught
			}
			if required, ok := recList(rec, "required"); ok {
				c.RequiredSkillIDs = required
			}
			courses = append(courses, c)
		}
		return courses, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("path: load courses: %w", err)
	}

	courses := result.([]Course)
	log.Info("Loaded courses for learning path", "courses", len(courses))
	return courses, nil
}

// recList extracts a []string from a collect() column, dropping the nulls
// OPTIONAL MATCH leaves behind.
func recList(rec *neo4j.Record, key string) ([]string, bool) {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}
