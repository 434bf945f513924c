package path

import (
	"sort"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
)

// Course is one matched course entering the learning-path build: what it
// teaches and what it requires, as resolved taxonomy skill IDs.
type Course struct {
	CourseID         string
	TaughtSkillIDs   []string
	RequiredSkillIDs []string
}

// Result is the dependency leveling. Path is the full learning order:
// level 0 courses, then level 1, ..., then Remaining. Remaining holds
// courses stuck in dependency cycles; they are appended after the peeled
// levels as a documented approximation (cycles are not decomposed further)
// and keep the default level 0.
type Result struct {
	Path      []string
	Levels    map[string]int
	Remaining []string
}

// FromRecords derives builder input from mapping records, aggregating
// resolved skills per course. Outcome skills count as taught, entry skills
// as required. Course order follows first occurrence in the records.
func FromRecords(records []domain.MappingRecord) []Course {
	index := make(map[string]int)
	var courses []Course
	for _, rec := range records {
		if rec.CourseID == "" {
			continue
		}
		i, ok := index[rec.CourseID]
		if !ok {
			i = len(courses)
			index[rec.CourseID] = i
			courses = append(courses, Course{CourseID: rec.CourseID})
		}
		if rec.EscoSkillID == nil || *rec.EscoSkillID == "" {
			continue
		}
		switch domain.SkillType(rec.SkillType) {
		case domain.SkillTypeOutcome:
			courses[i].TaughtSkillIDs = append(courses[i].TaughtSkillIDs, *rec.EscoSkillID)
		case domain.SkillTypeEntry:
			courses[i].RequiredSkillIDs = append(courses[i].RequiredSkillIDs, *rec.EscoSkillID)
		}
	}
	return courses
}

// Build derives the dependency graph and levels it with a deterministic
// Kahn/BFS peel. Course A depends on course B iff A's required skills
// intersect B's taught skills; then level(A) > level(B) whenever no reverse
// dependency exists.
//
// The graph is an arena: nodes are input indices and adjacency is
// index-based, so cyclic dependencies are plain data rather than cyclic
// references, and the leftover cycle members form a well-defined bucket.
func Build(courses []Course) Result {
	n := len(courses)
	res := Result{
		Path:   make([]string, 0, n),
		Levels: make(map[string]int, n),
	}
	if n == 0 {
		return res
	}

	// skill id -> courses that teach it, in input order.
	teachers := make(map[string][]int)
	for i, c := range courses {
		for _, skillID := range c.TaughtSkillIDs {
			teachers[skillID] = append(teachers[skillID], i)
		}
	}

	// adj[b] lists dependents of b; edges dedupe on the (b, a) pair.
	adj := make([][]int, n)
	indeg := make([]int, n)
	edgeSeen := make(map[[2]int]bool)
	for a, c := range courses {
		for _, skillID := range c.RequiredSkillIDs {
			for _, b := range teachers[skillID] {
				if a == b {
					continue
				}
				key := [2]int{b, a}
				if edgeSeen[key] {
					continue
				}
				edgeSeen[key] = true
				adj[b] = append(adj[b], a)
				indeg[a]++
			}
		}
	}

	for i := range courses {
		res.Levels[courses[i].CourseID] = 0
	}

	// Level-by-level peel. Each queue is sorted by input index so ties
	// always break the same way regardless of edge discovery order.
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	assigned := make([]bool, n)
	level := 0
	for len(queue) > 0 {
		sort.Ints(queue)
		var next []int
		for _, node := range queue {
			assigned[node] = true
			res.Levels[courses[node].CourseID] = level
			res.Path = append(res.Path, courses[node].CourseID)
			for _, dep := range adj[node] {
				indeg[dep]--
				if indeg[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
		level++
	}

	// Whatever never reached in-degree 0 sits on a cycle.
	for i := 0; i < n; i++ {
		if !assigned[i] {
			res.Remaining = append(res.Remaining, courses[i].CourseID)
			res.Path = append(res.Path, courses[i].CourseID)
		}
	}
	return res
}
