package path

import (
	"reflect"
	"testing"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
)

func TestBuildLevelsRespectDependencies(t *testing.T) {
	courses := []Course{
		{CourseID: "c-basic", TaughtSkillIDs: []string{"s1"}},
		{CourseID: "c-mid", TaughtSkillIDs: []string{"s2"}, RequiredSkillIDs: []string{"s1"}},
		{CourseID: "c-adv", RequiredSkillIDs: []string{"s2"}},
	}
	res := Build(courses)

	if res.Levels["c-basic"] != 0 {
		t.Fatalf("c-basic: want level 0, got %d", res.Levels["c-basic"])
	}
	if res.Levels["c-mid"] <= res.Levels["c-basic"] {
		t.Fatalf("c-mid level %d not above c-basic level %d", res.Levels["c-mid"], res.Levels["c-basic"])
	}
	if res.Levels["c-adv"] <= res.Levels["c-mid"] {
		t.Fatalf("c-adv level %d not above c-mid level %d", res.Levels["c-adv"], res.Levels["c-mid"])
	}
	if len(res.Remaining) != 0 {
		t.Fatalf("acyclic graph produced remaining: %v", res.Remaining)
	}
}

func TestBuildIsolatedCoursesLevelZero(t *testing.T) {
	courses := []Course{
		{CourseID: "a"},
		{CourseID: "b", TaughtSkillIDs: []string{"sx"}},
	}
	res := Build(courses)
	for _, id := range []string{"a", "b"} {
		if res.Levels[id] != 0 {
			t.Fatalf("%s: want level 0, got %d", id, res.Levels[id])
		}
	}
	if !reflect.DeepEqual(res.Path, []string{"a", "b"}) {
		t.Fatalf("want input-order path, got %v", res.Path)
	}
}

func TestBuildCycleGoesToRemaining(t *testing.T) {
	courses := []Course{
		{CourseID: "x", TaughtSkillIDs: []string{"sx"}, RequiredSkillIDs: []string{"sy"}},
		{CourseID: "y", TaughtSkillIDs: []string{"sy"}, RequiredSkillIDs: []string{"sx"}},
		{CourseID: "free"},
	}
	res := Build(courses)

	if !reflect.DeepEqual(res.Remaining, []string{"x", "y"}) {
		t.Fatalf("want cycle members [x y] in input order, got %v", res.Remaining)
	}
	// Cycle members keep the default level and still appear in the path.
	if res.Levels["x"] != 0 || res.Levels["y"] != 0 {
		t.Fatalf("cycle members must keep level 0, got x=%d y=%d", res.Levels["x"], res.Levels["y"])
	}
	if !reflect.DeepEqual(res.Path, []string{"free", "x", "y"}) {
		t.Fatalf("want peeled courses then remaining, got %v", res.Path)
	}
}

func TestBuildSelfDependencyIgnored(t *testing.T) {
	courses := []Course{
		{CourseID: "solo", TaughtSkillIDs: []string{"s"}, RequiredSkillIDs: []string{"s"}},
	}
	res := Build(courses)
	if len(res.Remaining) != 0 {
		t.Fatalf("self-dependency must not form a cycle, got remaining %v", res.Remaining)
	}
	if res.Levels["solo"] != 0 {
		t.Fatalf("want level 0, got %d", res.Levels["solo"])
	}
}

func TestBuildDuplicateEdgesCountOnce(t *testing.T) {
	// b requires two skills both taught by a: one logical dependency.
	courses := []Course{
		{CourseID: "a", TaughtSkillIDs: []string{"s1", "s2"}},
		{CourseID: "b", RequiredSkillIDs: []string{"s1", "s2"}},
	}
	res := Build(courses)
	if res.Levels["b"] != 1 {
		t.Fatalf("want level 1, got %d", res.Levels["b"])
	}
}

func TestBuildDeterministicAcrossRuns(t *testing.T) {
	courses := []Course{
		{CourseID: "d", RequiredSkillIDs: []string{"s1"}},
		{CourseID: "a", TaughtSkillIDs: []string{"s1"}},
		{CourseID: "c", RequiredSkillIDs: []string{"s1"}},
		{CourseID: "b", TaughtSkillIDs: []string{"s1"}},
	}
	first := Build(courses)
	for run := 0; run < 10; run++ {
		again := Build(courses)
		if !reflect.DeepEqual(first.Path, again.Path) {
			t.Fatalf("run %d: path %v != %v", run, again.Path, first.Path)
		}
		if !reflect.DeepEqual(first.Levels, again.Levels) {
			t.Fatalf("run %d: levels %v != %v", run, again.Levels, first.Levels)
		}
	}
	// Same-level ties follow input order: a,b at level 0, then d,c (d comes
	// first in the input).
	if !reflect.DeepEqual(first.Path, []string{"a", "b", "d", "c"}) {
		t.Fatalf("want ties in input order, got %v", first.Path)
	}
}

func TestFromRecordsAggregatesPerCourse(t *testing.T) {
	s1 := "skill-1"
	s2 := "skill-2"
	records := []domain.MappingRecord{
		{CourseID: "c1", SkillType: "outcome", EscoSkillID: &s1},
		{CourseID: "c1", SkillType: "entry", EscoSkillID: &s2},
		{CourseID: "c1", SkillType: "outcome"}, // unmapped, ignored
		{CourseID: "c2", SkillType: "outcome", EscoSkillID: &s2},
	}
	courses := FromRecords(records)

	if len(courses) != 2 {
		t.Fatalf("want 2 courses, got %d", len(courses))
	}
	if courses[0].CourseID != "c1" || courses[1].CourseID != "c2" {
		t.Fatalf("want first-occurrence order [c1 c2], got %v", courses)
	}
	if !reflect.DeepEqual(courses[0].TaughtSkillIDs, []string{s1}) {
		t.Fatalf("c1 taught: want [%s], got %v", s1, courses[0].TaughtSkillIDs)
	}
	if !reflect.DeepEqual(courses[0].RequiredSkillIDs, []string{s2}) {
		t.Fatalf("c1 required: want [%s], got %v", s2, courses[0].RequiredSkillIDs)
	}
}

func TestBuildEmpty(t *testing.T) {
	res := Build(nil)
	if len(res.Path) != 0 || len(res.Levels) != 0 || len(res.Remaining) != 0 {
		t.Fatalf("empty input must yield empty result, got %+v", res)
	}
}
