package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadQueriesLexicalFileOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b_catalog.jsonl"),
		`{"course_id":"c2","skill_name":"SQL","skill_type":"outcome"}`+"\n")
	writeFile(t, filepath.Join(dir, "a_catalog.jsonl"),
		`{"course_id":"c1","skill_name":"Python","skill_type":"outcome"}`+"\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored\n")

	queries, err := LoadQueries(dir, testLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("want 2 queries, got %d", len(queries))
	}
	if queries[0].CourseID != "c1" || queries[1].CourseID != "c2" {
		t.Fatalf("want lexical file order c1,c2; got %s,%s", queries[0].CourseID, queries[1].CourseID)
	}
	if queries[0].SourceFile != "a_catalog.jsonl" {
		t.Fatalf("source file must default to the containing file, got %q", queries[0].SourceFile)
	}
}

func TestLoadQueriesRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.jsonl"),
		`{"course_id":"","skill_name":"Python","skill_type":"outcome"}`+"\n")

	if _, err := LoadQueries(dir, testLogger(t)); err == nil {
		t.Fatalf("want error for empty course_id, got nil")
	}
}

func TestLoadQueriesRejectsInvalidSkillType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.jsonl"),
		`{"course_id":"c1","skill_name":"Python","skill_type":"taught"}`+"\n")

	if _, err := LoadQueries(dir, testLogger(t)); err == nil {
		t.Fatalf("want error for invalid skill_type, got nil")
	}
}

func TestWriteAndReadRecordsRoundTrip(t *testing.T) {
	log := testLogger(t)
	dir := t.TempDir()

	skillID := "esco:s1"
	label := "computer programming"
	sim := 0.87
	records := []domain.MappingRecord{
		{
			CourseID:           "c1",
			CourseTitle:        "Intro to Programming",
			SkillName:          "Python",
			SkillType:          "outcome",
			EscoSkillID:        &skillID,
			EscoPreferredLabel: &label,
			SimilarityScore:    &sim,
		},
		{CourseID: "c2", CourseTitle: "Rhetoric", SkillName: "debate", SkillType: "entry"},
	}

	path, err := WriteRecords(dir, records, log)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if path != MappingsPath(dir) {
		t.Fatalf("want canonical path %s, got %s", MappingsPath(dir), path)
	}

	got, err := ReadRecords(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 records, got %d", len(got))
	}
	if got[0].EscoSkillID == nil || *got[0].EscoSkillID != skillID {
		t.Fatalf("want skill id %q, got %v", skillID, got[0].EscoSkillID)
	}
	if got[0].SimilarityScore == nil || *got[0].SimilarityScore != sim {
		t.Fatalf("want similarity %v, got %v", sim, got[0].SimilarityScore)
	}
	if got[1].EscoSkillID != nil {
		t.Fatalf("unmapped record must keep null skill id, got %v", *got[1].EscoSkillID)
	}
}

func TestRecordsFlattenResolvedIndex(t *testing.T) {
	entries := []domain.TaxonomyEntry{
		{SkillID: "esco:s1", PreferredLabel: "computer programming", Description: "writing code"},
	}
	idx := 0
	sim := 0.95
	results := []domain.MappedSkill{
		{
			Query:         domain.SkillQuery{CourseID: "c1", SkillName: "Python", SkillType: domain.SkillTypeOutcome},
			ResolvedIndex: &idx,
			RawSimilarity: &sim,
		},
		{
			Query: domain.SkillQuery{CourseID: "c1", SkillName: "underwater basket weaving", SkillType: domain.SkillTypeOutcome},
		},
	}

	records := Records(results, entries)
	if records[0].EscoSkillID == nil || *records[0].EscoSkillID != "esco:s1" {
		t.Fatalf("want esco:s1, got %v", records[0].EscoSkillID)
	}
	if records[0].EscoPreferredLabel == nil || *records[0].EscoPreferredLabel != "computer programming" {
		t.Fatalf("want preferred label, got %v", records[0].EscoPreferredLabel)
	}
	if records[1].EscoSkillID != nil {
		t.Fatalf("unmapped result must produce null skill fields")
	}
}
