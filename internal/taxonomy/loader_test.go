package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("prod")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skills.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestLoadKeepsFileOrder(t *testing.T) {
	path := writeSnapshot(t,
		`{"skill_id":"esco:s2","preferred_label":"public speaking"}`+"\n"+
			`{"skill_id":"esco:s1","preferred_label":"computer programming","broader_skill_ids":["esco:ict"]}`+"\n")

	entries, err := Load(path, testLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	if entries[0].SkillID != "esco:s2" || entries[1].SkillID != "esco:s1" {
		t.Fatalf("want file order preserved, got %s,%s", entries[0].SkillID, entries[1].SkillID)
	}
	if len(entries[1].BroaderSkillIDs) != 1 || entries[1].BroaderSkillIDs[0] != "esco:ict" {
		t.Fatalf("broader ids not parsed: %v", entries[1].BroaderSkillIDs)
	}
}

func TestLoadSkipsDuplicatesAndBlankLines(t *testing.T) {
	path := writeSnapshot(t,
		`{"skill_id":"esco:s1","preferred_label":"first"}`+"\n"+
			"\n"+
			`{"skill_id":"esco:s1","preferred_label":"duplicate"}`+"\n")

	entries, err := Load(path, testLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry after dedupe, got %d", len(entries))
	}
	if entries[0].PreferredLabel != "first" {
		t.Fatalf("dedupe must keep the first occurrence, got %q", entries[0].PreferredLabel)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	for name, content := range map[string]string{
		"missing skill_id": `{"preferred_label":"x"}` + "\n",
		"missing label":    `{"skill_id":"esco:s1"}` + "\n",
		"empty file":       "",
	} {
		path := writeSnapshot(t, content)
		if _, err := Load(path, testLogger(t)); err == nil {
			t.Fatalf("%s: want error, got nil", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.jsonl"), testLogger(t)); err == nil {
		t.Fatalf("want error for missing file, got nil")
	}
}
