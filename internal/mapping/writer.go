package mapping

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

const mappingsFileName = "course_skill_mappings.jsonl"

// Records flattens mapping decisions into output records against the
// taxonomy snapshot the run used.
func Records(results []domain.MappedSkill, entries []domain.TaxonomyEntry) []domain.MappingRecord {
	records := make([]domain.MappingRecord, len(results))
	for i, r := range results {
		records[i] = r.Record(entries)
	}
	return records
}

// WriteRecords persists records as line-delimited JSON under dir.
func WriteRecords(dir string, records []domain.MappingRecord, log *logger.Logger) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mapping: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, mappingsFileName)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("mapping: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("mapping: encode record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("mapping: flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("mapping: close %s: %w", path, err)
	}

	log.Info("Persisted course skill mappings", "path", path, "records", len(records))
	return path, nil
}

// ReadRecords loads previously written mapping records, for the graph build
// pipeline.
func ReadRecords(path string) ([]domain.MappingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open %s: %w", path, err)
	}
	defer f.Close()

	var records []domain.MappingRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec domain.MappingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("mapping: %s line %d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mapping: scan %s: %w", path, err)
	}
	return records, nil
}

// MappingsPath returns the canonical output path under dir.
func MappingsPath(dir string) string {
	return filepath.Join(dir, mappingsFileName)
}
