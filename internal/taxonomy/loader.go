package taxonomy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

// Load reads the taxonomy skills snapshot (JSONL, one entry per line).
// Entries keep file order; that order fixes the embedding matrix row order
// downstream. Duplicate skill IDs keep the first occurrence.
func Load(path string, log *logger.Logger) ([]domain.TaxonomyEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []domain.TaxonomyEntry
	seen := make(map[string]bool)
	skippedDup := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var entry domain.TaxonomyEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("taxonomy: %s line %d: %w", path, line, err)
		}
		if strings.TrimSpace(entry.SkillID) == "" {
			return nil, fmt.Errorf("taxonomy: %s line %d: skill_id is required", path, line)
		}
		if strings.TrimSpace(entry.PreferredLabel) == "" {
			return nil, fmt.Errorf("taxonomy: %s line %d: preferred_label is required", path, line)
		}
		if seen[entry.SkillID] {
			skippedDup++
			continue
		}
		seen[entry.SkillID] = true
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("taxonomy: scan %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("taxonomy: %s holds no entries", path)
	}

	if skippedDup > 0 {
		log.Warn("Skipped duplicate taxonomy skill ids", "file", path, "duplicates", skippedDup)
	}
	log.Info("Loaded taxonomy snapshot", "file", path, "entries", len(entries))
	return entries, nil
}
