package mapping

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

// LoadQueries reads extracted skill mentions from every .jsonl file under
// dir. Files are visited in lexical order so a rerun sees the same query
// order.
func LoadQueries(dir string, log *logger.Logger) ([]domain.SkillQuery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("mapping: read catalog dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	var queries []domain.SkillQuery
	for _, name := range files {
		path := filepath.Join(dir, name)
		loaded, err := loadQueryFile(path, name)
		if err != nil {
			return nil, err
		}
		queries = append(queries, loaded...)
	}

	log.Info("Loaded skill queries", "files", len(files), "queries", len(queries))
	return queries, nil
}

func loadQueryFile(path, sourceFile string) ([]domain.SkillQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open %s: %w", path, err)
	}
	defer f.Close()

	var queries []domain.SkillQuery
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var q domain.SkillQuery
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("mapping: %s line %d: %w", path, line, err)
		}
		if q.CourseID == "" || q.SkillName == "" {
			return nil, fmt.Errorf("mapping: %s line %d: course_id and skill_name are required", path, line)
		}
		if !q.SkillType.Valid() {
			return nil, fmt.Errorf("mapping: %s line %d: invalid skill_type %q", path, line, q.SkillType)
		}
		if q.SourceFile == "" {
			q.SourceFile = sourceFile
		}
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mapping: scan %s: %w", path, err)
	}
	return queries, nil
}
