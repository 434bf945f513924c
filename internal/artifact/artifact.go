package artifact

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

const (
	metadataFileName   = "skills_metadata.jsonl"
	embeddingsFileName = "skills_embeddings.npy"
)

// ErrMissingArtifact means one of the paired artifact files is absent. The
// mapping pipeline treats this as fatal before any processing starts.
var ErrMissingArtifact = errors.New("taxonomy embedding artifacts missing; run the index pipeline first")

// Store reads and writes the taxonomy embedding artifact: a JSONL metadata
// file paired with a dense matrix file. Record i's embedding is row i of the
// matrix; that positional coupling is the artifact's core invariant, so the
// two files are only ever written together.
type Store struct {
	dir string
	log *logger.Logger
}

func NewStore(dir string, log *logger.Logger) *Store {
	return &Store{dir: dir, log: log.With("service", "ArtifactStore")}
}

func (s *Store) metadataPath() string   { return filepath.Join(s.dir, metadataFileName) }
func (s *Store) embeddingsPath() string { return filepath.Join(s.dir, embeddingsFileName) }

// Load returns the taxonomy entries and their embedding rows. Both slices
// have equal length.
func (s *Store) Load() ([]domain.TaxonomyEntry, [][]float32, error) {
	if _, err := os.Stat(s.metadataPath()); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingArtifact, s.metadataPath())
	}
	if _, err := os.Stat(s.embeddingsPath()); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingArtifact, s.embeddingsPath())
	}

	entries, err := s.loadMetadata()
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.embeddingsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("artifact: open embeddings: %w", err)
	}
	defer f.Close()

	matrix, err := readMatrixNPY(bufio.NewReader(f))
	if err != nil {
		return nil, nil, fmt.Errorf("artifact: %w", err)
	}

	if len(matrix) != len(entries) {
		return nil, nil, fmt.Errorf(
			"artifact: positional coupling broken: %d metadata records vs %d embedding rows",
			len(entries), len(matrix),
		)
	}

	s.log.Info("Loaded taxonomy embedding artifact", "entries", len(entries), "dim", rowDim(matrix))
	return entries, matrix, nil
}

// Write persists entries and vectors together. len(entries) must equal
// len(vectors) and every vector must share one dimension.
func (s *Store) Write(entries []domain.TaxonomyEntry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("artifact: %d entries vs %d vectors", len(entries), len(vectors))
	}
	dim := rowDim(vectors)
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("artifact: vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("artifact: mkdir %s: %w", s.dir, err)
	}

	if err := s.writeMetadata(entries); err != nil {
		return err
	}

	f, err := os.Create(s.embeddingsPath())
	if err != nil {
		return fmt.Errorf("artifact: create embeddings: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := writeMatrixNPY(w, vectors, dim); err != nil {
		_ = f.Close()
		return fmt.Errorf("artifact: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("artifact: flush embeddings: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("artifact: close embeddings: %w", err)
	}

	s.log.Info("Persisted taxonomy embedding artifact", "entries", len(entries), "dim", dim, "dir", s.dir)
	return nil
}

func (s *Store) loadMetadata() ([]domain.TaxonomyEntry, error) {
	f, err := os.Open(s.metadataPath())
	if err != nil {
		return nil, fmt.Errorf("artifact: open metadata: %w", err)
	}
	defer f.Close()

	var entries []domain.TaxonomyEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry domain.TaxonomyEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("artifact: metadata line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("artifact: scan metadata: %w", err)
	}
	return entries, nil
}

func (s *Store) writeMetadata(entries []domain.TaxonomyEntry) error {
	f, err := os.Create(s.metadataPath())
	if err != nil {
		return fmt.Errorf("artifact: create metadata: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			_ = f.Close()
			return fmt.Errorf("artifact: encode metadata record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("artifact: flush metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("artifact: close metadata: %w", err)
	}
	return nil
}

func rowDim(matrix [][]float32) int {
	if len(matrix) == 0 {
		return 0
	}
	return len(matrix[0])
}
