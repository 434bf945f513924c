package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hungdynguyen/skillgraph-backend/internal/platform/envutil"
)

// Encoder providers selectable per deployment.
const (
	EncoderProviderONNX   = "onnx"
	EncoderProviderRemote = "remote"
)

type PathsConfig struct {
	TaxonomySkills   string `yaml:"taxonomy_skills"`
	CourseCatalogDir string `yaml:"course_catalog_dir"`
	EmbeddingsDir    string `yaml:"embeddings_dir"`
	MappingsDir      string `yaml:"mappings_dir"`
}

type EncoderConfig struct {
	Provider  string `yaml:"provider"`
	ModelPath string `yaml:"model_path"`
	VocabPath string `yaml:"vocab_path"`
	// RemoteBaseURL and RemoteModel apply to the remote provider only.
	RemoteBaseURL string `yaml:"remote_base_url"`
	RemoteModel   string `yaml:"remote_model"`
	BatchSize     int    `yaml:"batch_size"`
	// VectorDim is the configured vector-store dimension. An encoder whose
	// output dimension differs aborts the run before mapping.
	VectorDim int `yaml:"vector_dim"`
}

type RerankerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ModelPath string `yaml:"model_path"`
	VocabPath string `yaml:"vocab_path"`
	BatchSize int    `yaml:"batch_size"`
	MaxLength int    `yaml:"max_length"`
}

type MappingConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
	RerankTopK    int     `yaml:"rerank_top_k"`
}

type GraphConfig struct {
	BatchSize      int `yaml:"batch_size"`
	MaxRetries     int `yaml:"max_retries"`
	RetryBackoffMS int `yaml:"retry_backoff_ms"`
}

type VectorIndexConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	Collection  string `yaml:"collection"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
}

type Config struct {
	Environment string            `yaml:"environment"`
	Paths       PathsConfig       `yaml:"paths"`
	Encoder     EncoderConfig     `yaml:"encoder"`
	Reranker    RerankerConfig    `yaml:"reranker"`
	Mapping     MappingConfig     `yaml:"mapping"`
	Graph       GraphConfig       `yaml:"graph"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
}

// Load reads the YAML settings file, then lets a few operational knobs be
// overridden from the environment.
func Load(path string) (Config, error) {
	cfg := defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Environment: "dev",
		Encoder: EncoderConfig{
			Provider:  EncoderProviderONNX,
			BatchSize: 32,
		},
		Reranker: RerankerConfig{
			BatchSize: 4,
			MaxLength: 256,
		},
		Mapping: MappingConfig{
			MinSimilarity: 0.5,
			RerankTopK:    50,
		},
		Graph: GraphConfig{
			BatchSize:      500,
			MaxRetries:     3,
			RetryBackoffMS: 500,
		},
		VectorIndex: VectorIndexConfig{
			BatchSize:   256,
			Concurrency: 4,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Environment = envutil.String("SKILLGRAPH_ENV", cfg.Environment)
	cfg.Encoder.Provider = envutil.String("SKILLGRAPH_ENCODER_PROVIDER", cfg.Encoder.Provider)
	cfg.Encoder.RemoteBaseURL = envutil.String("SKILLGRAPH_ENCODER_REMOTE_URL", cfg.Encoder.RemoteBaseURL)
	cfg.Encoder.BatchSize = envutil.Int("SKILLGRAPH_ENCODER_BATCH_SIZE", cfg.Encoder.BatchSize)
	cfg.Reranker.Enabled = envutil.Bool("SKILLGRAPH_RERANKER_ENABLED", cfg.Reranker.Enabled)
	cfg.Mapping.MinSimilarity = envutil.Float("SKILLGRAPH_MIN_SIMILARITY", cfg.Mapping.MinSimilarity)
	cfg.Mapping.RerankTopK = envutil.Int("SKILLGRAPH_RERANK_TOP_K", cfg.Mapping.RerankTopK)
	cfg.Graph.BatchSize = envutil.Int("SKILLGRAPH_GRAPH_BATCH_SIZE", cfg.Graph.BatchSize)
	cfg.VectorIndex.Enabled = envutil.Bool("SKILLGRAPH_VECTOR_INDEX_ENABLED", cfg.VectorIndex.Enabled)
	cfg.VectorIndex.URL = envutil.String("SKILLGRAPH_VECTOR_INDEX_URL", cfg.VectorIndex.URL)
}

func validate(cfg Config) error {
	switch cfg.Encoder.Provider {
	case EncoderProviderONNX, EncoderProviderRemote:
	default:
		return fmt.Errorf("config: unknown encoder provider %q", cfg.Encoder.Provider)
	}
	if cfg.Mapping.RerankTopK < 1 {
		return fmt.Errorf("config: mapping.rerank_top_k must be >= 1, got %d", cfg.Mapping.RerankTopK)
	}
	if cfg.Mapping.MinSimilarity < -1 || cfg.Mapping.MinSimilarity > 1 {
		return fmt.Errorf("config: mapping.min_similarity must be in [-1, 1], got %v", cfg.Mapping.MinSimilarity)
	}
	if cfg.Graph.BatchSize < 1 {
		return fmt.Errorf("config: graph.batch_size must be >= 1, got %d", cfg.Graph.BatchSize)
	}
	return nil
}
