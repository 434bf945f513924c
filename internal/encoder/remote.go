package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hungdynguyen/skillgraph-backend/internal/config"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/envutil"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

// RemoteEncoder calls an OpenAI-compatible embeddings API. Dimension is
// discovered from the first response and must stay constant per deployment.
type RemoteEncoder struct {
	baseURL   string
	model     string
	apiKey    string
	batchSize int
	dim       int
	http      *http.Client
	log       *logger.Logger
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func NewRemoteEncoder(cfg config.EncoderConfig, log *logger.Logger) (*RemoteEncoder, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.RemoteBaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("encoder: remote provider requires remote_base_url")
	}
	model := strings.TrimSpace(cfg.RemoteModel)
	if model == "" {
		model = "text-embedding-3-small"
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 32
	}

	e := &RemoteEncoder{
		baseURL:   baseURL,
		model:     model,
		apiKey:    envutil.String("EMBEDDINGS_API_KEY", ""),
		batchSize: batchSize,
		dim:       cfg.VectorDim,
		http:      &http.Client{Timeout: 60 * time.Second},
		log:       log.With("service", "RemoteEncoder"),
	}
	e.log.Info("Remote encoder selected", "url", baseURL, "model", model, "batch_size", batchSize)
	return e, nil
}

// Dim returns the configured dimension until the first response pins the
// actual one.
func (e *RemoteEncoder) Dim() int { return e.dim }

func (e *RemoteEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.encodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("encoder: batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *RemoteEncoder) encodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings API status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embeddings response missing index %d", i)
		}
	}

	// The first vector pins the dimension; every later vector and batch must
	// match it.
	if e.dim == 0 && len(out) > 0 {
		e.dim = len(out[0])
	}
	for _, v := range out {
		if len(v) != e.dim {
			return nil, &DimensionMismatchError{Got: len(v), Want: e.dim}
		}
	}
	return out, nil
}

// Close is a no-op; the remote service owns the model.
func (e *RemoteEncoder) Close() error { return nil }
