package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hungdynguyen/skillgraph-backend/internal/config"
	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

// Point IDs derive from skill IDs through this namespace UUID, so republishing
// the same taxonomy overwrites points instead of duplicating them.
var pointIDNamespaceUUID = uuid.MustParse("6d3d6e0c-9a41-47a3-9d2e-2f0a6b8c1e57")

// Publisher pushes taxonomy skill vectors into a qdrant collection so other
// services can search the taxonomy directly.
type Publisher struct {
	log        *logger.Logger
	baseURL    string
	collection string
	batchSize  int
	limit      int
	http       *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

func NewPublisher(cfg config.VectorIndexConfig, log *logger.Logger) (*Publisher, error) {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if url == "" {
		return nil, fmt.Errorf("vectorindex: url is required")
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, fmt.Errorf("vectorindex: collection is required")
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 256
	}
	limit := cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	return &Publisher{
		log:        log.With("service", "VectorIndexPublisher"),
		baseURL:    url,
		collection: cfg.Collection,
		batchSize:  batchSize,
		limit:      limit,
		http:       &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// EnsureCollection creates the collection when missing and verifies the vector
// size when it already exists.
func (p *Publisher) EnsureCollection(ctx context.Context, dim int) error {
	const op = "ensure_collection"
	if dim < 1 {
		return opErr(op, OperationErrorValidation, fmt.Sprintf("vector dim must be >= 1, got %d", dim), nil)
	}

	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := p.doJSON(ctx, op, http.MethodGet, p.collectionPath(""), nil, &info)
	if err == nil {
		if size := info.Config.Params.Vectors.Size; size != 0 && size != dim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", p.collection, dim, size), nil)
		}
		return nil
	}
	var typed *OperationError
	if !errors.As(err, &typed) || typed.StatusCode != http.StatusNotFound {
		return err
	}

	req := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	return p.doJSON(ctx, op, http.MethodPut, p.collectionPath(""), req, nil)
}

// PublishSkills upserts one point per taxonomy entry, batched and pushed
// concurrently. Batches are independent; any failed batch fails the publish.
func (p *Publisher) PublishSkills(ctx context.Context, entries []domain.TaxonomyEntry, vectors [][]float32) error {
	const op = "publish_skills"
	if len(entries) != len(vectors) {
		return opErr(op, OperationErrorValidation,
			fmt.Sprintf("entries/vectors length mismatch: %d vs %d", len(entries), len(vectors)), nil)
	}
	if len(entries) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.SkillID) == "" {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("entry %d has empty skill id", i), nil)
		}
		if len(vectors[i]) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("skill %q has empty vector", e.SkillID), nil)
		}
		points = append(points, map[string]any{
			"id":     p.pointID(e.SkillID),
			"vector": vectors[i],
			"payload": map[string]any{
				"skill_id":        e.SkillID,
				"preferred_label": e.PreferredLabel,
				"skill_type":      e.SkillType,
			},
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for start := 0; start < len(points); start += p.batchSize {
		end := start + p.batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]
		g.Go(func() error {
			req := map[string]any{"points": batch}
			return p.doJSON(gctx, op, http.MethodPut, p.collectionPath("/points?wait=true"), req, nil)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.log.Info("Published taxonomy vectors", "collection", p.collection, "points", len(points))
	return nil
}

func (p *Publisher) pointID(skillID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(skillID)).String()
}

func (p *Publisher) collectionPath(suffix string) string {
	path := "/collections/" + p.collection
	if suffix == "" {
		return path
	}
	return path + suffix
}

func (p *Publisher) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorUpsertFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(env.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorUpsertFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
