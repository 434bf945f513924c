package mapping

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/hungdynguyen/skillgraph-backend/internal/artifact"
	"github.com/hungdynguyen/skillgraph-backend/internal/config"
	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/encoder"
	"github.com/hungdynguyen/skillgraph-backend/internal/matcher"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
	"github.com/hungdynguyen/skillgraph-backend/internal/reranker"
)

// Phase names of the two-phase resource schedule. The embedding encoder and
// the cross-encoder are both large resident models; the schedule guarantees
// the encoder is fully released before the scorer is loaded so only one is
// ever resident. A deployment must not run two pipelines against the same
// accelerator concurrently; that serialization happens at the operational
// layer, not here.
type Phase string

const (
	PhaseIdle            Phase = "IDLE"
	PhaseEncoding        Phase = "ENCODING"
	PhaseEncoderReleased Phase = "ENCODER_RELEASED"
	PhaseReranking       Phase = "RERANKING"
	PhaseDeciding        Phase = "DECIDING"
	PhaseDone            Phase = "DONE"
)

var phaseOrder = map[Phase][]Phase{
	PhaseIdle:            {PhaseEncoding},
	PhaseEncoding:        {PhaseEncoderReleased},
	PhaseEncoderReleased: {PhaseReranking, PhaseDeciding},
	PhaseReranking:       {PhaseDeciding},
	PhaseDeciding:        {PhaseDone},
}

// Pipeline runs the full mapping schedule:
// encoder-load → encode → encoder-release → scorer-load → rerank → decide.
type Pipeline struct {
	cfg        config.Config
	store      *artifact.Store
	newEncoder func() (encoder.VectorEncoder, error)
	newScorer  func() (reranker.PairScorer, error)
	log        *logger.Logger

	phase Phase
}

// NewPipeline wires a pipeline. newScorer may be nil when reranking is
// disabled; it is only invoked after the encoder has been released.
func NewPipeline(
	cfg config.Config,
	store *artifact.Store,
	newEncoder func() (encoder.VectorEncoder, error),
	newScorer func() (reranker.PairScorer, error),
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		newEncoder: newEncoder,
		newScorer:  newScorer,
		log:        log.With("pipeline", "SkillMapping"),
		phase:      PhaseIdle,
	}
}

func (p *Pipeline) Phase() Phase { return p.phase }

func (p *Pipeline) transition(next Phase) error {
	for _, allowed := range phaseOrder[p.phase] {
		if allowed == next {
			p.log.Debug("Phase transition", "from", string(p.phase), "to", string(next))
			p.phase = next
			return nil
		}
	}
	return fmt.Errorf("mapping: illegal phase transition %s -> %s", p.phase, next)
}

// Run maps every query onto the taxonomy. Fatal errors (missing artifacts,
// dimension mismatch) abort before any Phase 2 resource is allocated;
// per-query scorer failures degrade that query to raw ordering and the run
// continues.
func (p *Pipeline) Run(ctx context.Context, queries []domain.SkillQuery) ([]domain.MappedSkill, []domain.TaxonomyEntry, error) {
	if p.phase != PhaseIdle {
		return nil, nil, fmt.Errorf("mapping: pipeline already ran (phase %s)", p.phase)
	}

	// Phase 1: artifacts, encoder, embeddings.
	if err := p.transition(PhaseEncoding); err != nil {
		return nil, nil, err
	}

	entries, taxonomyVectors, err := p.store.Load()
	if err != nil {
		return nil, nil, err
	}
	p.log.Info("Loaded taxonomy", "entries", len(entries))

	if len(queries) == 0 {
		p.log.Warn("No skill queries to map")
		if err := p.releaseAndSkipToDeciding(); err != nil {
			return nil, nil, err
		}
		if err := p.transition(PhaseDone); err != nil {
			return nil, nil, err
		}
		return []domain.MappedSkill{}, entries, nil
	}

	queryVectors, err := p.encodeQueries(ctx, queries, taxonomyVectors)
	if err != nil {
		return nil, nil, err
	}

	if err := p.transition(PhaseEncoderReleased); err != nil {
		return nil, nil, err
	}

	topK := p.cfg.Mapping.RerankTopK
	perQuery := matcher.ComputeTopK(queryVectors, taxonomyVectors, topK)

	// Phase 2: optional rerank.
	rerankedPerQuery := make([][]reranker.Scored, len(queries))
	degraded := make([]bool, len(queries))
	if p.newScorer != nil {
		if err := p.transition(PhaseReranking); err != nil {
			return nil, nil, err
		}
		p.rerankAll(ctx, queries, entries, perQuery, rerankedPerQuery, degraded)
	}

	// Decide.
	if err := p.transition(PhaseDeciding); err != nil {
		return nil, nil, err
	}
	policy := DecisionPolicy{Threshold: p.cfg.Mapping.MinSimilarity}
	results := make([]domain.MappedSkill, len(queries))
	for i, q := range queries {
		results[i] = policy.Decide(q, perQuery[i], rerankedPerQuery[i], degraded[i])
	}

	if err := p.transition(PhaseDone); err != nil {
		return nil, nil, err
	}

	mapped := 0
	for _, r := range results {
		if r.ResolvedIndex != nil {
			mapped++
		}
	}
	p.log.Info("Mapping finished", "queries", len(queries), "mapped", mapped, "unmapped", len(queries)-mapped)
	return results, entries, nil
}

// encodeQueries owns the encoder's whole lifecycle: load, dimension check,
// encode, release. On return no encoder memory is resident.
func (p *Pipeline) encodeQueries(ctx context.Context, queries []domain.SkillQuery, taxonomyVectors [][]float32) ([][]float32, error) {
	enc, err := p.newEncoder()
	if err != nil {
		return nil, fmt.Errorf("mapping: load encoder: %w", err)
	}
	release := func() {
		if enc == nil {
			return
		}
		if cerr := enc.Close(); cerr != nil {
			p.log.Warn("Encoder release failed", "error", cerr)
		}
		enc = nil
		// Model buffers are large; collect now so the scorer never coexists
		// with encoder garbage.
		runtime.GC()
	}
	defer release()

	if err := encoder.CheckDim(enc, p.cfg.Encoder.VectorDim); err != nil {
		return nil, err
	}
	if len(taxonomyVectors) > 0 && enc.Dim() != 0 && len(taxonomyVectors[0]) != enc.Dim() {
		return nil, &encoder.DimensionMismatchError{Got: enc.Dim(), Want: len(taxonomyVectors[0])}
	}

	payloads := make([]string, len(queries))
	for i, q := range queries {
		payloads[i] = q.EmbeddingPayload()
	}

	p.log.Info("Encoding skill queries", "count", len(payloads))
	vectors, err := enc.Encode(ctx, payloads)
	if err != nil {
		return nil, fmt.Errorf("mapping: encode queries: %w", err)
	}
	if len(vectors) != len(queries) {
		return nil, fmt.Errorf("mapping: encoder returned %d vectors for %d queries", len(vectors), len(queries))
	}
	// The declared dimension may be unknown until the first encode (remote
	// provider with vector_dim unset), so the produced vectors are validated
	// against the taxonomy rows as well.
	if len(taxonomyVectors) > 0 {
		want := len(taxonomyVectors[0])
		for _, v := range vectors {
			if len(v) != want {
				return nil, &encoder.DimensionMismatchError{Got: len(v), Want: want}
			}
		}
	}

	release()
	p.log.Info("Encoder released")
	return vectors, nil
}

// rerankAll loads the scorer and reranks each query's candidates. A scorer
// load failure degrades every query; a per-query failure degrades only that
// query. Neither aborts the run.
func (p *Pipeline) rerankAll(
	ctx context.Context,
	queries []domain.SkillQuery,
	entries []domain.TaxonomyEntry,
	perQuery [][]matcher.Candidate,
	rerankedPerQuery [][]reranker.Scored,
	degraded []bool,
) {
	scorer, err := p.newScorer()
	if err != nil {
		p.log.Warn("Scorer load failed; degrading all queries to raw-similarity ordering", "error", err)
		for i := range degraded {
			degraded[i] = true
		}
		return
	}
	defer func() {
		if cerr := scorer.Close(); cerr != nil {
			p.log.Warn("Scorer release failed", "error", cerr)
		}
	}()

	for i, q := range queries {
		candidates := perQuery[i]
		if len(candidates) == 0 {
			continue
		}
		pairs := make([]reranker.Pair, len(candidates))
		for j, c := range candidates {
			pairs[j] = reranker.Pair{ID: c.Index, Text: entries[c.Index].EmbeddingText()}
		}
		scored, err := reranker.Rerank(ctx, scorer, q.EmbeddingPayload(), pairs)
		if err != nil {
			var unavailable *reranker.ScorerUnavailableError
			if errors.As(err, &unavailable) {
				p.log.Warn("Rerank failed for query; using raw-similarity ordering",
					"course_id", q.CourseID, "skill_name", q.SkillName, "error", err)
				degraded[i] = true
				continue
			}
			// Context cancellation and other non-scorer errors still degrade
			// rather than abort; the decision phase works off raw ordering.
			p.log.Warn("Rerank aborted for query", "course_id", q.CourseID, "error", err)
			degraded[i] = true
			continue
		}
		rerankedPerQuery[i] = scored
	}
}

func (p *Pipeline) releaseAndSkipToDeciding() error {
	if err := p.transition(PhaseEncoderReleased); err != nil {
		return err
	}
	return p.transition(PhaseDeciding)
}
