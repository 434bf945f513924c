package reranker

import (
	"context"
	"fmt"

	"github.com/hungdynguyen/skillgraph-backend/internal/bert"
	"github.com/hungdynguyen/skillgraph-backend/internal/config"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

// ONNXScorer is a cross-encoder: each (query, candidate) pair is jointly
// encoded and the classification head's logit is the relevance score.
type ONNXScorer struct {
	session   *bert.Session
	tok       *bert.Tokenizer
	batchSize int
	log       *logger.Logger
}

func NewONNXScorer(cfg config.RerankerConfig, log *logger.Logger) (*ONNXScorer, error) {
	session, err := bert.OpenSession(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("reranker: %w", err)
	}
	if session.LabelDim() != 1 {
		_ = session.Close()
		return nil, fmt.Errorf("reranker: model %s is not a single-logit cross-encoder", cfg.ModelPath)
	}

	maxLength := cfg.MaxLength
	if maxLength < 1 {
		maxLength = 256
	}
	tok, err := bert.NewTokenizer(cfg.VocabPath, maxLength)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("reranker: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 4
	}

	scorerLog := log.With("service", "ONNXScorer")
	scorerLog.Info("Loaded cross-encoder model", "model", cfg.ModelPath, "batch_size", batchSize, "max_length", maxLength)

	return &ONNXScorer{
		session:   session,
		tok:       tok,
		batchSize: batchSize,
		log:       scorerLog,
	}, nil
}

// Score runs the pairs through the model in bounded-size batches. Output is
// aligned with the input, so batch boundaries cannot affect ordering.
func (s *ONNXScorer) Score(ctx context.Context, query string, candidates []Pair) ([]Scored, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	out := make([]Scored, 0, len(candidates))
	for start := 0; start < len(candidates); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + s.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		group := candidates[start:end]

		queries := make([]string, len(group))
		docs := make([]string, len(group))
		for i, c := range group {
			queries[i] = query
			docs[i] = c.Text
		}

		batch := s.tok.EncodePairBatch(queries, docs)
		logits, err := s.session.Infer(batch)
		if err != nil {
			return nil, fmt.Errorf("reranker: batch [%d:%d]: %w", start, end, err)
		}
		if int64(len(logits)) != batch.Size {
			return nil, fmt.Errorf("reranker: got %d logits for batch of %d", len(logits), batch.Size)
		}

		for i, c := range group {
			out = append(out, Scored{ID: c.ID, Score: float64(logits[i])})
		}
	}
	return out, nil
}

// Close destroys the inference session, releasing model memory.
func (s *ONNXScorer) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}
