package reranker

import (
	"context"
	"fmt"
	"sort"
)

// Pair is one (candidate id, candidate text) input to the scorer. ID is the
// candidate's taxonomy index.
type Pair struct {
	ID   int
	Text string
}

// Scored is a candidate with its cross-encoder relevance score.
type Scored struct {
	ID    int
	Score float64
}

// PairScorer jointly scores (query, candidate) pairs. Implementations return
// scores aligned with the input order; ordering is applied by Rerank so the
// stable tie-break contract lives in one place.
type PairScorer interface {
	Score(ctx context.Context, query string, candidates []Pair) ([]Scored, error)
	Close() error
}

// ScorerUnavailableError wraps a scorer failure. Recoverable: the affected
// query degrades to raw-similarity ordering, the run continues.
type ScorerUnavailableError struct {
	Cause error
}

func (e *ScorerUnavailableError) Error() string {
	return fmt.Sprintf("pair scorer unavailable: %v", e.Cause)
}

func (e *ScorerUnavailableError) Unwrap() error { return e.Cause }

// Rerank scores the candidates and returns them ordered by descending score.
// Ties keep the original (pre-rerank) candidate order, so the result is
// deterministic and independent of scorer batch boundaries.
func Rerank(ctx context.Context, scorer PairScorer, query string, candidates []Pair) ([]Scored, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	scored, err := scorer.Score(ctx, query, candidates)
	if err != nil {
		return nil, &ScorerUnavailableError{Cause: err}
	}
	if len(scored) != len(candidates) {
		return nil, &ScorerUnavailableError{
			Cause: fmt.Errorf("scorer returned %d scores for %d candidates", len(scored), len(candidates)),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}
