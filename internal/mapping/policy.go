package mapping

import (
	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/matcher"
	"github.com/hungdynguyen/skillgraph-backend/internal/reranker"
)

// DecisionPolicy picks the accepted mapping for one query.
//
// The accepted candidate is always the first in the final ordering (reranked
// when available, raw otherwise), but the accept/reject threshold is applied
// to that candidate's raw embedding similarity, never to its rerank score.
// Ranking and acceptance are deliberately decoupled: rerank may reorder among
// already-plausible candidates, while the trust gate stays embedding-based.
// Whether production should gate on the rerank score instead is an open
// question; do not change this without an explicit requirement.
type DecisionPolicy struct {
	Threshold float64
}

// Decide resolves one query against its candidate list. reranked is nil when
// no scorer ran; degraded marks a scorer failure that forced raw ordering.
func (p DecisionPolicy) Decide(
	query domain.SkillQuery,
	candidates []matcher.Candidate,
	reranked []reranker.Scored,
	degraded bool,
) domain.MappedSkill {
	out := domain.MappedSkill{Query: query, DegradedRerank: degraded}
	if len(candidates) == 0 {
		return out
	}

	rawByIndex := make(map[int]float64, len(candidates))
	for _, c := range candidates {
		rawByIndex[c.Index] = c.Score
	}

	first := candidates[0].Index
	rawSim := candidates[0].Score
	if len(reranked) > 0 {
		first = reranked[0].ID
		rawSim = rawByIndex[first]
		score := reranked[0].Score
		out.RerankScore = &score
	}

	out.RawSimilarity = &rawSim
	if rawSim < p.Threshold {
		return out
	}

	idx := first
	out.ResolvedIndex = &idx
	return out
}
