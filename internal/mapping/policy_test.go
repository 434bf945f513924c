package mapping

import (
	"testing"

	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
	"github.com/hungdynguyen/skillgraph-backend/internal/matcher"
	"github.com/hungdynguyen/skillgraph-backend/internal/reranker"
)

func TestDecideAcceptsAboveThreshold(t *testing.T) {
	policy := DecisionPolicy{Threshold: 0.5}
	query := domain.SkillQuery{CourseID: "c1", SkillName: "Python programming", SkillType: domain.SkillTypeOutcome}
	candidates := []matcher.Candidate{{Index: 0, Score: 0.9939}}

	got := policy.Decide(query, candidates, nil, false)
	if got.ResolvedIndex == nil {
		t.Fatalf("want resolved mapping, got unmapped")
	}
	if *got.ResolvedIndex != 0 {
		t.Fatalf("want index 0, got %d", *got.ResolvedIndex)
	}
	if got.RawSimilarity == nil || *got.RawSimilarity != 0.9939 {
		t.Fatalf("want raw similarity 0.9939, got %v", got.RawSimilarity)
	}
}

func TestDecideRejectsBelowThresholdKeepingSimilarity(t *testing.T) {
	policy := DecisionPolicy{Threshold: 0.995}
	query := domain.SkillQuery{CourseID: "c1", SkillName: "Python programming"}
	candidates := []matcher.Candidate{{Index: 0, Score: 0.9939}}

	got := policy.Decide(query, candidates, nil, false)
	if got.ResolvedIndex != nil {
		t.Fatalf("want unmapped, got index %d", *got.ResolvedIndex)
	}
	if got.RawSimilarity == nil || *got.RawSimilarity != 0.9939 {
		t.Fatalf("raw similarity must be retained for unmapped queries, got %v", got.RawSimilarity)
	}
}

func TestDecideGatesOnRawSimilarityNotRerankScore(t *testing.T) {
	policy := DecisionPolicy{Threshold: 0.5}
	query := domain.SkillQuery{SkillName: "databases"}
	candidates := []matcher.Candidate{
		{Index: 3, Score: 0.8},
		{Index: 7, Score: 0.4},
	}
	// Rerank promotes index 7 whose raw similarity sits below the threshold.
	reranked := []reranker.Scored{
		{ID: 7, Score: 9.5},
		{ID: 3, Score: 1.2},
	}

	got := policy.Decide(query, candidates, reranked, false)
	if got.ResolvedIndex != nil {
		t.Fatalf("raw similarity 0.4 is below threshold; want unmapped, got index %d", *got.ResolvedIndex)
	}
	if got.RawSimilarity == nil || *got.RawSimilarity != 0.4 {
		t.Fatalf("want raw similarity of the reranked-first candidate (0.4), got %v", got.RawSimilarity)
	}
	if got.RerankScore == nil || *got.RerankScore != 9.5 {
		t.Fatalf("want rerank score 9.5, got %v", got.RerankScore)
	}
}

func TestDecideRerankFirstWins(t *testing.T) {
	policy := DecisionPolicy{Threshold: 0.5}
	candidates := []matcher.Candidate{
		{Index: 1, Score: 0.9},
		{Index: 2, Score: 0.8},
	}
	reranked := []reranker.Scored{
		{ID: 2, Score: 4.0},
		{ID: 1, Score: 3.0},
	}

	got := policy.Decide(domain.SkillQuery{}, candidates, reranked, false)
	if got.ResolvedIndex == nil || *got.ResolvedIndex != 2 {
		t.Fatalf("want reranked winner 2, got %v", got.ResolvedIndex)
	}
	if *got.RawSimilarity != 0.8 {
		t.Fatalf("want winner's raw similarity 0.8, got %v", *got.RawSimilarity)
	}
}

func TestDecideNoCandidates(t *testing.T) {
	policy := DecisionPolicy{Threshold: 0.5}
	got := policy.Decide(domain.SkillQuery{SkillName: "anything"}, nil, nil, false)
	if got.ResolvedIndex != nil || got.RawSimilarity != nil || got.RerankScore != nil {
		t.Fatalf("want fully empty decision, got %+v", got)
	}
}

func TestDecideCarriesDegradedFlag(t *testing.T) {
	policy := DecisionPolicy{Threshold: 0.5}
	candidates := []matcher.Candidate{{Index: 0, Score: 0.9}}

	got := policy.Decide(domain.SkillQuery{}, candidates, nil, true)
	if !got.DegradedRerank {
		t.Fatalf("degraded flag must survive the decision")
	}
	if got.ResolvedIndex == nil || *got.ResolvedIndex != 0 {
		t.Fatalf("degraded query still maps through raw ordering, got %v", got.ResolvedIndex)
	}
	if got.RerankScore != nil {
		t.Fatalf("degraded query must not carry a rerank score, got %v", *got.RerankScore)
	}
}
