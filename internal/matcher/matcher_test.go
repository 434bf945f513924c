package matcher

import (
	"math"
	"testing"
)

func TestNormalizeRowsUnitNorm(t *testing.T) {
	out := NormalizeRows([][]float32{{3, 4}})
	norm := math.Sqrt(float64(out[0][0])*float64(out[0][0]) + float64(out[0][1])*float64(out[0][1]))
	if math.Abs(norm-1.0) > 1e-6 {
		t.Fatalf("expected unit norm, got %v", norm)
	}
}

func TestNormalizeRowsZeroVector(t *testing.T) {
	out := NormalizeRows([][]float32{{0, 0, 0}})
	for i, v := range out[0] {
		if v != 0 {
			t.Fatalf("zero vector component %d changed to %v", i, v)
		}
		if math.IsNaN(float64(v)) {
			t.Fatalf("zero vector produced NaN at %d", i)
		}
	}
}

func TestNormalizeRowsDoesNotMutateInput(t *testing.T) {
	in := [][]float32{{3, 4}}
	_ = NormalizeRows(in)
	if in[0][0] != 3 || in[0][1] != 4 {
		t.Fatalf("input mutated: %v", in[0])
	}
}

func TestSimilarityMatrixCosine(t *testing.T) {
	queries := NormalizeRows([][]float32{{1, 0}})
	taxonomy := NormalizeRows([][]float32{{1, 0}, {0, 1}, {1, 1}})
	m := SimilarityMatrix(queries, taxonomy)

	if math.Abs(m[0][0]-1.0) > 1e-6 {
		t.Fatalf("identical vectors: want 1.0, got %v", m[0][0])
	}
	if math.Abs(m[0][1]) > 1e-6 {
		t.Fatalf("orthogonal vectors: want 0.0, got %v", m[0][1])
	}
	if math.Abs(m[0][2]-1.0/math.Sqrt2) > 1e-6 {
		t.Fatalf("45-degree vectors: want %v, got %v", 1.0/math.Sqrt2, m[0][2])
	}
}

func TestTopKSelectsHighest(t *testing.T) {
	scores := []float64{0.1, 0.9, 0.5, 0.7, 0.3}
	got := TopK(scores, 3)

	wantIdx := []int{1, 3, 2}
	if len(got) != len(wantIdx) {
		t.Fatalf("want %d candidates, got %d", len(wantIdx), len(got))
	}
	for i, w := range wantIdx {
		if got[i].Index != w {
			t.Fatalf("position %d: want index %d, got %d", i, w, got[i].Index)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("scores not descending at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestTopKClampsToLength(t *testing.T) {
	got := TopK([]float64{0.2, 0.8}, 10)
	if len(got) != 2 {
		t.Fatalf("want 2 candidates, got %d", len(got))
	}
}

func TestTopKNoDuplicates(t *testing.T) {
	scores := []float64{0.5, 0.5, 0.5, 0.5}
	got := TopK(scores, 3)
	seen := make(map[int]bool)
	for _, c := range got {
		if seen[c.Index] {
			t.Fatalf("duplicate index %d", c.Index)
		}
		seen[c.Index] = true
	}
}

func TestTopKTieBreaksByIndex(t *testing.T) {
	scores := []float64{0.5, 0.9, 0.5, 0.9}
	got := TopK(scores, 4)
	wantIdx := []int{1, 3, 0, 2}
	for i, w := range wantIdx {
		if got[i].Index != w {
			t.Fatalf("position %d: want index %d, got %d (ties must break ascending)", i, w, got[i].Index)
		}
	}
}

func TestTopKDeterministic(t *testing.T) {
	scores := []float64{0.3, 0.7, 0.7, 0.1, 0.7, 0.9}
	first := TopK(scores, 4)
	for run := 0; run < 10; run++ {
		again := TopK(scores, 4)
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("run %d position %d: %+v != %+v", run, i, again[i], first[i])
			}
		}
	}
}

func TestComputeTopKEmptyTaxonomy(t *testing.T) {
	got := ComputeTopK([][]float32{{1, 0}, {0, 1}}, nil, 5)
	if len(got) != 2 {
		t.Fatalf("want one candidate list per query, got %d", len(got))
	}
	for i, candidates := range got {
		if candidates == nil || len(candidates) != 0 {
			t.Fatalf("query %d: want empty candidate list, got %v", i, candidates)
		}
	}
}

func TestComputeTopKEmptyQueries(t *testing.T) {
	got := ComputeTopK(nil, [][]float32{{1, 0}}, 5)
	if len(got) != 0 {
		t.Fatalf("want no candidate lists, got %d", len(got))
	}
}

func TestComputeTopKRanksByCosine(t *testing.T) {
	taxonomy := [][]float32{{1, 0}, {0, 1}}
	queries := [][]float32{{0.9, 0.1}}
	got := ComputeTopK(queries, taxonomy, 2)

	if got[0][0].Index != 0 {
		t.Fatalf("want nearest index 0, got %d", got[0][0].Index)
	}
	want := 0.9 / math.Sqrt(0.9*0.9+0.1*0.1)
	if math.Abs(got[0][0].Score-want) > 1e-6 {
		t.Fatalf("want similarity %v, got %v", want, got[0][0].Score)
	}
}
