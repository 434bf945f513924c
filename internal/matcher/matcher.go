package matcher

import (
	"container/heap"
	"math"
	"sort"
)

// Candidate is one taxonomy entry scored against a query. Index is the
// entry's position in the taxonomy snapshot.
type Candidate struct {
	Index int
	Score float64
}

// NormalizeRows rescales each vector to unit L2 norm. A zero-norm vector is
// left unscaled (denominator clamped to 1.0) so downstream dot products stay
// finite instead of going NaN.
func NormalizeRows(vectors [][]float32) [][]float32 {
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		norm := math.Sqrt(sum)
		if norm == 0 {
			norm = 1.0
		}
		row := make([]float32, len(v))
		inv := float32(1.0 / norm)
		for j, x := range v {
			row[j] = x * inv
		}
		out[i] = row
	}
	return out
}

// SimilarityMatrix computes queries × taxonomyᵀ. With unit-normalized inputs
// every cell is a cosine similarity in [-1, 1].
func SimilarityMatrix(queries, taxonomy [][]float32) [][]float64 {
	out := make([][]float64, len(queries))
	for i, q := range queries {
		row := make([]float64, len(taxonomy))
		for j, t := range taxonomy {
			row[j] = dot(q, t)
		}
		out[i] = row
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// ComputeTopK normalizes both vector sets, computes the similarity matrix,
// and extracts the top-k candidates per query. k is clamped to the taxonomy
// size; an empty taxonomy yields an empty candidate list per query.
func ComputeTopK(queryVectors, taxonomyVectors [][]float32, k int) [][]Candidate {
	nq := len(queryVectors)
	out := make([][]Candidate, nq)
	if nq == 0 {
		return out
	}
	if len(taxonomyVectors) == 0 || k < 1 {
		for i := range out {
			out[i] = []Candidate{}
		}
		return out
	}

	normQueries := NormalizeRows(queryVectors)
	normTaxonomy := NormalizeRows(taxonomyVectors)
	matrix := SimilarityMatrix(normQueries, normTaxonomy)

	for i, scores := range matrix {
		out[i] = TopK(scores, k)
	}
	return out
}

// TopK selects the min(k, len(scores)) highest-scoring indices via partial
// selection (a bounded min-heap, not a full sort), then orders the selected
// subset descending by score with ties broken by ascending index so reruns
// are bit-identical.
func TopK(scores []float64, k int) []Candidate {
	n := len(scores)
	if n == 0 || k < 1 {
		return []Candidate{}
	}
	if k > n {
		k = n
	}

	h := make(candidateMinHeap, 0, k)
	for idx := 0; idx < n; idx++ {
		c := Candidate{Index: idx, Score: scores[idx]}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if worseThan(h[0], c) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	selected := []Candidate(h)
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Score != selected[j].Score {
			return selected[i].Score > selected[j].Score
		}
		return selected[i].Index < selected[j].Index
	})
	return selected
}

// worseThan reports whether a ranks strictly below b: lower score, or equal
// score with the higher index.
func worseThan(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Index > b.Index
}

type candidateMinHeap []Candidate

func (h candidateMinHeap) Len() int            { return len(h) }
func (h candidateMinHeap) Less(i, j int) bool  { return worseThan(h[i], h[j]) }
func (h candidateMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateMinHeap) Push(x interface{}) { *h = append(*h, x.(Candidate)) }
func (h *candidateMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
