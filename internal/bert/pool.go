package bert

// MeanPool reduces per-token hidden states to one vector per sample by
// averaging over the real (attention-masked) tokens.
//
// hidden is the flat [batchSize * seqLen * dim] model output; mask is the
// flat [batchSize * seqLen] attention mask, 1 for real tokens. A sample with
// no real tokens pools to the zero vector.
func MeanPool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) [][]float32 {
	out := make([][]float32, batchSize)

	for b := int64(0); b < batchSize; b++ {
		vec := make([]float32, dim)
		out[b] = vec

		maskOff := b * seqLen
		hiddenOff := b * seqLen * dim

		var count float32
		for s := int64(0); s < seqLen; s++ {
			if mask[maskOff+s] != 1 {
				continue
			}
			count++
			tokOff := hiddenOff + s*dim
			for d := int64(0); d < dim; d++ {
				vec[d] += hidden[tokOff+d]
			}
		}
		if count == 0 {
			continue
		}

		inv := 1.0 / count
		for d := int64(0); d < dim; d++ {
			vec[d] *= inv
		}
	}

	return out
}
