package embed

import "math"

// Norm computes the L2 norm of a vector.
func Norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns vec scaled to unit length. A zero vector is returned as a
// zero vector of the same length.
func Normalize(vec []float32) []float32 {
	out := make([]float32, len(vec))
	n := Norm(vec)
	if n == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / n)
	}
	return out
}

// Mean returns the element-wise mean of vecs, which must share one length.
// It returns nil for no input or mismatched lengths.
func Mean(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	sum := make([]float64, dim)
	for _, v := range vecs {
		if len(v) != dim {
			return nil
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	for i, s := range sum {
		out[i] = float32(s / float64(len(vecs)))
	}
	return out
}

// Cosine computes cosine similarity. It is 0 when the lengths differ or either
// vector has zero norm.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
