package vector

import "math"

// CosineDistance returns 1 - cosine similarity of a and b. A zero vector is
// treated as orthogonal to everything, giving distance 1.
func CosineDistance(a, b []float32) float32 {
	n := min(len(a), len(b))

	var dot, na, nb float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}
