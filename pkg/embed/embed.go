// Package embed provides text embedding clients and a vector cache.
package embed

import (
	"context"
	"math"
)

// Encoder turns texts into dense vectors, one per input, in input order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector, the lengths differ, or the result is not finite.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}
