package clustering

import (
	"fmt"
	"math"
)

// Distance measures dissimilarity between two vectors of equal length.
// Similarity is defined as 1 - distance.
type Distance func(a, b []float64) float64

// DistanceFor returns the distance function registered under name.
func DistanceFor(name string) (Distance, error) {
	switch name {
	case MetricCosine:
		return CosineDistance, nil
	case MetricEuclidean:
		return EuclideanDistance, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", name)
	}
}

// CosineDistance returns 1 - cos(a, b). It is NaN if either vector has zero norm.
func CosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return math.NaN()
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Degenerate reports whether an embedding cannot be compared: it is empty,
// has zero norm, or contains NaN or infinite values.
func Degenerate(e []float64) bool {
	if len(e) == 0 {
		return true
	}
	var norm float64
	for _, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
		norm += v * v
	}
	return norm == 0
}
