package ranker

import "math"

// Vector is a sparse TF-IDF weight vector keyed by term. Zero weights are
// never stored.
type Vector map[string]float64

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	sum := 0.0
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot sums the products of weights over the dimensions both vectors share.
func Dot(a, b Vector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			sum += wa * wb
		}
	}
	return sum
}

// Cosine returns the cosine similarity of a and b. A zero vector on either
// side yields 0.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp(Dot(a, b) / (na * nb))
}

// clamp pins floating point drift back into [0, 1]. Weights are never
// negative, so anything outside is rounding error.
func clamp(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
