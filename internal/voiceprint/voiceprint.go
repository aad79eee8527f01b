// Package voiceprint computes and compares fixed-dimension speaker
// embeddings.
package voiceprint

import "math"

// Voiceprint is an opaque numeric fingerprint of a speaker's voice.
// The dimension is fixed by the embedding model (256 for the reference
// encoder). Voiceprints carry no identity beyond their values and are
// compared only via Cosine.
type Voiceprint []float64

// Cosine returns the cosine similarity of two equal-length vectors, in
// [-1, 1]. It returns exactly 0.0 when either vector has zero norm, or when
// the lengths differ; both are defined results, not errors.
func Cosine(a, b Voiceprint) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
