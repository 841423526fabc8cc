package cache

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// deriveKey buckets an entry by a low-dimensional projection of its embedding
// plus a hash of the query prefix. It deduplicates stores; it plays no part
// in lookup matching.
func deriveKey(query string, embedding []float32) string {
	const (
		projectionDims = 8
		prefixChars    = 50
	)

	var b strings.Builder
	for i := 0; i < projectionDims && i < len(embedding); i++ {
		fmt.Fprintf(&b, "%d,", int32(embedding[i]*1000))
	}

	prefix := query
	if len(prefix) > prefixChars {
		prefix = prefix[:prefixChars]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(prefix))

	return fmt.Sprintf("q_%s%d", b.String(), h.Sum32())
}

// CosineSimilarity returns the cosine of the angle between two vectors in
// [-1, 1], or 0 when either vector is empty, zero, or of mismatched length.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
