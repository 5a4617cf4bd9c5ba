package rag

import (
	"fmt"
	"math"
	"sort"

	"pdf-rag/internal/models"
)

// CosineSimilarity returns dot(a,b)/(|a||b|). Vectors of different length
// are an error; a zero-magnitude vector has similarity 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na2, nb2 float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}

// Retrieve scores every record against query and returns at most k matches,
// highest similarity first. Records of another dimensionality are skipped;
// equal scores keep their scan order.
func Retrieve(query []float32, records []models.ChunkRecord, k int) ([]models.Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}

	matches := make([]models.Match, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != len(query) {
			continue
		}
		sim, err := CosineSimilarity(query, rec.Embedding)
		if err != nil || math.IsNaN(sim) {
			continue
		}
		matches = append(matches, models.Match{
			ChunkText:  rec.ChunkText,
			Source:     rec.Source,
			Similarity: sim,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
