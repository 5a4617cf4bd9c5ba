package parser

import (
	"fmt"
	"strings"

	"pdf-rag/internal/models"
)

const DefaultChunkSize = 500 // words

// Chunk splits text on whitespace and groups the words into consecutive,
// non-overlapping windows of windowSize words. The last window may be shorter.
func Chunk(text string, windowSize int) ([]string, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidArgument, windowSize)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}, nil
	}

	chunks := make([]string, 0, (len(words)+windowSize-1)/windowSize)
	for start := 0; start < len(words); start += windowSize {
		end := min(start+windowSize, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}
