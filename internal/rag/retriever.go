package rag

import (
	"errors"
	"log"
	"sort"

	"repochat/internal/store"
)

// ErrEmptyIndex is returned when a repository has no stored chunk set to
// rank against.
var ErrEmptyIndex = errors.New("repository embeddings not found")

type ScoredChunk struct {
	Chunk      store.Chunk
	Similarity float32
}

// TopK ranks the stored chunks against the query vector by cosine similarity
// and returns at most k of them, highest first. Ties keep the original chunk
// order. An empty chunk set yields ErrEmptyIndex.
func TopK(query []float32, chunks []store.Chunk, k int) ([]ScoredChunk, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyIndex
	}
	if k <= 0 {
		k = 3
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			log.Printf("Skipping chunk %d due to missing embedding.", i)
			continue
		}
		similarity, err := CosineSimilarity(query, chunk.Embedding)
		if err != nil {
			log.Printf("Error calculating similarity for chunk %d: %v. Skipping.", i, err)
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: chunk, Similarity: similarity})
	}

	// Stable sort keeps source order between equally similar chunks.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
