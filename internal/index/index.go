package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// ErrNoChunks is returned when a build yields no valid chunks. The caller
// refuses to serve QA in that case; the ticket flow stays available.
var ErrNoChunks = errors.New("index: document produced no valid chunks")

// Embedder produces embedding vectors for text. Implemented by the
// OpenAI integration; tests supply a deterministic fake.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options controls chunking during a build.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// Index is a read-only store of agreement chunks with embeddings. It is
// built offline and never mutated in place; a refreshed agreement means a
// rebuild.
type Index struct {
	chunks []domain.DocumentChunk
}

// Result pairs a retrieved chunk with its similarity score.
type Result struct {
	Chunk domain.DocumentChunk
	Score float64
}

// Build chunks the document text, embeds every chunk and returns the
// immutable index.
func Build(ctx context.Context, text string, embedder Embedder, opts Options) (*Index, error) {
	raw := chunkText(text, opts.ChunkSize, opts.ChunkOverlap)
	if len(raw) == 0 {
		return nil, ErrNoChunks
	}

	vectors, err := embedder.Embed(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(raw) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(raw))
	}

	chunks := make([]domain.DocumentChunk, 0, len(raw))
	for i, content := range raw {
		chunks = append(chunks, domain.DocumentChunk{
			ID:            fmt.Sprintf("chunk-%04d", i),
			SourceSection: sectionLabel(content),
			Text:          content,
			Embedding:     vectors[i],
			Ordinal:       i,
		})
	}
	return &Index{chunks: chunks}, nil
}

// Size returns the number of indexed chunks.
func (ix *Index) Size() int {
	if ix == nil {
		return 0
	}
	return len(ix.chunks)
}

// Search returns the top k chunks by cosine similarity against the query
// vector. Ties are broken by ordinal position so the earlier section wins,
// keeping retrieval deterministic for identical inputs.
func (ix *Index) Search(query []float32, k int) []Result {
	if ix == nil || len(ix.chunks) == 0 || k <= 0 {
		return nil
	}

	results := make([]Result, 0, len(ix.chunks))
	for _, chunk := range ix.chunks {
		results = append(results, Result{
			Chunk: chunk,
			Score: cosineSimilarity(query, chunk.Embedding),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Ordinal < results[j].Chunk.Ordinal
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

func cosineSimilarity(a, b []float32) float64 {
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
