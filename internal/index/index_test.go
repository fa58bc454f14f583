package index

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// vectorEmbedder returns a fixed vector per input text, falling back to a
// shared default vector for texts without an entry.
type vectorEmbedder struct {
	byText   map[string][]float32
	fallback []float32
	calls    int
}

func (e *vectorEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := e.byText[text]; ok {
			out[i] = v
		} else {
			out[i] = e.fallback
		}
	}
	return out, nil
}

func TestChunkText_SplitsOnWordBoundaries(t *testing.T) {
	words := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		words = append(words, "alpha")
	}
	text := strings.Join(words, " ")

	chunks := chunkText(text, 60, 12)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 60)
		require.False(t, strings.HasPrefix(chunk, " "))
		require.False(t, strings.HasSuffix(chunk, " "))
	}
}

func TestChunkText_OverlapCarriesTail(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	chunks := chunkText(text, 20, 8)
	require.Greater(t, len(chunks), 1)

	// The first words of each later chunk repeat the tail of the previous
	// one, so a clause spanning a boundary stays retrievable.
	for i := 1; i < len(chunks); i++ {
		prevTail := lastWord(chunks[i-1])
		require.True(t, strings.HasPrefix(chunks[i], prevTail),
			"chunk %d %q should start with tail of %q", i, chunks[i], chunks[i-1])
	}
}

func TestChunkText_Empty(t *testing.T) {
	require.Nil(t, chunkText("   \n\t ", 500, 50))
}

func TestBuild_EmptyDocument(t *testing.T) {
	_, err := Build(context.Background(), "", &vectorEmbedder{fallback: []float32{1}}, Options{ChunkSize: 500, ChunkOverlap: 50})
	require.ErrorIs(t, err, ErrNoChunks)
}

func TestBuild_AssignsOrdinalsAndSections(t *testing.T) {
	text := "1. Rent is due on the first of each month. " + strings.Repeat("filler words here ", 40)
	ix, err := Build(context.Background(), text, &vectorEmbedder{fallback: []float32{1, 0}}, Options{ChunkSize: 120, ChunkOverlap: 20})
	require.NoError(t, err)
	require.Greater(t, ix.Size(), 1)

	results := ix.Search([]float32{1, 0}, ix.Size())
	require.Equal(t, "chunk-0000", results[0].Chunk.ID)
	require.Equal(t, "Section 1", results[0].Chunk.SourceSection)
	for i, result := range results {
		require.Equal(t, i, result.Chunk.Ordinal)
	}
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	// ChunkSize 9 splits the text into exactly "cats purr" and "dogs bark".
	two, err := Build(context.Background(), "cats purr dogs bark", &vectorEmbedder{
		byText: map[string][]float32{
			"cats purr": {1, 0},
			"dogs bark": {0, 1},
		},
		fallback: []float32{0, 0},
	}, Options{ChunkSize: 9})
	require.NoError(t, err)
	require.Equal(t, 2, two.Size())

	results := two.Search([]float32{1, 0}, 1)
	require.Len(t, results, 1)
	require.Equal(t, "cats purr", results[0].Chunk.Text)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearch_TiesBreakByOrdinal(t *testing.T) {
	// Every chunk embeds to the same vector, so all scores tie and the
	// ordering must fall back to document order.
	text := strings.Repeat("clause ", 60)
	ix, err := Build(context.Background(), text, &vectorEmbedder{fallback: []float32{1, 1}}, Options{ChunkSize: 50})
	require.NoError(t, err)
	require.Greater(t, ix.Size(), 2)

	results := ix.Search([]float32{1, 1}, 3)
	require.Len(t, results, 3)
	require.Equal(t, 0, results[0].Chunk.Ordinal)
	require.Equal(t, 1, results[1].Chunk.Ordinal)
	require.Equal(t, 2, results[2].Chunk.Ordinal)
}

func TestSearch_Deterministic(t *testing.T) {
	text := strings.Repeat("term ", 100)
	ix, err := Build(context.Background(), text, &vectorEmbedder{fallback: []float32{0.3, 0.7}}, Options{ChunkSize: 40})
	require.NoError(t, err)

	first := ix.Search([]float32{0.5, 0.5}, 4)
	second := ix.Search([]float32{0.5, 0.5}, 4)
	require.Equal(t, first, second)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	require.Zero(t, cosineSimilarity(nil, nil))
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	return fields[len(fields)-1]
}
