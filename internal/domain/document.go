package domain

// DocumentChunk is a retrievable unit of agreement text with its embedding.
// Chunks are immutable once indexed; the index is rebuilt, never mutated in
// place.
type DocumentChunk struct {
	ID            string
	SourceSection string
	Text          string
	Embedding     []float32
	Ordinal       int
}
