package qa

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tenant-assistant/internal/domain"
	"github.com/spec-kit/tenant-assistant/internal/index"
	"github.com/spec-kit/tenant-assistant/internal/integrations/openai"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

const terminationClause = "Early termination of the lease before the end of the term incurs a penalty of two months' rent."
const petClause = "Tenants may keep one small pet with prior written approval from the landlord."

// stubEmbedder embeds each topic along its own axis so retrieval is
// exercised for real instead of being mocked away: termination questions
// land on the termination clause, pet questions on the pet clause, and
// anything else is orthogonal to both.
type stubEmbedder struct {
	err error
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "termination") || strings.Contains(lower, "penalty"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(lower, "pet"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

// echoGenerator answers with the grounding passages it was given, so the
// test can assert the answer came from the retrieved text.
type echoGenerator struct {
	err      error
	messages []openai.ChatMessage
	calls    int
}

func (g *echoGenerator) Chat(_ context.Context, messages []openai.ChatMessage) (string, error) {
	g.calls++
	g.messages = messages
	if g.err != nil {
		return "", g.err
	}
	for _, msg := range messages {
		if msg.Role == "system" && strings.HasPrefix(msg.Content, "Agreement passages:") {
			return msg.Content, nil
		}
	}
	return "no passages", nil
}

func buildTestIndex(t *testing.T) *index.Index {
	t.Helper()
	ix, err := index.Build(context.Background(), terminationClause+"\n\n"+petClause, &stubEmbedder{}, index.Options{
		ChunkSize:    len(terminationClause),
		ChunkOverlap: 0,
	})
	require.NoError(t, err)
	require.Equal(t, 2, ix.Size())
	return ix
}

func TestAsk_GroundedAnswerWithCitations(t *testing.T) {
	gen := &echoGenerator{}
	engine, err := NewEngine(buildTestIndex(t), &stubEmbedder{}, gen, 0.3, 4)
	require.NoError(t, err)

	answer, err := engine.Ask(context.Background(), "What is the penalty for early termination?", nil)
	require.NoError(t, err)
	require.True(t, answer.Found)
	require.Contains(t, answer.Text, "two months' rent")
	require.Equal(t, []string{"chunk-0000"}, answer.CitedChunkIDs)
}

func TestAsk_NotFoundReturnsFixedReply(t *testing.T) {
	gen := &echoGenerator{}
	engine, err := NewEngine(buildTestIndex(t), &stubEmbedder{}, gen, 0.3, 4)
	require.NoError(t, err)

	// An off-topic question is orthogonal to every chunk, so nothing clears
	// the similarity threshold.
	answer, err := engine.Ask(context.Background(), "Is there a gym in the building?", nil)
	require.NoError(t, err)
	require.False(t, answer.Found)
	require.Equal(t, NotFoundAnswer, answer.Text)
	require.Empty(t, answer.CitedChunkIDs)
	require.Zero(t, gen.calls, "generator must not run without grounding")
}

func TestAsk_Deterministic(t *testing.T) {
	engine, err := NewEngine(buildTestIndex(t), &stubEmbedder{}, &echoGenerator{}, 0.3, 4)
	require.NoError(t, err)

	first, err := engine.Ask(context.Background(), "What penalty applies to early termination?", nil)
	require.NoError(t, err)
	second, err := engine.Ask(context.Background(), "What penalty applies to early termination?", nil)
	require.NoError(t, err)
	require.Equal(t, first.CitedChunkIDs, second.CitedChunkIDs)
	require.Equal(t, first.Text, second.Text)
}

func TestAsk_MemoryIsContextNotGrounding(t *testing.T) {
	gen := &echoGenerator{}
	engine, err := NewEngine(buildTestIndex(t), &stubEmbedder{}, gen, 0.3, 4)
	require.NoError(t, err)

	memory := []domain.Turn{{Message: "hi", Reply: "hello"}}
	_, err = engine.Ask(context.Background(), "What is the termination penalty?", memory)
	require.NoError(t, err)

	var userTurns int
	for _, msg := range gen.messages {
		if msg.Role == "user" {
			userTurns++
		}
	}
	// Prior turn plus the question itself.
	require.Equal(t, 2, userTurns)
	require.Equal(t, "What is the termination penalty?", gen.messages[len(gen.messages)-1].Content)
}

func TestAsk_ProviderTimeout(t *testing.T) {
	engine, err := NewEngine(buildTestIndex(t), &stubEmbedder{}, &echoGenerator{err: context.DeadlineExceeded}, 0.3, 4)
	require.NoError(t, err)

	_, err = engine.Ask(context.Background(), "What is the termination penalty?", nil)
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeModelProviderTimeout))
}

func TestAsk_RateLimitedMapsToTimeout(t *testing.T) {
	gen := &echoGenerator{err: &openai.HTTPStatusError{StatusCode: 429, Body: "rate limited"}}
	engine, err := NewEngine(buildTestIndex(t), &stubEmbedder{}, gen, 0.3, 4)
	require.NoError(t, err)

	_, err = engine.Ask(context.Background(), "What is the termination penalty?", nil)
	require.True(t, apperrors.HasCode(err, apperrors.CodeModelProviderTimeout))
}

func TestAsk_EmbedderFailure(t *testing.T) {
	engine, err := NewEngine(buildTestIndex(t), &stubEmbedder{}, &echoGenerator{}, 0.3, 4)
	require.NoError(t, err)
	engine.embedder = &stubEmbedder{err: context.DeadlineExceeded}

	_, err = engine.Ask(context.Background(), "anything", nil)
	require.True(t, apperrors.HasCode(err, apperrors.CodeModelProviderTimeout))
}

func TestNewEngine_RejectsEmptyIndex(t *testing.T) {
	_, err := NewEngine(nil, &stubEmbedder{}, &echoGenerator{}, 0.3, 4)
	require.ErrorIs(t, err, index.ErrNoChunks)
}
