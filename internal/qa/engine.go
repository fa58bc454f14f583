package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/tenant-assistant/internal/domain"
	"github.com/spec-kit/tenant-assistant/internal/index"
	"github.com/spec-kit/tenant-assistant/internal/integrations/openai"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

// NotFoundAnswer is the fixed reply for questions the agreement does not
// cover. Returning this instead of guessing is a hard correctness
// requirement; a fabricated legal answer is the primary risk of the system.
const NotFoundAnswer = "I couldn't find anything about that in the rental agreement. You may want to contact the property office directly."

// Generator produces grounded answer text from chat messages. Implemented by
// the OpenAI client; tests supply a fake.
type Generator interface {
	Chat(ctx context.Context, messages []openai.ChatMessage) (string, error)
}

// Answer is the outcome of one agreement lookup. Found is false when no
// chunk cleared the similarity threshold; the fixed not-found text is still
// a normal reply to the user, not an error.
type Answer struct {
	Text          string
	CitedChunkIDs []string
	Found         bool
}

// Engine retrieves agreement chunks and composes grounded answers. Retrieval
// is deterministic for identical (question, index) input; generation runs at
// temperature 0 so answers stay auditable.
type Engine struct {
	index     *index.Index
	embedder  index.Embedder
	generator Generator
	threshold float64
	topK      int
}

// NewEngine constructs the engine.
func NewEngine(ix *index.Index, embedder index.Embedder, generator Generator, threshold float64, topK int) (*Engine, error) {
	if ix == nil || ix.Size() == 0 {
		return nil, index.ErrNoChunks
	}
	if embedder == nil {
		return nil, errors.New("qa: embedder must not be nil")
	}
	if generator == nil {
		return nil, errors.New("qa: generator must not be nil")
	}
	if topK <= 0 {
		topK = 4
	}
	return &Engine{
		index:     ix,
		embedder:  embedder,
		generator: generator,
		threshold: threshold,
		topK:      topK,
	}, nil
}

// Ask answers a question from the agreement. Recent conversation turns give
// the generator context for follow-ups; they never widen the grounding set.
func (e *Engine) Ask(ctx context.Context, question string, memory []domain.Turn) (Answer, error) {
	vectors, err := e.embedder.Embed(ctx, []string{question})
	if err != nil {
		return Answer{}, wrapProviderErr(err)
	}
	if len(vectors) != 1 {
		return Answer{}, fmt.Errorf("qa: expected 1 question embedding, got %d", len(vectors))
	}

	results := e.index.Search(vectors[0], e.topK)
	grounded := results[:0]
	for _, result := range results {
		if result.Score >= e.threshold {
			grounded = append(grounded, result)
		}
	}
	if len(grounded) == 0 {
		return Answer{Text: NotFoundAnswer, Found: false}, nil
	}

	text, err := e.generator.Chat(ctx, buildMessages(question, grounded, memory))
	if err != nil {
		return Answer{}, wrapProviderErr(err)
	}

	cited := make([]string, 0, len(grounded))
	for _, result := range grounded {
		cited = append(cited, result.Chunk.ID)
	}
	return Answer{Text: strings.TrimSpace(text), CitedChunkIDs: cited, Found: true}, nil
}

func buildMessages(question string, grounded []index.Result, memory []domain.Turn) []openai.ChatMessage {
	var passages strings.Builder
	for i, result := range grounded {
		fmt.Fprintf(&passages, "Passage %d", i+1)
		if result.Chunk.SourceSection != "" {
			fmt.Fprintf(&passages, " (%s)", result.Chunk.SourceSection)
		}
		fmt.Fprintf(&passages, ":\n%s\n\n", result.Chunk.Text)
	}

	messages := []openai.ChatMessage{
		{Role: "system", Content: strings.Join([]string{
			"You are a helpful assistant for a rental agreement.",
			"Answer the tenant's question using only the agreement passages provided below.",
			"Quote the relevant wording where possible and name the section you relied on.",
			"If the passages do not answer the question, say the agreement does not cover it.",
			"Never use outside knowledge.",
		}, " ")},
		{Role: "system", Content: "Agreement passages:\n\n" + passages.String()},
	}
	for _, turn := range memory {
		messages = append(messages,
			openai.ChatMessage{Role: "user", Content: turn.Message},
			openai.ChatMessage{Role: "assistant", Content: turn.Reply},
		)
	}
	return append(messages, openai.ChatMessage{Role: "user", Content: question})
}

func wrapProviderErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewModelProviderTimeout(err)
	}
	var statusErr *openai.HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == 429 {
		return apperrors.NewModelProviderTimeout(err)
	}
	return err
}
