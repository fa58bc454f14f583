package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ChatMessage is the provider-agnostic chat message shape.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the minimal request shape for the Chat Completions endpoint.
// Temperature is pinned by the caller; answers on the QA path must be
// reproducible and auditable.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Seed        *int64        `json:"seed,omitempty"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	Choices []struct {
		Index   int         `json:"index"`
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// embedRequest is the request shape for the Embeddings endpoint.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the minimal response shape for the Embeddings endpoint.
type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused OpenAI-compatible client for chat completions and
// embeddings.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	httpClient *http.Client
	seed       *int64
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSeed pins the provider-side sampling seed for reproducible answers.
func WithSeed(seed int64) Option {
	return func(c *Client) {
		c.seed = &seed
	}
}

// NewClient creates a Client. The key is held for the process lifetime; key
// rotation means a restart.
func NewClient(apiKey, chatModel, embedModel string, timeout time.Duration, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		baseURL:    "https://api.openai.com/v1",
		apiKey:     apiKey,
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 20 * time.Second}
}

func endpointURL(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if strings.HasSuffix(base, "/v1") {
		return base + path
	}
	return base + "/v1" + path
}

// Chat sends messages to the chat-completions endpoint with temperature 0
// and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	if c.chatModel == "" {
		return "", errors.New("openai: chat model must not be empty")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: 0,
		Seed:        c.seed,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	url := endpointURL(c.baseURL, "/chat/completions")
	raw, err := c.postJSON(ctx, url, body)
	if err != nil {
		return "", fmt.Errorf("openai: chat request failed: %w", err)
	}

	var payload chatResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("openai: decode response: %w", decErr)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return payload.Choices[0].Message.Content, nil
}

// Embed returns one embedding vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.embedModel == "" {
		return nil, errors.New("openai: embed model must not be empty")
	}
	if len(texts) == 0 {
		return nil, errors.New("openai: no inputs to embed")
	}

	body, err := json.Marshal(embedRequest{Model: c.embedModel, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal embed request: %w", err)
	}

	url := endpointURL(c.baseURL, "/embeddings")
	raw, err := c.postJSON(ctx, url, body)
	if err != nil {
		return nil, fmt.Errorf("openai: embed request failed: %w", err)
	}

	var payload embedResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return nil, fmt.Errorf("openai: decode embed response: %w", decErr)
	}
	if len(payload.Data) != len(texts) {
		return nil, fmt.Errorf("openai: expected %d embeddings, got %d", len(texts), len(payload.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range payload.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func (c *Client) postJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
