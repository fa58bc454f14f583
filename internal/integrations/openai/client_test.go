package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, endpointURL(tc.base, "/chat/completions"), "base=%q", tc.base)
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("  ", "gpt-4o-mini", "text-embedding-3-small", time.Second)
	require.Error(t, err)
}

func TestChat_SendsPinnedTemperature(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"grounded answer"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", "gpt-4o-mini", "text-embedding-3-small", time.Second,
		WithBaseURL(srv.URL), WithSeed(7))
	require.NoError(t, err)

	out, err := c.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "grounded answer", out)
	require.Equal(t, "gpt-4o-mini", got.Model)
	require.Zero(t, got.Temperature)
	require.NotNil(t, got.Seed)
	require.EqualValues(t, 7, *got.Seed)
}

func TestChat_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", "gpt-4o-mini", "text-embedding-3-small", time.Second, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", "gpt-4o-mini", "text-embedding-3-small", time.Second, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.Error(t, err)
}

func TestEmbed_OrdersVectorsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		// Return data out of order; the client must restore input order.
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.5]},{"index":0,"embedding":[0.25]}]}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", "gpt-4o-mini", "text-embedding-3-small", time.Second, WithBaseURL(srv.URL))
	require.NoError(t, err)

	vectors, err := c.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{0.25}, {0.5}}, vectors)
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.25]}]}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", "gpt-4o-mini", "text-embedding-3-small", time.Second, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"first", "second"})
	require.Error(t, err)
}

func TestChat_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel r.Context(); otherwise Close hangs.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", "gpt-4o-mini", "text-embedding-3-small", time.Minute, WithBaseURL(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Chat(ctx, []ChatMessage{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}
