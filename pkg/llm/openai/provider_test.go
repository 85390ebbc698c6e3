package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"corp-tax-agent-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, "assistant", req.Messages[1].Role)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, 0.0, req.Temperature)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"intent\":\"calculate\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewProvider("k", srv.URL, "gpt-test")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
		{Role: "agent", Content: "hello"},
	}, llm.WithJSON(), llm.WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"calculate"}`, out)
}

func TestProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewProvider("", srv.URL, "m").Generate(context.Background(), "x")
	assert.Error(t, err)
}
