package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
)

func TestOpenAICompat_Generate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"local",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"X is Y."}}]}`))
	}))
	defer server.Close()

	adapter := NewOpenAICompatAdapter(server.URL+"/v1", "", "local")
	out, err := adapter.Generate(context.Background(), entities.GenerationRequest{
		System: "sys",
		Prompt: "What is X?",
		Params: entities.GenerationParams{Temperature: 0.2, MaxTokens: 32},
	})

	require.NoError(t, err)
	assert.Equal(t, "X is Y.", out)
	assert.Equal(t, "local", body["model"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAICompat_ServerErrorIsEndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	adapter := NewOpenAICompatAdapter(server.URL, "", "local")
	_, err := adapter.Generate(context.Background(), entities.GenerationRequest{Prompt: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrEndpoint), "got %v", err)
}

func TestOpenAICompat_BaseURLWithoutSlash(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	adapter := NewOpenAICompatAdapter(server.URL+"/v1", "", "m")

	require.NoError(t, adapter.Ping(context.Background()))
	assert.Equal(t, "/v1/models", path)
}
