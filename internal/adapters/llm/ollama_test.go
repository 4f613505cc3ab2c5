package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
)

func TestOllamaLLM_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": "Hello there!",
			"done":     true,
		})
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test-model")
	resp, err := adapter.Generate(context.Background(), entities.GenerationRequest{
		System: "be brief",
		Prompt: "Hi",
		Params: entities.GenerationParams{Temperature: 0.3, MaxTokens: 64, TopP: 0.9},
	})

	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp != "Hello there!" {
		t.Errorf("unexpected response: %s", resp)
	}
	if got.Model != "test-model" || got.System != "be brief" || got.Stream {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.Options.NumPredict != 64 || got.Options.Temperature != 0.3 {
		t.Errorf("options not forwarded: %+v", got.Options)
	}
}

func TestOllamaLLM_RequestModelOverridesDefault(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]interface{}{"response": "ok", "done": true})
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "default-model")
	if _, err := adapter.Generate(context.Background(), entities.GenerationRequest{Model: "llama3.2", Prompt: "x"}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got.Model != "llama3.2" {
		t.Errorf("expected request model, got %s", got.Model)
	}
}

func TestOllamaLLM_GenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Streaming response - newline delimited JSON
		w.Write([]byte(`{"response":"Hello","done":false}` + "\n"))
		w.Write([]byte(`{"response":" world","done":false}` + "\n"))
		w.Write([]byte(`{"response":"!","done":true}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test")
	ch, err := adapter.GenerateStream(context.Background(), entities.GenerationRequest{Prompt: "test"})

	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var tokens []string
	for token := range ch {
		tokens = append(tokens, token.Content)
		if token.Done {
			break
		}
	}

	if len(tokens) != 3 {
		t.Errorf("expected 3 tokens, got %d", len(tokens))
	}
}

func TestOllamaLLM_ServerErrorIsEndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test")
	_, err := adapter.Generate(context.Background(), entities.GenerationRequest{Prompt: "test"})

	if !errors.Is(err, entities.ErrEndpoint) {
		t.Fatalf("expected endpoint error, got %v", err)
	}
}

func TestOllamaLLM_TimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	adapter := NewOllamaLLMAdapter(server.URL, "test")
	_, err := adapter.Generate(context.Background(), entities.GenerationRequest{
		Prompt: "slow",
		Params: entities.GenerationParams{Timeout: 50 * time.Millisecond},
	})

	if !errors.Is(err, entities.ErrGenerationTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestOllamaLLM_ConnectionRefusedIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	adapter := NewOllamaLLMAdapter(url, "test")
	_, err := adapter.Generate(context.Background(), entities.GenerationRequest{Prompt: "x"})

	if !errors.Is(err, entities.ErrGenerationConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestOllamaLLM_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	if err := NewOllamaLLMAdapter(server.URL, "").Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestOllamaLLM_DefaultValues(t *testing.T) {
	adapter := NewOllamaLLMAdapter("", "")
	if adapter.baseURL != "http://localhost:11434" {
		t.Error("should default to localhost")
	}
	if adapter.model != "gemma3:4b" {
		t.Error("should default to gemma3:4b")
	}
}

func TestOllamaLLM_GenerateStreamStopsWhenCallerCancels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 500; i++ {
			if _, err := w.Write([]byte(`{"response":"tok","done":false}` + "\n")); err != nil {
				return
			}
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	adapter := NewOllamaLLMAdapter(server.URL, "test")
	ch, err := adapter.GenerateStream(ctx, entities.GenerationRequest{Prompt: "test"})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	<-ch
	cancel()

	// Once the sender has exited, only already-buffered tokens remain.
	time.Sleep(200 * time.Millisecond)
	for i, n := 0, len(ch); i < n; i++ {
		<-ch
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("stream kept producing after the caller cancelled")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after the caller cancelled")
	}
}

func TestOllamaLLM_CancelIsNotConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	adapter := NewOllamaLLMAdapter(server.URL, "test")
	_, err := adapter.Generate(ctx, entities.GenerationRequest{Prompt: "x"})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, entities.ErrGenerationConnection) {
		t.Fatalf("cancel classified as connection error: %v", err)
	}
}
