// Package llm provides the ports.LLMService adapters for Ollama and
// OpenAI-compatible servers.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// DefaultTimeout applies when a request carries no timeout of its own.
const DefaultTimeout = 120 * time.Second

// OllamaLLMAdapter implements ports.LLMService using Ollama API.
type OllamaLLMAdapter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaLLMAdapter creates a new Ollama LLM adapter.
func NewOllamaLLMAdapter(baseURL, model string) *OllamaLLMAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "gemma3:4b"
	}
	return &OllamaLLMAdapter{
		baseURL: baseURL,
		model:   model,
		// Per-call deadlines come from the request context.
		client: &http.Client{},
	}
}

// ollamaOptions are the model parameters accepted by /api/generate.
type ollamaOptions struct {
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	NumPredict    int      `json:"num_predict,omitempty"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	NumCtx        int      `json:"num_ctx,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

// ollamaGenerateRequest is the Ollama generate API request.
type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

// ollamaGenerateResponse is the Ollama generate API response.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (a *OllamaLLMAdapter) buildRequest(req entities.GenerationRequest, stream bool) ollamaGenerateRequest {
	model := req.Model
	if model == "" {
		model = a.model
	}
	p := req.Params
	return ollamaGenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: stream,
		Options: ollamaOptions{
			Temperature:   p.Temperature,
			TopP:          p.TopP,
			TopK:          p.TopK,
			NumPredict:    p.MaxTokens,
			RepeatPenalty: p.RepeatPenalty,
			NumCtx:        p.NumCtx,
			Stop:          p.Stop,
		},
	}
}

func (a *OllamaLLMAdapter) post(ctx context.Context, body ollamaGenerateRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var errBody ollamaGenerateResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			return nil, endpointError("ollama returned status %d: %s", resp.StatusCode, errBody.Error)
		}
		return nil, endpointError("ollama returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// Generate produces a completion for req.
func (a *OllamaLLMAdapter) Generate(ctx context.Context, req entities.GenerationRequest) (string, error) {
	timeout := req.Params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.post(ctx, a.buildRequest(req, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		if ctx.Err() != nil {
			return "", classify(ctx.Err())
		}
		return "", endpointError("decoding response: %v", err)
	}
	if genResp.Error != "" {
		return "", endpointError("ollama: %s", genResp.Error)
	}

	return genResp.Response, nil
}

// GenerateStream produces a real streaming response via Ollama's streaming API.
// The request timeout bounds the whole stream. Callers that stop reading
// must cancel ctx.
func (a *OllamaLLMAdapter) GenerateStream(parent context.Context, req entities.GenerationRequest) (<-chan ports.StreamToken, error) {
	timeout := req.Params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)

	resp, err := a.post(ctx, a.buildRequest(req, true))
	if err != nil {
		cancel()
		return nil, err
	}

	ch := make(chan ports.StreamToken, 100)
	send := streamSender(parent, ch)

	go func() {
		defer cancel()
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if ctx.Err() != nil {
				send(ports.StreamToken{Done: true, Error: classify(ctx.Err())})
				return
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk ollamaGenerateResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue // Skip malformed lines
			}
			if chunk.Error != "" {
				send(ports.StreamToken{Done: true, Error: endpointError("ollama: %s", chunk.Error)})
				return
			}

			if !send(ports.StreamToken{Content: chunk.Response, Done: chunk.Done}) || chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			send(ports.StreamToken{Done: true, Error: classify(err)})
		}
	}()

	return ch, nil
}

// Ping checks that the Ollama server answers.
func (a *OllamaLLMAdapter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return endpointError("ollama returned status %d", resp.StatusCode)
	}
	return nil
}
