package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// OpenAICompatAdapter talks to a local server exposing the OpenAI chat
// completions API (llama.cpp server, vLLM, LM Studio).
type OpenAICompatAdapter struct {
	client openai.Client
	model  string
}

// NewOpenAICompatAdapter creates an adapter for baseURL, e.g. http://localhost:8080/v1/.
func NewOpenAICompatAdapter(baseURL, apiKey, model string) *OpenAICompatAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:8080/v1/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if apiKey == "" {
		apiKey = "local"
	}
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &OpenAICompatAdapter{client: client, model: model}
}

func (a *OpenAICompatAdapter) params(req entities.GenerationRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = a.model
	}
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	p := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Params.Temperature),
	}
	if req.Params.TopP > 0 {
		p.TopP = openai.Float(req.Params.TopP)
	}
	if req.Params.MaxTokens > 0 {
		p.MaxTokens = openai.Int(int64(req.Params.MaxTokens))
	}
	return p
}

// Generate produces a completion for req.
func (a *OpenAICompatAdapter) Generate(ctx context.Context, req entities.GenerationRequest) (string, error) {
	timeout := req.Params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.client.Chat.Completions.New(ctx, a.params(req))
	if err != nil {
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", endpointError("openai-compatible endpoint returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams completion deltas. Callers that stop reading must
// cancel ctx.
func (a *OpenAICompatAdapter) GenerateStream(parent context.Context, req entities.GenerationRequest) (<-chan ports.StreamToken, error) {
	timeout := req.Params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)

	stream := a.client.Chat.Completions.NewStreaming(ctx, a.params(req))
	ch := make(chan ports.StreamToken, 100)
	send := streamSender(parent, ch)

	go func() {
		defer cancel()
		defer close(ch)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if !send(ports.StreamToken{Content: chunk.Choices[0].Delta.Content}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(ports.StreamToken{Done: true, Error: classifyOpenAI(err)})
			return
		}
		send(ports.StreamToken{Done: true})
	}()

	return ch, nil
}

// Ping lists models to check the endpoint answers.
func (a *OpenAICompatAdapter) Ping(ctx context.Context) error {
	_, err := a.client.Models.List(ctx)
	if err != nil {
		return classifyOpenAI(err)
	}
	return nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusRequestTimeout || apiErr.StatusCode == http.StatusGatewayTimeout {
			return &entities.GenerationError{Kind: entities.ErrGenerationTimeout, Err: err}
		}
		return &entities.GenerationError{Kind: entities.ErrEndpoint, Err: err}
	}
	return classify(err)
}
