package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// DirectSystemPrompt is used in quick mode when nothing was retrieved.
const DirectSystemPrompt = `You are a helpful AI assistant. Provide a clear, direct answer to the user's question.

GUIDELINES:
- Be direct and informative
- Use clear, simple language
- Focus on answering the question asked
- Keep your response reasonable and helpful`

// QuickSystemPrompt precedes the retrieved context in quick mode.
const QuickSystemPrompt = `You are a helpful AI assistant. Answer the user's question using the context provided below.

INSTRUCTIONS:
- Use the information from the provided context
- Be clear and informative
- If the context doesn't contain enough information, mention what's available
- Provide a helpful response based on the context`

const directAnswerNote = "No document context available - direct response generated"

// ChatOptions configure HandleChat.
type ChatOptions struct {
	DefaultModel    string
	QuickTopK       int
	TeamTopK        int
	MaxContextChars int
	QuickParams     entities.GenerationParams
	DirectParams    entities.GenerationParams
}

// DefaultChatOptions mirror the service defaults.
func DefaultChatOptions() ChatOptions {
	return ChatOptions{
		DefaultModel:    "gemma3:4b",
		QuickTopK:       4,
		TeamTopK:        8,
		MaxContextChars: 2000,
		QuickParams: entities.GenerationParams{
			Temperature: 0.6, MaxTokens: 768, TopP: 0.9, NumCtx: 2048, Timeout: 90 * time.Second,
		},
		DirectParams: entities.GenerationParams{
			Temperature: 0.7, MaxTokens: 512, TopP: 0.9, Timeout: 60 * time.Second,
		},
	}
}

// ChatUseCase answers chat queries in quick or team mode.
type ChatUseCase struct {
	retriever ports.Retriever
	llm       ports.LLMService
	pipeline  PipelineRunner
	opts      ChatOptions
	logger    *zap.Logger
}

// NewChatUseCase creates a ChatUseCase with injected dependencies.
func NewChatUseCase(retriever ports.Retriever, llm ports.LLMService, pipeline PipelineRunner, opts ChatOptions, logger *zap.Logger) *ChatUseCase {
	def := DefaultChatOptions()
	if opts.QuickTopK <= 0 {
		opts.QuickTopK = def.QuickTopK
	}
	if opts.TeamTopK <= 0 {
		opts.TeamTopK = def.TeamTopK
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = def.DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatUseCase{
		retriever: retriever,
		llm:       llm,
		pipeline:  pipeline,
		opts:      opts,
		logger:    logger.Named("chat"),
	}
}

// TokenFunc receives answer text as it is generated.
type TokenFunc func(text string)

// HandleChat dispatches q by mode. Retrieval and quick-mode generation
// failures are returned as errors; team-mode step failures are reported in
// the response.
func (uc *ChatUseCase) HandleChat(ctx context.Context, q entities.Query, report ProgressFunc) (*entities.ChatResponse, error) {
	return uc.StreamChat(ctx, q, report, nil)
}

// StreamChat is HandleChat with the quick-mode answer streamed to token as
// it is generated. Team mode does not stream; token is ignored there.
func (uc *ChatUseCase) StreamChat(ctx context.Context, q entities.Query, report ProgressFunc, token TokenFunc) (*entities.ChatResponse, error) {
	if q.Model == "" {
		q.Model = uc.opts.DefaultModel
	}
	q.Mode = entities.ParseMode(string(q.Mode))

	log := uc.logger.With(zap.String("request_id", q.RequestID), zap.String("mode", string(q.Mode)), zap.String("model", q.Model))
	start := time.Now()

	var (
		resp *entities.ChatResponse
		err  error
	)
	if q.Mode == entities.ModeTeam {
		resp, err = uc.team(ctx, q, report)
	} else {
		resp, err = uc.quick(ctx, q, token)
	}
	if err != nil {
		log.Error("chat failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}

	resp.RequestID = q.RequestID
	log.Info("chat answered",
		zap.String("status", resp.Status),
		zap.Int("sources", len(resp.Sources)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

func (uc *ChatUseCase) retrieve(ctx context.Context, text string, topK int) (entities.RetrievedContext, error) {
	rc, err := uc.retriever.Query(ctx, text, topK)
	if err != nil {
		if errors.Is(err, entities.ErrRetrieval) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", entities.ErrRetrieval, err)
	}
	return rc, nil
}

func (uc *ChatUseCase) quick(ctx context.Context, q entities.Query, token TokenFunc) (*entities.ChatResponse, error) {
	rc, err := uc.retrieve(ctx, q.Text, uc.opts.QuickTopK)
	if err != nil {
		return nil, err
	}

	resp := &entities.ChatResponse{
		Sources: rc.Sources(),
		Mode:    string(entities.ModeQuick),
		Status:  string(entities.PipelineComplete),
	}

	req := entities.GenerationRequest{Model: q.Model, Prompt: q.Text}
	if len(rc) == 0 {
		req.System = DirectSystemPrompt
		req.Params = uc.opts.DirectParams
		resp.Note = directAnswerNote
	} else {
		used := fitContext(rc, uc.opts.MaxContextChars)
		req.System = QuickSystemPrompt + "\n\nContext:\n" + used.Render()
		req.Params = uc.opts.QuickParams
		resp.PassagesUsed = len(used)
		resp.ContextLength = used.Length()
	}

	answer, err := uc.generate(ctx, req, token)
	if err != nil {
		return nil, fmt.Errorf("quick answer: %w", err)
	}
	resp.Answer = answer
	return resp, nil
}

// generate runs req, through GenerateStream when token is set.
func (uc *ChatUseCase) generate(ctx context.Context, req entities.GenerationRequest, token TokenFunc) (string, error) {
	if token == nil {
		return uc.llm.Generate(ctx, req)
	}
	stream, err := uc.llm.GenerateStream(ctx, req)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for tok := range stream {
		if tok.Content != "" {
			sb.WriteString(tok.Content)
			token(tok.Content)
		}
		if tok.Error != nil {
			return "", tok.Error
		}
		if tok.Done {
			return sb.String(), nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", &entities.GenerationError{Kind: entities.ErrEndpoint, Err: errors.New("stream ended before completion")}
}

func (uc *ChatUseCase) team(ctx context.Context, q entities.Query, report ProgressFunc) (*entities.ChatResponse, error) {
	if uc.pipeline == nil {
		return nil, errors.New("team mode is not configured")
	}
	rc, err := uc.retrieve(ctx, q.Text, uc.opts.TeamTopK)
	if err != nil {
		return nil, err
	}

	res := uc.pipeline.Run(ctx, q, rc, report)
	return &entities.ChatResponse{
		Answer:     res.FinalText,
		Sources:    res.Sources,
		DebugSteps: res.Steps,
		Mode:       string(entities.ModeTeam),
		Status:     string(res.Status),
		Error:      res.Error,
		FailedStep: res.FailedStep,
	}, nil
}

// fitContext applies the quick-mode character budget. When even the best
// passage is over budget, its text is cut rather than dropped.
func fitContext(rc entities.RetrievedContext, maxChars int) entities.RetrievedContext {
	used := rc.Truncate(maxChars)
	if len(used) == 0 && len(rc) > 0 {
		first := rc[0]
		if maxChars > 0 && len(first.Text) > maxChars {
			cut := maxChars
			for cut > 0 && !utf8.RuneStart(first.Text[cut]) {
				cut--
			}
			first.Text = first.Text[:cut]
		}
		used = entities.RetrievedContext{first}
	}
	return used
}
