package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// StepRunner executes one pipeline step. Failures are reported in the
// returned StepResult, never as an error.
type StepRunner interface {
	Run(ctx context.Context, task entities.AgentTask) entities.StepResult
}

// Agent is the single agent type. Roles differ only by their AgentSpec.
type Agent struct {
	spec     entities.AgentSpec
	llm      ports.LLMService
	tmpl     *template.Template
	defaults entities.GenerationParams
	logger   *zap.Logger
}

// promptData is exposed to agent templates.
type promptData struct {
	Query           string
	Input           string
	Context         string
	Sources         []string
	SourcesMarkdown string
	Outputs         map[string]string
	Step            string
	Description     string
}

// NewAgent parses the agent's prompt template. defaults fill generation
// parameters the agent leaves unset.
func NewAgent(spec entities.AgentSpec, llm ports.LLMService, defaults entities.GenerationParams, logger *zap.Logger) (*Agent, error) {
	if strings.TrimSpace(spec.Template) == "" {
		return nil, fmt.Errorf("agent %s: empty template", spec.Role)
	}
	tmpl, err := template.New(spec.Role).Option("missingkey=zero").Parse(spec.Template)
	if err != nil {
		return nil, fmt.Errorf("agent %s: parsing template: %w", spec.Role, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		spec:     spec,
		llm:      llm,
		tmpl:     tmpl,
		defaults: defaults,
		logger:   logger.Named("agent").With(zap.String("role", spec.Role)),
	}, nil
}

// Role returns the agent's role key.
func (a *Agent) Role() string { return a.spec.Role }

// Run renders the prompt for task and asks the generator for a completion.
func (a *Agent) Run(ctx context.Context, task entities.AgentTask) entities.StepResult {
	start := time.Now()
	result := entities.StepResult{
		StepName: task.StepName,
		Agent:    a.spec.Role,
	}

	prompt, err := a.render(task)
	if err != nil {
		a.logger.Error("rendering prompt failed", zap.String("step", task.StepName), zap.Error(err))
		result.Status = entities.StepFailed
		result.Error = "prompt could not be rendered"
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result
	}

	out, err := a.llm.Generate(ctx, entities.GenerationRequest{
		Model:  task.Model,
		System: a.spec.Instruction,
		Prompt: prompt,
		Params: a.spec.Params.WithDefaults(a.defaults),
	})
	result.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		a.logger.Warn("generation failed",
			zap.String("step", task.StepName),
			zap.Int64("elapsed_ms", result.ElapsedMs),
			zap.Error(err),
		)
		result.Status = entities.StepFailed
		result.Error = describeGenerationError(err)
		return result
	}

	a.logger.Debug("generation finished",
		zap.String("step", task.StepName),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("output_chars", len(out)),
		zap.Int64("elapsed_ms", result.ElapsedMs),
	)
	result.Status = entities.StepOK
	result.Output = out
	return result
}

func (a *Agent) render(task entities.AgentTask) (string, error) {
	step := task.Title
	if step == "" {
		step = task.StepName
	}
	outputs := task.Outputs
	if outputs == nil {
		outputs = map[string]string{}
	}
	data := promptData{
		Query:           task.Query,
		Input:           task.Input,
		Context:         task.Context.Render(),
		Sources:         task.Context.Sources(),
		SourcesMarkdown: task.Context.SourcesMarkdown(),
		Outputs:         outputs,
		Step:            step,
		Description:     task.Description,
	}
	if data.Description == "" {
		data.Description = a.spec.Description
	}

	var sb strings.Builder
	if err := a.tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// describeGenerationError returns a caller-safe message for err.
func describeGenerationError(err error) string {
	var genErr *entities.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	return "generation failed"
}
