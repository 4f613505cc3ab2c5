package config

import (
	"time"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/usecases"
)

// GenerationDefaults are the parameters every agent starts from.
func (c *Config) GenerationDefaults() entities.GenerationParams {
	return entities.GenerationParams{
		Temperature:   c.Global.Temperature,
		MaxTokens:     c.Global.MaxTokens,
		TopP:          0.9,
		TopK:          40,
		RepeatPenalty: 1.1,
		NumCtx:        c.Global.MaxContextLength,
		Stop:          []string{"\n\n\n"},
		Timeout:       time.Duration(c.Global.TimeoutSeconds) * time.Second,
	}
}

// AgentSpecs returns the agent definitions keyed by agent name.
func (c *Config) AgentSpecs() map[string]entities.AgentSpec {
	specs := make(map[string]entities.AgentSpec, len(c.Agents))
	for key, a := range c.Agents {
		p := a.Parameters
		params := entities.GenerationParams{
			MaxTokens:     p.MaxTokens,
			TopP:          p.TopP,
			TopK:          p.TopK,
			RepeatPenalty: p.RepeatPenalty,
			NumCtx:        p.NumCtx,
			Stop:          p.Stop,
			Timeout:       time.Duration(p.TimeoutSeconds) * time.Second,
		}
		if p.Temperature != nil {
			params.Temperature = *p.Temperature
			params.TemperatureSet = true
		}
		specs[key] = entities.AgentSpec{
			Role:        key,
			Name:        a.Name,
			Description: a.Description,
			Instruction: a.SystemPrompt,
			Template:    templateFor(key, a),
			Params:      params,
		}
	}
	return specs
}

// PipelineSteps returns the configured step order.
func (c *Config) PipelineSteps() []entities.PipelineStep {
	steps := make([]entities.PipelineStep, len(c.Pipeline.Steps))
	for i, s := range c.Pipeline.Steps {
		title := s.Title
		if title == "" {
			title = s.Name
		}
		steps[i] = entities.PipelineStep{
			Name:          s.Name,
			Title:         title,
			Agent:         s.Agent,
			Description:   s.Description,
			DependsOn:     s.DependsOn,
			Required:      s.IsRequired(),
			EstimatedTime: estimatedTime(s),
		}
	}
	return steps
}

// PipelineOptions returns the orchestrator's failure behavior.
func (c *Config) PipelineOptions() usecases.PipelineOptions {
	return usecases.PipelineOptions{
		ErrorHandling: entities.ErrorHandling(c.Pipeline.Behavior.ErrorHandling),
		RetryAttempts: c.Pipeline.Behavior.RetryAttempts,
	}
}

// ChatOptions returns the request handler settings.
func (c *Config) ChatOptions() usecases.ChatOptions {
	opts := usecases.DefaultChatOptions()
	opts.DefaultModel = c.Global.DefaultModel
	opts.QuickTopK = c.Retrieval.QuickTopK
	opts.TeamTopK = c.Retrieval.TeamTopK
	opts.MaxContextChars = c.Retrieval.MaxContextChars
	return opts
}

func templateFor(key string, a Agent) string {
	if a.Template != "" {
		return a.Template
	}
	if t, ok := defaultTemplates[key]; ok {
		return t
	}
	return fallbackTemplate
}
