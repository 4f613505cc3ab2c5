package entities

import "time"

// GenerationParams are the sampling and transport settings of one LLM call.
type GenerationParams struct {
	Temperature   float64       `json:"temperature"`
	MaxTokens     int           `json:"max_tokens"`
	TopP          float64       `json:"top_p"`
	TopK          int           `json:"top_k,omitempty"`
	RepeatPenalty float64       `json:"repeat_penalty,omitempty"`
	NumCtx        int           `json:"num_ctx,omitempty"`
	Stop          []string      `json:"stop,omitempty"`
	Timeout       time.Duration `json:"timeout"`

	// TemperatureSet keeps an explicit zero Temperature from being defaulted.
	TemperatureSet bool `json:"-"`
}

// WithDefaults fills zero fields from def. Temperature is kept when
// TemperatureSet, even at 0.
func (p GenerationParams) WithDefaults(def GenerationParams) GenerationParams {
	if p.Temperature == 0 && !p.TemperatureSet {
		p.Temperature = def.Temperature
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = def.MaxTokens
	}
	if p.TopP == 0 {
		p.TopP = def.TopP
	}
	if p.TopK == 0 {
		p.TopK = def.TopK
	}
	if p.RepeatPenalty == 0 {
		p.RepeatPenalty = def.RepeatPenalty
	}
	if p.NumCtx == 0 {
		p.NumCtx = def.NumCtx
	}
	if p.Stop == nil {
		p.Stop = def.Stop
	}
	if p.Timeout == 0 {
		p.Timeout = def.Timeout
	}
	return p
}

// GenerationRequest is everything the generator needs for a single completion.
type GenerationRequest struct {
	Model  string
	System string
	Prompt string
	Params GenerationParams
}
