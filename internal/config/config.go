// Package config holds the service configuration and turns it into the
// values the use cases are built from.
package config

import "time"

// Config is the root configuration, loaded once at startup.
type Config struct {
	Global    Global           `yaml:"global"`
	Server    Server           `yaml:"server"`
	LLM       LLM              `yaml:"llm"`
	Embedding Embedding        `yaml:"embedding"`
	Storage   Storage          `yaml:"storage"`
	Parser    Parser           `yaml:"parser"`
	Retrieval Retrieval        `yaml:"retrieval"`
	Agents    map[string]Agent `yaml:"agents"`
	Pipeline  Pipeline         `yaml:"pipeline"`
	Models    map[string]Model `yaml:"models"`
	Logging   Logging          `yaml:"logging"`
	Tracing   Tracing          `yaml:"tracing"`
	Watcher   Watcher          `yaml:"watcher"`
}

// Global holds generation defaults shared by every agent.
type Global struct {
	DefaultModel     string  `yaml:"default_model"`
	MaxContextLength int     `yaml:"max_context_length"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr         string        `yaml:"addr"`
	FrontendDir  string        `yaml:"frontend_dir"`
	CORSOrigin   string        `yaml:"cors_origin"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ProgressTTL  time.Duration `yaml:"progress_ttl"`
	MaxUploadMB  int64         `yaml:"max_upload_mb"`
}

// LLM selects the generation backend.
type LLM struct {
	Provider string `yaml:"provider"` // "ollama" or "openai"
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
}

// Embedding configures the embedding model and its cache.
type Embedding struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	CacheMB int64  `yaml:"cache_mb"`
}

// Storage locates the document folder and the vector index.
type Storage struct {
	DocsDir string `yaml:"docs_dir"`
	DataDir string `yaml:"data_dir"`
	Backend string `yaml:"backend"` // "sqlite" or "memory"
}

// Parser configures the external binary document parser.
type Parser struct {
	ServiceURL string `yaml:"service_url"`
	ScriptDir  string `yaml:"script_dir"` // started by serve when set
}

// Retrieval tunes chunking and passage selection.
type Retrieval struct {
	QuickTopK       int `yaml:"quick_top_k"`
	TeamTopK        int `yaml:"team_top_k"`
	MaxContextChars int `yaml:"max_context_chars"`
	ChunkSize       int `yaml:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
	Workers         int `yaml:"workers"`
}

// Agent is one role definition.
type Agent struct {
	Name         string     `yaml:"name"`
	Role         string     `yaml:"role"`
	Description  string     `yaml:"description"`
	SystemPrompt string     `yaml:"system_prompt"`
	Template     string     `yaml:"template,omitempty"`
	Parameters   Parameters `yaml:"parameters"`
}

// Parameters override the global generation defaults for one agent.
type Parameters struct {
	Temperature    *float64 `yaml:"temperature,omitempty"`
	MaxTokens      int      `yaml:"max_tokens,omitempty"`
	TopP           float64  `yaml:"top_p,omitempty"`
	TopK           int      `yaml:"top_k,omitempty"`
	RepeatPenalty  float64  `yaml:"repeat_penalty,omitempty"`
	NumCtx         int      `yaml:"num_ctx,omitempty"`
	Stop           []string `yaml:"stop,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

// Pipeline is the team-mode step list and its failure behavior.
type Pipeline struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Steps       []Step   `yaml:"steps"`
	Behavior    Behavior `yaml:"behavior"`
}

// Step is one pipeline entry. Required defaults to true.
type Step struct {
	Name          string   `yaml:"name"`
	Title         string   `yaml:"title,omitempty"`
	Agent         string   `yaml:"agent"`
	Description   string   `yaml:"description,omitempty"`
	EstimatedTime int      `yaml:"estimated_time,omitempty"`
	Required      *bool    `yaml:"required,omitempty"`
	DependsOn     []string `yaml:"depends_on,omitempty"`
}

// IsRequired reports whether a failure of this step halts a continue run.
func (s Step) IsRequired() bool {
	return s.Required == nil || *s.Required
}

// Behavior controls failure handling and what a team run exposes.
type Behavior struct {
	ErrorHandling       string `yaml:"error_handling"`
	RetryAttempts       int    `yaml:"retry_attempts"`
	ProgressReporting   bool   `yaml:"progress_reporting"`
	IntermediateOutputs bool   `yaml:"intermediate_outputs"`
}

// Model describes a model offered to clients.
type Model struct {
	Name          string `yaml:"name"`
	Provider      string `yaml:"provider"`
	Description   string `yaml:"description,omitempty"`
	ContextLength int    `yaml:"context_length"`
}

// Logging configures the zap logger.
type Logging struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Production bool   `yaml:"production"`
}

// Tracing configures the OTLP exporter.
type Tracing struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Watcher toggles automatic indexing of folder changes.
type Watcher struct {
	Enabled bool `yaml:"enabled"`
}
