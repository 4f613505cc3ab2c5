package config

import "time"

const (
	decomposeTemplate = `## {{.Step}}

{{.Description}}

### User Query
{{.Query}}

### Context
{{.Context}}

Please break down this research question into structured components.`

	critiqueTemplate = `## {{.Step}}

{{.Description}}

### Breakdown
{{or (index .Outputs "decompose") "N/A"}}

### Context
{{.Context}}

Please review and improve this research framework.`

	synthesisTemplate = `## {{.Step}}

{{.Description}}

### Breakdown
{{or (index .Outputs "decompose") "N/A"}}

### Critique
{{or (index .Outputs "critique") "N/A"}}

### Context
{{.Context}}

Please synthesize this information into a comprehensive analysis.`

	reportTemplate = `## {{.Step}}

{{.Description}}

**Topic:** {{.Query}}

**Breakdown:** {{or (index .Outputs "decompose") "N/A"}}

**Critique:** {{or (index .Outputs "critique") "N/A"}}

**Synthesis:** {{or (index .Outputs "synthesize") "N/A"}}

**Sources:** {{.SourcesMarkdown}}

Please create a comprehensive, professional report.`

	// fallbackTemplate is used for agents without a built-in template.
	fallbackTemplate = `## {{.Step}}

{{.Description}}

Please process the following information:
{{.Input}}

{{.Context}}`
)

var defaultTemplates = map[string]string{
	"decomposer":       decomposeTemplate,
	"critique":         critiqueTemplate,
	"synthesis":        synthesisTemplate,
	"report_formatter": reportTemplate,
}

func boolPtr(b bool) *bool { return &b }

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Global: Global{
			DefaultModel:     "gemma3:4b",
			MaxContextLength: 4096,
			Temperature:      0.7,
			MaxTokens:        2048,
			TimeoutSeconds:   120,
		},
		Server: Server{
			Addr:         ":8000",
			CORSOrigin:   "*",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			ProgressTTL:  10 * time.Minute,
			MaxUploadMB:  50,
		},
		LLM: LLM{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: Embedding{
			BaseURL: "http://localhost:11434",
			Model:   "nomic-embed-text",
			CacheMB: 64,
		},
		Storage: Storage{
			DocsDir: "data/docs",
			DataDir: "data/index",
			Backend: "sqlite",
		},
		Parser: Parser{
			ServiceURL: "http://localhost:8081",
		},
		Retrieval: Retrieval{
			QuickTopK:       4,
			TeamTopK:        8,
			MaxContextChars: 2000,
			ChunkSize:       500,
			ChunkOverlap:    50,
			Workers:         4,
		},
		Agents: map[string]Agent{
			"decomposer": {
				Name:        "Decomposer Agent",
				Role:        "Research Question Analyzer",
				Description: "Breaks down complex research questions into structured sub-questions",
				SystemPrompt: "You are a research question analyzer. Split the user's question into " +
					"focused sub-questions, name the key concepts and note which parts the context can answer.",
				Parameters: Parameters{Temperature: temperature(0.6), MaxTokens: 1024, TopP: 0.9},
			},
			"critique": {
				Name:        "Critique Agent",
				Role:        "Critical Reviewer",
				Description: "Reviews the research breakdown for gaps, bias and unsupported assumptions",
				SystemPrompt: "You are a critical reviewer. Point out gaps, weak assumptions and missing " +
					"perspectives in the breakdown and suggest concrete improvements.",
				Parameters: Parameters{Temperature: temperature(0.5), MaxTokens: 1024, TopP: 0.9},
			},
			"synthesis": {
				Name:        "Synthesis Agent",
				Role:        "Information Synthesizer",
				Description: "Combines the breakdown, the critique and the context into one analysis",
				SystemPrompt: "You are an information synthesizer. Merge the breakdown, the critique and " +
					"the provided context into a coherent analysis grounded in the sources.",
				Parameters: Parameters{Temperature: temperature(0.7), MaxTokens: 1536, TopP: 0.9},
			},
			"report_formatter": {
				Name:        "Report Formatter Agent",
				Role:        "Report Writer",
				Description: "Formats the analysis as a structured markdown report with sources",
				SystemPrompt: "You are a report writer. Produce a clear markdown report with a summary, " +
					"findings and a sources section. Do not invent sources.",
				Parameters: Parameters{Temperature: temperature(0.4), MaxTokens: 2048, TopP: 0.9},
			},
		},
		Pipeline: Pipeline{
			Name:        "Multi-Agent Research Pipeline",
			Description: "Sequential processing pipeline for comprehensive research analysis",
			Steps: []Step{
				{Name: "decompose", Title: "Query Decomposition", Agent: "decomposer",
					Description: "Break down research question into components", EstimatedTime: 2, Required: boolPtr(true)},
				{Name: "critique", Title: "Critical Review", Agent: "critique",
					Description: "Review the breakdown for gaps and bias", EstimatedTime: 2, Required: boolPtr(true),
					DependsOn: []string{"decompose"}},
				{Name: "synthesize", Title: "Information Synthesis", Agent: "synthesis",
					Description: "Synthesize findings into an analysis", EstimatedTime: 3, Required: boolPtr(true),
					DependsOn: []string{"decompose", "critique"}},
				{Name: "format", Title: "Report Formatting", Agent: "report_formatter",
					Description: "Format the final report", EstimatedTime: 2, Required: boolPtr(true),
					DependsOn: []string{"synthesize"}},
			},
			Behavior: Behavior{
				ErrorHandling:       "stop_on_error",
				RetryAttempts:       1,
				ProgressReporting:   true,
				IntermediateOutputs: true,
			},
		},
		Models: map[string]Model{
			"gemma3:4b": {
				Name:          "Gemma 3 4B",
				Provider:      "ollama",
				Description:   "Default local model",
				ContextLength: 8192,
			},
		},
		Logging: Logging{
			Level: "info",
			File:  "logs/docqa.log",
		},
		Tracing: Tracing{
			Endpoint:    "localhost:4318",
			ServiceName: "docqa",
		},
		Watcher: Watcher{Enabled: true},
	}
}

func temperature(v float64) *float64 { return &v }
