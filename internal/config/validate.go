package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
)

// Validate returns every problem found; an empty slice means the
// configuration is usable.
func (c *Config) Validate() []string {
	var problems []string

	if len(c.Agents) == 0 {
		problems = append(problems, "missing required section: agents")
	}
	if len(c.Pipeline.Steps) == 0 {
		problems = append(problems, "missing required section: pipeline")
	}
	if len(c.Models) == 0 {
		problems = append(problems, "missing required section: models")
	}

	for _, key := range c.agentKeys() {
		a := c.Agents[key]
		if a.Name == "" {
			problems = append(problems, fmt.Sprintf("agent '%s' missing required field: name", key))
		}
		if a.Role == "" {
			problems = append(problems, fmt.Sprintf("agent '%s' missing required field: role", key))
		}
		if a.SystemPrompt == "" {
			problems = append(problems, fmt.Sprintf("agent '%s' missing required field: system_prompt", key))
		}
	}

	seen := make(map[string]bool, len(c.Pipeline.Steps))
	for i, s := range c.Pipeline.Steps {
		if s.Agent == "" {
			problems = append(problems, fmt.Sprintf("pipeline step %d missing 'agent' field", i+1))
		} else if _, ok := c.Agents[s.Agent]; !ok {
			problems = append(problems, fmt.Sprintf("pipeline step %d references unknown agent '%s'", i+1, s.Agent))
		}
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("pipeline step %d missing 'name' field", i+1))
		} else if seen[s.Name] {
			problems = append(problems, fmt.Sprintf("pipeline step %d duplicates name '%s'", i+1, s.Name))
		}
		seen[s.Name] = true
	}

	switch entities.ErrorHandling(c.Pipeline.Behavior.ErrorHandling) {
	case entities.StopOnError, entities.Continue:
	default:
		problems = append(problems, fmt.Sprintf("pipeline.behavior.error_handling must be %q or %q, got %q",
			entities.StopOnError, entities.Continue, c.Pipeline.Behavior.ErrorHandling))
	}
	if c.Pipeline.Behavior.RetryAttempts < 1 {
		problems = append(problems, "pipeline.behavior.retry_attempts must be >= 1")
	}

	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		problems = append(problems, fmt.Sprintf("llm.provider must be \"ollama\" or \"openai\", got %q", c.LLM.Provider))
	}
	switch c.Storage.Backend {
	case "sqlite", "memory":
	default:
		problems = append(problems, fmt.Sprintf("storage.backend must be \"sqlite\" or \"memory\", got %q", c.Storage.Backend))
	}
	if c.Storage.DocsDir == "" {
		problems = append(problems, "storage.docs_dir is required")
	}
	if c.Global.TimeoutSeconds < 1 {
		problems = append(problems, "global.timeout_seconds must be >= 1")
	}

	return problems
}

// Summary writes a human-readable overview of agents, pipeline and models.
func (c *Config) Summary(w io.Writer) {
	fmt.Fprintln(w, "Configuration Summary")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	fmt.Fprintln(w, "\nAgents:")
	for _, key := range c.agentKeys() {
		a := c.Agents[key]
		fmt.Fprintf(w, "  - %s (%s)\n", a.Name, key)
		fmt.Fprintf(w, "    Role: %s\n", a.Role)
		if a.Description != "" {
			fmt.Fprintf(w, "    Description: %s\n", a.Description)
		}
	}

	total := 0
	for _, s := range c.Pipeline.Steps {
		total += estimatedTime(s)
	}
	fmt.Fprintf(w, "\nPipeline: %s\n", c.Pipeline.Name)
	fmt.Fprintf(w, "  Total steps: %d\n", len(c.Pipeline.Steps))
	fmt.Fprintf(w, "  Estimated time: %d seconds\n", total)
	fmt.Fprintf(w, "  Error handling: %s, attempts per step: %d\n",
		c.Pipeline.Behavior.ErrorHandling, c.Pipeline.Behavior.RetryAttempts)
	for i, s := range c.Pipeline.Steps {
		fmt.Fprintf(w, "  %d. %s (%s) - %ds\n", i+1, s.Name, s.Agent, estimatedTime(s))
	}

	fmt.Fprintln(w, "\nModels:")
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := c.Models[name]
		fmt.Fprintf(w, "  - %s (%s)\n", m.Name, name)
		fmt.Fprintf(w, "    Provider: %s\n", m.Provider)
		fmt.Fprintf(w, "    Context: %d tokens\n", m.ContextLength)
	}
	fmt.Fprintf(w, "\nDefault model: %s\n", c.Global.DefaultModel)
}

func (c *Config) agentKeys() []string {
	keys := make([]string, 0, len(c.Agents))
	for k := range c.Agents {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func estimatedTime(s Step) int {
	if s.EstimatedTime <= 0 {
		return 2
	}
	return s.EstimatedTime
}
