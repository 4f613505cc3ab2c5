package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "config/docqa.yaml"

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Load reads DefaultConfigFile. See LoadFrom.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a validated Config using the hierarchy:
// defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg, err := Read(yamlPath)
	if err != nil {
		return nil, err
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return cfg, nil
}

// Read is LoadFrom without validation.
func Read(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	return &cfg, nil
}

// loadYAML unmarshals the file over cfg. A missing file is not an error.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.Embedding.BaseURL = v
		if cfg.LLM.Provider == "ollama" {
			cfg.LLM.BaseURL = v
		}
	}
	setString(&cfg.LLM.Provider, "DOCQA_LLM_PROVIDER")
	setString(&cfg.LLM.BaseURL, "DOCQA_LLM_URL")
	setString(&cfg.LLM.APIKey, "DOCQA_LLM_API_KEY")
	setString(&cfg.Storage.DocsDir, "DOCS_DIR")
	setString(&cfg.Storage.DataDir, "INDEX_DIR")
	setString(&cfg.Storage.Backend, "DOCQA_INDEX_BACKEND")
	setString(&cfg.Server.Addr, "DOCQA_ADDR")
	setString(&cfg.Server.FrontendDir, "DOCQA_FRONTEND_DIR")
	setString(&cfg.Global.DefaultModel, "DOCQA_DEFAULT_MODEL")
	setInt(&cfg.Global.TimeoutSeconds, "DOCQA_TIMEOUT_SECONDS")
	setString(&cfg.Logging.Level, "DOCQA_LOG_LEVEL")
	setString(&cfg.Logging.File, "DOCQA_LOG_FILE")
	setBool(&cfg.Tracing.Enabled, "OTEL_ENABLED")
	setString(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Watcher.Enabled, "DOCQA_WATCH")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Sample renders the built-in configuration as YAML.
func Sample() ([]byte, error) {
	cfg := Defaults()
	for key, a := range cfg.Agents {
		a.Template = templateFor(key, a)
		cfg.Agents[key] = a
	}
	return yaml.Marshal(cfg)
}
