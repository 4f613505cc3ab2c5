package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/adapters/embedding"
	"github.com/0xcro3dile/docqa/internal/adapters/llm"
	"github.com/0xcro3dile/docqa/internal/adapters/loader"
	"github.com/0xcro3dile/docqa/internal/adapters/parser"
	"github.com/0xcro3dile/docqa/internal/adapters/vectordb"
	"github.com/0xcro3dile/docqa/internal/config"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
	"github.com/0xcro3dile/docqa/internal/domain/usecases"
	"github.com/0xcro3dile/docqa/internal/logger"
)

// generator is what the app needs from an LLM adapter.
type generator interface {
	ports.LLMService
	usecases.Pinger
}

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	llm      generator
	parser   *parser.ServiceParser
	store    ports.VectorStore
	library  *usecases.LibraryUseCase
	chat     *usecases.ChatUseCase
	pipeline *usecases.Orchestrator
	closers  []func()
}

// loadConfig reads the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{
		Level:      level,
		File:       cfg.Logging.File,
		Production: cfg.Logging.Production,
	})
}

func newGenerator(cfg *config.Config) (generator, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAICompatAdapter(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.Global.DefaultModel), nil
	case "ollama", "":
		return llm.NewOllamaLLMAdapter(cfg.LLM.BaseURL, cfg.Global.DefaultModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func newStore(cfg *config.Config) (ports.VectorStore, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return vectordb.NewInMemoryStore(), func() {}, nil
	default:
		s, err := vectordb.NewSQLiteStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

// newApp wires adapters and use cases from cfg.
func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	a.llm = gen

	cached, err := embedding.NewCachedEmbedder(
		embedding.NewOllamaAdapter(cfg.Embedding.BaseURL, cfg.Embedding.Model, log),
		cfg.Embedding.CacheMB<<20,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	a.closers = append(a.closers, cached.Close)

	store, closeStore, err := newStore(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	a.parser = parser.NewServiceParser(cfg.Parser.ServiceURL, log)
	docLoader := loader.NewMultiLoader(a.parser)

	ingest := usecases.NewIngestUseCase(cached, store, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	a.library = usecases.NewLibraryUseCase(cfg.Storage.DocsDir, docLoader, ingest, store, gen, cfg.Retrieval.Workers, log)

	agents := make(map[string]usecases.StepRunner, len(cfg.Agents))
	defaults := cfg.GenerationDefaults()
	for key, spec := range cfg.AgentSpecs() {
		agent, err := usecases.NewAgent(spec, gen, defaults, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		agents[key] = agent
	}
	a.pipeline, err = usecases.NewOrchestrator(cfg.PipelineSteps(), agents, cfg.PipelineOptions(), log)
	if err != nil {
		a.Close()
		return nil, err
	}

	retriever := usecases.NewRetrievalUseCase(cached, store, log)
	a.chat = usecases.NewChatUseCase(retriever, gen, a.pipeline, cfg.ChatOptions(), log)
	return a, nil
}

// startParser launches the binary document parser when a script dir is
// configured and nothing answers at the service URL yet.
func (a *app) startParser(ctx context.Context) {
	if a.cfg.Parser.ScriptDir == "" || a.parser.IsServiceHealthy(ctx) {
		return
	}
	stop, err := a.parser.StartService(a.cfg.Parser.ScriptDir)
	if err != nil {
		a.logger.Warn("parser service not started; pdf and doc files will fail to load", zap.Error(err))
		return
	}
	a.closers = append(a.closers, stop)
}

// ensureIndex builds the index when it is empty.
func (a *app) ensureIndex(ctx context.Context) {
	if err := os.MkdirAll(a.cfg.Storage.DocsDir, 0755); err != nil {
		a.logger.Warn("creating docs dir", zap.Error(err))
		return
	}
	n, err := a.store.Count(ctx)
	if err != nil || n > 0 {
		return
	}
	if _, err := a.library.Reindex(ctx); err != nil {
		a.logger.Warn("initial indexing failed", zap.Error(err))
	}
}

// Close releases resources in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
