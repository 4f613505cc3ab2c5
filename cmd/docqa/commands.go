package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/adapters/filewatcher"
	"github.com/0xcro3dile/docqa/internal/adapters/progress"
	"github.com/0xcro3dile/docqa/internal/config"
	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
	"github.com/0xcro3dile/docqa/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/docqa/internal/infrastructure/http"
	"github.com/0xcro3dile/docqa/internal/tracer"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracer, err := tracer.Init(ctx, tracer.Options{
				Enabled:     cfg.Tracing.Enabled,
				Endpoint:    cfg.Tracing.Endpoint,
				ServiceName: cfg.Tracing.ServiceName,
			}, log)
			if err != nil {
				log.Warn("tracing unavailable", zap.Error(err))
			} else {
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := shutdownTracer(sctx); err != nil {
						log.Warn("tracer shutdown", zap.Error(err))
					}
				}()
			}

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			a.startParser(ctx)
			a.ensureIndex(ctx)

			if cfg.Watcher.Enabled {
				watch(ctx, a, log)
			}

			var store *progress.Store
			if cfg.Pipeline.Behavior.ProgressReporting {
				store = progress.NewStore(cfg.Server.ProgressTTL)
			}

			srv := httpserver.NewServer(a.chat, a.library, progressStore(store), httpserver.Options{
				Addr:                cfg.Server.Addr,
				FrontendDir:         cfg.Server.FrontendDir,
				CORSOrigin:          cfg.Server.CORSOrigin,
				ReadTimeout:         cfg.Server.ReadTimeout,
				WriteTimeout:        cfg.Server.WriteTimeout,
				MaxUploadBytes:      cfg.Server.MaxUploadMB << 20,
				ReportProgress:      cfg.Pipeline.Behavior.ProgressReporting,
				IntermediateOutputs: cfg.Pipeline.Behavior.IntermediateOutputs,
			}, log)

			log.Info("docqa ready",
				zap.String("addr", cfg.Server.Addr),
				zap.String("model", cfg.Global.DefaultModel),
				zap.String("llm", cfg.LLM.Provider),
				zap.String("docs", cfg.Storage.DocsDir),
				zap.Int("pipeline_steps", len(a.pipeline.Steps())),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// progressStore keeps a nil *progress.Store from becoming a non-nil
// interface value.
func progressStore(s *progress.Store) ports.ProgressStore {
	if s == nil {
		return nil
	}
	return s
}

// watch keeps the index in step with the documents folder until ctx is done.
func watch(ctx context.Context, a *app, log *zap.Logger) {
	w, err := filewatcher.NewFSNotifyWatcher(filewatcher.DefaultExtensions, log)
	if err != nil {
		log.Warn("file watcher unavailable", zap.Error(err))
		return
	}
	events, err := w.Watch(ctx, a.cfg.Storage.DocsDir)
	if err != nil {
		log.Warn("file watcher unavailable", zap.Error(err))
		w.Stop()
		return
	}
	a.closers = append(a.closers, func() { w.Stop() })
	go a.library.Sync(ctx, events)
}

func askCmd() *cobra.Command {
	var (
		mode    string
		model   string
		asJSON  bool
		noIndex bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			a.startParser(ctx)
			if !noIndex {
				a.ensureIndex(ctx)
			}

			q := entities.Query{
				Text:      strings.Join(args, " "),
				Mode:      entities.ParseMode(mode),
				Model:     model,
				RequestID: uuid.NewString(),
			}
			stderr := cmd.ErrOrStderr()
			out := cmd.OutOrStdout()
			report := func(ev entities.ProgressEvent) {
				if ev.State == entities.StateDone {
					return
				}
				fmt.Fprintf(stderr, "[%d] %s: %s\n", ev.StepIndex+1, ev.StepName, ev.State)
			}
			var token usecases.TokenFunc
			streamed := false
			if !asJSON {
				token = func(text string) {
					streamed = true
					fmt.Fprint(out, text)
				}
			}
			resp, err := a.chat.StreamChat(ctx, q, report, token)
			if streamed {
				fmt.Fprintln(out)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			if resp.Status == "failed" {
				return errors.New(resp.Error)
			}
			if !streamed {
				fmt.Fprintln(out, resp.Answer)
			}
			if len(resp.Sources) > 0 {
				fmt.Fprintf(out, "\nSources: %s\n", strings.Join(resp.Sources, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "quick", "quick or team")
	cmd.Flags().StringVar(&model, "model", "", "model name (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "skip building an empty index")
	return cmd
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the document index",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Clear the index and ingest every document again",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.startParser(ctx)

			n, err := a.library.Reindex(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files from %s\n", n, cfg.Storage.DocsDir)
			return nil
		},
	})
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Report every problem in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(configPath())
			if err != nil {
				return err
			}
			problems := cfg.Validate()
			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintln(out, "configuration is valid")
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return fmt.Errorf("%d configuration problems", len(problems))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Print agents, pipeline steps and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Summary(cmd.OutOrStdout())
			return nil
		},
	})

	var out string
	sample := &cobra.Command{
		Use:   "sample",
		Short: "Write the default configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Sample()
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0644)
		},
	}
	sample.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	cmd.AddCommand(sample)

	return cmd
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	return config.DefaultConfigFile
}
