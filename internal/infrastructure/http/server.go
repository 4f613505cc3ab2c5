// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
	"github.com/0xcro3dile/docqa/internal/domain/usecases"
)

// ChatHandler answers chat queries.
type ChatHandler interface {
	HandleChat(ctx context.Context, q entities.Query, report usecases.ProgressFunc) (*entities.ChatResponse, error)
	StreamChat(ctx context.Context, q entities.Query, report usecases.ProgressFunc, token usecases.TokenFunc) (*entities.ChatResponse, error)
}

// Library manages the documents folder.
type Library interface {
	DocsDir() string
	List(ctx context.Context) ([]entities.FileInfo, error)
	Upload(ctx context.Context, name string, r io.Reader) (*usecases.UploadResult, error)
	Delete(ctx context.Context, name string) error
	Reindex(ctx context.Context) (int, error)
	Health(ctx context.Context) usecases.HealthReport
}

// Options configure the server.
type Options struct {
	Addr                string
	FrontendDir         string // optional; served at / when set
	CORSOrigin          string
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxUploadBytes      int64
	ReportProgress      bool // feed the polling store
	IntermediateOutputs bool // include debug_steps in team responses
}

// Server is the HTTP server for the chat and document APIs.
type Server struct {
	chat     ChatHandler
	library  Library
	progress ports.ProgressStore
	opts     Options
	logger   *zap.Logger
}

// NewServer creates a new HTTP server. progress may be nil.
func NewServer(chat ChatHandler, library Library, progress ports.ProgressStore, opts Options, logger *zap.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		chat:     chat,
		library:  library,
		progress: progress,
		opts:     opts,
		logger:   logger.Named("http"),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors(s.opts.CORSOrigin))
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(chimw.Recoverer)

	r.Post("/chat", s.handleChat)
	r.Get("/chat/stream", s.handleChatStream)

	r.Route("/api", func(r chi.Router) {
		r.Get("/chat/{id}/progress", s.handleProgress)
		r.Get("/files", s.handleListFiles)
		r.Post("/upload", s.handleUpload)
		r.Delete("/files/{filename}", s.handleDeleteFile)
		r.Post("/rebuild", s.handleRebuild)
		r.Get("/health", s.handleHealth)
	})

	docs := http.StripPrefix("/static/docs/", http.FileServer(http.Dir(s.library.DocsDir())))
	r.Handle("/static/docs/*", docs)

	if s.opts.FrontendDir != "" {
		static := http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(s.opts.FrontendDir, "static"))))
		r.Handle("/static/*", static)
		r.Get("/", s.handleIndex)
	}
	return r
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout, // long enough for team runs and streams
	}

	s.logger.Info("server starting", zap.String("addr", s.opts.Addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(s.opts.FrontendDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "docqa API"})
		return
	}
	http.ServeFile(w, r, index)
}
