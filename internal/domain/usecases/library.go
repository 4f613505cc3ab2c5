package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// AllowedExtensions are the document types accepted for upload and indexing.
var AllowedExtensions = []string{".pdf", ".txt", ".doc", ".docx", ".md"}

// UploadResult reports what happened to an uploaded file.
type UploadResult struct {
	Filename        string `json:"filename"`
	Size            int64  `json:"size"`
	Processed       bool   `json:"processed"`
	Chunks          int    `json:"chunks"`
	ProcessingError string `json:"processing_error,omitempty"`
}

// HealthReport summarises the document library and its index.
type HealthReport struct {
	Status       string `json:"status"`
	DocsDir      string `json:"docs_dir"`
	DocsReadable bool   `json:"docs_readable"`
	FileCount    int    `json:"file_count"`
	IndexedCount int    `json:"indexed_chunks"`
	LLMReachable bool   `json:"llm_reachable"`
	Error        string `json:"error,omitempty"`
}

// Pinger reports whether a remote dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LibraryUseCase manages the documents folder and keeps the vector index in
// step with it.
type LibraryUseCase struct {
	docsDir     string
	loader      ports.DocumentLoader
	ingest      *IngestUseCase
	vectorStore ports.VectorStore
	llm         Pinger
	workers     int
	logger      *zap.Logger
}

// NewLibraryUseCase creates a LibraryUseCase. llm may be nil.
func NewLibraryUseCase(
	docsDir string,
	loader ports.DocumentLoader,
	ingest *IngestUseCase,
	vectorStore ports.VectorStore,
	llm Pinger,
	workers int,
	logger *zap.Logger,
) *LibraryUseCase {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryUseCase{
		docsDir:     docsDir,
		loader:      loader,
		ingest:      ingest,
		vectorStore: vectorStore,
		llm:         llm,
		workers:     workers,
		logger:      logger.Named("library"),
	}
}

// DocsDir returns the managed directory.
func (uc *LibraryUseCase) DocsDir() string { return uc.docsDir }

// List returns the files in the documents folder, newest first.
func (uc *LibraryUseCase) List(ctx context.Context) ([]entities.FileInfo, error) {
	entries, err := os.ReadDir(uc.docsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []entities.FileInfo{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", uc.docsDir, err)
	}

	files := make([]entities.FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed while listing
		}
		files = append(files, entities.FileInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: float64(info.ModTime().UnixNano()) / 1e9,
			Type:     strings.ToLower(filepath.Ext(e.Name())),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Modified > files[j].Modified
	})
	return files, nil
}

// Upload validates name, stores r in the documents folder and indexes it.
// An indexing failure still keeps the file and is reported in the result.
func (uc *LibraryUseCase) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	name, err := cleanFileName(name)
	if err != nil {
		return nil, err
	}
	if !allowedExtension(name) {
		return nil, fmt.Errorf("%w: %s (allowed: %s)", entities.ErrUnsupportedFileType,
			filepath.Ext(name), strings.Join(AllowedExtensions, ", "))
	}

	if err := os.MkdirAll(uc.docsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", uc.docsDir, err)
	}

	path := filepath.Join(uc.docsDir, name)
	size, err := writeFile(path, r)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{Filename: name, Size: size}
	n, err := uc.IngestFile(ctx, path)
	if err != nil {
		uc.logger.Warn("uploaded file not indexed", zap.String("file", name), zap.Error(err))
		result.ProcessingError = "document could not be indexed"
		return result, nil
	}
	result.Processed = true
	result.Chunks = n
	uc.logger.Info("uploaded file indexed", zap.String("file", name), zap.Int("chunks", n))
	return result, nil
}

// Delete removes a file from the index and then from disk. An index failure
// is logged and does not block removal of the file.
func (uc *LibraryUseCase) Delete(ctx context.Context, name string) error {
	if name != filepath.Base(name) || name == "." || name == ".." || name == "" {
		return fmt.Errorf("%w: %q", entities.ErrInvalidFileName, name)
	}
	path := filepath.Join(uc.docsDir, name)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", entities.ErrFileNotFound, name)
	}

	if err := uc.RemoveFile(ctx, path); err != nil {
		uc.logger.Warn("failed to remove document from index", zap.String("file", name), zap.Error(err))
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	uc.logger.Info("deleted file", zap.String("file", name))
	return nil
}

// IngestFile (re)indexes a single file from the documents folder.
func (uc *LibraryUseCase) IngestFile(ctx context.Context, path string) (int, error) {
	path = uc.resolve(path)
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}
	return uc.ingest.Ingest(ctx, doc)
}

// RemoveFile drops a file's chunks from the index.
func (uc *LibraryUseCase) RemoveFile(ctx context.Context, path string) error {
	return uc.ingest.Delete(ctx, entities.DocumentIDForPath(uc.resolve(path)))
}

// Sync applies watcher events to the index until events closes or ctx is
// done. Failures are logged; a file that cannot be loaded stays unindexed.
func (uc *LibraryUseCase) Sync(ctx context.Context, events <-chan ports.FileEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			uc.apply(ctx, ev)
		}
	}
}

func (uc *LibraryUseCase) apply(ctx context.Context, ev ports.FileEvent) {
	log := uc.logger.With(zap.String("file", filepath.Base(ev.Path)), zap.Stringer("op", ev.Operation))
	switch ev.Operation {
	case ports.FileCreated, ports.FileModified:
		n, err := uc.IngestFile(ctx, ev.Path)
		if err != nil {
			log.Warn("watched file not indexed", zap.Error(err))
			return
		}
		log.Info("watched file indexed", zap.Int("chunks", n))
	case ports.FileDeleted:
		if err := uc.RemoveFile(ctx, ev.Path); err != nil {
			log.Warn("removing watched file from index", zap.Error(err))
			return
		}
		log.Info("watched file removed")
	}
}

// Reindex clears the index and ingests every supported file again. Files
// that fail to load are logged and skipped. It returns the number of files
// indexed.
func (uc *LibraryUseCase) Reindex(ctx context.Context) (int, error) {
	if err := os.MkdirAll(uc.docsDir, 0755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", uc.docsDir, err)
	}
	uc.cleanPDFNames()

	files, err := uc.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := uc.vectorStore.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clearing index: %w", err)
	}

	var indexed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)
	for _, f := range files {
		if !allowedExtension(f.Name) {
			continue
		}
		name := f.Name
		g.Go(func() error {
			n, err := uc.IngestFile(gctx, filepath.Join(uc.docsDir, name))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				uc.logger.Warn("skipping document", zap.String("file", name), zap.Error(err))
				return nil
			}
			indexed.Add(1)
			uc.logger.Debug("indexed document", zap.String("file", name), zap.Int("chunks", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(indexed.Load()), fmt.Errorf("rebuilding index: %w", err)
	}

	uc.logger.Info("index rebuilt", zap.Int64("files", indexed.Load()))
	return int(indexed.Load()), nil
}

// Health checks the documents folder, the index and the generator.
func (uc *LibraryUseCase) Health(ctx context.Context) HealthReport {
	report := HealthReport{Status: "healthy", DocsDir: uc.docsDir}

	if f, err := os.Open(uc.docsDir); err == nil {
		report.DocsReadable = true
		f.Close()
	}
	if files, err := uc.List(ctx); err == nil {
		report.FileCount = len(files)
	}

	count, err := uc.vectorStore.Count(ctx)
	if err != nil {
		report.Status = "unhealthy"
		report.Error = "index unavailable"
		uc.logger.Warn("health: index count failed", zap.Error(err))
	}
	report.IndexedCount = count

	if uc.llm != nil {
		if err := uc.llm.Ping(ctx); err == nil {
			report.LLMReachable = true
		} else {
			if report.Status == "healthy" {
				report.Status = "degraded"
			}
			uc.logger.Warn("health: llm unreachable", zap.Error(err))
		}
	}
	return report
}

// resolve pins path to the documents folder so IDs are stable regardless of
// how the caller spelled it.
func (uc *LibraryUseCase) resolve(path string) string {
	return filepath.Join(uc.docsDir, filepath.Base(path))
}

// cleanPDFNames renames PDFs so their names carry no spaces.
func (uc *LibraryUseCase) cleanPDFNames() {
	entries, err := os.ReadDir(uc.docsDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		clean := cleanPDFName(e.Name())
		if clean == e.Name() {
			continue
		}
		oldPath := filepath.Join(uc.docsDir, e.Name())
		newPath := filepath.Join(uc.docsDir, clean)
		if err := os.Rename(oldPath, newPath); err != nil {
			uc.logger.Warn("could not rename pdf", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		uc.logger.Info("renamed pdf", zap.String("from", e.Name()), zap.String("to", clean))
	}
}

func cleanPDFName(name string) string {
	return strings.ReplaceAll(strings.TrimRight(name, " "), " ", "_")
}

// cleanFileName strips any directory part and rejects names that cannot be
// stored safely. PDF names lose their spaces.
func cleanFileName(name string) (string, error) {
	name = strings.TrimSpace(filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/"))))
	if name == "" || name == "." || name == ".." || name == "/" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", entities.ErrInvalidFileName, name)
	}
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		name = cleanPDFName(name)
	}
	return name, nil
}

func allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range AllowedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func writeFile(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("saving %s: %w", filepath.Base(path), err)
	}
	return n, nil
}
