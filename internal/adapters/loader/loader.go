// Package loader provides document loading adapters.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	return &entities.Document{
		ID:        entities.DocumentIDForPath(path),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   string(content),
		CreatedAt: info.ModTime(),
		UpdatedAt: time.Now(),
	}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// BinaryLoader loads PDF and Word documents through a DocumentParser.
type BinaryLoader struct {
	parser ports.DocumentParser
}

// NewBinaryLoader creates a loader backed by parser.
func NewBinaryLoader(parser ports.DocumentParser) *BinaryLoader {
	return &BinaryLoader{parser: parser}
}

// Load reads the file and extracts its text.
func (l *BinaryLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := l.parser.Parse(ctx, data, path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", filepath.Base(path), err)
	}

	modTime := time.Now()
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}

	return &entities.Document{
		ID:        entities.DocumentIDForPath(path),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   cleanExtractedText(text),
		CreatedAt: modTime,
		UpdatedAt: time.Now(),
	}, nil
}

// SupportedExtensions derives extensions from the parser's formats.
func (l *BinaryLoader) SupportedExtensions() []string {
	formats := l.parser.SupportedFormats()
	exts := make([]string, len(formats))
	for i, f := range formats {
		exts[i] = "." + f
	}
	return exts
}

// MultiLoader dispatches to a loader by file extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader creates a loader for text files and, when parser is
// non-nil, for the binary formats it supports.
func NewMultiLoader(parser ports.DocumentParser) *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	m.register(NewTextLoader())
	if parser != nil {
		m.register(NewBinaryLoader(parser))
	}
	return m
}

func (m *MultiLoader) register(l ports.DocumentLoader) {
	for _, ext := range l.SupportedExtensions() {
		m.loaders[ext] = l
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnsupportedFileType, ext)
	}
	return loader.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a loadable extension.
func (m *MultiLoader) Supports(path string) bool {
	_, ok := m.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// cleanExtractedText drops control characters left over from extraction.
func cleanExtractedText(content string) string {
	var cleaned strings.Builder
	for _, r := range content {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			cleaned.WriteRune(r)
		}
	}
	return strings.TrimSpace(cleaned.String())
}
