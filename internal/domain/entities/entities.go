// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document represents a source document (PDF, TXT, MD).
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk represents a piece of a document for embedding.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string // File name used for citation
	Content    string
	Index      int       // Position in document
	Embedding  []float32 // Vector representation (populated by adapter)
}

// DocumentIDForPath derives the stable document ID used for a file path.
func DocumentIDForPath(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// QueryResult represents a vector search hit with relevance.
type QueryResult struct {
	Chunk     Chunk
	Score     float64 // Similarity score
	SourceDoc string  // Document name for citation
}

// FileInfo describes a file in the documents directory.
type FileInfo struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"` // Unix seconds
	Type     string  `json:"type"`
}

// Mode selects how a chat query is answered.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeTeam  Mode = "team"
)

// ParseMode normalises a wire value; anything unknown falls back to quick.
func ParseMode(s string) Mode {
	if Mode(s) == ModeTeam {
		return ModeTeam
	}
	return ModeQuick
}

// Query is one incoming chat request. It is never persisted.
type Query struct {
	Text      string
	Mode      Mode
	Model     string
	RequestID string
}

// ChatResponse is the payload returned to the caller of HandleChat.
type ChatResponse struct {
	Answer        string       `json:"answer"`
	Sources       []string     `json:"sources"`
	DebugSteps    []StepResult `json:"debug_steps,omitempty"`
	Mode          string       `json:"mode"`
	Status        string       `json:"status"`
	Error         string       `json:"error,omitempty"`
	FailedStep    int          `json:"failed_step,omitempty"`
	Note          string       `json:"note,omitempty"`
	PassagesUsed  int          `json:"passages_used,omitempty"`
	ContextLength int          `json:"context_length,omitempty"`
	RequestID     string       `json:"request_id,omitempty"`
}
