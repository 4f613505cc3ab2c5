package entities

import (
	"fmt"
	"strings"
)

// Passage is one retrieved piece of text with its origin.
type Passage struct {
	Text     string  `json:"passage"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
}

// RetrievedContext is the score-ordered set of passages fetched once per query.
// Consumers treat it as read-only.
type RetrievedContext []Passage

// Sources returns every source id in the context, first appearance first.
// Citations are attributed to the whole context, not to the step that used them.
func (rc RetrievedContext) Sources() []string {
	seen := make(map[string]struct{}, len(rc))
	sources := make([]string, 0, len(rc))
	for _, p := range rc {
		if _, ok := seen[p.SourceID]; ok {
			continue
		}
		seen[p.SourceID] = struct{}{}
		sources = append(sources, p.SourceID)
	}
	return sources
}

// Render serialises the passages for a prompt, each tagged with its source.
func (rc RetrievedContext) Render() string {
	parts := make([]string, len(rc))
	for i, p := range rc {
		parts[i] = fmt.Sprintf("[Source: %s]\n%s", p.SourceID, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// SourcesMarkdown renders the source ids as a numbered markdown list.
func (rc RetrievedContext) SourcesMarkdown() string {
	if len(rc) == 0 {
		return "No sources available"
	}
	lines := make([]string, len(rc))
	for i, p := range rc {
		if p.SourceID == "" || p.SourceID == "Unknown" {
			lines[i] = fmt.Sprintf("%d. Unknown source", i+1)
			continue
		}
		lines[i] = fmt.Sprintf("%d. **%s**", i+1, p.SourceID)
	}
	return strings.Join(lines, "\n")
}

// Truncate keeps leading passages while their combined text fits in maxChars.
// A non-positive limit disables truncation.
func (rc RetrievedContext) Truncate(maxChars int) RetrievedContext {
	if maxChars <= 0 {
		return rc
	}
	total := 0
	for i, p := range rc {
		if total+len(p.Text) > maxChars {
			return rc[:i]
		}
		total += len(p.Text)
	}
	return rc
}

// Length is the combined passage text length.
func (rc RetrievedContext) Length() int {
	n := 0
	for _, p := range rc {
		n += len(p.Text)
	}
	return n
}
