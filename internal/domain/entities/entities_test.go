package entities

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetrievedContext_SourcesKeepsFirstAppearanceOrder(t *testing.T) {
	rc := RetrievedContext{
		{Text: "a", SourceID: "b.pdf", Score: 0.9},
		{Text: "b", SourceID: "a.pdf", Score: 0.8},
		{Text: "c", SourceID: "b.pdf", Score: 0.7},
	}

	got := rc.Sources()
	if len(got) != 2 || got[0] != "b.pdf" || got[1] != "a.pdf" {
		t.Errorf("unexpected sources: %v", got)
	}
}

func TestRetrievedContext_SourcesEmpty(t *testing.T) {
	var rc RetrievedContext
	if got := rc.Sources(); len(got) != 0 {
		t.Errorf("expected no sources, got %v", got)
	}
}

func TestRetrievedContext_RenderTagsSources(t *testing.T) {
	rc := RetrievedContext{{Text: "X is Y", SourceID: "doc1.pdf"}}
	out := rc.Render()

	if !strings.Contains(out, "[Source: doc1.pdf]") || !strings.Contains(out, "X is Y") {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestRetrievedContext_Truncate(t *testing.T) {
	rc := RetrievedContext{
		{Text: strings.Repeat("a", 10)},
		{Text: strings.Repeat("b", 10)},
		{Text: strings.Repeat("c", 10)},
	}

	if got := rc.Truncate(25); len(got) != 2 {
		t.Errorf("expected 2 passages, got %d", len(got))
	}
	if got := rc.Truncate(0); len(got) != 3 {
		t.Errorf("zero limit should keep everything, got %d", len(got))
	}
	if got := rc.Truncate(5); len(got) != 0 {
		t.Errorf("expected no passages, got %d", len(got))
	}
}

func TestRetrievedContext_SourcesMarkdown(t *testing.T) {
	rc := RetrievedContext{{SourceID: "guide.pdf"}, {SourceID: ""}}
	md := rc.SourcesMarkdown()

	if md != "1. **guide.pdf**\n2. Unknown source" {
		t.Errorf("unexpected markdown: %q", md)
	}
	if (RetrievedContext{}).SourcesMarkdown() != "No sources available" {
		t.Error("empty context should say no sources")
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("team") != ModeTeam {
		t.Error("team should parse")
	}
	if ParseMode("quick") != ModeQuick || ParseMode("") != ModeQuick || ParseMode("bogus") != ModeQuick {
		t.Error("unknown modes should fall back to quick")
	}
}

func TestGenerationParams_WithDefaults(t *testing.T) {
	def := GenerationParams{Temperature: 0.7, MaxTokens: 512, TopP: 0.9, Timeout: time.Minute}
	got := GenerationParams{Temperature: 0.2}.WithDefaults(def)

	if got.Temperature != 0.2 {
		t.Errorf("explicit temperature overwritten: %v", got.Temperature)
	}
	if got.MaxTokens != 512 || got.TopP != 0.9 || got.Timeout != time.Minute {
		t.Errorf("defaults not applied: %+v", got)
	}
}

func TestGenerationParams_WithDefaultsKeepsSetZeroTemperature(t *testing.T) {
	def := GenerationParams{Temperature: 0.7}

	if got := (GenerationParams{TemperatureSet: true}).WithDefaults(def); got.Temperature != 0 {
		t.Errorf("pinned temperature 0 replaced by %v", got.Temperature)
	}
	if got := (GenerationParams{}).WithDefaults(def); got.Temperature != 0.7 {
		t.Errorf("unset temperature not defaulted: %v", got.Temperature)
	}
}

func TestGenerationError_Is(t *testing.T) {
	err := error(&GenerationError{Kind: ErrGenerationTimeout, Err: errors.New("deadline")})

	if !errors.Is(err, ErrGenerationTimeout) {
		t.Error("should match timeout kind")
	}
	if errors.Is(err, ErrEndpoint) {
		t.Error("should not match endpoint kind")
	}
	if !strings.Contains(err.Error(), "deadline") {
		t.Errorf("cause missing from message: %s", err)
	}
}

func TestStepResult_OK(t *testing.T) {
	if !(StepResult{Status: StepOK}).OK() {
		t.Error("ok step should report OK")
	}
	if (StepResult{Status: StepFailed}).OK() {
		t.Error("failed step should not report OK")
	}
}
