package llm

import (
	_ "embed"
	"fmt"
	"strings"
)

// DefaultPromptVersion is the instruction set used when none is configured.
const DefaultPromptVersion = "grounded-v1"

var (
	//go:embed prompts/grounded_v1_plain.txt
	groundedV1Plain string
	//go:embed prompts/grounded_v1_structured.txt
	groundedV1Structured string
)

// Templates is one versioned pair of system instructions.
type Templates struct {
	Version    string
	Plain      string
	Structured string
}

// PromptTemplate returns the templates for version and whether the version was recognized.
func PromptTemplate(version string) (Templates, bool) {
	switch version {
	case "grounded-v1":
		return Templates{Version: "grounded-v1", Plain: groundedV1Plain, Structured: groundedV1Structured}, true
	default:
		return Templates{Version: DefaultPromptVersion, Plain: groundedV1Plain, Structured: groundedV1Structured}, false
	}
}

// PromptBuilder composes grounded model requests.
type PromptBuilder struct {
	templates Templates
	maxTokens int
}

// NewPromptBuilder selects the templates for version. Unknown versions fall
// back to DefaultPromptVersion.
func NewPromptBuilder(version string, maxTokens int) *PromptBuilder {
	t, _ := PromptTemplate(version)
	if maxTokens <= 0 {
		maxTokens = 700
	}
	return &PromptBuilder{templates: t, maxTokens: maxTokens}
}

// Version reports the active template version.
func (b *PromptBuilder) Version() string {
	return b.templates.Version
}

// Build pairs the system instructions with the document text and question.
func (b *PromptBuilder) Build(contextText, question string, structured bool) ModelRequest {
	system := b.templates.Plain
	if structured {
		system = b.templates.Structured
	}
	return ModelRequest{
		Messages: []Message{
			{Role: "system", Content: strings.TrimSpace(system)},
			{Role: "user", Content: fmt.Sprintf("Document:\n%s\n\nQuestion:\n%s", contextText, strings.TrimSpace(question))},
		},
		Temperature:   0,
		MaxTokens:     b.maxTokens,
		PromptVersion: b.templates.Version,
		Structured:    structured,
	}
}
