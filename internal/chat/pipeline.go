package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"docchat-backend/internal/documents"
	"docchat-backend/internal/llm"
	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/telemetry"
)

// Outcome is the terminal state a query reached.
type Outcome string

const (
	OutcomeReplied          Outcome = "replied"
	OutcomeNoDocument       Outcome = "no_document"
	OutcomeSourceMissing    Outcome = "source_missing"
	OutcomeEmptyText        Outcome = "empty_text"
	OutcomeUnauthenticated  Outcome = "unauthenticated"
	OutcomeInferenceFailure Outcome = "inference_failure"
)

// Conversational replies for the early-exit states.
const (
	ReplyNoDocument    = "❌ Please upload a PDF first."
	ReplySourceMissing = "❌ Uploaded document not found on server."
	ReplyEmptyText     = "❌ No readable text found in the uploaded document."
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrEmptyQuestion   = errors.New("message required")
)

// DocumentSource is the slice of the document store the pipeline needs.
type DocumentSource interface {
	MostRecentFor(ctx context.Context, userID string) (documents.Document, error)
	DeleteAllFor(ctx context.Context, userID string) (documents.DeleteResult, error)
}

// ContextSource builds a context window for a document.
type ContextSource interface {
	Assemble(ctx context.Context, doc documents.Document) (ContextWindow, error)
}

// Query is one question from an authenticated user.
type Query struct {
	UserID     string
	Question   string
	Structured bool
}

// Reply is what the caller sees, plus the state that produced it.
type Reply struct {
	Text       string
	Outcome    Outcome
	DocumentID string
}

// Pipeline answers questions against the caller's most recent document.
type Pipeline struct {
	Docs    DocumentSource
	Context ContextSource
	Prompts *llm.PromptBuilder
	LLM     llm.Completer
	Timeout time.Duration
}

// Ask runs resolve, assemble, build and invoke for q. Missing documents,
// missing bytes, unreadable text and inference failures all produce a
// normal Reply; only unexpected internal errors are returned.
func (p *Pipeline) Ask(ctx context.Context, q Query) (Reply, error) {
	if strings.TrimSpace(q.UserID) == "" {
		metrics.IncChatOutcome(string(OutcomeUnauthenticated))
		return Reply{Outcome: OutcomeUnauthenticated}, ErrUnauthenticated
	}
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}

	doc, err := p.Docs.MostRecentFor(ctx, q.UserID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return p.finish(Reply{Text: ReplyNoDocument, Outcome: OutcomeNoDocument}), nil
		}
		return Reply{}, err
	}

	window, err := p.Context.Assemble(ctx, doc)
	if err != nil {
		switch {
		case errors.Is(err, ErrSourceMissing):
			telemetry.Warn("chat.source_missing", map[string]any{
				"user_id":     q.UserID,
				"document_id": doc.ID,
				"storage_key": doc.StorageKey,
			})
			return p.finish(Reply{Text: ReplySourceMissing, Outcome: OutcomeSourceMissing, DocumentID: doc.ID}), nil
		case errors.Is(err, ErrNoReadableText):
			return p.finish(Reply{Text: ReplyEmptyText, Outcome: OutcomeEmptyText, DocumentID: doc.ID}), nil
		default:
			return Reply{}, err
		}
	}

	req := p.Prompts.Build(window.Text, question, q.Structured)
	text, err := llm.CompleteOrFallback(ctx, p.LLM, req, p.Timeout)
	outcome := OutcomeReplied
	if err != nil {
		outcome = OutcomeInferenceFailure
	}
	return p.finish(Reply{Text: text, Outcome: outcome, DocumentID: doc.ID}), nil
}

// DeleteAll purges the caller's documents. Internal failures are logged and
// reported as an empty result; the call itself always succeeds.
func (p *Pipeline) DeleteAll(ctx context.Context, userID string) (documents.DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return documents.DeleteResult{}, ErrUnauthenticated
	}
	res, err := p.Docs.DeleteAllFor(ctx, userID)
	if err != nil {
		telemetry.Error("chat.delete_all_failed", map[string]any{"user_id": userID, "error": err})
		return documents.DeleteResult{}, nil
	}
	return res, nil
}

func (p *Pipeline) finish(r Reply) Reply {
	metrics.IncChatOutcome(string(r.Outcome))
	return r
}
