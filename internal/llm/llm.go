package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/telemetry"
)

// FallbackReply is returned whenever the model cannot ground an answer or the
// completion service fails.
const FallbackReply = "Answer not found in the provided document."

var (
	// ErrInferenceFailure marks any failure to obtain a reply from the model.
	ErrInferenceFailure = errors.New("inference failure")
	// ErrMalformedResponse is returned when the reply field is missing or empty.
	ErrMalformedResponse = errors.New("malformed completion response")
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not implemented")
)

// StatusError reports a non-2xx response from the completion service.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion service status %d", e.StatusCode)
}

// Message is one chat turn sent to the model.
type Message struct {
	Role    string
	Content string
}

// ModelRequest is a fully composed completion request.
type ModelRequest struct {
	Messages      []Message
	Temperature   float32
	MaxTokens     int
	PromptVersion string
	Structured    bool
}

// Completer sends a request to a completion service and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req ModelRequest) (string, error)
}

// PlaceholderClient is used when no completion service is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, req ModelRequest) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotImplemented
}

// CompleteOrFallback invokes c under timeout. Any failure is logged and
// replaced by FallbackReply; the returned error is informational only.
func CompleteOrFallback(ctx context.Context, c Completer, req ModelRequest, timeout time.Duration) (string, error) {
	if c == nil {
		return fallback(ctx, req, "unconfigured", ErrNotImplemented)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := c.Complete(ctx, req)
	metrics.ObserveInferenceDuration(time.Since(start))
	if err != nil {
		return fallback(ctx, req, failureReason(err), err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fallback(ctx, req, "malformed", ErrMalformedResponse)
	}
	return reply, nil
}

func fallback(ctx context.Context, req ModelRequest, reason string, cause error) (string, error) {
	_ = ctx
	metrics.IncInferenceFailure(reason)
	telemetry.Error("inference.failure", map[string]any{
		"reason":         reason,
		"prompt_version": req.PromptVersion,
		"structured":     req.Structured,
		"error":          cause,
	})
	return FallbackReply, fmt.Errorf("%w: %w", ErrInferenceFailure, cause)
}

func failureReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrNotImplemented):
		return "unconfigured"
	default:
		return "transport"
	}
}
