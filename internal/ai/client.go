package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/logger"
	"github.com/edgard/mediadesk/internal/metrics"
	"github.com/edgard/mediadesk/internal/text"
)

var (
	errNoChoices    = errors.New("response contained no choices")
	errEmptyContent = errors.New("response choice has empty content")
)

// backend performs a single completion call. Implementations return
// errNoChoices or errEmptyContent for well-formed but unusable responses.
type backend interface {
	complete(ctx context.Context, req Request) (string, error)
	name() string
}

// Client issues one backend call per Generate and never retries. A failed
// call cancels the current post; the next scheduled run is the retry.
type Client struct {
	backend backend
	logger  *slog.Logger
}

// NewClient creates a client for the configured provider.
func NewClient(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}

	var (
		b   backend
		err error
	)
	switch cfg.Provider {
	case "openai", "":
		b = newOpenAIBackend(cfg)
	case "gemini":
		b, err = newGeminiBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}

	l := log.With("component", "ai_client", "provider", b.name())
	l.Info("AI client initialized successfully", "model", cfg.Model)
	return &Client{backend: b, logger: l}, nil
}

// Generate sends the system instruction and user prompt once and returns the
// sanitized text or a failure reason. timeout bounds the whole call; a
// non-positive timeout leaves only ctx in charge.
func (c *Client) Generate(ctx context.Context, req Request, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.backend.complete(ctx, req)
	duration := time.Since(start)

	if err == nil {
		if out, err = text.Sanitize(out); errors.Is(err, text.ErrEmpty) {
			err = errEmptyContent
		}
	}
	if err != nil {
		reason := classify(ctx, err)
		metrics.GenerationFailures.WithLabelValues(c.backend.name(), reason.String()).Inc()
		c.logger.WarnContext(ctx, "Generation failed", "reason", reason.String(), "duration", duration, "error", err)
		return Failure(reason, err)
	}

	c.logger.InfoContext(ctx, "Generation completed", "duration", duration, "chars", len(out))
	return Success(out)
}

// classify maps a backend error onto a failure reason.
func classify(ctx context.Context, err error) Reason {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		netErr    net.Error
	)
	switch {
	case errors.Is(err, errNoChoices):
		return ReasonNoChoices
	case errors.Is(err, errEmptyContent):
		return ReasonMalformed
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		return ReasonMalformed
	default:
		return ReasonTransport
	}
}
