package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

// completer is the slice of Client the synthesizer needs; tests swap in a
// scripted fake.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config controls synthesis behavior.
type Config struct {
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Synthesizer implements clone.Synthesizer over a chat completion client
// with retries on transient backend failures.
type Synthesizer struct {
	client completer
	policy *retryPolicy
	logger *zap.Logger
}

// New constructs a Synthesizer around the provided client.
func New(client completer, cfg Config, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		client: client,
		policy: newRetryPolicy(cfg.MaxAttempts, cfg.BackoffInitial, cfg.BackoffMax),
		logger: logger,
	}
}

// Synthesize renders the prompt, calls the backend, and validates the
// returned document. Transient failures are retried with backoff up to
// the configured ceiling; the last error is returned when the budget is
// exhausted.
func (s *Synthesizer) Synthesize(ctx context.Context, summary clone.LayoutSummary, css string) (string, error) {
	user := buildUserPrompt(summary, css)

	var lastErr error
	for attempt := 1; ; attempt++ {
		raw, err := s.client.Complete(ctx, systemPrompt, user)
		if err == nil {
			doc, validErr := validateDocument(raw)
			if validErr == nil {
				return doc, nil
			}
			err = validErr
		}
		lastErr = err

		if !s.policy.ShouldRetry(err, attempt) {
			return "", fmt.Errorf("synthesize after %d attempt(s): %w", attempt, lastErr)
		}
		wait := s.policy.Backoff(attempt - 1)
		if s.logger != nil {
			s.logger.Warn("synthesis attempt failed, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("synthesize canceled: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

// validateDocument strips markdown fences the model sometimes adds and
// checks the result looks like an HTML document.
func validateDocument(raw string) (string, error) {
	doc := stripFences(strings.TrimSpace(raw))
	if doc == "" {
		return "", &statusError{status: 502, body: "empty completion"}
	}
	if !strings.Contains(strings.ToLower(doc), "<html") {
		return "", &statusError{status: 502, body: "completion is not an html document"}
	}
	return doc, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the fence line.
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
