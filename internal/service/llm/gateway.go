package llm

import (
	"architect/internal/apperr"
	"architect/internal/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single generation call including retries
const DefaultTimeout = 60 * time.Second

// GatewayConfig controls retries, fallback and limits
type GatewayConfig struct {
	MaxRetries    int
	MaxInputChars int
	Timeout       time.Duration
}

// Gateway wraps a primary and optional fallback Generator. Every failure it
// returns wraps apperr.ErrGenerationFailed.
type Gateway struct {
	primary  Generator
	fallback Generator
	cfg      GatewayConfig
	backoff  func(attempt int) time.Duration
}

var _ Generator = (*Gateway)(nil)

func NewGateway(primary, fallback Generator, cfg GatewayConfig) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gateway{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 500 * time.Millisecond
		},
	}
}

func (g *Gateway) Name() string {
	if g.fallback != nil {
		return g.primary.Name() + "+" + g.fallback.Name()
	}
	return g.primary.Name()
}

// Generate runs the request detached from caller cancellation: once issued it
// runs to completion or to the gateway timeout.
func (g *Gateway) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("empty request: %w", apperr.ErrGenerationFailed)
	}
	if n := inputChars(req.Messages); g.cfg.MaxInputChars > 0 && n > g.cfg.MaxInputChars {
		return "", fmt.Errorf("input of %d chars exceeds limit of %d: %w", n, g.cfg.MaxInputChars, apperr.ErrGenerationFailed)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := g.withRetry(ctx, g.primary, req)
	if err != nil && g.fallback != nil && ctx.Err() == nil {
		logger.Log.WithFields(logrus.Fields{
			"primary":  g.primary.Name(),
			"fallback": g.fallback.Name(),
		}).WithError(err).Warn("Primary provider failed, trying fallback")

		fallbackReq := req
		fallbackReq.Model = ""
		text, err = g.withRetry(ctx, g.fallback, fallbackReq)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("generation timed out after %s: %w", g.cfg.Timeout, apperr.ErrGenerationFailed)
		}
		return "", fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
	}

	logger.Log.WithFields(logrus.Fields{
		"duration_ms":  time.Since(start).Milliseconds(),
		"reply_length": len(text),
	}).Debug("Generation completed")

	return text, nil
}

func (g *Gateway) withRetry(ctx context.Context, p Generator, req GenerationRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.backoff(attempt)):
			}
			logger.Log.WithFields(logrus.Fields{"provider": p.Name(), "attempt": attempt}).Debug("Retrying generation")
		}

		text, err := p.Generate(ctx, req)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("empty reply")
		}
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("all retries exhausted for %s: %w", p.Name(), lastErr)
}

func inputChars(messages []Message) int {
	n := 0
	for _, m := range messages {
		n += utf8.RuneCountInString(m.Content)
	}
	return n
}
