package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/civicgov/grievance-service/internal/config"
)

// ErrNotConfigured signals that no API key was provided.
var ErrNotConfigured = errors.New("classifier: api key not configured")

// GeminiClassifier calls the hosted Gemini model for routing decisions.
type GeminiClassifier struct {
	client     *genai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	logger     *zap.Logger
}

// NewGeminiClassifier builds the classifier from configuration.
func NewGeminiClassifier(ctx context.Context, cfg config.ClassifierConfig, logger *zap.Logger) (*GeminiClassifier, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClassifier{
		client:     client,
		model:      cfg.Model,
		timeout:    cfg.Timeout(),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// Classify asks the model for a department, priority and suggested action.
// Transient failures are retried with exponential backoff; a malformed answer
// counts as a failure and is retried too.
func (g *GeminiClassifier) Classify(ctx context.Context, input Input) (*Result, error) {
	prompt := buildPrompt(input)
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  512,
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(prompt), genCfg)
		cancel()
		if err != nil {
			lastErr = err
			g.logger.Warn("classification call failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}

		result, err := parseResult(resp.Text(), g.model)
		if err != nil {
			lastErr = err
			g.logger.Warn("classification answer rejected",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("classify after %d attempts: %w", g.maxRetries+1, lastErr)
}
