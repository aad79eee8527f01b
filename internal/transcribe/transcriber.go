package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Supported transcription models. whisper-1 matches the reference pipeline;
// the gpt-4o variants trade cost against accuracy.
const (
	ModelWhisper         = openai.Whisper1
	ModelGPT4oMini       = "gpt-4o-mini-transcribe"
	ModelGPT4oTranscribe = "gpt-4o-transcribe"
)

// SupportedModel reports whether name is a known transcription model.
func SupportedModel(name string) bool {
	switch name {
	case ModelWhisper, ModelGPT4oMini, ModelGPT4oTranscribe:
		return true
	}
	return false
}

// Parallelism configuration.
const (
	// MaxRecommendedParallel is the recommended upper limit for concurrent
	// API requests. Higher values may trigger rate limiting.
	MaxRecommendedParallel = 8
)

// Default retry configuration.
const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
)

// RetryConfig holds retry parameters for exponential backoff.
//
// All fields must be non-negative. Invalid values are normalized:
//   - MaxRetries < 0 becomes 0 (single attempt)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay <= 0 becomes BaseDelay
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// normalize ensures all RetryConfig fields have valid values.
func (c *RetryConfig) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

// RetryWithBackoff executes fn with exponential backoff retry.
// It retries only if shouldRetry returns true for the error.
// Returns the result of the last attempt.
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return zero, ctx.Err()
			case <-timer.C:
			}
			// Exponential backoff with cap.
			delay = min(delay*2, cfg.MaxDelay)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// Transcriber transcribes audio clips to text.
type Transcriber interface {
	// Transcribe converts an audio clip to text.
	Transcribe(ctx context.Context, clipPath string) (string, error)
}

// audioTranscriber is an internal interface for OpenAI audio transcription.
// *openai.Client implements this implicitly, which allows injecting mocks
// in tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Transcriber      = (*OpenAITranscriber)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAITranscriber transcribes clips using OpenAI's transcription API with
// automatic retries and exponential backoff for transient errors.
type OpenAITranscriber struct {
	client     audioTranscriber
	model      string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// TranscriberOption configures an OpenAITranscriber.
type TranscriberOption func(*OpenAITranscriber)

// WithModel sets the transcription model.
func WithModel(model string) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if model != "" {
			t.model = model
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, maxDelay time.Duration) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if base > 0 {
			t.baseDelay = base
		}
		if maxDelay > 0 {
			t.maxDelay = maxDelay
		}
	}
}

// NewOpenAITranscriber creates a new OpenAITranscriber.
// The client is injected to enable testing with mocks.
func NewOpenAITranscriber(client audioTranscriber, opts ...TranscriberOption) *OpenAITranscriber {
	t := &OpenAITranscriber{
		client:     client,
		model:      ModelWhisper,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe transcribes one clip, retrying transient failures.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, clipPath string) (string, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: clipPath,
		Format:   openai.AudioResponseFormatJSON,
	}

	cfg := RetryConfig{
		MaxRetries: t.maxRetries,
		BaseDelay:  t.baseDelay,
		MaxDelay:   t.maxDelay,
	}

	return RetryWithBackoff(ctx, cfg, func() (string, error) {
		resp, err := t.client.CreateTranscription(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		return strings.TrimSpace(resp.Text), nil
	}, isRetryableError)
}

// classifyError maps OpenAI API errors to sentinel errors.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			// Quota exceeded requires user action and must not be retried.
			if strings.Contains(apiErr.Message, "quota") ||
				strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, ErrTimeout)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, ErrBadRequest)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", ErrTimeout)
	}

	return err
}

// isRetryableError determines if an error is transient and should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) {
		return true
	}

	// Server errors (5xx) are retryable.
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// TranscribeClips transcribes clips in parallel, best-effort: a clip whose
// transcription ultimately fails gets an empty string and a logged warning
// rather than failing the batch. Results are returned in input order.
// The only returned error is context cancellation.
func TranscribeClips(
	ctx context.Context,
	clips []string,
	t Transcriber,
	maxParallel int,
	log *logrus.Logger,
) ([]string, error) {
	if len(clips) == 0 {
		return nil, nil
	}
	if maxParallel < 1 {
		maxParallel = 1
	}

	results := make([]string, len(clips))
	// Semaphore channel for concurrency control.
	sem := make(chan struct{}, maxParallel)

	g, ctx := errgroup.WithContext(ctx)

	for i, clip := range clips {
		i, clip := i, clip
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			text, err := t.Transcribe(ctx, clip)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.WithError(err).Warnf("transcription failed for %s, leaving text empty",
					filepath.Base(clip))
				return nil
			}
			results[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
