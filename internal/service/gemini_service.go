package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/fadilmartias/cv-builder/internal/config"
	"google.golang.org/genai"
)

const geminiProvider = "gemini"

type GeminiServiceInterface interface {
	AIClient
	Embedder
}

type GeminiService struct {
	Client            *genai.Client
	Model             string
	EmbeddingModel    string
	MaxRetries        int
	EmbedRetries      int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RequestTimeout    time.Duration
	CircuitCooldown   time.Duration
	circuitBreakerMax int

	mu                sync.Mutex
	consecutiveErrors int
	openedAt          time.Time
}

func NewGeminiService(ctx context.Context) (*GeminiService, error) {
	geminiConfig := config.LoadGeminiConfig()
	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiService{
		Client:            client,
		Model:             geminiConfig.Model,
		EmbeddingModel:    geminiConfig.EmbeddingModel,
		MaxRetries:        geminiConfig.MaxRetries,
		EmbedRetries:      geminiConfig.EmbedRetries,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		RequestTimeout:    geminiConfig.RequestTimeout,
		CircuitCooldown:   geminiConfig.CircuitCooldown,
		circuitBreakerMax: 5,
	}, nil
}

func (s *GeminiService) Name() string { return geminiProvider }

// GenerateJSON sends prompt plus attachments and returns the raw JSON text
// of the first candidate.
func (s *GeminiService) GenerateJSON(ctx context.Context, prompt string, attachments ...Attachment) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, a := range attachments {
		if len(a.Data) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
	}

	var text string
	err := s.withRetry(ctx, "GenerateContent", s.MaxRetries, func(callCtx context.Context) error {
		result, err := s.Client.Models.GenerateContent(callCtx, s.Model, contents, genConfig)
		if err != nil {
			return err
		}
		if err := validateGenerateResponse(result); err != nil {
			return err
		}
		text = result.Text()
		return nil
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", &ProviderError{Provider: geminiProvider, Message: "empty response", Cause: ErrEmptyResponse}
	}
	return CleanJSONBlock(text), nil
}

func (s *GeminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	trimmedText := strings.TrimSpace(text)
	if trimmedText == "" {
		return nil, fmt.Errorf("text for embedding cannot be empty")
	}

	if len(trimmedText) > 10000 {
		log.Printf("Warning: text length %d exceeds recommended limit, truncating...", len(trimmedText))
		trimmedText = truncateUTF8(trimmedText, 10000)
	}

	content := []*genai.Content{genai.NewContentFromText(trimmedText, genai.RoleUser)}

	var embeddings []float32
	err := s.withRetry(ctx, "EmbedContent", s.EmbedRetries, func(callCtx context.Context) error {
		result, err := s.Client.Models.EmbedContent(callCtx, s.EmbeddingModel, content, nil)
		if err != nil {
			return err
		}
		embeddings, err = validateEmbeddingResponse(result)
		return err
	})
	return embeddings, err
}

// withRetry runs call with exponential backoff on retryable errors and feeds
// the circuit breaker. Calls abandoned by the caller are not counted.
func (s *GeminiService) withRetry(ctx context.Context, op string, maxRetries int, call func(context.Context) error) error {
	if count, ok := s.allowCall(); !ok {
		return &ProviderError{
			Provider: geminiProvider,
			Message:  fmt.Sprintf("too many consecutive errors (%d)", count),
			Cause:    ErrCircuitOpen,
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.RequestTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.calculateBackoff(attempt)
			log.Printf("Retry attempt %d/%d for %s after %v", attempt, maxRetries, op, delay)

			select {
			case <-time.After(delay):
			case <-timeoutCtx.Done():
				return fmt.Errorf("context timeout during retry: %w", timeoutCtx.Err())
			}
		}

		err := call(timeoutCtx)
		if err == nil {
			s.recordSuccess()
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			log.Printf("%s non-retryable error: %v", op, err)
			break
		}
		log.Printf("%s retryable error on attempt %d: %v", op, attempt+1, err)
	}

	if ctx.Err() == nil && !errors.Is(lastErr, context.Canceled) {
		s.recordFailure()
	}
	return toProviderError(lastErr)
}

func (s *GeminiService) calculateBackoff(attempt int) time.Duration {
	delay := s.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > s.MaxDelay {
		delay = s.MaxDelay
	}
	jitter := time.Duration(float64(delay) * 0.25)
	return delay - jitter/2 + time.Duration(float64(jitter)*0.5)
}

// allowCall reports whether a call may reach the provider. Once the breaker
// has been open for CircuitCooldown a single trial call is let through; its
// outcome closes the breaker or restarts the cooldown.
func (s *GeminiService) allowCall() (consecutiveErrors int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.circuitBreakerMax <= 0 || s.consecutiveErrors < s.circuitBreakerMax {
		return s.consecutiveErrors, true
	}
	if time.Since(s.openedAt) < s.CircuitCooldown {
		return s.consecutiveErrors, false
	}
	s.openedAt = time.Now()
	log.Println("Circuit breaker half-open, sending trial call")
	return s.consecutiveErrors, true
}

func (s *GeminiService) recordSuccess() {
	s.mu.Lock()
	s.consecutiveErrors = 0
	s.openedAt = time.Time{}
	s.mu.Unlock()
}

func (s *GeminiService) recordFailure() {
	s.mu.Lock()
	s.consecutiveErrors++
	if s.circuitBreakerMax > 0 && s.consecutiveErrors >= s.circuitBreakerMax {
		s.openedAt = time.Now()
	}
	s.mu.Unlock()
}

func (s *GeminiService) ResetCircuitBreaker() {
	s.recordSuccess()
	log.Println("Circuit breaker reset")
}

func (s *GeminiService) GetCircuitBreakerStatus() (consecutiveErrors int, isOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveErrors, s.circuitBreakerMax > 0 && s.consecutiveErrors >= s.circuitBreakerMax
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "temporary failure") ||
		strings.Contains(errMsg, "EOF")
}

func toProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: geminiProvider, StatusCode: apiErr.Code, Message: apiErr.Message, Cause: err}
	}
	return &ProviderError{Provider: geminiProvider, Message: err.Error(), Cause: err}
}

func validateGenerateResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("response is nil")
	}
	if len(resp.Candidates) == 0 {
		return fmt.Errorf("no candidates in response")
	}
	if resp.Candidates[0].Content == nil {
		return fmt.Errorf("candidate content is nil")
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("no parts in content")
	}
	return nil
}

func validateEmbeddingResponse(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil {
		return nil, fmt.Errorf("response is nil")
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	embeddings := resp.Embeddings[0].Values
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding vector is empty")
	}
	for i, val := range embeddings {
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil, fmt.Errorf("invalid embedding value at index %d: %v", i, val)
		}
	}
	return embeddings, nil
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !isRuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
