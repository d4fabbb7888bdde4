package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/fadilmartias/cv-builder/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const openRouterProvider = "openrouter"

type OpenRouterServiceInterface interface {
	AIClient
}

type OpenRouterService struct {
	Model  string
	client *resty.Client
}

func NewOpenRouterService() (*OpenRouterService, error) {
	cfg := config.LoadOpenRouterConfig()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not set")
	}
	return NewOpenRouterServiceWithClient(cfg, resty.New()), nil
}

// NewOpenRouterServiceWithClient lets tests point the service at a fake
// server through cfg.BaseURL.
func NewOpenRouterServiceWithClient(cfg *config.OpenRouterConfig, client *resty.Client) *OpenRouterService {
	client.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.RequestTimeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	if cfg.Referer != "" {
		client.SetHeader("HTTP-Referer", cfg.Referer)
	}
	if cfg.AppTitle != "" {
		client.SetHeader("X-Title", cfg.AppTitle)
	}
	return &OpenRouterService{Model: cfg.Model, client: client}
}

func (s *OpenRouterService) Name() string { return openRouterProvider }

func (s *OpenRouterService) GenerateJSON(ctx context.Context, prompt string, attachments ...Attachment) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	content := []map[string]any{{"type": "text", "text": prompt}}
	for _, a := range attachments {
		if a.MIMEType != "application/pdf" || len(a.Data) == 0 {
			continue
		}
		// PDF dikirim sebagai data URL, parser di sisi OpenRouter yang baca isinya
		content = append(content, map[string]any{
			"type": "file",
			"file": map[string]string{
				"filename":  "resume.pdf",
				"file_data": "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(a.Data),
			},
		})
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model": s.Model,
			"messages": []map[string]any{
				{"role": "system", "content": "You convert documents into strict JSON. Reply with JSON only."},
				{"role": "user", "content": content},
			},
			"response_format": map[string]string{"type": "json_object"},
			"temperature":     0.1,
		}).
		Post("/chat/completions")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &ProviderError{Provider: openRouterProvider, Message: err.Error(), Cause: err}
	}

	body := resp.String()
	if resp.IsError() {
		msg := gjson.Get(body, "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		log.Printf("OpenRouter error %d: %s", resp.StatusCode(), msg)
		return "", &ProviderError{Provider: openRouterProvider, StatusCode: resp.StatusCode(), Message: msg}
	}

	text := gjson.Get(body, "choices.0.message.content").String()
	if strings.TrimSpace(text) == "" {
		return "", &ProviderError{Provider: openRouterProvider, Message: "no response from LLM", Cause: ErrEmptyResponse}
	}
	return CleanJSONBlock(text), nil
}
