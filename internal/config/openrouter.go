package config

import (
	"os"
	"sync"
	"time"
)

type OpenRouterConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	AppTitle       string
	Referer        string
	RequestTimeout time.Duration
}

var (
	openRouterConfig *OpenRouterConfig
	openRouterOnce   sync.Once
)

func LoadOpenRouterConfig() *OpenRouterConfig {
	openRouterOnce.Do(func() {
		openRouterConfig = &OpenRouterConfig{
			APIKey:         os.Getenv("OPENROUTER_API_KEY"),
			BaseURL:        getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:          getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
			AppTitle:       os.Getenv("OPENROUTER_APP_TITLE"),
			Referer:        os.Getenv("OPENROUTER_REFERER"),
			RequestTimeout: getEnvDuration("OPENROUTER_REQUEST_TIMEOUT", 60*time.Second),
		}
	})
	return openRouterConfig
}
