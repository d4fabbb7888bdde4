package config

import (
	"os"
	"sync"
	"time"
)

type GeminiConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	// MaxRetries applies to content generation. The parse pipeline does not
	// retry provider calls, so the default is zero.
	MaxRetries     int
	EmbedRetries   int
	RequestTimeout time.Duration
	// CircuitCooldown is how long the breaker stays open before a trial call.
	CircuitCooldown time.Duration
}

var (
	geminiConfig *GeminiConfig
	geminiOnce   sync.Once
)

func LoadGeminiConfig() *GeminiConfig {
	geminiOnce.Do(func() {
		geminiConfig = &GeminiConfig{
			APIKey:          os.Getenv("GEMINI_API_KEY"),
			Model:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbeddingModel:  getEnv("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
			MaxRetries:      getEnvInt("GEMINI_MAX_RETRIES", 0),
			EmbedRetries:    getEnvInt("GEMINI_EMBED_RETRIES", 2),
			RequestTimeout:  getEnvDuration("GEMINI_REQUEST_TIMEOUT", 90*time.Second),
			CircuitCooldown: getEnvDuration("GEMINI_CIRCUIT_COOLDOWN", 30*time.Second),
		}
	})
	return geminiConfig
}
