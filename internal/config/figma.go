package config

import (
	"os"
	"sync"
	"time"
)

type FigmaConfig struct {
	// Token is the personal access token sent as X-Figma-Token. When empty the
	// adapter runs against the built-in mock design source.
	Token     string
	BaseURL   string
	OutputDir string
	// Timeout bounds one full adaptation run.
	Timeout time.Duration
}

var (
	figmaConfig *FigmaConfig
	figmaOnce   sync.Once
)

func LoadFigmaConfig() *FigmaConfig {
	figmaOnce.Do(func() {
		figmaConfig = &FigmaConfig{
			Token:     os.Getenv("FIGMA_TOKEN"),
			BaseURL:   getEnv("FIGMA_API_URL", "https://api.figma.com/v1"),
			OutputDir: getEnv("FIGMA_OUTPUT_DIR", "./generated/figma"),
			Timeout:   getEnvDuration("FIGMA_TIMEOUT", 30*time.Second),
		}
	})
	return figmaConfig
}
