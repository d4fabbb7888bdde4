package config

import (
	"log"
	"os"
	"sync"
	"time"
)

type AppConfig struct {
	Name    string
	Env     string
	Port    string
	BaseURL string
	// StreamTimeout bounds a single streamed parse request.
	StreamTimeout time.Duration
	ChromePath    string
	// Debug adds raw causes and stack traces to error responses outside
	// production.
	Debug bool
}

var (
	appConfig *AppConfig
	appOnce   sync.Once
)

func LoadAppConfig() *AppConfig {
	appOnce.Do(func() {
		appConfig = readAppConfig()
	})
	return appConfig
}

func readAppConfig() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "production"
		log.Printf("Warning: APP_ENV not set, defaulting to %s", env)
	}
	return &AppConfig{
		Name:          getEnv("APP_NAME", "cv-builder"),
		Env:           env,
		Port:          getEnv("APP_PORT", ":8080"),
		BaseURL:       os.Getenv("APP_URL"),
		StreamTimeout: getEnvDuration("APP_STREAM_TIMEOUT", 3*time.Minute),
		ChromePath:    os.Getenv("CHROME_PATH"),
		Debug:         getEnvBool("APP_DEBUG", false),
	}
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// ExposeErrors reports whether error responses may carry internal details.
func (c *AppConfig) ExposeErrors() bool {
	return c.Debug && !c.IsProduction()
}
