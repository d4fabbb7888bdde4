package config

import (
	"sync"
	"time"
)

type FeatureConfig struct {
	// AIProvider selects the model backend: "gemini" or "openrouter".
	AIProvider string
	// AIExtraction disables the AI strategy entirely when false, leaving
	// only the regex extractor.
	AIExtraction bool
	// Tailoring toggles the job tailoring feature.
	Tailoring bool
	// AITimeout bounds each extraction or tailoring call.
	AITimeout time.Duration
	// GuestPersist keeps unauthenticated resumes for GuestTTL instead of
	// GuestSessionTTL.
	GuestPersist    bool
	GuestTTL        time.Duration
	GuestSessionTTL time.Duration
}

var (
	featureConfig *FeatureConfig
	featureOnce   sync.Once
)

func LoadFeatureConfig() *FeatureConfig {
	featureOnce.Do(func() {
		featureConfig = &FeatureConfig{
			AIProvider:      getEnv("AI_PROVIDER", "gemini"),
			AIExtraction:    getEnvBool("AI_EXTRACTION_ENABLED", true),
			Tailoring:       getEnvBool("JOB_TAILORING_ENABLED", true),
			AITimeout:       getEnvDuration("AI_TIMEOUT", 60*time.Second),
			GuestPersist:    getEnvBool("GUEST_PERSIST", false),
			GuestTTL:        getEnvDuration("GUEST_TTL", 7*24*time.Hour),
			GuestSessionTTL: getEnvDuration("GUEST_SESSION_TTL", 30*time.Minute),
		}
	})
	return featureConfig
}

// EffectiveGuestTTL is the eviction window applied to guest resumes.
func (c *FeatureConfig) EffectiveGuestTTL() time.Duration {
	if c.GuestPersist {
		return c.GuestTTL
	}
	return c.GuestSessionTTL
}
