package config

import (
	"os"
	"sync"
)

// JWTConfig describes how bearer tokens minted by the auth provider are verified.
type JWTConfig struct {
	Secret string
	Issuer string
}

var (
	jwtConfig *JWTConfig
	jwtOnce   sync.Once
)

func LoadJWTConfig() *JWTConfig {
	jwtOnce.Do(func() {
		jwtConfig = &JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: os.Getenv("JWT_ISSUER"),
		}
	})
	return jwtConfig
}
