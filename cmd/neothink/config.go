package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"neothink/internal/server"
	"neothink/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
)

func loadConfig(prefix string) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	if c.DigestHour < 0 || c.DigestHour > 23 {
		return nil, fmt.Errorf("DIGEST_HOUR must be between 0 and 23, got %d", c.DigestHour)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return c, nil
}

// requireServeConfig checks the settings only the HTTP server needs.
func requireServeConfig(c *types.Config) error {
	missing := map[string]string{
		"SUPABASE_URL":         c.SupabaseURL,
		"SUPABASE_PROJECT_REF": c.SupabaseProjectRef,
		"SUPABASE_ANON_KEY":    c.SupabaseAnonKey,
		"COOKIE_HASH_KEY":      c.CookieHashKey,
		"COOKIE_BLOCK_KEY":     c.CookieBlockKey,
		"STORAGE_S3_ENDPOINT":  c.StorageEndpoint,
	}
	for name, value := range missing {
		if value == "" {
			return fmt.Errorf("set %s", name)
		}
	}

	if _, err := server.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	return nil
}

func cookieKeys(c *types.Config) ([]byte, []byte, error) {
	hashKey, err := base64.StdEncoding.DecodeString(c.CookieHashKey)
	if err != nil {
		return nil, nil, fmt.Errorf("decode COOKIE_HASH_KEY: %w", err)
	}
	if len(hashKey) != 32 && len(hashKey) != 64 {
		return nil, nil, fmt.Errorf("COOKIE_HASH_KEY must decode to 32 or 64 bytes, got %d", len(hashKey))
	}

	blockKey, err := base64.StdEncoding.DecodeString(c.CookieBlockKey)
	if err != nil {
		return nil, nil, fmt.Errorf("decode COOKIE_BLOCK_KEY: %w", err)
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, nil, fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes, got %d", len(blockKey))
	}

	return hashKey, blockKey, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}
