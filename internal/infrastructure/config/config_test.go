package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 168*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "settleup", cfg.Mongo.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Stripe.DedupTTL)
	assert.Empty(t, cfg.Redis.Password)
	assert.Equal(t, 8, cfg.Notify.Workers)
	assert.Equal(t, 5, cfg.Notify.WorkerConcurrency)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_SessionSecretFallsBackToJWTSecret(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":       "s3cret",
		"GOOGLE_CLIENT_ID": "client.apps.googleusercontent.com",
		"ENV":              "production",
	}))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Google.SessionSecret)
	assert.True(t, cfg.IsProduction())
}
