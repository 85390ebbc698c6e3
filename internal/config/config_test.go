package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PIPELINE_HIGH_THRESHOLD", "")
	t.Setenv("RETRY_STRATEGIES", "")

	cfg := Load()
	assert.Equal(t, 0.8, cfg.Pipeline.HighThreshold)
	assert.Equal(t, []string{"bypass_cache"}, cfg.Pipeline.RetryStrategies)
	assert.Equal(t, 24*time.Hour, cfg.Cache.StalenessWindow)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PIPELINE_MAX_RETRIES", "3")
	t.Setenv("CACHE_STALENESS_WINDOW", "90s")
	t.Setenv("PROVIDER_MOCK_FALLBACK", "false")
	t.Setenv("RETRY_STRATEGIES", "bypass_cache, use_mock ,")
	t.Setenv("RETRIEVAL_EXACT_WEIGHT", "0.7")

	cfg := Load()
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 90*time.Second, cfg.Cache.StalenessWindow)
	assert.False(t, cfg.Provider.MockFallback)
	assert.Equal(t, []string{"bypass_cache", "use_mock"}, cfg.Pipeline.RetryStrategies)
	assert.Equal(t, 0.7, cfg.Retrieval.ExactWeight)
}
