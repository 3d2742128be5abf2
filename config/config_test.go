package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.RecentTransactionLimit)
		assert.Equal(t, 90, cfg.InsightsWindowDays)
		assert.Equal(t, 30, cfg.TopCategoriesDays)
	})

	t.Run("Should trim trailing slash from Supabase URL", func(t *testing.T) {
		t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseUrl)
	})

	t.Run("Should parse durations in both formats", func(t *testing.T) {
		t.Setenv("AGGREGATION_TIMEOUT", "3s")
		t.Setenv("OAUTH_STATE_TTL", "120")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, cfg.AggregationTimeout)
		assert.Equal(t, 2*time.Minute, cfg.OAuthStateTTL)
	})

	t.Run("Should fall back on invalid values", func(t *testing.T) {
		t.Setenv("RECENT_TRANSACTION_LIMIT", "ten")
		t.Setenv("OTEL_INSECURE", "maybe")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.RecentTransactionLimit)
		assert.False(t, cfg.TelemetryInsecure)
	})

	t.Run("Should split allowed origins", func(t *testing.T) {
		t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, ,tauri://localhost")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"http://localhost:5173", "tauri://localhost"}, cfg.AllowedOrigins)
	})
}
