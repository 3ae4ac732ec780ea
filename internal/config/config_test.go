package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 15000, cfg.Sentiment.MaxSampleSize)
	assert.Equal(t, int64(42), cfg.Sentiment.SampleSeed)
	assert.Equal(t, 100000, cfg.Sentiment.AutoDowngradeThreshold)
	assert.Equal(t, 300*time.Second, cfg.Sentiment.MaxProcessingDuration())
	assert.Equal(t, int64(30000), cfg.Sentiment.SegmentWidthMs())
	assert.Equal(t, 50, cfg.Keyword.TopN)
	assert.Equal(t, 1.5, cfg.Timeline.PeakStdThreshold)
	assert.Equal(t, 20, cfg.Timeline.TopNPeaks)
	assert.Equal(t, 20, cfg.UserActivity.TopUsers)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []int{256, 192, 128, 64}, cfg.Inference.GPUBatchTiers)
	assert.Equal(t, []int{10000, 5000, 1000}, cfg.Inference.VolumeTiers)
	assert.Equal(t, "fifo", cfg.Inference.EvictionPolicy)
	assert.NotEmpty(t, cfg.Inference.WarmupTexts)
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte("server:\n  port: 9100\nsentiment:\n  segment_width: 60\ninference:\n  provider: http\n  api_key: from-yaml\ncache:\n  ttl: 2h\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), yaml, 0o644))
	t.Chdir(dir)
	t.Setenv("INFERENCE_API_KEY", "from-env")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/danmaku")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, int64(60000), cfg.Sentiment.SegmentWidthMs())
	assert.Equal(t, "http", cfg.Inference.Provider)
	assert.Equal(t, "from-env", cfg.Inference.APIKey)
	assert.Equal(t, "postgres://u:p@localhost:5432/danmaku", cfg.Database.DSN)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	// 未写入 yaml 的键仍取默认值
	assert.Equal(t, 15000, cfg.Sentiment.MaxSampleSize)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestGetGORMConfig(t *testing.T) {
	for _, level := range []string{"silent", "error", "warn", "info", ""} {
		d := DatabaseConfig{LogLevel: level}
		assert.NotNil(t, d.GetGORMConfig().Logger, level)
	}
}
