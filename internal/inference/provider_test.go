package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/lexicon"
	"DanmakuAnalysis/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type stubBackend struct {
	device    model.DeviceClass
	loadErr   error
	loadDelay time.Duration
	loadCalls atomic.Int32

	mu           sync.Mutex
	predictCalls int
	predict      func(call int, texts []string) ([]model.SentimentLabel, error)
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Device() model.DeviceClass {
	if s.device == "" {
		return model.DeviceCPU
	}
	return s.device
}

func (s *stubBackend) Load(_ context.Context) error {
	s.loadCalls.Add(1)
	time.Sleep(s.loadDelay)
	return s.loadErr
}

func (s *stubBackend) Predict(_ context.Context, texts []string, _ int) ([]model.SentimentLabel, error) {
	s.mu.Lock()
	s.predictCalls++
	call := s.predictCalls
	s.mu.Unlock()
	if s.predict != nil {
		return s.predict(call, texts)
	}
	return repeat(model.LabelNegative, len(texts)), nil
}

func (s *stubBackend) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.predictCalls
}

func repeat(l model.SentimentLabel, n int) []model.SentimentLabel {
	out := make([]model.SentimentLabel, n)
	for i := range out {
		out[i] = l
	}
	return out
}

// fakeClock 手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() config.InferenceConfig {
	cfg := config.Default().Inference
	cfg.WarmupTexts = nil
	return cfg
}

func newTestProvider(backend *stubBackend, cfg config.InferenceConfig) *Provider {
	logger := newTestLogger()
	pool := lexicon.NewPool(lexicon.NewDefaultScorer(), config.Default().Sentiment, logger)
	if backend == nil {
		return NewProvider(nil, pool, cfg, logger)
	}
	return NewProvider(backend, pool, cfg, logger)
}

func TestProviderWithoutBackendFallsBack(t *testing.T) {
	p := newTestProvider(nil, testConfig())

	assert.False(t, p.IsReady())
	assert.False(t, p.Load(context.Background()))

	res, err := p.ClassifyBatch(context.Background(), []string{"好看", "垃圾", "路过"}, model.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []model.SentimentLabel{model.LabelPositive, model.LabelNegative, model.LabelNeutral}, res.Labels)
	assert.Equal(t, 3, res.FallbackCount)
}

func TestProviderConcurrentLoadOnce(t *testing.T) {
	backend := &stubBackend{loadDelay: 20 * time.Millisecond}
	p := newTestProvider(backend, testConfig())

	var wg sync.WaitGroup
	results := make([]bool, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.Load(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), backend.loadCalls.Load())
	for _, ok := range results {
		assert.True(t, ok)
	}
	assert.True(t, p.IsReady())
}

func TestProviderLoadFailureFallsBack(t *testing.T) {
	backend := &stubBackend{loadErr: model.ErrProviderUnavailable}
	p := newTestProvider(backend, testConfig())

	res, err := p.ClassifyBatch(context.Background(), []string{"好看"}, model.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []model.SentimentLabel{model.LabelPositive}, res.Labels)
	assert.Equal(t, 1, res.FallbackCount)
	assert.Zero(t, backend.calls())
	assert.False(t, p.IsReady())
}

func TestProviderBudgetDivertsRemainder(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := &stubBackend{}
	backend.predict = func(_ int, texts []string) ([]model.SentimentLabel, error) {
		clock.Advance(11 * time.Second)
		return repeat(model.LabelNegative, len(texts)), nil
	}
	p := newTestProvider(backend, testConfig())
	p.now = clock.Now

	texts := []string{"好看1", "好看2", "好看3", "好看4", "好看5", "好看6"}
	res, err := p.ClassifyBatch(context.Background(), texts, model.BatchOptions{BatchSize: 2, Budget: 10 * time.Second})
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.Equal(t, 4, res.FallbackCount)
	assert.Equal(t, 1, backend.calls())
	assert.Equal(t, []model.SentimentLabel{
		model.LabelNegative, model.LabelNegative,
		model.LabelPositive, model.LabelPositive, model.LabelPositive, model.LabelPositive,
	}, res.Labels)
}

func TestProviderBatchErrorFallsBackForThatBatchOnly(t *testing.T) {
	backend := &stubBackend{}
	backend.predict = func(call int, texts []string) ([]model.SentimentLabel, error) {
		if call == 2 {
			return nil, errors.New("boom")
		}
		return repeat(model.LabelNegative, len(texts)), nil
	}
	p := newTestProvider(backend, testConfig())

	texts := []string{"好看1", "好看2", "好看3", "好看4", "好看5", "好看6"}
	res, err := p.ClassifyBatch(context.Background(), texts, model.BatchOptions{BatchSize: 2})
	require.NoError(t, err)

	assert.False(t, res.TimedOut)
	assert.Equal(t, 2, res.FallbackCount)
	assert.Equal(t, []model.SentimentLabel{
		model.LabelNegative, model.LabelNegative,
		model.LabelPositive, model.LabelPositive,
		model.LabelNegative, model.LabelNegative,
	}, res.Labels)

	st := p.Stats()
	assert.Equal(t, int64(3), st.TotalCalls)
	assert.Equal(t, int64(1), st.FailedCalls)
	assert.Equal(t, int64(2), st.SuccessfulCalls)
	assert.InDelta(t, 66.67, st.SuccessRate, 0.001)
	// 失败批次不写缓存
	assert.Equal(t, 4, st.CacheSize)
}

func TestProviderLengthMismatchTreatedAsFailure(t *testing.T) {
	backend := &stubBackend{}
	backend.predict = func(_ int, texts []string) ([]model.SentimentLabel, error) {
		return []model.SentimentLabel{model.LabelNegative}, nil
	}
	p := newTestProvider(backend, testConfig())

	res, err := p.ClassifyBatch(context.Background(), []string{"好看", "精彩"}, model.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FallbackCount)
	assert.Equal(t, []model.SentimentLabel{model.LabelPositive, model.LabelPositive}, res.Labels)
}

func TestProviderCacheAndEmptyTexts(t *testing.T) {
	backend := &stubBackend{}
	p := newTestProvider(backend, testConfig())
	ctx := context.Background()

	texts := []string{"第一条", "  ", "第二条"}
	res, err := p.ClassifyBatch(ctx, texts, model.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []model.SentimentLabel{model.LabelNegative, model.LabelNeutral, model.LabelNegative}, res.Labels)
	assert.Equal(t, 1, backend.calls())

	res, err = p.ClassifyBatch(ctx, texts, model.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []model.SentimentLabel{model.LabelNegative, model.LabelNeutral, model.LabelNegative}, res.Labels)
	assert.Equal(t, 1, backend.calls(), "cached texts must not hit the backend")

	assert.True(t, p.ClearCache())
	assert.Zero(t, p.Stats().CacheSize)
}

func TestProviderCacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.CacheEnabled = false
	backend := &stubBackend{}
	p := newTestProvider(backend, cfg)

	for range 2 {
		_, err := p.ClassifyBatch(context.Background(), []string{"同一条"}, model.BatchOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backend.calls())
	assert.False(t, p.ClearCache())
	assert.False(t, p.Stats().CacheEnabled)
}

func TestProviderTruncatesBeforeCaching(t *testing.T) {
	backend := &stubBackend{}
	var seen []string
	backend.predict = func(_ int, texts []string) ([]model.SentimentLabel, error) {
		seen = append(seen, texts...)
		return repeat(model.LabelNeutral, len(texts)), nil
	}
	p := newTestProvider(backend, testConfig())

	_, err := p.ClassifyBatch(context.Background(), []string{" 前方高能预警 "}, model.BatchOptions{MaxTextLength: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"前方高能"}, seen)
}

func TestProviderWarmUpPrimesCache(t *testing.T) {
	cfg := testConfig()
	cfg.WarmupTexts = []string{"这个视频很棒", "泪目"}
	backend := &stubBackend{}
	p := newTestProvider(backend, cfg)

	require.True(t, p.Load(context.Background()))
	assert.Equal(t, 2, p.Stats().CacheSize)

	_, err := p.ClassifyBatch(context.Background(), []string{"泪目"}, model.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls())
}

func TestProviderCanceledContext(t *testing.T) {
	p := newTestProvider(&stubBackend{}, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ClassifyBatch(ctx, []string{"好看"}, model.BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutoBatchSize(t *testing.T) {
	cpu := newTestProvider(&stubBackend{device: model.DeviceCPU}, testConfig())
	gpu := newTestProvider(&stubBackend{device: model.DeviceGPU}, testConfig())

	cases := []struct {
		n        int
		cpu, gpu int
	}{
		{20000, 64, 256},
		{6000, 48, 192},
		{1001, 32, 128},
		{1000, 16, 64},
		{10, 16, 64},
	}
	for _, c := range cases {
		assert.Equal(t, c.cpu, cpu.autoBatchSize(c.n), fmt.Sprintf("cpu n=%d", c.n))
		assert.Equal(t, c.gpu, gpu.autoBatchSize(c.n), fmt.Sprintf("gpu n=%d", c.n))
	}
}

func TestClampBudget(t *testing.T) {
	p := newTestProvider(&stubBackend{}, testConfig())
	assert.Equal(t, 300*time.Second, p.clampBudget(0))
	assert.Equal(t, 10*time.Second, p.clampBudget(time.Second))
	assert.Equal(t, 600*time.Second, p.clampBudget(time.Hour))
	assert.Equal(t, 42*time.Second, p.clampBudget(42*time.Second))
}

func TestProviderStatsReset(t *testing.T) {
	p := newTestProvider(&stubBackend{device: model.DeviceGPU}, testConfig())
	_, err := p.ClassifyBatch(context.Background(), []string{"a", "b"}, model.BatchOptions{})
	require.NoError(t, err)

	st := p.Stats()
	assert.Equal(t, int64(1), st.TotalCalls)
	assert.Equal(t, int64(2), st.TotalProcessedTexts)
	assert.Equal(t, model.DeviceGPU, st.Device)
	assert.True(t, st.Ready)
	assert.Equal(t, 20000, st.CacheLimit)

	p.ResetStats()
	st = p.Stats()
	assert.Zero(t, st.TotalCalls)
	assert.Zero(t, st.TotalProcessedTexts)
}
