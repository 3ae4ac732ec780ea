// Package inference 包装外部情感模型：单次加载、文本缓存、按批计时的预算控制，
// 以及失败批次和超预算剩余部分的词表兜底。
package inference

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/lexicon"
	"DanmakuAnalysis/internal/model"
	"DanmakuAnalysis/internal/sampling"

	"github.com/sirupsen/logrus"
)

const defaultBudget = 300 * time.Second

// Provider 实现 interfaces.InferenceProvider。backend 为 nil 时永远不可用，所有文本走词表
type Provider struct {
	backend  interfaces.ModelBackend
	fallback *lexicon.Pool
	cache    *LabelCache // cache_enabled=false 时为 nil
	cfg      config.InferenceConfig
	logger   *logrus.Logger
	now      func() time.Time

	loadMu sync.Mutex
	loaded atomic.Bool
	stats  *statsRecorder
}

var _ interfaces.InferenceProvider = (*Provider)(nil)

// NewProvider 创建推理适配器
func NewProvider(backend interfaces.ModelBackend, fallback *lexicon.Pool, cfg config.InferenceConfig, logger *logrus.Logger) *Provider {
	p := &Provider{
		backend:  backend,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	if cfg.CacheEnabled {
		p.cache = NewLabelCache(cfg.CacheSize, cfg.EvictRatio, PolicyByName(cfg.EvictionPolicy))
	}
	p.stats = newStatsRecorder(p.now())
	return p
}

// IsReady 模型是否已加载
func (p *Provider) IsReady() bool {
	return p.backend != nil && p.loaded.Load()
}

// Load 加载模型（幂等）。并发调用时只有一个调用方真正加载，其余在锁后看到已加载。
// 首次加载成功后用预热文本跑一遍
func (p *Provider) Load(ctx context.Context) bool {
	if p.backend == nil {
		return false
	}
	if p.loaded.Load() {
		return true
	}

	p.loadMu.Lock()
	if p.loaded.Load() {
		p.loadMu.Unlock()
		return true
	}
	start := p.now()
	if err := p.backend.Load(ctx); err != nil {
		p.loadMu.Unlock()
		p.logger.WithError(err).WithField("backend", p.backend.Name()).Warn("情感模型加载失败，使用词表兜底")
		return false
	}
	p.loaded.Store(true)
	p.loadMu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"backend": p.backend.Name(),
		"device":  p.backend.Device(),
		"elapsed": p.now().Sub(start).String(),
	}).Info("情感模型加载成功")
	p.warmUp(ctx)
	return true
}

func (p *Provider) warmUp(ctx context.Context) {
	if len(p.cfg.WarmupTexts) == 0 {
		return
	}
	start := p.now()
	res, err := p.ClassifyBatch(ctx, p.cfg.WarmupTexts, model.BatchOptions{BatchSize: len(p.cfg.WarmupTexts)})
	if err != nil || res.FallbackCount > 0 {
		p.logger.WithError(err).WithField("fallback", res.FallbackCount).Warn("情感模型预热未完全成功")
		return
	}
	p.logger.WithField("elapsed", p.now().Sub(start).String()).Info("情感模型预热完成")
}

// ClassifyBatch 批量分类，Labels 与输入等长同序。
// 空文本直接判中性；缓存命中不再推理；每个子批次开始前检查累计耗时，超出预算后剩余文本走词表；
// 单个子批次失败只让该批次走词表。仅当 ctx 在开始前已取消时返回错误
func (p *Provider) ClassifyBatch(ctx context.Context, texts []string, opts model.BatchOptions) (model.Classification, error) {
	if len(texts) == 0 {
		return model.Classification{Labels: []model.SentimentLabel{}}, nil
	}
	if err := ctx.Err(); err != nil {
		return model.Classification{}, err
	}

	processed := make([]string, len(texts))
	for i, t := range texts {
		processed[i] = sampling.Truncate(t, opts.MaxTextLength)
	}

	if !p.IsReady() && !p.Load(ctx) {
		return model.Classification{
			Labels:        p.fallback.Classify(processed),
			FallbackCount: len(processed),
		}, nil
	}

	labels := make([]model.SentimentLabel, len(processed))
	var hits map[int]model.SentimentLabel
	if p.cache != nil {
		hits = p.cache.Lookup(processed)
	}
	pendingIdx := make([]int, 0, len(processed))
	for i, t := range processed {
		if t == "" {
			labels[i] = model.LabelNeutral
			continue
		}
		if l, ok := hits[i]; ok {
			labels[i] = l
			continue
		}
		pendingIdx = append(pendingIdx, i)
	}
	if len(pendingIdx) == 0 {
		return model.Classification{Labels: labels}, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = p.autoBatchSize(len(processed))
	}
	budget := p.clampBudget(opts.Budget)

	p.logger.WithFields(logrus.Fields{
		"texts":      len(pendingIdx),
		"cached":     len(hits),
		"batch_size": batchSize,
		"budget":     budget.String(),
	}).Info("开始模型情感分类")

	var out model.Classification
	start := p.now()
	for from := 0; from < len(pendingIdx); from += batchSize {
		if elapsed := p.now().Sub(start); elapsed > budget {
			rest := pendingIdx[from:]
			p.logger.WithFields(logrus.Fields{
				"elapsed":   elapsed.String(),
				"processed": from,
				"remaining": len(rest),
			}).Warn("模型处理超出时间预算，剩余文本改用词表")
			fill(labels, rest, p.fallback.Classify(sampling.Pick(processed, rest)))
			out.FallbackCount += len(rest)
			out.TimedOut = true
			break
		}

		idx := pendingIdx[from:min(from+batchSize, len(pendingIdx))]
		batch := sampling.Pick(processed, idx)
		batchStart := p.now()
		got, err := p.backend.Predict(ctx, batch, opts.MaxTextLength)
		if err == nil && len(got) != len(batch) {
			err = model.ErrProviderFailure
		}
		p.stats.record(err == nil, len(batch), p.now().Sub(batchStart))
		if err != nil {
			p.logger.WithError(err).WithField("batch", len(batch)).Warn("模型批次处理失败，该批次改用词表")
			got = p.fallback.Classify(batch)
			out.FallbackCount += len(batch)
		} else if p.cache != nil {
			p.cache.PutAll(batch, got)
		}
		fill(labels, idx, got)
	}

	out.Labels = labels
	return out, nil
}

func fill(labels []model.SentimentLabel, idx []int, got []model.SentimentLabel) {
	for j, i := range idx {
		labels[i] = got[j]
	}
}

// autoBatchSize 按设备和文本量选择批大小（>10000 / >5000 / >1000 / 其余 四档）
func (p *Provider) autoBatchSize(n int) int {
	tiers := p.cfg.CPUBatchTiers
	fallback := []int{64, 48, 32, 16}
	if p.backend != nil && p.backend.Device() == model.DeviceGPU {
		tiers = p.cfg.GPUBatchTiers
		fallback = []int{256, 192, 128, 64}
	}
	volumes := p.cfg.VolumeTiers
	if len(volumes) == 0 {
		volumes = []int{10000, 5000, 1000}
	}
	if len(tiers) != len(volumes)+1 {
		tiers = fallback
		volumes = []int{10000, 5000, 1000}
	}
	for i, v := range volumes {
		if n > v {
			return tiers[i]
		}
	}
	return tiers[len(volumes)]
}

func (p *Provider) clampBudget(b time.Duration) time.Duration {
	if b <= 0 {
		b = defaultBudget
	}
	if lo := time.Duration(p.cfg.MinBudget) * time.Second; lo > 0 && b < lo {
		b = lo
	}
	if hi := time.Duration(p.cfg.MaxBudget) * time.Second; hi > 0 && b > hi {
		b = hi
	}
	return b
}

// Stats 运行统计快照
func (p *Provider) Stats() model.PerformanceStats {
	st := p.stats.snapshot(p.now())
	st.Device = model.DeviceCPU
	if p.backend != nil {
		st.Device = p.backend.Device()
	}
	st.Ready = p.IsReady()
	st.CacheEnabled = p.cache != nil
	if p.cache != nil {
		st.CacheSize = p.cache.Len()
		st.CacheLimit = p.cache.Capacity()
	}
	return st
}

// ClearCache 清空文本缓存，未启用缓存时返回 false
func (p *Provider) ClearCache() bool {
	if p.cache == nil {
		return false
	}
	p.cache.Clear()
	p.logger.Info("情感模型结果缓存已清空")
	return true
}

// ResetStats 重置运行统计
func (p *Provider) ResetStats() {
	p.stats.reset(p.now())
}
