package sentiment

import (
	"context"
	"math"
	"time"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/lexicon"
	"DanmakuAnalysis/internal/model"
	"DanmakuAnalysis/internal/sampling"

	"github.com/sirupsen/logrus"
)

// Item 单条弹幕的分类结果，Index 指向 Analyze 输入中的下标
type Item struct {
	Index int
	Label model.SentimentLabel
	Score float64
}

// Result Analyze 的输出：汇总报告（Segments 由调用方按时间轴补齐）与逐条结果
type Result struct {
	Report model.SentimentReport
	Items  []Item
}

// Pipeline 情感分析流程：采样、预处理、模型或词表分类、汇总
type Pipeline struct {
	provider interfaces.InferenceProvider // 可为 nil
	fallback *lexicon.Pool
	cfg      config.SentimentConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPipeline 创建情感分析流程
func NewPipeline(provider interfaces.InferenceProvider, fallback *lexicon.Pool, cfg config.SentimentConfig, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		provider: provider,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyze 对一组弹幕文本做情感分析，推理相关的失败都在内部降级为词表，不返回错误
func (p *Pipeline) Analyze(ctx context.Context, texts []string, opts model.AnalysisOptions) Result {
	start := p.now()
	if len(texts) == 0 {
		return Result{Report: EmptyReport(), Items: []Item{}}
	}

	idx, sampled := sampling.SampleIndices(len(texts), p.cfg.MaxSampleSize, p.cfg.SampleSeed)
	if sampled {
		p.logger.WithFields(logrus.Fields{
			"original": len(texts),
			"sample":   len(idx),
		}).Warn("弹幕数量过多，进行随机采样")
	}

	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = p.cfg.MaxTextLength
	}
	processed := sampling.Preprocess(sampling.Pick(texts, idx), opts.MaxTextLength)

	report := model.SentimentReport{
		Message:      "情感分析完成",
		Sampled:      sampled,
		SampleSize:   len(processed),
		OriginalSize: len(texts),
		Segments:     []model.SentimentSegment{},
	}

	useModel := opts.UseModel
	if useModel && p.cfg.AutoDowngradeThreshold > 0 && len(processed) > p.cfg.AutoDowngradeThreshold {
		p.logger.WithField("texts", len(processed)).Warn("弹幕数量超过自动降级阈值，改用词表分析")
		report.AutoDowngraded = true
		useModel = false
	}

	var labels []model.SentimentLabel
	if useModel {
		labels = p.classifyWithModel(ctx, processed, opts, &report)
	} else {
		p.logger.WithField("texts", len(processed)).Info("使用词表进行情感分析")
		labels = p.fallback.Classify(processed)
	}
	if report.AutoDowngraded {
		report.Degraded = true
	}

	items := make([]Item, len(labels))
	var counts model.SentimentCounts
	for i, l := range labels {
		counts.Add(l)
		items[i] = Item{Index: idx[i], Label: l, Score: l.EventScore()}
	}

	report.SentimentCounts = counts
	report.SentimentScore = Score(counts)
	report.ScoreLevel = ScoreLevel(report.SentimentScore)
	report.Visualization = Visualize(counts, report.SentimentScore)
	report.ProcessingTimeMs = p.now().Sub(start).Milliseconds()
	return Result{Report: report, Items: items}
}

// classifyWithModel 模型路径。模型不可用或调用出错时整体走词表，超预算时仅剩余部分走词表
func (p *Pipeline) classifyWithModel(ctx context.Context, texts []string, opts model.AnalysisOptions, report *model.SentimentReport) []model.SentimentLabel {
	if p.provider == nil || (!p.provider.IsReady() && !p.provider.Load(ctx)) {
		p.logger.Warn("情感模型不可用，回退到词表分析")
		report.Degraded = true
		report.FallbackCount = len(texts)
		return p.fallback.Classify(texts)
	}

	budget := opts.MaxProcessingTime
	if budget <= 0 {
		budget = p.cfg.MaxProcessingDuration()
	}
	res, err := p.provider.ClassifyBatch(ctx, texts, model.BatchOptions{
		BatchSize:     opts.BatchSize,
		MaxTextLength: opts.MaxTextLength,
		Budget:        budget,
	})
	if err != nil || len(res.Labels) != len(texts) {
		p.logger.WithError(err).Error("模型情感分析失败，回退到词表分析")
		report.Degraded = true
		report.FallbackCount = len(texts)
		return p.fallback.Classify(texts)
	}

	report.UsedModel = res.FallbackCount < len(texts)
	report.FallbackCount = res.FallbackCount
	report.Degraded = res.TimedOut || res.FallbackCount > 0
	p.logger.WithFields(logrus.Fields{
		"texts":     len(texts),
		"fallback":  res.FallbackCount,
		"timed_out": res.TimedOut,
	}).Info("模型情感分析完成")
	return res.Labels
}

// EmptyReport 无弹幕时的零值报告
func EmptyReport() model.SentimentReport {
	return model.SentimentReport{
		Message:       "没有可分析的弹幕",
		ScoreLevel:    "neutral",
		Visualization: Visualize(model.SentimentCounts{}, 0),
		Segments:      []model.SentimentSegment{},
	}
}

// Score (positive - negative) / total，取值 [-1, 1]，无数据为 0
func Score(c model.SentimentCounts) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.Positive-c.Negative) / float64(total)
}

// ScoreLevel 情感强度等级
func ScoreLevel(score float64) string {
	switch {
	case score > 0.5:
		return "very_positive"
	case score > 0.1:
		return "positive"
	case score < -0.5:
		return "very_negative"
	case score < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}

// Visualize 百分比（保留一位小数）、主导情感（并列时按 positive/neutral/negative 顺序取先者）
func Visualize(c model.SentimentCounts, score float64) model.SentimentVisualization {
	total := c.Total()
	v := model.SentimentVisualization{
		Percentages: map[model.SentimentLabel]float64{
			model.LabelPositive: 0,
			model.LabelNeutral:  0,
			model.LabelNegative: 0,
		},
		Dominant:   model.LabelNeutral,
		ScoreLevel: ScoreLevel(score),
	}
	if total == 0 {
		return v
	}

	pct := func(n int) float64 { return math.Round(float64(n)/float64(total)*1000) / 10 }
	v.Percentages[model.LabelPositive] = pct(c.Positive)
	v.Percentages[model.LabelNeutral] = pct(c.Neutral)
	v.Percentages[model.LabelNegative] = pct(c.Negative)

	v.Dominant = model.LabelPositive
	best := c.Positive
	if c.Neutral > best {
		v.Dominant, best = model.LabelNeutral, c.Neutral
	}
	if c.Negative > best {
		v.Dominant = model.LabelNegative
	}
	return v
}
