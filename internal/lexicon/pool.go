package lexicon

import (
	"fmt"
	"runtime"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Pool 大批量文本的词表并行判断。文本按固定大小分块，由有界协程池处理，
// 结果按原始下标写回，与完成顺序无关
type Pool struct {
	classify  func(string) model.SentimentLabel
	threshold int // 超过该条数才并行
	chunkSize int
	workers   int
	logger    *logrus.Logger
}

// NewPool 创建并行判断池，协程数为 min(max_workers, CPU数+4)
func NewPool(scorer *Scorer, cfg config.SentimentConfig, logger *logrus.Logger) *Pool {
	workers := runtime.NumCPU() + 4
	if cfg.MaxWorkers > 0 && cfg.MaxWorkers < workers {
		workers = cfg.MaxWorkers
	}
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = 500
	}
	return &Pool{
		classify:  scorer.Classify,
		threshold: cfg.ParallelThreshold,
		chunkSize: chunk,
		workers:   workers,
		logger:    logger,
	}
}

// Classify 判断全部文本，单条失败记为中性并记录日志，不中断整批
func (p *Pool) Classify(texts []string) []model.SentimentLabel {
	labels := make([]model.SentimentLabel, len(texts))
	if len(texts) <= p.threshold {
		for i, t := range texts {
			labels[i] = p.safeClassify(i, t)
		}
		return labels
	}

	p.logger.WithFields(logrus.Fields{
		"texts":   len(texts),
		"chunk":   p.chunkSize,
		"workers": p.workers,
	}).Info("使用并行处理加速词表情感分析")

	var g errgroup.Group
	g.SetLimit(p.workers)
	for start := 0; start < len(texts); start += p.chunkSize {
		end := min(start+p.chunkSize, len(texts))
		g.Go(func() error {
			for i := start; i < end; i++ {
				labels[i] = p.safeClassify(i, texts[i])
			}
			return nil
		})
	}
	_ = g.Wait() // 分块协程不返回错误
	return labels
}

func (p *Pool) safeClassify(idx int, text string) (label model.SentimentLabel) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{
				"index": idx,
				"panic": fmt.Sprint(r),
			}).Warn("词表情感判断失败，按中性处理")
			label = model.LabelNeutral
		}
	}()
	return p.classify(text)
}
