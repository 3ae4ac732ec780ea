// Package keyword 统计弹幕分词后的高频词及词频权重。
package keyword

import (
	"sort"
	"strings"
	"unicode/utf8"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/model"
	"DanmakuAnalysis/internal/sampling"

	"github.com/sirupsen/logrus"
)

const sampleSeed = 42

// Extractor 关键词提取
type Extractor struct {
	segmenter interfaces.Segmenter
	cfg       config.KeywordConfig
	logger    *logrus.Logger
}

// NewExtractor 创建关键词提取器
func NewExtractor(segmenter interfaces.Segmenter, cfg config.KeywordConfig, logger *logrus.Logger) *Extractor {
	return &Extractor{segmenter: segmenter, cfg: cfg, logger: logger}
}

type termCount struct {
	term  string
	count int
	first int
}

// Extract 合并全部文本后分词，过滤停用词和单字，按词频降序（同频按首次出现顺序）取前 topN。
// weight = count / 保留下来的总词数。topN <= 0 使用配置值
func (e *Extractor) Extract(texts []string, topN int) []model.KeywordItem {
	items := []model.KeywordItem{}
	if len(texts) == 0 {
		return items
	}
	if topN <= 0 {
		topN = e.cfg.TopN
	}

	if idx, sampled := sampling.SampleIndices(len(texts), e.cfg.MaxSampleSize, sampleSeed); sampled {
		e.logger.WithFields(logrus.Fields{
			"original": len(texts),
			"sample":   len(idx),
		}).Warn("弹幕数量过多，关键词分析进行随机采样")
		texts = sampling.Pick(texts, idx)
	}

	counts := make(map[string]*termCount)
	total := 0
	for _, tok := range e.segmenter.Tokenize(strings.Join(texts, " ")) {
		tok = strings.TrimSpace(tok)
		if utf8.RuneCountInString(tok) <= 1 || e.segmenter.IsStop(tok) {
			continue
		}
		tc, ok := counts[tok]
		if !ok {
			tc = &termCount{term: tok, first: total}
			counts[tok] = tc
		}
		tc.count++
		total++
	}
	if total == 0 {
		return items
	}

	ranked := make([]*termCount, 0, len(counts))
	for _, tc := range counts {
		ranked = append(ranked, tc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	for _, tc := range ranked {
		items = append(items, model.KeywordItem{
			Keyword:   tc.term,
			Frequency: tc.count,
			Weight:    float64(tc.count) / float64(total),
		})
	}
	return items
}
