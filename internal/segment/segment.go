// Package segment 把已分类的弹幕按固定宽度的绝对时间窗分组，给出每段的情感趋势。
package segment

import (
	"math"
	"sort"

	"DanmakuAnalysis/internal/model"
	"DanmakuAnalysis/internal/timeline"
)

// DefaultWidthMs 默认分段宽度 30 秒
const DefaultWidthMs int64 = 30_000

// Input 一条已分类的弹幕
type Input struct {
	Event model.DanmakuEvent
	Label model.SentimentLabel
	Score float64
}

type bucket struct {
	seg   model.SentimentSegment
	total float64
}

// Aggregate 按 [k·width, (k+1)·width) 分段统计，返回按起点排序的分段及无法定位而跳过的条数
func Aggregate(inputs []Input, boundaries []model.EpisodeBoundary, widthMs int64) (segments []model.SentimentSegment, skipped int) {
	segments = []model.SentimentSegment{}
	if widthMs <= 0 {
		widthMs = DefaultWidthMs
	}
	if len(inputs) == 0 {
		return segments, 0
	}

	starts := timeline.PageStarts(boundaries)
	buckets := make(map[int64]*bucket)
	for _, in := range inputs {
		ms, ok := timeline.AbsoluteMs(in.Event, starts)
		if !ok {
			skipped++
			continue
		}
		start := int64(math.Floor(ms/float64(widthMs))) * widthMs
		b, ok := buckets[start]
		if !ok {
			b = &bucket{seg: model.SentimentSegment{SegmentStartMs: start, SegmentEndMs: start + widthMs}}
			buckets[start] = b
		}
		switch in.Label {
		case model.LabelPositive:
			b.seg.PositiveCount++
		case model.LabelNegative:
			b.seg.NegativeCount++
		default:
			b.seg.NeutralCount++
		}
		b.seg.DanmakuCount++
		b.total += in.Score
	}

	for _, b := range buckets {
		segments = append(segments, finalize(b))
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].SegmentStartMs < segments[j].SegmentStartMs })
	return segments, skipped
}

func finalize(b *bucket) model.SentimentSegment {
	s := b.seg
	s.Score = 0.5
	if s.DanmakuCount > 0 {
		s.Score = b.total / float64(s.DanmakuCount)
	}
	s.Sentiment = Dominant(s.PositiveCount, s.NeutralCount, s.NegativeCount)
	return s
}

// Dominant 严格多数：正面须同时严格多于负面和中性，负面同理，其余（含并列）为中性
func Dominant(pos, neu, neg int) model.SentimentLabel {
	switch {
	case pos > neg && pos > neu:
		return model.LabelPositive
	case neg > pos && neg > neu:
		return model.LabelNegative
	default:
		return model.LabelNeutral
	}
}
