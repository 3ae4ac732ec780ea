// Package timeline 计算多P视频的分P边界、每秒弹幕密度和全局峰值。
package timeline

import (
	"math"
	"sort"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/model"

	"github.com/sirupsen/logrus"
)

// Builder 时间线构建器
type Builder struct {
	peaks  PeakOptions
	logger *logrus.Logger
}

// NewBuilder 创建时间线构建器
func NewBuilder(cfg config.TimelineConfig, logger *logrus.Logger) *Builder {
	return &Builder{
		peaks:  PeakOptionsFromConfig(cfg),
		logger: logger,
	}
}

// BuildBoundaries 按 page_id 顺序前缀求和得到分P边界。时长为负按 0 处理（零宽窗口，不报错）。
// 没有分P信息时合成一个覆盖整段视频的分P 1（时长未知则为 0）
func (b *Builder) BuildBoundaries(pages []model.PageInfo, fallbackDuration int) []model.EpisodeBoundary {
	if len(pages) == 0 {
		d := max(fallbackDuration, 0)
		b.logger.WithField("duration", d).Warn("缺少分P信息，按单P视频处理")
		return []model.EpisodeBoundary{{PageID: 1, StartTimeSec: 0, EndTimeSec: d, DurationSec: d}}
	}

	boundaries := make([]model.EpisodeBoundary, 0, len(pages))
	cur := 0
	for _, p := range sortedPages(pages) {
		d := p.DurationSec
		if d <= 0 {
			b.logger.WithField("page_id", p.PageID).Warn("分P时长为 0 或无效")
			d = 0
		}
		boundaries = append(boundaries, model.EpisodeBoundary{
			PageID:       p.PageID,
			StartTimeSec: cur,
			EndTimeSec:   cur + d,
			DurationSec:  d,
		})
		cur += d
	}
	return boundaries
}

// Build 统计每个绝对秒的弹幕数并检测峰值。无法定位的弹幕跳过并汇总记录日志；
// total_count 为输入弹幕总数
func (b *Builder) Build(events []model.DanmakuEvent, boundaries []model.EpisodeBoundary) model.TimelineReport {
	if boundaries == nil {
		boundaries = []model.EpisodeBoundary{}
	}
	report := model.TimelineReport{
		Timeline:          []model.TimelinePoint{},
		Peaks:             []model.TimelinePoint{},
		EpisodeBoundaries: boundaries,
		TotalCount:        len(events),
	}
	if len(events) == 0 {
		return report
	}

	starts := PageStarts(boundaries)
	counts := make(map[int]int)
	skipped := 0
	for _, ev := range events {
		ms, ok := AbsoluteMs(ev, starts)
		if !ok {
			skipped++
			continue
		}
		counts[int(math.Floor(ms/1000))]++
	}
	if skipped > 0 {
		b.logger.WithFields(logrus.Fields{
			"skipped": skipped,
			"total":   len(events),
		}).Warn("部分弹幕缺少 progress/page_id 或分P无法定位，已跳过")
	}
	if len(counts) == 0 {
		b.logger.Warn("没有有效的弹幕时间数据")
		return report
	}

	unmatched := 0
	points := make([]model.TimelinePoint, 0, len(counts))
	for sec, c := range counts {
		pageID, matched := PageForTime(boundaries, sec)
		if !matched {
			unmatched++
		}
		points = append(points, model.TimelinePoint{Time: sec, Count: c, PageID: pageID})
	}
	if unmatched > 0 {
		b.logger.WithField("points", unmatched).Warn("部分时间点未匹配到分P边界，归类到最后一个分P")
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time < points[j].Time })

	report.Timeline = points
	report.Peaks = DetectPeaks(points, b.peaks)
	return report
}
