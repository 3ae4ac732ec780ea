package timeline

import (
	"sort"

	"DanmakuAnalysis/internal/model"
)

// PageStarts page_id → 分P在整条时间轴上的起点（秒）
func PageStarts(boundaries []model.EpisodeBoundary) map[int]int {
	starts := make(map[int]int, len(boundaries))
	for _, b := range boundaries {
		starts[b.PageID] = b.StartTimeSec
	}
	return starts
}

// AbsoluteMs 弹幕在整条时间轴上的毫秒位置。缺少 page_id/progress 或分P无法定位时 ok=false
func AbsoluteMs(ev model.DanmakuEvent, starts map[int]int) (ms float64, ok bool) {
	if ev.PageID == nil || ev.ProgressMs == nil {
		return 0, false
	}
	start, found := starts[*ev.PageID]
	if !found {
		return 0, false
	}
	ms = float64(start)*1000 + *ev.ProgressMs
	if ms < 0 {
		return 0, false
	}
	return ms, true
}

// PageForTime 绝对秒所属的分P：恰好等于最后一个分P终点时归最后一个分P，
// 其余按 [start, end) 匹配；都不匹配时归最后一个分P并返回 matched=false
func PageForTime(boundaries []model.EpisodeBoundary, sec int) (pageID int, matched bool) {
	if len(boundaries) == 0 {
		return 1, false
	}
	last := boundaries[len(boundaries)-1]
	if sec == last.EndTimeSec {
		return last.PageID, true
	}
	for _, b := range boundaries {
		if b.StartTimeSec <= sec && sec < b.EndTimeSec {
			return b.PageID, true
		}
	}
	return last.PageID, false
}

// sortedPages 按 page_id 排序的副本
func sortedPages(pages []model.PageInfo) []model.PageInfo {
	out := append([]model.PageInfo(nil), pages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PageID < out[j].PageID })
	return out
}
