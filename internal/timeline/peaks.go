package timeline

import (
	"math"
	"sort"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/model"
)

const peakEpsilon = 1e-6

// PeakOptions 峰值检测参数
type PeakOptions struct {
	K        float64 // 阈值 = μ + K·σ + ε
	MinAbs   int     // 绝对最小计数
	MinRatio float64 // 相对均值的最小比例
	TopN     int     // 全局保留数量，<=0 不限制
}

// PeakOptionsFromConfig 从配置构建峰值参数
func PeakOptionsFromConfig(cfg config.TimelineConfig) PeakOptions {
	return PeakOptions{
		K:        cfg.PeakStdThreshold,
		MinAbs:   cfg.MinPeakCountAbs,
		MinRatio: cfg.MinPeakCountRatio,
		TopN:     cfg.TopNPeaks,
	}
}

// DetectPeaks 计数严格高于 μ+k·σ+ε 且不低于 max(1, min_abs, round(μ·ratio)) 的点为峰值，
// 按计数降序（同计数按时间升序）取前 TopN。σ 为样本标准差，单点时为 0
func DetectPeaks(points []model.TimelinePoint, opts PeakOptions) []model.TimelinePoint {
	peaks := []model.TimelinePoint{}
	if len(points) == 0 {
		return peaks
	}

	mean, std := meanStd(points)
	threshold := mean + opts.K*std + peakEpsilon
	minCount := max(1, opts.MinAbs, int(math.Round(mean*opts.MinRatio)))

	for _, p := range points {
		if float64(p.Count) > threshold && p.Count >= minCount {
			peaks = append(peaks, p)
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		if peaks[i].Count != peaks[j].Count {
			return peaks[i].Count > peaks[j].Count
		}
		return peaks[i].Time < peaks[j].Time
	})
	if opts.TopN > 0 && len(peaks) > opts.TopN {
		peaks = peaks[:opts.TopN]
	}
	return peaks
}

func meanStd(points []model.TimelinePoint) (mean, std float64) {
	n := float64(len(points))
	for _, p := range points {
		mean += float64(p.Count)
	}
	mean /= n
	if len(points) <= 1 {
		return mean, 0
	}
	var ss float64
	for _, p := range points {
		d := float64(p.Count) - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}
