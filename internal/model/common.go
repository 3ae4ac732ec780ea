package model

import (
	"encoding/json"
	"time"
)

// AnalysisKind 分析类型枚举
type AnalysisKind string

const (
	KindKeyword   AnalysisKind = "keyword"
	KindSentiment AnalysisKind = "sentiment"
	KindTimeline  AnalysisKind = "timeline"
	KindUser      AnalysisKind = "user"
	KindAll       AnalysisKind = "all"
)

// SingleKinds 可单独缓存的分析类型（all 不落库）
var SingleKinds = []AnalysisKind{KindKeyword, KindSentiment, KindTimeline, KindUser}

// ParseAnalysisKind 解析请求中的分析类型，空串视为 all；兼容旧接口的 user_activity
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	switch s {
	case "", string(KindAll):
		return KindAll, nil
	case string(KindKeyword), string(KindSentiment), string(KindTimeline), string(KindUser):
		return AnalysisKind(s), nil
	case "user_activity":
		return KindUser, nil
	}
	return "", ErrUnknownKind
}

// SentimentLabel 三态情感标签
type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNeutral  SentimentLabel = "neutral"
	LabelNegative SentimentLabel = "negative"
)

// Valid 是否为三种合法标签之一
func (l SentimentLabel) Valid() bool {
	return l == LabelPositive || l == LabelNeutral || l == LabelNegative
}

// EventScore 单条弹幕的情感分（供时间分段求均值），中性取 0.5
func (l SentimentLabel) EventScore() float64 {
	switch l {
	case LabelPositive:
		return 0.75
	case LabelNegative:
		return 0.25
	}
	return 0.5
}

// DanmakuEvent 引擎读取的弹幕记录，不可变。PageID/ProgressMs 为空表示上游缺失
type DanmakuEvent struct {
	Content    string
	ProgressMs *float64
	PageID     *int
	UserHash   string
	SendTime   time.Time
}

// PageInfo 分P信息，DurationSec=0 为未知时长
type PageInfo struct {
	PageID      int `json:"page_id"`
	DurationSec int `json:"duration"`
}

// EpisodeBoundary 分P在整条时间轴上的区间（秒），由 PageInfo 前缀和得到
type EpisodeBoundary struct {
	PageID       int `json:"page_id"`
	StartTimeSec int `json:"start_time_sec"`
	EndTimeSec   int `json:"end_time_sec"`
	DurationSec  int `json:"duration_sec"`
}

// AnalysisOptions 单次分析的参数，按值传递
type AnalysisOptions struct {
	UseModel          bool          // 是否尝试使用模型推理
	BatchSize         int           // 0 表示按设备和数量自动选择
	MaxTextLength     int           // 单条文本截断长度
	MaxProcessingTime time.Duration // 推理总时长预算
	ForceRefresh      bool          // 跳过结果缓存
}

// AnalysisResult 结果仓储中的一条缓存记录
type AnalysisResult struct {
	VideoBVID string          `json:"bvid"`
	Kind      AnalysisKind    `json:"analysis_type"`
	Payload   json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
