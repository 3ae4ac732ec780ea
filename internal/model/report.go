package model

// KeywordItem 关键词及其词频权重
type KeywordItem struct {
	Keyword   string  `json:"keyword"`
	Frequency int     `json:"frequency"`
	Weight    float64 `json:"weight"` // count / total_tokens
}

// SentimentCounts 三态计数
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Add 按标签累加一次
func (c *SentimentCounts) Add(label SentimentLabel) {
	switch label {
	case LabelPositive:
		c.Positive++
	case LabelNegative:
		c.Negative++
	default:
		c.Neutral++
	}
}

// Total 三态总数
func (c SentimentCounts) Total() int {
	return c.Positive + c.Neutral + c.Negative
}

// SentimentSegment 固定时间窗内的情感统计
type SentimentSegment struct {
	SegmentStartMs int64          `json:"segment_start"`
	SegmentEndMs   int64          `json:"segment_end"`
	PositiveCount  int            `json:"positive_count"`
	NeutralCount   int            `json:"neutral_count"`
	NegativeCount  int            `json:"negative_count"`
	Score          float64        `json:"score"`
	Sentiment      SentimentLabel `json:"sentiment"`
	DanmakuCount   int            `json:"danmaku_count"`
}

// SentimentVisualization 前端饼图用的百分比、主导情感和强度等级
type SentimentVisualization struct {
	Percentages map[SentimentLabel]float64 `json:"percentages"`
	Dominant    SentimentLabel             `json:"dominant"`
	ScoreLevel  string                     `json:"score_level"`
}

// SentimentReport 情感分析报告
type SentimentReport struct {
	Message          string                 `json:"message"`
	SentimentCounts  SentimentCounts        `json:"sentiment_counts"`
	SentimentScore   float64                `json:"sentiment_score"`
	ScoreLevel       string                 `json:"score_level"`
	UsedModel        bool                   `json:"used_model"`
	Sampled          bool                   `json:"sampled"`
	SampleSize       int                    `json:"sample_size"`
	OriginalSize     int                    `json:"original_size"`
	AutoDowngraded   bool                   `json:"auto_downgraded"`
	Degraded         bool                   `json:"degraded"`
	FallbackCount    int                    `json:"fallback_count"`
	Visualization    SentimentVisualization `json:"visualization"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
	Segments         []SentimentSegment     `json:"segments"`
}

// TimelinePoint 每秒弹幕数，携带所属分P
type TimelinePoint struct {
	Time   int `json:"time"`
	Count  int `json:"count"`
	PageID int `json:"page_id"`
}

// TimelineReport 时间线分析报告
type TimelineReport struct {
	Timeline          []TimelinePoint   `json:"timeline"`
	Peaks             []TimelinePoint   `json:"peaks"`
	EpisodeBoundaries []EpisodeBoundary `json:"episode_boundaries"`
	TotalCount        int               `json:"total_count"`
}

// UserCount 单个用户的弹幕数
type UserCount struct {
	UserHash string `json:"user_hash"`
	Count    int    `json:"count"`
}

// DistributionBucket 用户发送量分布区间，Max=0 表示无上限
type DistributionBucket struct {
	Name  string `json:"name"`
	Min   int    `json:"min"`
	Max   int    `json:"max,omitempty"`
	Users int    `json:"users"`
}

// UserActivityReport 用户活跃度报告
type UserActivityReport struct {
	TopUsers         []UserCount          `json:"top_users"`
	TotalUsers       int                  `json:"total_users"`
	AvgPerUser       float64              `json:"avg_per_user"`
	UserDistribution []DistributionBucket `json:"user_distribution"`
}

// VideoSummary 全量报告中的视频摘要
type VideoSummary struct {
	BVID         string `json:"bvid"`
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	DanmakuCount int    `json:"danmaku_count"`
}

// CombinedReport 全量分析报告
type CombinedReport struct {
	Message          string             `json:"message"`
	Video            VideoSummary       `json:"video"`
	Keywords         []KeywordItem      `json:"keywords"`
	Sentiment        SentimentReport    `json:"sentiment"`
	Timeline         TimelineReport     `json:"timeline"`
	UserActivity     UserActivityReport `json:"user_activity"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
}
