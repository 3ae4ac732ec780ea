package model

import "time"

// DeviceClass 推理后端的设备类型，决定自动批大小档位
type DeviceClass string

const (
	DeviceCPU DeviceClass = "cpu"
	DeviceGPU DeviceClass = "gpu"
)

// BatchOptions 单次批量分类参数
type BatchOptions struct {
	BatchSize     int           // 0 为自动
	MaxTextLength int           // 0 为不截断
	Budget        time.Duration // 0 为使用默认预算
}

// Classification 批量分类结果，Labels 与输入等长同序
type Classification struct {
	Labels        []SentimentLabel
	FallbackCount int  // 由词表兜底的条数
	TimedOut      bool // 预算耗尽后剩余部分走了兜底
}

// PerformanceStats 推理服务运行统计，仅供展示
type PerformanceStats struct {
	TotalCalls          int64       `json:"total_calls"`
	SuccessfulCalls     int64       `json:"successful_calls"`
	FailedCalls         int64       `json:"failed_calls"`
	SuccessRate         float64     `json:"success_rate"`
	AvgTimePerText      float64     `json:"avg_time_per_text"` // 秒
	TextsPerSecond      float64     `json:"texts_per_second"`
	TotalProcessedTexts int64       `json:"total_processed_texts"`
	UptimeSeconds       float64     `json:"uptime"`
	Device              DeviceClass `json:"device"`
	Ready               bool        `json:"ready"`
	CacheEnabled        bool        `json:"cache_enabled"`
	CacheSize           int         `json:"cache_size"`
	CacheLimit          int         `json:"cache_limit"`
}
