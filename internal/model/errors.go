package model

import "errors"

var (
	// ErrVideoNotFound 视频不存在（上游未爬取），不重试
	ErrVideoNotFound = errors.New("视频不存在")
	// ErrNoDanmaku 视频存在但没有任何弹幕，分析短路为零值报告
	ErrNoDanmaku = errors.New("视频没有弹幕数据")
	// ErrProviderUnavailable 推理服务未配置或加载失败
	ErrProviderUnavailable = errors.New("推理服务不可用")
	// ErrProviderFailure 推理调用失败，仅在适配器内部使用，最终由词表兜底
	ErrProviderFailure = errors.New("推理调用失败")
	// ErrUnknownKind 不支持的分析类型
	ErrUnknownKind = errors.New("不支持的分析类型")
	// ErrTaskNotFound 异步任务不存在或已清理
	ErrTaskNotFound = errors.New("任务不存在")
	// ErrAnalysisFailed 全量分析中途失败，结果体为 AnalysisError
	ErrAnalysisFailed = errors.New("分析失败")
)

// AnalysisError 全量分析失败时返回的结构化错误结果（替代部分结果）
type AnalysisError struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Video   VideoSummary `json:"video"`
}
