package interfaces

import (
	"context"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/model"

	"github.com/sirupsen/logrus"
)

// InferenceProvider 情感模型推理服务。ClassifyBatch 不因推理失败返回错误：
// 失败批次和超出预算的部分都由词表兜底，返回的标签与输入等长同序
type InferenceProvider interface {
	IsReady() bool
	Load(ctx context.Context) bool
	ClassifyBatch(ctx context.Context, texts []string, opts model.BatchOptions) (model.Classification, error)
	Stats() model.PerformanceStats
}

// Segmenter 分词器及停用词判断
type Segmenter interface {
	Tokenize(text string) []string
	IsStop(token string) bool
}

// ModelBackend 具体的模型推理后端（自建模型服务 / OpenAI 兼容接口）。
// Predict 返回与输入等长同序的标签，任何不一致都应返回错误
type ModelBackend interface {
	Name() string
	Device() model.DeviceClass
	Load(ctx context.Context) error
	Predict(ctx context.Context, texts []string, maxLen int) ([]model.SentimentLabel, error)
}

// BackendFactory 推理后端工厂函数签名
// 入参：推理配置、日志实例
// 出参：实现 ModelBackend 接口的后端实例
type BackendFactory func(cfg *config.InferenceConfig, logger *logrus.Logger) ModelBackend
