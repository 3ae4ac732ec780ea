package httpmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"DanmakuAnalysis/internal/adapter"
	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/model"
	"DanmakuAnalysis/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// ProviderName 配置中的 inference.provider 取值
const ProviderName = "http"

// labelMap 模型输出的类别下标 → 标签
var labelMap = map[int]model.SentimentLabel{
	0: model.LabelNegative,
	1: model.LabelPositive,
	2: model.LabelNeutral,
}

func init() {
	adapter.Register(ProviderName, NewBackend)
}

// Backend 自建情感模型服务：GET /health 探活并上报设备，POST /predict 批量分类
type Backend struct {
	cfg        *config.InferenceConfig
	httpClient *http.Client
	logger     *logrus.Logger

	mu     sync.RWMutex
	device model.DeviceClass
}

// NewBackend 创建 http 推理后端
func NewBackend(cfg *config.InferenceConfig, logger *logrus.Logger) interfaces.ModelBackend {
	return &Backend{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
		device:     normalizeDevice(cfg.Device),
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

type predictRequest struct {
	Texts     []string `json:"texts"`
	MaxLength int      `json:"max_length,omitempty"`
}

// predictResponse 两种格式择一：labels 为标签字符串，predictions 为类别下标
type predictResponse struct {
	Labels      []string `json:"labels"`
	Predictions []int    `json:"predictions"`
}

func (b *Backend) Name() string { return ProviderName }

func (b *Backend) Device() model.DeviceClass {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.device
}

// Load 探活模型服务，服务返回的设备类型覆盖配置
func (b *Backend) Load(ctx context.Context) error {
	if b.cfg.BaseURL == "" {
		return fmt.Errorf("%w: 未配置模型服务地址", model.ErrProviderUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint("/health"), nil)
	if err != nil {
		return fmt.Errorf("构建探活请求失败: %w", err)
	}
	b.authorize(req)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			b.logger.Errorf("关闭模型服务响应体失败: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: 探活返回状态码 %d", model.ErrProviderUnavailable, resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("解析探活响应失败: %w", err)
	}
	if health.Device != "" {
		b.mu.Lock()
		b.device = normalizeDevice(health.Device)
		b.mu.Unlock()
	}
	b.logger.WithFields(logrus.Fields{
		"base_url": b.cfg.BaseURL,
		"status":   health.Status,
		"device":   b.Device(),
	}).Info("模型服务探活成功")
	return nil
}

// Predict 批量分类一批文本
func (b *Backend) Predict(ctx context.Context, texts []string, maxLen int) ([]model.SentimentLabel, error) {
	body, err := json.Marshal(predictRequest{Texts: texts, MaxLength: maxLen})
	if err != nil {
		return nil, fmt.Errorf("序列化推理请求失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("/predict"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构建推理请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	b.authorize(req)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrProviderFailure, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			b.logger.Errorf("关闭模型服务响应体失败: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: 推理返回状态码 %d", model.ErrProviderFailure, resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析推理响应失败: %w", err)
	}
	return toLabels(out, len(texts))
}

func (b *Backend) endpoint(path string) string {
	return strings.TrimRight(b.cfg.BaseURL, "/") + path
}

func (b *Backend) authorize(req *http.Request) {
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}
}

func toLabels(out predictResponse, want int) ([]model.SentimentLabel, error) {
	labels := make([]model.SentimentLabel, 0, want)
	switch {
	case len(out.Labels) > 0:
		for _, l := range out.Labels {
			label := model.SentimentLabel(strings.ToLower(l))
			if !label.Valid() {
				return nil, fmt.Errorf("%w: 未知标签 %q", model.ErrProviderFailure, l)
			}
			labels = append(labels, label)
		}
	default:
		for _, p := range out.Predictions {
			label, ok := labelMap[p]
			if !ok {
				return nil, fmt.Errorf("%w: 未知类别 %d", model.ErrProviderFailure, p)
			}
			labels = append(labels, label)
		}
	}
	if len(labels) != want {
		return nil, fmt.Errorf("%w: 返回%d条结果，期望%d条", model.ErrProviderFailure, len(labels), want)
	}
	return labels, nil
}

func normalizeDevice(s string) model.DeviceClass {
	switch strings.ToLower(s) {
	case "gpu", "cuda":
		return model.DeviceGPU
	}
	return model.DeviceCPU
}
