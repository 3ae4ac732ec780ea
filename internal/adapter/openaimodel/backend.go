package openaimodel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"DanmakuAnalysis/internal/adapter"
	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/model"
	"DanmakuAnalysis/internal/utils/httpclient"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// ProviderName 配置中的 inference.provider 取值
const ProviderName = "openai"

const defaultModel = openai.GPT4oMini

const systemPrompt = `你是弹幕情感分类器。用户会给出一个 JSON 字符串数组，每个元素是一条视频弹幕。
对每条弹幕判断情感，只能是 "positive"、"neutral"、"negative" 之一。
只返回 JSON 对象 {"labels": [...]}，labels 与输入等长同序，不要输出任何其他内容。`

func init() {
	adapter.Register(ProviderName, NewBackend)
}

// Backend 通过 OpenAI 兼容的 chat completion 接口做情感分类，设备视为 gpu 档位
type Backend struct {
	cfg    *config.InferenceConfig
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewBackend 创建 openai 推理后端，base_url 为空时使用官方地址
func NewBackend(cfg *config.InferenceConfig, logger *logrus.Logger) interfaces.ModelBackend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpclient.NewHTTPClient(cfg, logger)

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}
	return &Backend{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		model:  modelName,
		logger: logger,
	}
}

func (b *Backend) Name() string { return ProviderName }

func (b *Backend) Device() model.DeviceClass { return model.DeviceGPU }

// Load 校验凭据，并用一次极小请求确认接口可用
func (b *Backend) Load(ctx context.Context) error {
	if b.cfg.APIKey == "" && b.cfg.BaseURL == "" {
		return fmt.Errorf("%w: 未配置 api_key", model.ErrProviderUnavailable)
	}
	if _, err := b.Predict(ctx, []string{"好看"}, 0); err != nil {
		return fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
	}
	b.logger.WithField("model", b.model).Info("OpenAI 兼容推理接口可用")
	return nil
}

type labelsPayload struct {
	Labels []string `json:"labels"`
}

// Predict 一批文本合并为一次请求
func (b *Backend) Predict(ctx context.Context, texts []string, maxLen int) ([]model.SentimentLabel, error) {
	if maxLen > 0 {
		clipped := make([]string, len(texts))
		for i, t := range texts {
			if r := []rune(t); len(r) > maxLen {
				t = string(r[:maxLen])
			}
			clipped[i] = t
		}
		texts = clipped
	}
	input, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("序列化弹幕失败: %w", err)
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(input)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrProviderFailure, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response choices", model.ErrProviderFailure)
	}
	return parseLabels(resp.Choices[0].Message.Content, len(texts))
}

func parseLabels(content string, want int) ([]model.SentimentLabel, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload labelsPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return nil, fmt.Errorf("%w: 解析模型输出失败: %v", model.ErrProviderFailure, err)
	}
	if len(payload.Labels) != want {
		return nil, fmt.Errorf("%w: 返回%d条结果，期望%d条", model.ErrProviderFailure, len(payload.Labels), want)
	}
	labels := make([]model.SentimentLabel, want)
	for i, l := range payload.Labels {
		label := model.SentimentLabel(strings.ToLower(strings.TrimSpace(l)))
		if !label.Valid() {
			return nil, fmt.Errorf("%w: 未知标签 %q", model.ErrProviderFailure, l)
		}
		labels[i] = label
	}
	return labels, nil
}
