package openaimodel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/model"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newChatServer 模拟 /chat/completions，按输入条数返回固定标签
func newChatServer(t *testing.T, label string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)

		var texts []string
		require.NoError(t, json.Unmarshal([]byte(req.Messages[1].Content), &texts))
		labels := make([]string, len(texts))
		for i := range labels {
			labels[i] = label
		}
		content, _ := json.Marshal(labelsPayload{Labels: labels})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: string(content)},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBackendPredict(t *testing.T) {
	srv := newChatServer(t, "negative")
	b := NewBackend(&config.InferenceConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, newTestLogger())

	require.NoError(t, b.Load(context.Background()))
	got, err := b.Predict(context.Background(), []string{"太烂了", "无聊"}, 16)
	require.NoError(t, err)
	assert.Equal(t, []model.SentimentLabel{model.LabelNegative, model.LabelNegative}, got)
	assert.Equal(t, model.DeviceGPU, b.Device())
}

func TestBackendLoadWithoutCredentials(t *testing.T) {
	b := NewBackend(&config.InferenceConfig{}, newTestLogger())
	assert.True(t, errors.Is(b.Load(context.Background()), model.ErrProviderUnavailable))
}

func TestParseLabels(t *testing.T) {
	got, err := parseLabels("```json\n{\"labels\": [\"Positive\", \" neutral \"]}\n```", 2)
	require.NoError(t, err)
	assert.Equal(t, []model.SentimentLabel{model.LabelPositive, model.LabelNeutral}, got)

	_, err = parseLabels(`{"labels": ["positive"]}`, 2)
	assert.True(t, errors.Is(err, model.ErrProviderFailure))

	_, err = parseLabels(`{"labels": ["happy"]}`, 1)
	assert.True(t, errors.Is(err, model.ErrProviderFailure))

	_, err = parseLabels(`not json`, 1)
	assert.True(t, errors.Is(err, model.ErrProviderFailure))
}
