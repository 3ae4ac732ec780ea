package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"DanmakuAnalysis/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTaskManager(fn AnalyzeFunc) *TaskManager {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewTaskManager(fn, logger)
}

func waitFinished(t *testing.T, m *TaskManager, id string) Task {
	t.Helper()
	var task Task
	require.Eventually(t, func() bool {
		got, err := m.Status(id)
		if err != nil {
			return false
		}
		task = got
		return task.Status == TaskCompleted || task.Status == TaskFailed
	}, 2*time.Second, 5*time.Millisecond)
	return task
}

func TestTaskManager_Completed(t *testing.T) {
	m := newTestTaskManager(func(_ context.Context, bvid string, kind model.AnalysisKind, _ model.AnalysisOptions) (json.RawMessage, error) {
		return json.RawMessage(`{"bvid":"` + bvid + `","type":"` + string(kind) + `"}`), nil
	})

	id := m.Submit("BV1", model.KindTimeline, model.AnalysisOptions{})
	assert.NotEmpty(t, id)

	task := waitFinished(t, m, id)
	assert.Equal(t, TaskCompleted, task.Status)
	assert.Equal(t, "BV1", task.BVID)
	assert.JSONEq(t, `{"bvid":"BV1","type":"timeline"}`, string(task.Result))
	assert.Empty(t, task.Error)
}

func TestTaskManager_Failed(t *testing.T) {
	m := newTestTaskManager(func(context.Context, string, model.AnalysisKind, model.AnalysisOptions) (json.RawMessage, error) {
		return nil, errors.New("boom")
	})
	task := waitFinished(t, m, m.Submit("BV1", model.KindKeyword, model.AnalysisOptions{}))
	assert.Equal(t, TaskFailed, task.Status)
	assert.Equal(t, "boom", task.Error)
}

func TestTaskManager_PanicMarksFailed(t *testing.T) {
	m := newTestTaskManager(func(context.Context, string, model.AnalysisKind, model.AnalysisOptions) (json.RawMessage, error) {
		panic("unexpected")
	})
	task := waitFinished(t, m, m.Submit("BV1", model.KindKeyword, model.AnalysisOptions{}))
	assert.Equal(t, TaskFailed, task.Status)
	assert.Contains(t, task.Error, "unexpected")
}

func TestTaskManager_StatusNotFound(t *testing.T) {
	m := newTestTaskManager(nil)
	_, err := m.Status("missing")
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
	assert.True(t, IsNotFound(err))
}

func TestTaskManager_Cleanup(t *testing.T) {
	release := make(chan struct{})
	m := newTestTaskManager(func(_ context.Context, bvid string, _ model.AnalysisKind, _ model.AnalysisOptions) (json.RawMessage, error) {
		if bvid == "BVslow" {
			<-release
		}
		return json.RawMessage(`{}`), nil
	})
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	done := m.Submit("BVfast", model.KindUser, model.AnalysisOptions{})
	waitFinished(t, m, done)
	slow := m.Submit("BVslow", model.KindUser, model.AnalysisOptions{})

	assert.Zero(t, m.Cleanup(time.Hour))

	m.mu.Lock()
	clock = clock.Add(2 * time.Hour)
	m.mu.Unlock()

	assert.Equal(t, 1, m.Cleanup(time.Hour))
	_, err := m.Status(done)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)

	// 运行中的任务不清理
	_, err = m.Status(slow)
	assert.NoError(t, err)
	close(release)
	waitFinished(t, m, slow)
}
