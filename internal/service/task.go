package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"DanmakuAnalysis/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TaskStatus 异步任务状态
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task 一次后台分析
type Task struct {
	ID        string             `json:"task_id"`
	BVID      string             `json:"bvid"`
	Kind      model.AnalysisKind `json:"analysis_type"`
	Status    TaskStatus         `json:"status"`
	Result    json.RawMessage    `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// AnalyzeFunc 任务执行体，通常为 AnalysisService.Analyze
type AnalyzeFunc func(ctx context.Context, bvid string, kind model.AnalysisKind, opts model.AnalysisOptions) (json.RawMessage, error)

// TaskManager 内存中的异步分析任务表
type TaskManager struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	analyze AnalyzeFunc
	logger  *logrus.Logger
	now     func() time.Time
}

// NewTaskManager 创建 TaskManager
func NewTaskManager(analyze AnalyzeFunc, logger *logrus.Logger) *TaskManager {
	return &TaskManager{
		tasks:   make(map[string]*Task),
		analyze: analyze,
		logger:  logger,
		now:     time.Now,
	}
}

// Submit 提交后台分析，立即返回任务ID。任务不随请求取消
func (m *TaskManager) Submit(bvid string, kind model.AnalysisKind, opts model.AnalysisOptions) string {
	now := m.now()
	task := &Task{
		ID:        uuid.New().String(),
		BVID:      bvid,
		Kind:      kind,
		Status:    TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()

	go m.run(task.ID, bvid, kind, opts)
	m.logger.WithFields(logrus.Fields{"task_id": task.ID, "bvid": bvid, "type": kind}).Info("已提交异步分析任务")
	return task.ID
}

func (m *TaskManager) run(id, bvid string, kind model.AnalysisKind, opts model.AnalysisOptions) {
	m.update(id, func(t *Task) { t.Status = TaskRunning })

	result, err := m.safeAnalyze(bvid, kind, opts)
	m.update(id, func(t *Task) {
		t.Result = result
		if err != nil {
			t.Status = TaskFailed
			t.Error = err.Error()
			return
		}
		t.Status = TaskCompleted
	})
	if err != nil {
		m.logger.WithError(err).WithField("task_id", id).Error("异步分析任务失败")
	}
}

func (m *TaskManager) safeAnalyze(bvid string, kind model.AnalysisKind, opts model.AnalysisOptions) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.analyze(context.Background(), bvid, kind, opts)
}

func (m *TaskManager) update(id string, fn func(t *Task)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		fn(t)
		t.UpdatedAt = m.now()
	}
}

// Status 返回任务快照
func (m *TaskManager) Status(id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", model.ErrTaskNotFound, id)
	}
	return *t, nil
}

// Cleanup 删除结束超过 retention 的任务，返回删除数
func (m *TaskManager) Cleanup(retention time.Duration) int {
	cutoff := m.now().Add(-retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, t := range m.tasks {
		if (t.Status == TaskCompleted || t.Status == TaskFailed) && t.UpdatedAt.Before(cutoff) {
			delete(m.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.WithField("removed", removed).Info("已清理过期异步任务")
	}
	return removed
}

// IsNotFound 任务或视频不存在
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrTaskNotFound) || errors.Is(err, model.ErrVideoNotFound)
}
