package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/inference"
	"DanmakuAnalysis/internal/model"
	"DanmakuAnalysis/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnalysisHandler 弹幕分析接口
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	tasks           *service.TaskManager
	provider        *inference.Provider
	cfg             *config.Config
	logger          *logrus.Logger
}

// NewAnalysisHandler 创建 AnalysisHandler
func NewAnalysisHandler(svc *service.AnalysisService, tasks *service.TaskManager, provider *inference.Provider, cfg *config.Config, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: svc,
		tasks:           tasks,
		provider:        provider,
		cfg:             cfg,
		logger:          logger,
	}
}

// RegisterRoutes 挂载 /api/analyses 下的全部路由
func (h *AnalysisHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/api/analyses")
	g.POST("/analyze", h.Analyze)
	g.GET("", h.ListResults)
	g.DELETE("/:bvid", h.Invalidate)
	g.GET("/tasks/:task_id", h.TaskStatus)
	g.POST("/tasks/cleanup", h.CleanupTasks)
	g.GET("/provider", h.ProviderStatus)
	g.POST("/provider/cache/clear", h.ClearProviderCache)
	g.GET("/config", h.GetConfig)
}

// AnalyzeRequest 分析请求 body，未填的参数取配置默认值
type AnalyzeRequest struct {
	BVID              string `json:"bvid" binding:"required"`
	Type              string `json:"type"`                // keyword/sentiment/timeline/user/all，空为 all
	UseModel          *bool  `json:"use_model"`           // 空则按配置
	BatchSize         int    `json:"batch_size"`          // 0 自动
	MaxTextLength     int    `json:"max_text_length"`     // 0 取配置
	MaxProcessingTime int    `json:"max_processing_time"` // 秒，0 取配置
	Async             bool   `json:"async"`
	ForceRefresh      bool   `json:"force_refresh"`
}

// Analyze 执行分析 POST /api/analyses/analyze
// 同步模式直接返回结果 JSON；async=true 时返回 task_id
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	kind, err := model.ParseAnalysisKind(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() + ": " + req.Type})
		return
	}

	opts := h.analysisService.DefaultOptions()
	if req.UseModel != nil {
		opts.UseModel = *req.UseModel
	}
	if req.BatchSize > 0 {
		opts.BatchSize = req.BatchSize
	}
	if req.MaxTextLength > 0 {
		opts.MaxTextLength = req.MaxTextLength
	}
	if req.MaxProcessingTime > 0 {
		opts.MaxProcessingTime = time.Duration(req.MaxProcessingTime) * time.Second
	}
	opts.ForceRefresh = req.ForceRefresh

	if req.Async {
		id := h.tasks.Submit(req.BVID, kind, opts)
		c.JSON(http.StatusAccepted, gin.H{"task_id": id, "status": service.TaskPending})
		return
	}

	payload, err := h.analysisService.Analyze(c.Request.Context(), req.BVID, kind, opts)
	if err != nil {
		h.logger.WithError(err).WithField("bvid", req.BVID).Error("Analyze failed")
		if errors.Is(err, model.ErrAnalysisFailed) && payload != nil {
			c.Data(http.StatusInternalServerError, "application/json; charset=utf-8", payload)
			return
		}
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// ListResults 已缓存的分析结果 GET /api/analyses?bvid=xxx&type=keyword
func (h *AnalysisHandler) ListResults(c *gin.Context) {
	var kind model.AnalysisKind
	if t := c.Query("type"); t != "" {
		k, err := model.ParseAnalysisKind(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() + ": " + t})
			return
		}
		kind = k
	}
	items, err := h.analysisService.List(c.Request.Context(), c.Query("bvid"), kind)
	if err != nil {
		h.logger.WithError(err).Error("ListResults failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

// Invalidate 清除视频的分析缓存 DELETE /api/analyses/:bvid
func (h *AnalysisHandler) Invalidate(c *gin.Context) {
	bvid := c.Param("bvid")
	n, err := h.analysisService.Invalidate(c.Request.Context(), bvid)
	if err != nil {
		h.logger.WithError(err).Error("Invalidate failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bvid": bvid, "deleted": n})
}

// TaskStatus 异步任务状态 GET /api/analyses/tasks/:task_id
func (h *AnalysisHandler) TaskStatus(c *gin.Context) {
	task, err := h.tasks.Status(c.Param("task_id"))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// CleanupTasks 清理已结束的旧任务 POST /api/analyses/tasks/cleanup?retention_seconds=3600
func (h *AnalysisHandler) CleanupTasks(c *gin.Context) {
	retention := h.cfg.Cache.TaskRetention
	if v := c.Query("retention_seconds"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "retention_seconds must be a non-negative integer"})
			return
		}
		retention = time.Duration(sec) * time.Second
	}
	c.JSON(http.StatusOK, gin.H{"removed": h.tasks.Cleanup(retention)})
}

// ProviderStatus 推理服务状态 GET /api/analyses/provider
func (h *AnalysisHandler) ProviderStatus(c *gin.Context) {
	provider := h.cfg.Inference.Provider
	if provider == "" {
		provider = "none"
	}
	c.JSON(http.StatusOK, gin.H{"provider": provider, "stats": h.provider.Stats()})
}

// ClearProviderCache 清空推理结果缓存 POST /api/analyses/provider/cache/clear
func (h *AnalysisHandler) ClearProviderCache(c *gin.Context) {
	if !h.provider.ClearCache() {
		c.JSON(http.StatusOK, gin.H{"cleared": false, "message": "缓存未启用"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true, "message": "缓存已清空"})
}

// GetConfig 当前生效的分析参数（不含密钥）GET /api/analyses/config
func (h *AnalysisHandler) GetConfig(c *gin.Context) {
	inf := h.cfg.Inference
	c.JSON(http.StatusOK, gin.H{
		"inference": gin.H{
			"provider":        inf.Provider,
			"model":           inf.Model,
			"device":          inf.Device,
			"cache_enabled":   inf.CacheEnabled,
			"cache_size":      inf.CacheSize,
			"eviction_policy": inf.EvictionPolicy,
			"gpu_batch_tiers": inf.GPUBatchTiers,
			"cpu_batch_tiers": inf.CPUBatchTiers,
			"volume_tiers":    inf.VolumeTiers,
			"min_budget":      inf.MinBudget,
			"max_budget":      inf.MaxBudget,
		},
		"sentiment":     h.cfg.Sentiment,
		"keyword":       gin.H{"top_n": h.cfg.Keyword.TopN, "max_sample_size": h.cfg.Keyword.MaxSampleSize},
		"timeline":      h.cfg.Timeline,
		"user_activity": h.cfg.UserActivity,
		"cache": gin.H{
			"ttl_seconds":            int64(h.cfg.Cache.TTL.Seconds()),
			"task_retention_seconds": int64(h.cfg.Cache.TaskRetention.Seconds()),
		},
	})
}

// statusOf 错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case service.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnknownKind):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
